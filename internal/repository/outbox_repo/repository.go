package outbox_repo

import (
	"context"
	"time"

	"checkout/internal/domain"
)

type OutboxStatus string

const (
	StatusPending OutboxStatus = "PENDING"
	StatusSent    OutboxStatus = "SENT"
)

// OutboxMessage is a Kafka publish staged in the database so it commits in
// the same transaction as the business row it announces. A background
// sender drains pending messages to the broker.
type OutboxMessage struct {
	ID        string
	Topic     string
	Key       string
	Payload   []byte
	Status    OutboxStatus
	CreatedAt time.Time
	SentAt    *time.Time
}

type OutboxRepository interface {
	CreateMessageTx(ctx context.Context, querier domain.Querier, msg *OutboxMessage) error
	GetUnsentMessagesTx(ctx context.Context, querier domain.Querier) ([]*OutboxMessage, error)
	MarkMessageSentTx(ctx context.Context, querier domain.Querier, id string) error
}
