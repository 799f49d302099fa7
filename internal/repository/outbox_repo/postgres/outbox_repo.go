package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"checkout/internal/domain"
	"checkout/internal/repository/outbox_repo"
)

type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) CreateMessageTx(ctx context.Context, querier domain.Querier, msg *outbox_repo.OutboxMessage) error {
	query := `
		INSERT INTO outbox_messages (id, topic, message_key, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := querier.ExecContext(ctx, query, msg.ID, msg.Topic, msg.Key, msg.Payload, msg.Status, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create outbox message %s: %w", msg.ID, err)
	}
	return nil
}

func (r *OutboxRepository) GetUnsentMessagesTx(ctx context.Context, querier domain.Querier) ([]*outbox_repo.OutboxMessage, error) {
	query := `
		SELECT id, topic, message_key, payload, status, created_at, sent_at
		FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT 100
	`
	rows, err := querier.QueryContext(ctx, query, outbox_repo.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to get unsent outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []*outbox_repo.OutboxMessage
	for rows.Next() {
		msg := &outbox_repo.OutboxMessage{}
		var sentAt sql.NullTime
		if err := rows.Scan(&msg.ID, &msg.Topic, &msg.Key, &msg.Payload, &msg.Status, &msg.CreatedAt, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox message row: %w", err)
		}
		if sentAt.Valid {
			msg.SentAt = &sentAt.Time
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error while reading outbox messages: %w", err)
	}
	return messages, nil
}

// MarkMessageSentTx flips a pending message to sent. A message already
// marked by a concurrent sender is not an error; the publish is
// at-least-once either way.
func (r *OutboxRepository) MarkMessageSentTx(ctx context.Context, querier domain.Querier, id string) error {
	query := `
		UPDATE outbox_messages
		SET status = $1, sent_at = $2
		WHERE id = $3 AND status = $4
	`
	_, err := querier.ExecContext(ctx, query, outbox_repo.StatusSent, time.Now(), id, outbox_repo.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark outbox message %s as sent: %w", id, err)
	}
	return nil
}
