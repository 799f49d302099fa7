package tasks_repo

import (
	"context"

	"checkout/internal/domain"
	"checkout/internal/repository/outbox_repo"
)

// TaskRepository is the ledger of queued purchase tasks. The worker
// records progress and the terminal outcome here; the client polls it
// and deletes the record once the outcome has been observed.
type TaskRepository interface {
	// CreateWithOutboxMessage inserts the ledger row and the queue publish
	// in one transaction, so a task is never recorded without its enqueue
	// or enqueued without its record.
	CreateWithOutboxMessage(ctx context.Context, task *domain.PurchaseTask, msg *outbox_repo.OutboxMessage) error
	GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.PurchaseTask, error)
	UpdateStateTx(ctx context.Context, querier domain.Querier, id string, state domain.TaskState) error
	UpdateProgressTx(ctx context.Context, querier domain.Querier, id string, progress int) error
	SetFeedbackTx(ctx context.Context, querier domain.Querier, id, feedback string) error
	DeleteTx(ctx context.Context, querier domain.Querier, id string) error
}
