package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"checkout/internal/domain"
	"checkout/internal/repository/outbox_repo"
)

type TaskRepository struct {
	db     *sql.DB
	outbox outbox_repo.OutboxRepository
}

func NewTaskRepository(db *sql.DB, outbox outbox_repo.OutboxRepository) *TaskRepository {
	return &TaskRepository{db: db, outbox: outbox}
}

func (r *TaskRepository) CreateTx(ctx context.Context, querier domain.Querier, task *domain.PurchaseTask) error {
	query := `
		INSERT INTO purchase_tasks (id, uid, email, slug, title, price, token_or_customer, state, progress, feedback, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := querier.ExecContext(ctx, query,
		task.ID,
		task.Request.UID,
		task.Request.Email,
		task.Request.Slug,
		task.Request.Title,
		float64(task.Request.Price),
		task.Request.TokenOrCustomer,
		task.State,
		task.Progress,
		task.Feedback,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create purchase task: %w", err)
	}
	return nil
}

func (r *TaskRepository) CreateWithOutboxMessage(ctx context.Context, task *domain.PurchaseTask, msg *outbox_repo.OutboxMessage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := r.CreateTx(ctx, tx, task); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := r.outbox.CreateMessageTx(ctx, tx, msg); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit purchase task and outbox message: %w", err)
	}
	return nil
}

func (r *TaskRepository) GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.PurchaseTask, error) {
	query := `
		SELECT id, uid, email, slug, title, price, token_or_customer, state, progress, feedback, created_at, updated_at
		FROM purchase_tasks
		WHERE id = $1
	`
	task := &domain.PurchaseTask{}
	var price float64
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&task.ID,
		&task.Request.UID,
		&task.Request.Email,
		&task.Request.Slug,
		&task.Request.Title,
		&price,
		&task.Request.TokenOrCustomer,
		&task.State,
		&task.Progress,
		&task.Feedback,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get purchase task %s: %w", id, err)
	}
	task.Request.Price = domain.Price(price)
	return task, nil
}

func (r *TaskRepository) UpdateStateTx(ctx context.Context, querier domain.Querier, id string, state domain.TaskState) error {
	query := `
		UPDATE purchase_tasks
		SET state = $1, updated_at = $2
		WHERE id = $3
	`
	return r.exec(ctx, querier, query, id, state, time.Now(), id)
}

func (r *TaskRepository) UpdateProgressTx(ctx context.Context, querier domain.Querier, id string, progress int) error {
	query := `
		UPDATE purchase_tasks
		SET progress = $1, updated_at = $2
		WHERE id = $3
	`
	return r.exec(ctx, querier, query, id, progress, time.Now(), id)
}

// SetFeedbackTx records the terminal failure and moves the task into the
// feedback state in one statement.
func (r *TaskRepository) SetFeedbackTx(ctx context.Context, querier domain.Querier, id, feedback string) error {
	query := `
		UPDATE purchase_tasks
		SET feedback = $1, state = $2, updated_at = $3
		WHERE id = $4
	`
	return r.exec(ctx, querier, query, id, feedback, domain.TaskStateFeedback, time.Now(), id)
}

func (r *TaskRepository) DeleteTx(ctx context.Context, querier domain.Querier, id string) error {
	query := `
		DELETE FROM purchase_tasks
		WHERE id = $1
	`
	return r.exec(ctx, querier, query, id, id)
}

func (r *TaskRepository) exec(ctx context.Context, querier domain.Querier, query, id string, args ...any) error {
	res, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update purchase task %s: %w", id, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}
