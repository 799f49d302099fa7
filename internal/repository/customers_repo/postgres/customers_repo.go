package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"checkout/internal/domain"
)

type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) GetEmailTx(ctx context.Context, querier domain.Querier, uid string) (string, error) {
	query := `
		SELECT email
		FROM customers
		WHERE uid = $1
	`
	var email string
	err := querier.QueryRowContext(ctx, query, uid).Scan(&email)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", domain.ErrCustomerNotFound
		}
		return "", fmt.Errorf("failed to get email for customer %s: %w", uid, err)
	}
	return email, nil
}

func (r *CustomerRepository) GetStripeIDTx(ctx context.Context, querier domain.Querier, uid string) (string, error) {
	query := `
		SELECT stripe_id
		FROM customers
		WHERE uid = $1
	`
	var stripeID sql.NullString
	err := querier.QueryRowContext(ctx, query, uid).Scan(&stripeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", domain.ErrCustomerNotFound
		}
		return "", fmt.Errorf("failed to get stripe id for customer %s: %w", uid, err)
	}
	if !stripeID.Valid {
		return "", nil
	}
	return stripeID.String, nil
}

func (r *CustomerRepository) SetStripeIDTx(ctx context.Context, querier domain.Querier, uid, stripeID string) error {
	query := `
		UPDATE customers
		SET stripe_id = $1, updated_at = $2
		WHERE uid = $3
	`
	res, err := querier.ExecContext(ctx, query, stripeID, time.Now(), uid)
	if err != nil {
		return fmt.Errorf("failed to set stripe id for customer %s: %w", uid, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}
