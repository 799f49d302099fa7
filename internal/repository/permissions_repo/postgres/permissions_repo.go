package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"checkout/internal/domain"
)

type PermissionRepository struct {
	db *sql.DB
}

func NewPermissionRepository(db *sql.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// GrantTx upserts so replaying a task after a crash does not fail on the
// second write.
func (r *PermissionRepository) GrantTx(ctx context.Context, querier domain.Querier, uid, slug string) error {
	query := `
		INSERT INTO permissions (uid, slug, valid, granted_at)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (uid, slug) DO UPDATE SET valid = TRUE, granted_at = EXCLUDED.granted_at
	`
	_, err := querier.ExecContext(ctx, query, uid, slug, time.Now())
	if err != nil {
		return fmt.Errorf("failed to grant permission for %s/%s: %w", uid, slug, err)
	}
	return nil
}

func (r *PermissionRepository) IsGrantedTx(ctx context.Context, querier domain.Querier, uid, slug string) (bool, error) {
	query := `
		SELECT valid
		FROM permissions
		WHERE uid = $1 AND slug = $2
	`
	var valid bool
	err := querier.QueryRowContext(ctx, query, uid, slug).Scan(&valid)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check permission for %s/%s: %w", uid, slug, err)
	}
	return valid, nil
}
