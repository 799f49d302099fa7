package permissions_repo

import (
	"context"

	"checkout/internal/domain"
)

// PermissionRepository is the Permission Store: one boolean flag per
// (uid, slug) pair controlling access to a purchased item.
type PermissionRepository interface {
	GrantTx(ctx context.Context, querier domain.Querier, uid, slug string) error
	IsGrantedTx(ctx context.Context, querier domain.Querier, uid, slug string) (bool, error)
}
