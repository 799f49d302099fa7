package customers_repo

import (
	"context"

	"checkout/internal/domain"
)

// CustomerRepository is the Customer Directory: profile reads and the
// payment-reference write, keyed by uid.
type CustomerRepository interface {
	GetEmailTx(ctx context.Context, querier domain.Querier, uid string) (string, error)
	GetStripeIDTx(ctx context.Context, querier domain.Querier, uid string) (string, error)
	SetStripeIDTx(ctx context.Context, querier domain.Querier, uid, stripeID string) error
}
