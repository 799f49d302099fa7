package gateway

import (
	"context"
	"fmt"
)

// ChargeParams describes one charge against an existing gateway customer.
// AmountUSD is in dollars; implementations convert to the gateway's wire
// unit themselves.
type ChargeParams struct {
	CustomerID          string
	AmountUSD           float64
	Currency            string
	Description         string
	StatementDescriptor string
}

// PaymentGateway is the contract the checkout pipeline depends on.
// Implementations must return *DeclineError for card-specific rejections
// so callers can pass the gateway's own message through to the user;
// any other error is treated as an internal gateway failure and its text
// never reaches the client.
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, token, email, uid string) (string, error)
	CreateCharge(ctx context.Context, params ChargeParams) (string, error)
}

// DeclineError signals that the payment network rejected the instrument.
// Message comes from the gateway and is assumed pre-sanitized for display.
type DeclineError struct {
	Code    string
	Message string
}

func (e *DeclineError) Error() string {
	return fmt.Sprintf("card declined (%s): %s", e.Code, e.Message)
}
