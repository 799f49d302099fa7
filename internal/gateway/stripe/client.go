package stripe

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"checkout/internal/gateway"
)

// Client talks to the Stripe REST API (form-encoded requests, basic auth
// with the secret key as username).
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

type apiResource struct {
	ID string `json:"id"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(baseURL, secretKey string, timeout time.Duration, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth(secretKey, "").
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/x-www-form-urlencoded")

	return &Client{
		http:   httpClient,
		logger: logger,
	}
}

func (c *Client) CreateCustomer(ctx context.Context, token, email, uid string) (string, error) {
	var resource apiResource
	var errBody apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"source":        token,
			"email":         email,
			"metadata[uid]": uid,
		}).
		SetResult(&resource).
		SetError(&errBody).
		Post("/v1/customers")
	if err != nil {
		return "", fmt.Errorf("stripe create customer request failed: %w", err)
	}

	if resp.IsError() {
		return "", c.asGatewayError("create customer", resp, &errBody)
	}

	c.logger.Info("Stripe customer created",
		zap.String("customer_id", resource.ID),
		zap.String("uid", uid),
	)
	return resource.ID, nil
}

func (c *Client) CreateCharge(ctx context.Context, params gateway.ChargeParams) (string, error) {
	var resource apiResource
	var errBody apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"amount":               strconv.FormatInt(toCents(params.AmountUSD), 10),
			"currency":             params.Currency,
			"customer":             params.CustomerID,
			"description":          params.Description,
			"statement_descriptor": params.StatementDescriptor,
		}).
		SetResult(&resource).
		SetError(&errBody).
		Post("/v1/charges")
	if err != nil {
		return "", fmt.Errorf("stripe create charge request failed: %w", err)
	}

	if resp.IsError() {
		return "", c.asGatewayError("create charge", resp, &errBody)
	}

	c.logger.Info("Stripe charge created",
		zap.String("charge_id", resource.ID),
		zap.String("customer_id", params.CustomerID),
		zap.Float64("amount_usd", params.AmountUSD),
	)
	return resource.ID, nil
}

func (c *Client) asGatewayError(op string, resp *resty.Response, errBody *apiError) error {
	if errBody.Error.Type == "card_error" {
		c.logger.Warn("Stripe reported a card decline",
			zap.String("operation", op),
			zap.String("code", errBody.Error.Code),
		)
		return &gateway.DeclineError{
			Code:    errBody.Error.Code,
			Message: errBody.Error.Message,
		}
	}

	c.logger.Error("Stripe request failed",
		zap.String("operation", op),
		zap.Int("status", resp.StatusCode()),
		zap.String("type", errBody.Error.Type),
		zap.String("message", errBody.Error.Message),
	)
	return fmt.Errorf("stripe %s failed with status %d (%s)", op, resp.StatusCode(), errBody.Error.Type)
}

// Stripe amounts are integer cents on the wire.
func toCents(amountUSD float64) int64 {
	return int64(math.Round(amountUSD * 100))
}
