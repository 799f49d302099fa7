package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() PurchaseRequest {
	return PurchaseRequest{
		UID:             "user-1",
		Email:           "a@x.com",
		Slug:            "intro-course",
		Price:           29.99,
		Title:           "Intro Course",
		TokenOrCustomer: "tok_visa",
	}
}

func TestPurchaseRequestValidate(t *testing.T) {
	valid := validRequest()
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(r *PurchaseRequest)
	}{
		{"missing uid", func(r *PurchaseRequest) { r.UID = "" }},
		{"missing email", func(r *PurchaseRequest) { r.Email = "" }},
		{"malformed email", func(r *PurchaseRequest) { r.Email = "not-an-email" }},
		{"missing slug", func(r *PurchaseRequest) { r.Slug = "" }},
		{"missing title", func(r *PurchaseRequest) { r.Title = "" }},
		{"missing token", func(r *PurchaseRequest) { r.TokenOrCustomer = "" }},
		{"zero price", func(r *PurchaseRequest) { r.Price = 0 }},
		{"negative price", func(r *PurchaseRequest) { r.Price = -5 }},
		{"prior feedback present", func(r *PurchaseRequest) { r.Feedback = "stale" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			assert.ErrorIs(t, req.Validate(), ErrInvalidRequest)
		})
	}
}

func TestPriceUnmarshalJSON(t *testing.T) {
	var req PurchaseRequest
	require.NoError(t, json.Unmarshal([]byte(`{"price": 19.99}`), &req))
	assert.InDelta(t, 19.99, float64(req.Price), 0.0001)

	require.NoError(t, json.Unmarshal([]byte(`{"price": "19.99"}`), &req))
	assert.InDelta(t, 19.99, float64(req.Price), 0.0001)

	assert.Error(t, json.Unmarshal([]byte(`{"price": "abc"}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"price": true}`), &req))
}

func TestOutcome(t *testing.T) {
	ok := Succeeded()
	assert.True(t, ok.Success)
	assert.Empty(t, ok.Feedback)

	failed := Failed(FeedbackInvalidRequest)
	assert.False(t, failed.Success)
	assert.Equal(t, "invalid request", failed.Feedback)
}
