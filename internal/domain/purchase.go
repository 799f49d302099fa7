package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
)

var ErrInvalidRequest = errors.New("invalid purchase request")
var ErrEmailMismatch = errors.New("email address mismatch")
var ErrCustomerNotFound = errors.New("customer not found")

// Price accepts both a JSON number and a numeric string, because the
// browser client serializes form input without coercing it first.
type Price float64

func (p *Price) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return fmt.Errorf("price %q is not numeric: %w", str, err)
		}
		*p = Price(value)
		return nil
	}

	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*p = Price(value)
	return nil
}

// PurchaseRequest is the payload the client enqueues for one checkout.
// TokenOrCustomer carries either a single-use card token or an existing
// payment-method reference, opaque to this service.
type PurchaseRequest struct {
	UID             string `json:"uid"`
	Email           string `json:"email"`
	Slug            string `json:"slug"`
	Price           Price  `json:"price"`
	Title           string `json:"title"`
	TokenOrCustomer string `json:"tokenOrCustomer"`
	Feedback        string `json:"feedback,omitempty"`
}

// Validate checks every required field. All violations collapse into
// ErrInvalidRequest; the caller reports one fixed feedback message.
func (r *PurchaseRequest) Validate() error {
	if r.UID == "" || r.Slug == "" || r.Title == "" || r.TokenOrCustomer == "" {
		return ErrInvalidRequest
	}
	if r.Price <= 0 {
		return ErrInvalidRequest
	}
	if r.Email == "" {
		return ErrInvalidRequest
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return ErrInvalidRequest
	}
	// A fresh request never carries prior feedback.
	if r.Feedback != "" {
		return ErrInvalidRequest
	}
	return nil
}

// Outcome is the terminal result of processing one purchase request.
// A failed outcome carries a short, user-safe feedback string and still
// finishes the task; the client displays the feedback and removes the record.
type Outcome struct {
	Success  bool
	Feedback string
}

func Succeeded() Outcome {
	return Outcome{Success: true}
}

func Failed(feedback string) Outcome {
	return Outcome{Feedback: feedback}
}

// Client-visible feedback messages. Gateway decline messages pass through
// verbatim; every other failure class maps onto one of these.
const (
	FeedbackInvalidRequest   = "invalid request"
	FeedbackEmailMismatch    = "email address mismatch"
	FeedbackCardDeclined     = "Card declined"
	FeedbackCustomerCreation = "Customer creation error"
	FeedbackDirectoryWrite   = "directory write error"
	FeedbackCharge           = "Charge error"
	FeedbackPermissionWrite  = "permission write error"
)
