package models

import "time"

// CaptureRequest asks the payment processor to move an authorized charge
// into platform custody.
type CaptureRequest struct {
	UserID      string
	BookingID   string
	Amount      float64
	Currency    string
	Idempotency string
	Description string
	Metadata    map[string]string
}

// Invoice is the processor's record of a capture attempt.
type Invoice struct {
	InvoiceID string
	UserID    string
	BookingID string
	Amount    float64
	Currency  string
	Status    string // "pending", "paid", "failed"
	CreatedAt time.Time
	UpdatedAt time.Time
	PaymentID string // processor charge reference (e.g., Stripe payment intent)
	Error     string
}
