package models

import "time"

// RefundRequest statuses.
const (
	RefundStatusPending   = "Pending"
	RefundStatusCompleted = "Completed"
	RefundStatusFailed    = "Failed"
)

// RefundRequest records one refund demand against a booking. At most one
// open (Pending) request may exist per booking; resolved requests are
// immutable.
type RefundRequest struct {
	ID          string    `bson:"id" json:"id"`
	BookingID   string    `bson:"booking_id" json:"booking_id"`
	Amount      float64   `bson:"amount" json:"amount"`
	Percentage  int       `bson:"percentage" json:"percentage"`
	Reason      string    `bson:"reason" json:"reason"`
	Status      string    `bson:"status" json:"status"`
	RequestedBy string    `bson:"requested_by" json:"requested_by"`
	ApprovedBy  string    `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	ResolvedAt  time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}

// Refund queue item statuses.
const (
	QueueStatusQueued    = "queued"
	QueueStatusCompleted = "completed"
	QueueStatusEscalated = "escalated" // manual processing required
)

// RefundQueueItem tracks a failed automatic refund attempt awaiting retry.
// Retries beyond MaxAttempts are refused and escalated.
type RefundQueueItem struct {
	ID              string    `bson:"id" json:"id"`
	BookingID       string    `bson:"booking_id" json:"booking_id"`
	RefundRequestID string    `bson:"refund_request_id" json:"refund_request_id"`
	Amount          float64   `bson:"amount" json:"amount"`
	Attempts        int       `bson:"attempts" json:"attempts"`
	MaxAttempts     int       `bson:"max_attempts" json:"max_attempts"`
	LastError       string    `bson:"last_error,omitempty" json:"last_error,omitempty"`
	Status          string    `bson:"status" json:"status"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updated_at"`
}

// Eligibility is the outcome of a refund policy check.
type Eligibility struct {
	Eligible   bool    `json:"eligible"`
	Percentage int     `json:"percentage"`
	Amount     float64 `json:"amount"`
	Policy     string  `json:"policy"`
	Reason     string  `json:"reason,omitempty"`
}
