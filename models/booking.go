package models

import "time"

// Booking statuses.
const (
	BookingStatusPending   = "Pending"
	BookingStatusConfirmed = "Confirmed"
	BookingStatusCompleted = "Completed"
	BookingStatusCancelled = "Cancelled"
	BookingStatusNoShow    = "NoShow"
	BookingStatusSkipped   = "Skipped" // recurring draft that failed availability
)

// Booking is the unit of scheduling and money movement. It references
// exactly one EscrowSettlement (created at payment capture) and optionally
// one RecurringSeries.
type Booking struct {
	ID                 string    `bson:"id" json:"id"`
	ProviderID         string    `bson:"provider_id" json:"provider_id"`
	UserID             string    `bson:"user_id" json:"user_id"`
	ListingID          string    `bson:"listing_id,omitempty" json:"listing_id,omitempty"`
	Title              string    `bson:"title" json:"title"`
	Date               string    `bson:"date" json:"date"` // service date, "2006-01-02"
	Start              int       `bson:"start" json:"start"`
	End                int       `bson:"end" json:"end"`
	TotalPrice         float64   `bson:"total_price" json:"total_price"`
	Currency           string    `bson:"currency" json:"currency"`
	Status             string    `bson:"status" json:"status"`
	RecurringSeriesID  string    `bson:"recurring_booking_id,omitempty" json:"recurring_booking_id,omitempty"`
	NoShowFee          float64   `bson:"no_show_fee,omitempty" json:"no_show_fee,omitempty"`
	ConsultationNeeded bool      `bson:"consultation_needed" json:"consultation_needed"`
	CreatedAt          time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time `bson:"updated_at" json:"updated_at"`
}

// BookingRequest is the input for creating a single booking.
type BookingRequest struct {
	ProviderID string  `json:"provider_id" binding:"required"`
	UserID     string  `json:"user_id" binding:"required"`
	ListingID  string  `json:"listing_id"`
	Title      string  `json:"title"`
	Date       string  `json:"date" binding:"required"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	NoShowFee  float64 `json:"no_show_fee"`
}
