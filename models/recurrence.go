package models

import "time"

// Recurrence frequencies.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// RecurrencePattern generates a series of booking occurrences.
type RecurrencePattern struct {
	Frequency  string `bson:"frequency" json:"frequency"`                           // "daily", "weekly", "monthly"
	Interval   int    `bson:"interval" json:"interval"`                             // every N days/weeks/months; 0 means 1
	Weekdays   []int  `bson:"weekdays,omitempty" json:"weekdays,omitempty"`         // weekly only, 0..6
	DayOfMonth int    `bson:"day_of_month,omitempty" json:"day_of_month,omitempty"` // monthly only
}

// ServiceTemplate is the service definition a series stamps onto each
// generated booking.
type ServiceTemplate struct {
	Title           string  `bson:"title" json:"title"`
	Price           float64 `bson:"price" json:"price"`
	Currency        string  `bson:"currency" json:"currency"`
	DurationMinutes int     `bson:"duration_minutes" json:"duration_minutes"`
}

// RecurringSeries owns zero or more generated bookings via the weak
// recurring_booking_id back-reference; it does not own a booking's
// lifecycle after creation.
type RecurringSeries struct {
	ID                 string            `bson:"id" json:"id"`
	ProviderID         string            `bson:"provider_id" json:"provider_id"`
	UserID             string            `bson:"user_id" json:"user_id"`
	Template           ServiceTemplate   `bson:"template" json:"template"`
	Pattern            RecurrencePattern `bson:"pattern" json:"pattern"`
	StartDate          string            `bson:"start_date" json:"start_date"` // "2006-01-02"
	StartMinute        int               `bson:"start_minute" json:"start_minute"`
	NextOccurrenceDate string            `bson:"next_occurrence_date" json:"next_occurrence_date"`
	IsActive           bool              `bson:"is_active" json:"is_active"`
	CreatedAt          time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time         `bson:"updated_at" json:"updated_at"`
}
