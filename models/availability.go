package models

import "time"

// Rule types authored by the provider.
const (
	RuleTypeAvailable = "available"
	RuleTypeBlocked   = "blocked"
)

// AvailabilityRule describes when a provider can (or cannot) be booked.
// Recurring rules repeat weekly on DayOfWeek; non-recurring rules apply to
// the bounded [StartDate, EndDate] span (inclusive).
type AvailabilityRule struct {
	ID          string    `bson:"id" json:"id"`
	ProviderID  string    `bson:"provider_id" json:"provider_id"`
	ListingID   string    `bson:"listing_id,omitempty" json:"listing_id,omitempty"`
	DayOfWeek   int       `bson:"day_of_week" json:"day_of_week"`                   // 0 (Sunday) .. 6 (Saturday)
	StartDate   string    `bson:"start_date,omitempty" json:"start_date,omitempty"` // "2006-01-02", non-recurring only
	EndDate     string    `bson:"end_date,omitempty" json:"end_date,omitempty"`
	Start       int       `bson:"start" json:"start"` // minutes from midnight (e.g., 540 for 9:00 AM)
	End         int       `bson:"end" json:"end"`     // minutes from midnight, exclusive
	IsRecurring bool      `bson:"is_recurring" json:"is_recurring"`
	Type        string    `bson:"type" json:"type"` // "available" or "blocked"
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// AvailabilityException overrides recurring rules for a single calendar date.
// Exceptions always win over rules for the same date.
type AvailabilityException struct {
	ID         string    `bson:"id" json:"id"`
	ProviderID string    `bson:"provider_id" json:"provider_id"`
	Date       string    `bson:"date" json:"date"` // "2006-01-02"
	Type       string    `bson:"type" json:"type"` // "unavailable"
	Reason     string    `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

const ExceptionTypeUnavailable = "unavailable"

// ReservedSlot statuses that count toward conflicts. Terminal statuses
// (cancelled, expired) are excluded from conflict checks.
const (
	SlotStatusReserved  = "Reserved"
	SlotStatusConfirmed = "Confirmed"
	SlotStatusCancelled = "Cancelled"
)

// ReservedSlot represents time already committed to a booking. The
// (provider_id, date, start) triple carries a unique index so that two
// concurrent reservations for the same slot cannot both insert.
type ReservedSlot struct {
	ID         string    `bson:"id" json:"id"`
	ProviderID string    `bson:"provider_id" json:"provider_id"`
	BookingID  string    `bson:"booking_id" json:"booking_id"`
	Date       string    `bson:"date" json:"date"` // "2006-01-02"
	Start      int       `bson:"start" json:"start"`
	End        int       `bson:"end" json:"end"`
	Status     string    `bson:"status" json:"status"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// SlotCandidate is one 30-minute slot in a resolved day schedule.
type SlotCandidate struct {
	Start     int  `json:"start"` // minutes from midnight
	End       int  `json:"end"`
	Available bool `json:"available"`
}

// SlotGranularity is the atomic unit of bookability, in minutes.
const SlotGranularity = 30
