// File: services/refund/policy.go
package refund

import (
	"time"

	"servana/models"
)

// Refund tiers by days remaining before the scheduled service.
const (
	PolicyFull    = "full_refund"    // >= 7 days: 100%
	PolicyHalf    = "half_refund"    // 3-6 days: 50%
	PolicyQuarter = "quarter_refund" // 1-2 days: 25%
	PolicyNone    = "no_refund"      // < 1 day: 0%
)

// DaysUntil returns the whole days between now and the service date, both
// truncated to midnight. The caller's calendar date is taken in its own
// zone, then both midnights are anchored to UTC so the difference is an
// exact multiple of 24h regardless of offset or DST.
func DaysUntil(serviceDate string, now time.Time) (int, error) {
	date, err := time.Parse("2006-01-02", serviceDate)
	if err != nil {
		return 0, err
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(date.Sub(today).Hours() / 24), nil
}

// Tier maps days-until-service to the refund percentage and policy name.
func Tier(days int) (int, string) {
	switch {
	case days >= 7:
		return 100, PolicyFull
	case days >= 3:
		return 50, PolicyHalf
	case days >= 1:
		return 25, PolicyQuarter
	default:
		return 0, PolicyNone
	}
}

// EvaluatePolicy applies the ordered eligibility rules, first match wins:
// completed, cancelled, open request, then the time tier.
func EvaluatePolicy(booking *models.Booking, hasOpenRequest bool, now time.Time) (models.Eligibility, error) {
	switch booking.Status {
	case models.BookingStatusCompleted:
		return models.Eligibility{Eligible: false, Reason: "booking already completed"}, nil
	case models.BookingStatusCancelled:
		return models.Eligibility{Eligible: false, Reason: "booking already cancelled"}, nil
	}
	if hasOpenRequest {
		return models.Eligibility{Eligible: false, Reason: "refund already requested or resolved"}, nil
	}

	days, err := DaysUntil(booking.Date, now)
	if err != nil {
		return models.Eligibility{}, err
	}
	pct, policy := Tier(days)
	return models.Eligibility{
		Eligible:   pct > 0,
		Percentage: pct,
		Amount:     booking.TotalPrice * float64(pct) / 100,
		Policy:     policy,
	}, nil
}
