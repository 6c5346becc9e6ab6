package refund

import (
	"testing"
	"time"

	"servana/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

func bookingOn(date string, price float64) *models.Booking {
	return &models.Booking{
		ID:         "bk-1",
		Date:       date,
		TotalPrice: price,
		Status:     models.BookingStatusConfirmed,
	}
}

func TestDaysUntil(t *testing.T) {
	days, err := DaysUntil("2026-03-09", now)
	require.NoError(t, err)
	assert.Equal(t, 7, days)

	// The time of day never changes the whole-day distance.
	days, err = DaysUntil("2026-03-03", now)
	require.NoError(t, err)
	assert.Equal(t, 1, days)

	days, err = DaysUntil("2026-03-02", now)
	require.NoError(t, err)
	assert.Equal(t, 0, days)

	_, err = DaysUntil("not-a-date", now)
	assert.Error(t, err)
}

func TestDaysUntilNonUTCZones(t *testing.T) {
	// The caller's zone must never shave a day off the tier boundary.
	west := time.FixedZone("UTC-5", -5*60*60)
	days, err := DaysUntil("2026-03-09", time.Date(2026, 3, 2, 14, 30, 0, 0, west))
	require.NoError(t, err)
	assert.Equal(t, 7, days)

	east := time.FixedZone("UTC+13", 13*60*60)
	days, err = DaysUntil("2026-03-09", time.Date(2026, 3, 2, 23, 30, 0, 0, east))
	require.NoError(t, err)
	assert.Equal(t, 7, days)

	// A $200 booking exactly seven days out quotes the full tier in any zone.
	eligibility, err := EvaluatePolicy(bookingOn("2026-03-09", 200), false, time.Date(2026, 3, 2, 14, 30, 0, 0, west))
	require.NoError(t, err)
	assert.Equal(t, 100, eligibility.Percentage)
	assert.Equal(t, PolicyFull, eligibility.Policy)
}

func TestTierBoundaries(t *testing.T) {
	tests := []struct {
		days    int
		wantPct int
	}{
		{8, 100},
		{7, 100},
		{6, 50},
		{3, 50},
		{2, 25},
		{1, 25},
		{0, 0},
		{-1, 0},
	}
	for _, tc := range tests {
		pct, _ := Tier(tc.days)
		assert.Equal(t, tc.wantPct, pct, "days=%d", tc.days)
	}
}

func TestEvaluatePolicyFiveDaysOut(t *testing.T) {
	// $200 booking five days out quotes a 50% refund of $100.
	eligibility, err := EvaluatePolicy(bookingOn("2026-03-07", 200), false, now)
	require.NoError(t, err)
	assert.True(t, eligibility.Eligible)
	assert.Equal(t, 50, eligibility.Percentage)
	assert.Equal(t, 100.0, eligibility.Amount)
	assert.Equal(t, PolicyHalf, eligibility.Policy)
}

func TestEvaluatePolicySameDayIneligible(t *testing.T) {
	eligibility, err := EvaluatePolicy(bookingOn("2026-03-02", 200), false, now)
	require.NoError(t, err)
	assert.False(t, eligibility.Eligible)
	assert.Equal(t, 0, eligibility.Percentage)
	assert.Equal(t, 0.0, eligibility.Amount)
}

func TestEvaluatePolicyRuleOrder(t *testing.T) {
	// Completed wins over everything, even a generous time window.
	completed := bookingOn("2026-03-20", 200)
	completed.Status = models.BookingStatusCompleted
	eligibility, err := EvaluatePolicy(completed, false, now)
	require.NoError(t, err)
	assert.False(t, eligibility.Eligible)
	assert.Contains(t, eligibility.Reason, "completed")

	cancelled := bookingOn("2026-03-20", 200)
	cancelled.Status = models.BookingStatusCancelled
	eligibility, err = EvaluatePolicy(cancelled, false, now)
	require.NoError(t, err)
	assert.False(t, eligibility.Eligible)
	assert.Contains(t, eligibility.Reason, "cancelled")

	// An open request blocks a new quote before the tier is consulted.
	eligibility, err = EvaluatePolicy(bookingOn("2026-03-20", 200), true, now)
	require.NoError(t, err)
	assert.False(t, eligibility.Eligible)
	assert.Contains(t, eligibility.Reason, "already requested")
}

func TestEvaluatePolicyFullRefund(t *testing.T) {
	eligibility, err := EvaluatePolicy(bookingOn("2026-03-09", 80), false, now)
	require.NoError(t, err)
	assert.True(t, eligibility.Eligible)
	assert.Equal(t, 100, eligibility.Percentage)
	assert.Equal(t, 80.0, eligibility.Amount)
	assert.Equal(t, PolicyFull, eligibility.Policy)
}
