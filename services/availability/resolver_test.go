package availability

import (
	"testing"

	"servana/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(start, end int) models.AvailabilityRule {
	return models.AvailabilityRule{
		Start:       start,
		End:         end,
		IsRecurring: true,
		Type:        models.RuleTypeAvailable,
	}
}

func TestExpandRulesStepsAndBounds(t *testing.T) {
	// 09:00-11:00 expands to exactly four half-hour candidates.
	candidates := ExpandRules([]models.AvailabilityRule{rule(540, 660)})
	require.Len(t, candidates, 4)
	assert.Equal(t, 540, candidates[0].Start)
	assert.Equal(t, 570, candidates[0].End)
	assert.Equal(t, 630, candidates[3].Start)
	assert.Equal(t, 660, candidates[3].End)
	for _, c := range candidates {
		assert.True(t, c.Available)
	}
}

func TestExpandRulesNoPartialSlot(t *testing.T) {
	// A 45-minute window only fits one full slot.
	candidates := ExpandRules([]models.AvailabilityRule{rule(540, 585)})
	require.Len(t, candidates, 1)
	assert.Equal(t, 540, candidates[0].Start)
}

func TestExpandRulesDedupAndSort(t *testing.T) {
	candidates := ExpandRules([]models.AvailabilityRule{
		rule(600, 660),
		rule(540, 630), // overlaps the first rule at 600
	})
	require.Len(t, candidates, 4)
	for i := 1; i < len(candidates); i++ {
		assert.Greater(t, candidates[i].Start, candidates[i-1].Start)
	}
}

func TestExpandRulesEmpty(t *testing.T) {
	assert.Empty(t, ExpandRules(nil))
}

func TestApplyReservationsOverlap(t *testing.T) {
	// Monday 09:00-11:00 available, 10:00-10:30 confirmed: only the 10:00
	// slot flips to unavailable.
	candidates := ExpandRules([]models.AvailabilityRule{rule(540, 660)})
	reserved := []models.ReservedSlot{
		{Start: 600, End: 630, Status: models.SlotStatusConfirmed},
	}

	out := ApplyReservations(candidates, reserved)
	require.Len(t, out, 4)
	assert.True(t, out[0].Available)  // 09:00
	assert.True(t, out[1].Available)  // 09:30
	assert.False(t, out[2].Available) // 10:00
	assert.True(t, out[3].Available)  // 10:30
}

func TestApplyReservationsTouchingBoundariesDoNotConflict(t *testing.T) {
	candidates := []models.SlotCandidate{{Start: 600, End: 630, Available: true}}

	// Reservation ending exactly at the candidate start, and one starting
	// exactly at its end.
	out := ApplyReservations(candidates, []models.ReservedSlot{
		{Start: 570, End: 600},
		{Start: 630, End: 660},
	})
	assert.True(t, out[0].Available)
}

func TestApplyReservationsSpanningReservation(t *testing.T) {
	candidates := ExpandRules([]models.AvailabilityRule{rule(540, 660)})

	// A two-hour reservation wipes everything it covers.
	out := ApplyReservations(candidates, []models.ReservedSlot{{Start: 540, End: 660}})
	for _, c := range out {
		assert.False(t, c.Available)
	}
}

func TestApplyReservationsDoesNotMutateInput(t *testing.T) {
	candidates := ExpandRules([]models.AvailabilityRule{rule(600, 630)})
	ApplyReservations(candidates, []models.ReservedSlot{{Start: 600, End: 630}})
	assert.True(t, candidates[0].Available)
}

func TestDayOverridden(t *testing.T) {
	assert.False(t, DayOverridden(nil, nil))
	assert.True(t, DayOverridden([]models.AvailabilityRule{{Type: models.RuleTypeBlocked}}, nil))
	assert.True(t, DayOverridden(nil, []models.AvailabilityException{{Type: models.ExceptionTypeUnavailable}}))
	assert.False(t, DayOverridden(nil, []models.AvailabilityException{{Type: "note"}}))
}
