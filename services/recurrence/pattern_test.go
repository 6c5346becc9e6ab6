package recurrence

import (
	"testing"
	"time"

	"servana/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNextOccurrenceDaily(t *testing.T) {
	next, err := NextOccurrence(models.RecurrencePattern{Frequency: models.FrequencyDaily}, day("2026-03-02"))
	require.NoError(t, err)
	assert.Equal(t, day("2026-03-03"), next)

	next, err = NextOccurrence(models.RecurrencePattern{Frequency: models.FrequencyDaily, Interval: 3}, day("2026-03-02"))
	require.NoError(t, err)
	assert.Equal(t, day("2026-03-05"), next)
}

func TestNextOccurrenceWeeklySameWeek(t *testing.T) {
	// 2026-03-02 is a Monday; Wednesday is later the same week.
	pattern := models.RecurrencePattern{
		Frequency: models.FrequencyWeekly,
		Weekdays:  []int{1, 3}, // Mon, Wed
	}
	next, err := NextOccurrence(pattern, day("2026-03-02"))
	require.NoError(t, err)
	assert.Equal(t, day("2026-03-04"), next)
}

func TestNextOccurrenceWeeklyWrapsToNextWeek(t *testing.T) {
	// From Wednesday, the earliest selected weekday is Monday next week.
	pattern := models.RecurrencePattern{
		Frequency: models.FrequencyWeekly,
		Weekdays:  []int{1, 3},
	}
	next, err := NextOccurrence(pattern, day("2026-03-04"))
	require.NoError(t, err)
	assert.Equal(t, day("2026-03-09"), next)
}

func TestNextOccurrenceWeeklyBiweekly(t *testing.T) {
	pattern := models.RecurrencePattern{
		Frequency: models.FrequencyWeekly,
		Interval:  2,
		Weekdays:  []int{1},
	}
	next, err := NextOccurrence(pattern, day("2026-03-02"))
	require.NoError(t, err)
	assert.Equal(t, day("2026-03-16"), next)
}

func TestNextOccurrenceWeeklyDefaultsToFromWeekday(t *testing.T) {
	pattern := models.RecurrencePattern{Frequency: models.FrequencyWeekly}
	next, err := NextOccurrence(pattern, day("2026-03-02"))
	require.NoError(t, err)
	assert.Equal(t, day("2026-03-09"), next)
}

func TestNextOccurrenceMonthlyLaterInCurrentMonth(t *testing.T) {
	pattern := models.RecurrencePattern{Frequency: models.FrequencyMonthly, DayOfMonth: 15}
	next, err := NextOccurrence(pattern, day("2026-03-02"))
	require.NoError(t, err)
	assert.Equal(t, day("2026-03-15"), next)
}

func TestNextOccurrenceMonthlyAdvancesPastDay(t *testing.T) {
	pattern := models.RecurrencePattern{Frequency: models.FrequencyMonthly, DayOfMonth: 15}
	next, err := NextOccurrence(pattern, day("2026-03-15"))
	require.NoError(t, err)
	assert.Equal(t, day("2026-04-15"), next)
}

func TestNextOccurrenceMonthlyClampsShortMonth(t *testing.T) {
	// The 31st clamps to Feb 28 in a non-leap year.
	pattern := models.RecurrencePattern{Frequency: models.FrequencyMonthly, DayOfMonth: 31}
	next, err := NextOccurrence(pattern, day("2026-01-31"))
	require.NoError(t, err)
	assert.Equal(t, day("2026-02-28"), next)
}

func TestNextOccurrenceUnsupportedFrequency(t *testing.T) {
	_, err := NextOccurrence(models.RecurrencePattern{Frequency: "yearly"}, day("2026-03-02"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedPattern)
}
