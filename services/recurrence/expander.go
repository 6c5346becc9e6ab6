// File: services/recurrence/expander.go
package recurrence

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "servana/database/repository/booking"
	slotRepo "servana/database/repository/slot"
	"servana/models"
	"servana/services/availability"
	"servana/utils"

	"go.uber.org/zap"
)

// Expander materializes recurring series into concrete bookings.
type Expander interface {
	Materialize(ctx context.Context, seriesID string, count int) ([]models.Booking, error)
	MaterializeDue(ctx context.Context) error
	Pause(ctx context.Context, seriesID string) error
	Resume(ctx context.Context, seriesID string) error
}

// DefaultExpander is the production implementation. Every draft instance
// must independently pass the availability resolver before it is committed
// as a Booking plus ReservedSlots; a draft that fails is recorded as
// skipped and the series advances regardless so one conflict never stalls it.
type DefaultExpander struct {
	Bookings bookingRepo.BookingRepository
	Slots    slotRepo.SlotRepository
	Resolver availability.Resolver
}

// Materialize generates up to count occurrences starting at the series'
// next occurrence date.
func (e *DefaultExpander) Materialize(ctx context.Context, seriesID string, count int) ([]models.Booking, error) {
	series, err := e.Bookings.GetSeriesByID(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	if !series.IsActive {
		return nil, fmt.Errorf("series %s is paused", seriesID)
	}

	logger := utils.GetLogger()
	var created []models.Booking

	next, err := time.Parse("2006-01-02", series.NextOccurrenceDate)
	if err != nil {
		return nil, fmt.Errorf("series %s has invalid next occurrence date: %w", seriesID, err)
	}

	for i := 0; i < count; i++ {
		booking, commitErr := e.commitOccurrence(ctx, series, next.Format("2006-01-02"))
		if commitErr != nil {
			return created, commitErr
		}
		if booking != nil {
			created = append(created, *booking)
		} else {
			logger.Info("recurrence: occurrence skipped, slot unavailable",
				zap.String("seriesID", seriesID), zap.String("date", next.Format("2006-01-02")))
		}

		next, err = NextOccurrence(series.Pattern, next)
		if err != nil {
			return created, err
		}
		// The series advances whether or not the draft committed.
		if err := e.Bookings.AdvanceSeries(ctx, seriesID, next.Format("2006-01-02")); err != nil {
			return created, err
		}
	}
	return created, nil
}

// commitOccurrence turns one occurrence date into a confirmed booking. A
// lost reservation race records a skipped draft and returns nil booking.
func (e *DefaultExpander) commitOccurrence(ctx context.Context, series *models.RecurringSeries, date string) (*models.Booking, error) {
	start := series.StartMinute
	end := start + series.Template.DurationMinutes

	slots, err := e.Resolver.ResolveSlots(ctx, series.ProviderID, date, "")
	if err != nil {
		return nil, err
	}
	if !rangeAvailable(slots, start, end) {
		skipped := e.draft(series, date, models.BookingStatusSkipped)
		if err := e.Bookings.CreateBooking(ctx, &skipped); err != nil {
			return nil, err
		}
		return nil, nil
	}

	booking := e.draft(series, date, models.BookingStatusPending)
	if err := e.Bookings.CreateBooking(ctx, &booking); err != nil {
		return nil, err
	}

	err = e.Slots.TryReserveRange(ctx, series.ProviderID, booking.ID, date, start, end)
	if errors.Is(err, slotRepo.ErrSlotTaken) {
		// Lost the race after the advisory read; record the draft as skipped.
		if stErr := e.Bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingStatusPending, models.BookingStatusSkipped); stErr != nil {
			return nil, stErr
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := e.Bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingStatusPending, models.BookingStatusConfirmed); err != nil {
		return nil, err
	}
	if err := e.Slots.Confirm(ctx, booking.ID); err != nil {
		return nil, err
	}
	booking.Status = models.BookingStatusConfirmed
	return &booking, nil
}

func (e *DefaultExpander) draft(series *models.RecurringSeries, date, status string) models.Booking {
	return models.Booking{
		ProviderID:        series.ProviderID,
		UserID:            series.UserID,
		Title:             series.Template.Title,
		Date:              date,
		Start:             series.StartMinute,
		End:               series.StartMinute + series.Template.DurationMinutes,
		TotalPrice:        series.Template.Price,
		Currency:          series.Template.Currency,
		Status:            status,
		RecurringSeriesID: series.ID,
	}
}

// MaterializeDue commits one occurrence for every active series whose next
// occurrence date has arrived. Invoked by the periodic worker.
func (e *DefaultExpander) MaterializeDue(ctx context.Context) error {
	today := time.Now().Format("2006-01-02")
	due, err := e.Bookings.GetDueSeries(ctx, today)
	if err != nil {
		return err
	}

	logger := utils.GetLogger()
	for _, series := range due {
		if _, err := e.Materialize(ctx, series.ID, 1); err != nil {
			logger.Error("recurrence: failed to materialize series",
				zap.String("seriesID", series.ID), zap.Error(err))
		}
	}
	return nil
}

// Pause halts further materialization without altering already-created bookings.
func (e *DefaultExpander) Pause(ctx context.Context, seriesID string) error {
	return e.Bookings.SetSeriesActive(ctx, seriesID, false, "")
}

// Resume recomputes the next occurrence from now forward; missed past
// occurrences are never backfilled.
func (e *DefaultExpander) Resume(ctx context.Context, seriesID string) error {
	series, err := e.Bookings.GetSeriesByID(ctx, seriesID)
	if err != nil {
		return err
	}
	next, err := NextOccurrence(series.Pattern, time.Now())
	if err != nil {
		return err
	}
	return e.Bookings.SetSeriesActive(ctx, seriesID, true, next.Format("2006-01-02"))
}

func rangeAvailable(slots []models.SlotCandidate, start, end int) bool {
	needed := make(map[int]bool)
	for s := start; s < end; s += models.SlotGranularity {
		needed[s] = false
	}
	for _, slot := range slots {
		if _, ok := needed[slot.Start]; ok && slot.Available {
			needed[slot.Start] = true
		}
	}
	for _, ok := range needed {
		if !ok {
			return false
		}
	}
	return true
}
