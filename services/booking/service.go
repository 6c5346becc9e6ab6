// File: services/booking/service.go
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "servana/database/repository/booking"
	slotRepo "servana/database/repository/slot"
	"servana/models"
	"servana/services/availability"
	"servana/services/escrow"
	"servana/services/notification"
	"servana/services/payment"
	"servana/services/recurrence"
	"servana/services/trust"
	"servana/utils"

	"go.uber.org/zap"
)

// BookingService orchestrates the full booking lifecycle: trust gate,
// availability, conditional reservation, payment capture and escrow hold.
type BookingService interface {
	CreateBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error)
	CreateRecurringSeries(ctx context.Context, series models.RecurringSeries) (*models.RecurringSeries, error)
	CompleteBooking(ctx context.Context, bookingID, actor string) error
	MarkNoShow(ctx context.Context, bookingID, actor string) error
	ListBookingsForUser(ctx context.Context, userID string) ([]models.Booking, error)
	GetTimeline(ctx context.Context, bookingID string) ([]models.TimelineEvent, error)
}

// DefaultBookingService is the production implementation.
type DefaultBookingService struct {
	Bookings   bookingRepo.BookingRepository
	Slots      slotRepo.SlotRepository
	Resolver   availability.Resolver
	Trust      trust.TrustService
	Settlement escrow.SettlementService
	Payments   payment.Processor
	Notify     notification.NotificationService
	Cache      *availability.CachedResolver // nil when caching is disabled
}

// CreateBooking runs the whole pipeline. The availability read is advisory;
// the reservation insert is the commit point, and a lost race surfaces as a
// slot-unavailable policy error that callers resolve by re-resolving.
func (s *DefaultBookingService) CreateBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	logger := utils.GetLogger()

	if req.Start >= req.End || req.Start < 0 || req.End > 24*60 {
		return nil, fmt.Errorf("invalid booking time range [%d, %d)", req.Start, req.End)
	}
	if req.Start%models.SlotGranularity != 0 || req.End%models.SlotGranularity != 0 {
		return nil, fmt.Errorf("booking times must align to %d-minute slots", models.SlotGranularity)
	}

	// 1. Trust gate: may require a no-show fee before the job can be posted.
	actx := trust.ActionContext{
		PostingJob:   true,
		NoShowFeeSet: req.NoShowFee > 0,
	}
	decision, err := s.Trust.EvaluateFor(ctx, req.UserID, models.RoleCustomer, actx)
	if err != nil {
		return nil, err
	}
	if !trust.Satisfied(decision, actx) {
		return nil, NewGateError("a no-show fee must be configured before this booking can be placed")
	}

	// 2. Advisory availability check.
	slots, err := s.Resolver.ResolveSlots(ctx, req.ProviderID, req.Date, req.ListingID)
	if err != nil {
		return nil, err
	}
	if !rangeAvailable(slots, req.Start, req.End) {
		return nil, NewSlotUnavailableError("requested slot is not available")
	}

	// Provider-gated consultation requirement rides on the provider's level.
	provDecision, err := s.Trust.EvaluateFor(ctx, req.ProviderID, models.RoleProvider, trust.ActionContext{AcceptingWork: true})
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ProviderID:         req.ProviderID,
		UserID:             req.UserID,
		ListingID:          req.ListingID,
		Title:              req.Title,
		Date:               req.Date,
		Start:              req.Start,
		End:                req.End,
		TotalPrice:         req.Price,
		Currency:           req.Currency,
		Status:             models.BookingStatusPending,
		NoShowFee:          req.NoShowFee,
		ConsultationNeeded: provDecision.RequiredConsultation,
	}
	if err := s.Bookings.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	// 3. Commit point: conditional insert of every slot granule.
	err = s.Slots.TryReserveRange(ctx, req.ProviderID, booking.ID, req.Date, req.Start, req.End)
	if errors.Is(err, slotRepo.ErrSlotTaken) {
		if stErr := s.Bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingStatusPending, models.BookingStatusCancelled); stErr != nil {
			logger.Error("booking: failed to cancel after reserve conflict",
				zap.String("bookingID", booking.ID), zap.Error(stErr))
		}
		return nil, NewSlotUnavailableError("slot was booked by someone else; please pick another slot")
	}
	if err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, req.ProviderID, req.Date)

	// 4. Capture payment into escrow; roll the reservation back on failure.
	invoice, err := s.Payments.Capture(ctx, models.CaptureRequest{
		UserID:      req.UserID,
		BookingID:   booking.ID,
		Amount:      req.Price,
		Currency:    req.Currency,
		Idempotency: "capture-" + booking.ID,
	})
	if err != nil {
		if rbErr := s.Slots.Release(ctx, booking.ID); rbErr != nil {
			logger.Error("booking: failed to release slots after capture failure",
				zap.String("bookingID", booking.ID), zap.Error(rbErr))
		}
		if stErr := s.Bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingStatusPending, models.BookingStatusCancelled); stErr != nil {
			logger.Error("booking: failed to cancel after capture failure",
				zap.String("bookingID", booking.ID), zap.Error(stErr))
		}
		s.invalidateCache(ctx, req.ProviderID, req.Date)
		return nil, fmt.Errorf("payment capture failed: %w", err)
	}

	if _, err := s.Settlement.CreateHold(ctx, booking, invoice, booking.ConsultationNeeded); err != nil {
		return nil, err
	}

	if err := s.Bookings.UpdateBookingStatus(ctx, booking.ID, models.BookingStatusPending, models.BookingStatusConfirmed); err != nil {
		return nil, err
	}
	if err := s.Slots.Confirm(ctx, booking.ID); err != nil {
		return nil, err
	}
	booking.Status = models.BookingStatusConfirmed

	s.Notify.Notify(ctx, req.ProviderID, "New booking",
		fmt.Sprintf("You have a new booking on %s", req.Date), map[string]string{"booking_id": booking.ID})
	return booking, nil
}

// CreateRecurringSeries validates the pattern and seeds the series with its
// first occurrence date. Materialization happens separately.
func (s *DefaultBookingService) CreateRecurringSeries(ctx context.Context, series models.RecurringSeries) (*models.RecurringSeries, error) {
	start, err := time.Parse("2006-01-02", series.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid series start date: %w", err)
	}
	if _, err := recurrence.NextOccurrence(series.Pattern, start); err != nil {
		return nil, err
	}

	actx := trust.ActionContext{PostingJob: true, NoShowFeeSet: true}
	decision, err := s.Trust.EvaluateFor(ctx, series.UserID, models.RoleCustomer, actx)
	if err != nil {
		return nil, err
	}
	if decision.Blocked {
		return nil, NewGateError("recurring bookings are not currently permitted for this account")
	}

	series.IsActive = true
	series.NextOccurrenceDate = series.StartDate
	if err := s.Bookings.CreateSeries(ctx, &series); err != nil {
		return nil, err
	}
	return &series, nil
}

// CompleteBooking finalizes service delivery: booking Completed, escrow
// released, trust streaks advanced for both parties.
func (s *DefaultBookingService) CompleteBooking(ctx context.Context, bookingID, actor string) error {
	booking, err := s.Bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := s.Bookings.UpdateBookingStatus(ctx, bookingID, models.BookingStatusConfirmed, models.BookingStatusCompleted); err != nil {
		return err
	}
	if err := s.Settlement.Release(ctx, bookingID, actor); err != nil {
		return err
	}

	logger := utils.GetLogger()
	if err := s.Trust.RecordCompletion(ctx, booking.UserID, models.RoleCustomer); err != nil {
		logger.Error("booking: failed to record customer completion", zap.Error(err))
	}
	if err := s.Trust.RecordCompletion(ctx, booking.ProviderID, models.RoleProvider); err != nil {
		logger.Error("booking: failed to record provider completion", zap.Error(err))
	}
	return nil
}

// MarkNoShow records a customer no-show, resetting their trust streak.
func (s *DefaultBookingService) MarkNoShow(ctx context.Context, bookingID, actor string) error {
	booking, err := s.Bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := s.Bookings.UpdateBookingStatus(ctx, bookingID, models.BookingStatusConfirmed, models.BookingStatusNoShow); err != nil {
		return err
	}
	if err := s.Slots.Release(ctx, bookingID); err != nil {
		utils.GetLogger().Error("booking: failed to release slots after no-show",
			zap.String("bookingID", bookingID), zap.Error(err))
	}
	s.invalidateCache(ctx, booking.ProviderID, booking.Date)
	return s.Trust.RecordFailure(ctx, booking.UserID, models.RoleCustomer)
}

// ListBookingsForUser returns the caller's bookings, newest first.
func (s *DefaultBookingService) ListBookingsForUser(ctx context.Context, userID string) ([]models.Booking, error) {
	return s.Bookings.GetBookingsByUser(ctx, userID)
}

func (s *DefaultBookingService) GetTimeline(ctx context.Context, bookingID string) ([]models.TimelineEvent, error) {
	return s.Bookings.GetTimeline(ctx, bookingID)
}

func (s *DefaultBookingService) invalidateCache(ctx context.Context, providerID, date string) {
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, providerID, date)
	}
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
