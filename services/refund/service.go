// File: services/refund/service.go
package refund

import (
	"context"
	"errors"
	"fmt"
	"time"

	"servana/config"
	bookingRepo "servana/database/repository/booking"
	escrowRepo "servana/database/repository/escrow"
	refundRepo "servana/database/repository/refund"
	slotRepo "servana/database/repository/slot"
	"servana/models"
	"servana/services/escrow"
	"servana/services/notification"
	"servana/services/payment"
	"servana/utils"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrNotEligible is a policy rejection carrying the human-readable reason
// from the eligibility check.
type ErrNotEligible struct {
	Reason string
}

func (e *ErrNotEligible) Error() string {
	return fmt.Sprintf("not eligible for refund: %s", e.Reason)
}

// RefundService computes refund eligibility and drives customer
// self-service cancellation, admin resolution, and the retry queue.
type RefundService interface {
	CheckEligibility(ctx context.Context, bookingID string) (models.Eligibility, error)
	SubmitRefundRequest(ctx context.Context, bookingID, requesterID, reason string) (*models.RefundRequest, error)
	ApproveRefund(ctx context.Context, requestID, adminID string) error
	RejectRefund(ctx context.Context, requestID, adminID string) error
	ListPending(ctx context.Context) ([]models.RefundRequest, error)
	RetryQueued(ctx context.Context) error
}

// DefaultRefundService is the production implementation.
type DefaultRefundService struct {
	Refunds    refundRepo.RefundRepository
	Bookings   bookingRepo.BookingRepository
	Slots      slotRepo.SlotRepository
	Escrow     escrowRepo.EscrowRepository
	Settlement escrow.SettlementService
	Payments   payment.Processor
	Notify     notification.NotificationService
}

func (s *DefaultRefundService) CheckEligibility(ctx context.Context, bookingID string) (models.Eligibility, error) {
	booking, err := s.Bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return models.Eligibility{}, err
	}
	hasOpen, err := s.hasOpenRequest(ctx, bookingID)
	if err != nil {
		return models.Eligibility{}, err
	}
	return EvaluatePolicy(booking, hasOpen, time.Now())
}

// SubmitRefundRequest re-validates eligibility at submission time to close
// the race between quote and submit, creates the Pending request via the
// storage-level check-and-insert, and cancels the booking.
func (s *DefaultRefundService) SubmitRefundRequest(ctx context.Context, bookingID, requesterID, reason string) (*models.RefundRequest, error) {
	booking, err := s.Bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	hasOpen, err := s.hasOpenRequest(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	eligibility, err := EvaluatePolicy(booking, hasOpen, time.Now())
	if err != nil {
		return nil, err
	}
	if !eligibility.Eligible {
		reason := eligibility.Reason
		if reason == "" {
			reason = "refund window has passed"
		}
		return nil, &ErrNotEligible{Reason: reason}
	}

	request := &models.RefundRequest{
		BookingID:   bookingID,
		Amount:      eligibility.Amount,
		Percentage:  eligibility.Percentage,
		Reason:      reason,
		RequestedBy: requesterID,
	}
	if err := s.Refunds.CreateRequest(ctx, request); err != nil {
		return nil, err
	}

	// The booking leaves the schedule with the request.
	if err := s.Bookings.UpdateBookingStatus(ctx, bookingID, booking.Status, models.BookingStatusCancelled); err != nil {
		return nil, err
	}
	if err := s.Slots.Release(ctx, bookingID); err != nil {
		utils.GetLogger().Error("refund: failed to release reserved slot",
			zap.String("bookingID", bookingID), zap.Error(err))
	}

	s.appendEvent(ctx, bookingID, models.EventRefundRequested, requesterID,
		fmt.Sprintf("Refund of %.2f (%d%%) requested", request.Amount, request.Percentage), nil)
	s.appendEvent(ctx, bookingID, models.EventBookingCancelled, requesterID, "Booking cancelled with refund request", nil)
	s.Notify.Notify(ctx, booking.ProviderID, "Booking cancelled",
		"The customer cancelled and requested a refund.", map[string]string{"booking_id": bookingID})
	return request, nil
}

// ApproveRefund transitions the settlement, resolves the Pending request
// and issues the processor refund. The settlement moves first: if it can
// no longer be refunded the request stays Pending instead of resolving
// with no funds moved (a resolved request is immutable). A processor
// failure is queued for retry, not surfaced as an approval failure.
func (s *DefaultRefundService) ApproveRefund(ctx context.Context, requestID, adminID string) error {
	request, err := s.Refunds.GetRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.Status != models.RefundStatusPending {
		return refundRepo.ErrRequestResolved
	}
	if err := s.Settlement.MarkRefunded(ctx, request.BookingID, adminID, request.Amount); err != nil {
		return err
	}
	if err := s.Refunds.ResolveRequest(ctx, requestID, models.RefundStatusCompleted, adminID); err != nil {
		return err
	}

	if err := s.issueProcessorRefund(ctx, request); err != nil {
		utils.GetLogger().Error("refund: processor refund failed, enqueueing retry",
			zap.String("requestID", requestID), zap.Error(err))
		item := &models.RefundQueueItem{
			BookingID:       request.BookingID,
			RefundRequestID: request.ID,
			Amount:          request.Amount,
			MaxAttempts:     config.AppConfig.RefundMaxAttempts,
			LastError:       err.Error(),
		}
		if qErr := s.Refunds.EnqueueRetry(ctx, item); qErr != nil {
			return qErr
		}
	}

	s.appendEvent(ctx, request.BookingID, models.EventRefundApproved, adminID,
		fmt.Sprintf("Refund of %.2f approved", request.Amount), nil)
	s.Notify.Notify(ctx, request.RequestedBy, "Refund approved",
		"Your refund has been approved and is being processed.", map[string]string{"booking_id": request.BookingID})
	return nil
}

// RejectRefund resolves a Pending request as Failed. A request that is no
// longer Pending is rejected with an explicit error, never a silent no-op.
func (s *DefaultRefundService) RejectRefund(ctx context.Context, requestID, adminID string) error {
	request, err := s.Refunds.GetRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if err := s.Refunds.ResolveRequest(ctx, requestID, models.RefundStatusFailed, adminID); err != nil {
		return err
	}
	s.appendEvent(ctx, request.BookingID, models.EventRefundRejected, adminID, "Refund request rejected", nil)
	s.Notify.Notify(ctx, request.RequestedBy, "Refund rejected",
		"Your refund request was rejected.", map[string]string{"booking_id": request.BookingID})
	return nil
}

// ListPending returns every unresolved request, oldest first, for the
// admin review queue.
func (s *DefaultRefundService) ListPending(ctx context.Context) ([]models.RefundRequest, error) {
	return s.Refunds.ListPendingRequests(ctx)
}

// RetryQueued re-attempts queued processor refunds. Items beyond their
// attempt budget are escalated to manual processing, never retried again.
func (s *DefaultRefundService) RetryQueued(ctx context.Context) error {
	logger := utils.GetLogger()
	items, err := s.Refunds.ListQueuedItems(ctx)
	if err != nil {
		return err
	}

	for _, item := range items {
		request, err := s.Refunds.GetRequestByID(ctx, item.RefundRequestID)
		if err != nil {
			logger.Error("refund: queued item references missing request",
				zap.String("itemID", item.ID), zap.Error(err))
			continue
		}

		if err := s.issueProcessorRefund(ctx, request); err != nil {
			attemptErr := s.Refunds.RecordAttempt(ctx, item.ID, err.Error())
			if errors.Is(attemptErr, refundRepo.ErrMaxAttemptsReached) {
				logger.Warn("refund: retries exhausted, escalating to manual processing",
					zap.String("itemID", item.ID), zap.String("bookingID", item.BookingID))
				if escErr := s.Refunds.EscalateQueueItem(ctx, item.ID); escErr != nil {
					logger.Error("refund: escalation failed", zap.String("itemID", item.ID), zap.Error(escErr))
				}
				continue
			}
			if attemptErr != nil {
				logger.Error("refund: failed to record attempt", zap.String("itemID", item.ID), zap.Error(attemptErr))
			}
			continue
		}

		if err := s.Refunds.CompleteQueueItem(ctx, item.ID); err != nil {
			logger.Error("refund: failed to complete queue item", zap.String("itemID", item.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *DefaultRefundService) issueProcessorRefund(ctx context.Context, request *models.RefundRequest) error {
	settlement, err := s.Escrow.GetByBookingID(ctx, request.BookingID)
	if err != nil {
		return err
	}
	return s.Payments.Refund(ctx, settlement.PaymentRef, request.Amount, settlement.Currency, "refund-"+request.ID)
}

func (s *DefaultRefundService) hasOpenRequest(ctx context.Context, bookingID string) (bool, error) {
	_, err := s.Refunds.GetOpenRequestByBooking(ctx, bookingID)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *DefaultRefundService) appendEvent(ctx context.Context, bookingID, eventType, actor, description string, metadata map[string]string) {
	event := &models.TimelineEvent{
		BookingID:   bookingID,
		Type:        eventType,
		Actor:       actor,
		Description: description,
		Metadata:    metadata,
	}
	if err := s.Bookings.AppendTimelineEvent(ctx, event); err != nil {
		utils.GetLogger().Error("refund: failed to append timeline event",
			zap.String("bookingID", bookingID), zap.Error(err))
	}
}
