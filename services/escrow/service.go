// File: services/escrow/service.go
package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"servana/config"
	bookingRepo "servana/database/repository/booking"
	escrowRepo "servana/database/repository/escrow"
	"servana/models"
	"servana/services/notification"
	"servana/services/payment"
	"servana/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// ErrAdjustmentAlreadyApplied is returned when a second price adjustment is
// proposed for a booking; at most one is permitted.
var ErrAdjustmentAlreadyApplied = errors.New("price adjustment already applied for this booking")

// SettlementService drives a booking's held funds through consultation,
// adjustment, completion, dispute, refund or expiry. Every transition is a
// guarded single-document update plus an appended timeline event.
type SettlementService interface {
	CreateHold(ctx context.Context, booking *models.Booking, invoice *models.Invoice, consultationRequired bool) (*models.EscrowSettlement, error)
	BeginConsultation(ctx context.Context, bookingID, actor string) error
	CompleteConsultation(ctx context.Context, bookingID, actor string) error
	ProposeAdjustment(ctx context.Context, bookingID string, newAmount float64, actor string) error
	ApproveAdjustment(ctx context.Context, bookingID, actor string) error
	RejectAdjustment(ctx context.Context, bookingID, actor string) error
	Release(ctx context.Context, bookingID, actor string) error
	OpenDispute(ctx context.Context, bookingID, actor, reason string) error
	ResolveDispute(ctx context.Context, bookingID, actor, resolutionType string, refundAmount float64) error
	MarkRefunded(ctx context.Context, bookingID, actor string, amount float64) error
	ExpireDue(ctx context.Context) error
}

// DefaultSettlementService is the production implementation.
type DefaultSettlementService struct {
	Escrow   escrowRepo.EscrowRepository
	Bookings bookingRepo.BookingRepository
	Payments payment.Processor
	Notify   notification.NotificationService
}

// preReleaseStates are the states a settlement can still move out of.
var preReleaseStates = []string{
	models.SettlementHeld,
	models.SettlementConsultationPending,
	models.SettlementAwaitingPriceApproval,
}

// CreateHold records the escrow entry for a freshly captured payment.
// Exactly one settlement per booking; the unique booking index rejects
// re-creation.
func (s *DefaultSettlementService) CreateHold(ctx context.Context, booking *models.Booking, invoice *models.Invoice, consultationRequired bool) (*models.EscrowSettlement, error) {
	holdHours := config.AppConfig.EscrowHoldHours
	if holdHours <= 0 {
		holdHours = 72
	}
	settlement := &models.EscrowSettlement{
		BookingID:            booking.ID,
		Amount:               booking.TotalPrice,
		Currency:             booking.Currency,
		State:                models.SettlementHeld,
		ConsultationRequired: consultationRequired,
		PaymentRef:           invoice.PaymentID,
		ExpiresAt:            time.Now().Add(time.Duration(holdHours) * time.Hour),
	}
	if err := s.Escrow.Create(ctx, settlement); err != nil {
		return nil, err
	}

	s.appendEvent(ctx, booking.ID, models.EventPaymentCaptured, "system",
		fmt.Sprintf("Payment of %.2f %s captured into escrow", settlement.Amount, settlement.Currency),
		map[string]string{"payment_ref": settlement.PaymentRef})
	s.Notify.Notify(ctx, booking.ProviderID, "New booking paid",
		"A booking payment is being held in escrow.", map[string]string{"booking_id": booking.ID})
	return settlement, nil
}

// BeginConsultation moves a consultation-required settlement from Held to
// ConsultationPending. Work may not start before the consultation completes.
func (s *DefaultSettlementService) BeginConsultation(ctx context.Context, bookingID, actor string) error {
	settlement, err := s.Escrow.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	if !settlement.ConsultationRequired {
		return fmt.Errorf("consultation not required for booking %s", bookingID)
	}
	if settlement.ConsultationDone {
		return fmt.Errorf("consultation already completed for booking %s", bookingID)
	}
	err = s.Escrow.Transition(ctx, settlement.ID,
		[]string{models.SettlementHeld}, models.SettlementConsultationPending, nil)
	if err != nil {
		return err
	}
	s.appendEvent(ctx, bookingID, models.EventConsultationStarted, actor, "Consultation started", nil)
	return nil
}

// CompleteConsultation returns the settlement to Held once the provider
// has conducted the consultation.
func (s *DefaultSettlementService) CompleteConsultation(ctx context.Context, bookingID, actor string) error {
	settlement, err := s.Escrow.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	err = s.Escrow.Transition(ctx, settlement.ID,
		[]string{models.SettlementConsultationPending}, models.SettlementHeld,
		bson.M{"consultation_done": true})
	if err != nil {
		return err
	}
	s.appendEvent(ctx, bookingID, models.EventConsultationDone, actor, "Consultation completed", nil)
	s.Notify.Notify(ctx, actor, "Consultation complete",
		"Work on the booking may now begin.", map[string]string{"booking_id": bookingID})
	return nil
}

// ProposeAdjustment requests a one-time price change, parking the
// settlement in AwaitingPriceApproval until the customer decides.
func (s *DefaultSettlementService) ProposeAdjustment(ctx context.Context, bookingID string, newAmount float64, actor string) error {
	settlement, err := s.Escrow.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	if settlement.PriceAdjusted {
		return ErrAdjustmentAlreadyApplied
	}
	if newAmount <= 0 {
		return fmt.Errorf("invalid adjusted amount %.2f", newAmount)
	}

	err = s.Escrow.Transition(ctx, settlement.ID,
		[]string{models.SettlementHeld, models.SettlementConsultationPending},
		models.SettlementAwaitingPriceApproval,
		bson.M{"proposed_amount": newAmount, "prior_state": settlement.State})
	if err != nil {
		return err
	}
	s.appendEvent(ctx, bookingID, models.EventAdjustmentProposed, actor,
		fmt.Sprintf("Price adjustment to %.2f proposed", newAmount), nil)
	return nil
}

// ApproveAdjustment applies the one permitted price change and returns the
// settlement to Held.
func (s *DefaultSettlementService) ApproveAdjustment(ctx context.Context, bookingID, actor string) error {
	settlement, err := s.Escrow.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	err = s.Escrow.Transition(ctx, settlement.ID,
		[]string{models.SettlementAwaitingPriceApproval}, models.SettlementHeld,
		bson.M{"amount": settlement.ProposedAmount, "price_adjusted": true, "proposed_amount": 0.0, "prior_state": ""})
	if err != nil {
		return err
	}
	s.appendEvent(ctx, bookingID, models.EventAdjustmentApproved, actor,
		fmt.Sprintf("Price adjustment to %.2f approved", settlement.ProposedAmount), nil)
	return nil
}

// RejectAdjustment restores the settlement to the state it held before the
// proposal.
func (s *DefaultSettlementService) RejectAdjustment(ctx context.Context, bookingID, actor string) error {
	settlement, err := s.Escrow.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	prior := settlement.PriorState
	if prior == "" {
		prior = models.SettlementHeld
	}
	err = s.Escrow.Transition(ctx, settlement.ID,
		[]string{models.SettlementAwaitingPriceApproval}, prior,
		bson.M{"proposed_amount": 0.0, "prior_state": ""})
	if err != nil {
		return err
	}
	s.appendEvent(ctx, bookingID, models.EventAdjustmentRejected, actor, "Price adjustment rejected", nil)
	return nil
}

// Release moves funds to the provider's payable balance once the order is
// received and completed. One-way and terminal.
func (s *DefaultSettlementService) Release(ctx context.Context, bookingID, actor string) error {
	settlement, err := s.Escrow.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	err = s.Escrow.Transition(ctx, settlement.ID,
		[]string{models.SettlementHeld}, models.SettlementReleased, nil)
	if err != nil {
		return err
	}
	s.appendEvent(ctx, bookingID, models.EventFundsReleased, actor,
		fmt.Sprintf("Funds of %.2f %s released to provider", settlement.Amount, settlement.Currency), nil)
	s.Notify.Notify(ctx, actor, "Funds released",
		"Escrowed funds have been released.", map[string]string{"booking_id": bookingID})
	return nil
}

// OpenDispute freezes the settlement; only resolution can move it.
func (s *DefaultSettlementService) OpenDispute(ctx context.Context, bookingID, actor, reason string) error {
	settlement, err := s.Escrow.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	err = s.Escrow.Transition(ctx, settlement.ID, preReleaseStates, models.SettlementDisputed,
		bson.M{"prior_state": settlement.State})
	if err != nil {
		return err
	}
	s.appendEvent(ctx, bookingID, models.EventDisputeOpened, actor, reason, nil)
	return nil
}

// ResolveDispute closes a dispute with an explicit resolution, releasing
// or refunding the held amount.
func (s *DefaultSettlementService) ResolveDispute(ctx context.Context, bookingID, actor, resolutionType string, refundAmount float64) error {
	settlement, err := s.Escrow.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}

	var toState string
	set := bson.M{"resolution_type": resolutionType}
	switch resolutionType {
	case models.ResolutionRelease:
		toState = models.SettlementReleased
	case models.ResolutionRefund:
		toState = models.SettlementRefunded
		set["refund_amount"] = refundAmount
	default:
		return fmt.Errorf("unknown resolution type %q", resolutionType)
	}

	if err := s.Escrow.Transition(ctx, settlement.ID, []string{models.SettlementDisputed}, toState, set); err != nil {
		return err
	}
	if resolutionType == models.ResolutionRefund && refundAmount > 0 {
		if err := s.Payments.Refund(ctx, settlement.PaymentRef, refundAmount, settlement.Currency, "dispute-"+settlement.ID); err != nil {
			// State already moved; the refund queue picks up processor failures.
			utils.GetLogger().Error("escrow: dispute refund failed, needs retry",
				zap.String("bookingID", bookingID), zap.Error(err))
		}
	}
	s.appendEvent(ctx, bookingID, models.EventDisputeResolved, actor,
		fmt.Sprintf("Dispute resolved: %s", resolutionType),
		map[string]string{"resolution_type": resolutionType})
	return nil
}

// MarkRefunded moves a pre-release settlement to Refunded. The refund
// policy engine owns eligibility; this only performs the transition.
func (s *DefaultSettlementService) MarkRefunded(ctx context.Context, bookingID, actor string, amount float64) error {
	settlement, err := s.Escrow.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	err = s.Escrow.Transition(ctx, settlement.ID, preReleaseStates, models.SettlementRefunded,
		bson.M{"refund_amount": amount})
	if err != nil {
		return err
	}
	s.appendEvent(ctx, bookingID, models.EventRefundIssued, actor,
		fmt.Sprintf("Refund of %.2f %s issued", amount, settlement.Currency), nil)
	return nil
}

// ExpireDue sweeps settlements past their expiry into the terminal Expired
// state. Safe to run concurrently: each transition fires at most once.
func (s *DefaultSettlementService) ExpireDue(ctx context.Context) error {
	logger := utils.GetLogger()
	expired, err := s.Escrow.ListExpiredPending(ctx)
	if err != nil {
		return err
	}
	for _, settlement := range expired {
		// Disputed settlements are frozen for resolution and never expire.
		err := s.Escrow.Transition(ctx, settlement.ID, preReleaseStates, models.SettlementExpired, nil)
		if errors.Is(err, escrowRepo.ErrStateConflict) {
			continue // another sweep or a user action got there first
		}
		if err != nil {
			logger.Error("escrow: expiry transition failed",
				zap.String("settlementID", settlement.ID), zap.Error(err))
			continue
		}
		s.appendEvent(ctx, settlement.BookingID, models.EventSettlementExpired, "system",
			"Settlement expired without resolution", nil)
	}
	return nil
}

func (s *DefaultSettlementService) appendEvent(ctx context.Context, bookingID, eventType, actor, description string, metadata map[string]string) {
	event := &models.TimelineEvent{
		BookingID:   bookingID,
		Type:        eventType,
		Actor:       actor,
		Description: description,
		Metadata:    metadata,
	}
	if err := s.Bookings.AppendTimelineEvent(ctx, event); err != nil {
		utils.GetLogger().Error("escrow: failed to append timeline event",
			zap.String("bookingID", bookingID), zap.String("type", eventType), zap.Error(err))
	}
}
