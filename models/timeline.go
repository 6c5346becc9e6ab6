package models

import "time"

// Timeline event types appended by settlement and refund transitions.
const (
	EventPaymentCaptured     = "payment_captured"
	EventConsultationStarted = "consultation_started"
	EventConsultationDone    = "consultation_done"
	EventAdjustmentProposed  = "adjustment_proposed"
	EventAdjustmentApproved  = "adjustment_approved"
	EventAdjustmentRejected  = "adjustment_rejected"
	EventFundsReleased       = "funds_released"
	EventDisputeOpened       = "dispute_opened"
	EventDisputeResolved     = "dispute_resolved"
	EventRefundIssued        = "refund_issued"
	EventSettlementExpired   = "settlement_expired"
	EventRefundRequested     = "refund_requested"
	EventRefundApproved      = "refund_approved"
	EventRefundRejected      = "refund_rejected"
	EventBookingCancelled    = "booking_cancelled"
)

// TimelineEvent is one entry in a booking's append-only history. Events
// are never mutated or deleted.
type TimelineEvent struct {
	ID          string            `bson:"id" json:"id"`
	BookingID   string            `bson:"booking_id" json:"booking_id"`
	Type        string            `bson:"type" json:"type"`
	Actor       string            `bson:"actor" json:"actor"` // user/provider/admin/system id
	Description string            `bson:"description" json:"description"`
	Metadata    map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt   time.Time         `bson:"created_at" json:"created_at"`
}
