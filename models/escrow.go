package models

import "time"

// Settlement states. Released, Refunded and Expired are terminal.
const (
	SettlementHeld                  = "Held"
	SettlementConsultationPending   = "ConsultationPending"
	SettlementAwaitingPriceApproval = "AwaitingPriceApproval"
	SettlementReleased              = "Released"
	SettlementRefunded              = "Refunded"
	SettlementDisputed              = "Disputed"
	SettlementExpired               = "Expired"
)

// Dispute resolution outcomes.
const (
	ResolutionRelease = "release"
	ResolutionRefund  = "refund"
)

// EscrowSettlement tracks a booking's held funds from capture through
// release, refund, dispute or expiry. Exactly one per booking, created at
// payment capture; never re-created.
type EscrowSettlement struct {
	ID                   string    `bson:"id" json:"id"`
	BookingID            string    `bson:"booking_id" json:"booking_id"`
	Amount               float64   `bson:"amount" json:"amount"`
	Currency             string    `bson:"currency" json:"currency"`
	State                string    `bson:"state" json:"state"`
	ConsultationRequired bool      `bson:"consultation_required" json:"consultation_required"`
	ConsultationDone     bool      `bson:"consultation_done" json:"consultation_done"`
	PriceAdjusted        bool      `bson:"price_adjusted" json:"price_adjusted"` // at most one adjustment per booking
	ProposedAmount       float64   `bson:"proposed_amount,omitempty" json:"proposed_amount,omitempty"`
	PriorState           string    `bson:"prior_state,omitempty" json:"prior_state,omitempty"` // state to restore on adjustment rejection
	ResolutionType       string    `bson:"resolution_type,omitempty" json:"resolution_type,omitempty"`
	RefundAmount         float64   `bson:"refund_amount,omitempty" json:"refund_amount,omitempty"`
	PaymentRef           string    `bson:"payment_ref" json:"payment_ref"` // processor charge reference
	ExpiresAt            time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt            time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time `bson:"updated_at" json:"updated_at"`
}

// IsTerminalSettlementState reports whether no further transitions are
// allowed from the given state.
func IsTerminalSettlementState(state string) bool {
	switch state {
	case SettlementReleased, SettlementRefunded, SettlementExpired:
		return true
	}
	return false
}
