// File: handlers/bundle.go
package handlers

import (
	availabilityRepo "servana/database/repository/availability"
	escrowRepo "servana/database/repository/escrow"
	"servana/services/availability"
	"servana/services/booking"
	"servana/services/escrow"
	"servana/services/recurrence"
	"servana/services/refund"
	"servana/services/trust"
)

// HandlerBundle groups every endpoint's dependencies into one struct,
// wired once in main and handed to route registration.
type HandlerBundle struct {
	Resolver     availability.Resolver
	Availability availabilityRepo.AvailabilityRepository
	Bookings     booking.BookingService
	Expander     recurrence.Expander
	Settlements  escrow.SettlementService
	SettlementDB escrowRepo.EscrowRepository
	Refunds      refund.RefundService
	Trust        trust.TrustService
}
