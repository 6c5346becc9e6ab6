// File: database/repository/slot/interface.go
package slotRepo

import (
	"context"
	"errors"
	"fmt"

	"servana/database"
	"servana/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrSlotTaken is returned when the conditional reservation insert finds the
// slot already committed. Callers treat this as a normal "slot no longer
// available" outcome and re-resolve, not as a system error.
var ErrSlotTaken = errors.New("slot already reserved")

// SlotRepository manages committed time for a (provider, date) pair. The
// reserve path is a conditional insert backed by a unique index so two
// concurrent requests for the same slot cannot both succeed.
type SlotRepository interface {
	TryReserve(ctx context.Context, slot *models.ReservedSlot) error
	TryReserveRange(ctx context.Context, providerID, bookingID, date string, start, end int) error
	Confirm(ctx context.Context, bookingID string) error
	Release(ctx context.Context, bookingID string) error
	GetActiveByProviderAndDate(ctx context.Context, providerID, date string) ([]models.ReservedSlot, error)
}

type mongoSlotRepo struct {
	coll *mongo.Collection
}

// NewMongoSlotRepo constructs a new MongoDB SlotRepository.
func NewMongoSlotRepo() SlotRepository {
	db := database.DB()
	repo := &mongoSlotRepo{coll: db.Collection("reserved_slots")}
	if err := repo.EnsureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}
