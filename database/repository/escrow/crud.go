// File: database/repository/escrow/crud.go
package escrowRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"servana/models"
)

// Create inserts the settlement. The unique index on booking_id guarantees
// a settlement is never re-created for the same booking.
func (r *mongoEscrowRepo) Create(ctx context.Context, settlement *models.EscrowSettlement) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	now := time.Now()
	settlement.CreatedAt = now
	settlement.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, settlement); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("settlement already exists for booking %s: %w", settlement.BookingID, err)
		}
		return fmt.Errorf("error creating settlement: %w", err)
	}
	return nil
}

func (r *mongoEscrowRepo) GetByBookingID(ctx context.Context, bookingID string) (*models.EscrowSettlement, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var settlement models.EscrowSettlement
	if err := r.coll.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&settlement); err != nil {
		return nil, fmt.Errorf("settlement not found for booking %s: %w", bookingID, err)
	}
	return &settlement, nil
}

// Transition moves the settlement to toState only if its current state is
// one of fromStates; extra fields in set are applied atomically with the
// state change. A missed match means another actor won the race.
func (r *mongoEscrowRepo) Transition(ctx context.Context, settlementID string, fromStates []string, toState string, set bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	states := make(bson.A, len(fromStates))
	for i, s := range fromStates {
		states[i] = s
	}

	if set == nil {
		set = bson.M{}
	}
	set["state"] = toState
	set["updated_at"] = time.Now()

	filter := bson.M{"id": settlementID, "state": bson.M{"$in": states}}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("error transitioning settlement %s: %w", settlementID, err)
	}
	if res.MatchedCount == 0 {
		return ErrStateConflict
	}
	return nil
}

// ListExpiredPending returns settlements past expires_at that the sweep may
// still expire. Disputed settlements are excluded: a dispute freezes the
// settlement until explicit resolution. Safe to call concurrently; the
// sweep's guarded transition fires at most once per settlement.
func (r *mongoEscrowRepo) ListExpiredPending(ctx context.Context) ([]models.EscrowSettlement, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"expires_at": bson.M{"$lte": time.Now()},
		"state": bson.M{"$in": bson.A{
			models.SettlementHeld,
			models.SettlementConsultationPending,
			models.SettlementAwaitingPriceApproval,
		}},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error fetching expired settlements: %w", err)
	}
	defer cursor.Close(ctx)

	var settlements []models.EscrowSettlement
	if err := cursor.All(ctx, &settlements); err != nil {
		return nil, err
	}
	return settlements, nil
}
