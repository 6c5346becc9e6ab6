// File: database/repository/slot/crud.go
package slotRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"servana/models"
)

// TryReserve inserts the reservation. The unique partial index on
// (provider_id, date, start) over active statuses turns a lost race into a
// duplicate-key error, surfaced as ErrSlotTaken.
func (r *mongoSlotRepo) TryReserve(ctx context.Context, slot *models.ReservedSlot) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if slot.ID == "" {
		slot.ID = uuid.New().String()
	}
	if slot.Status == "" {
		slot.Status = models.SlotStatusReserved
	}
	slot.CreatedAt = time.Now()

	if _, err := r.coll.InsertOne(ctx, slot); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("error reserving slot: %w", err)
	}
	return nil
}

// TryReserveRange reserves every 30-minute granule in [start, end) for the
// booking. Granules are inserted one at a time so the unique index guards
// each of them; on a lost race the granules already inserted are rolled
// back and ErrSlotTaken is returned.
func (r *mongoSlotRepo) TryReserveRange(ctx context.Context, providerID, bookingID, date string, start, end int) error {
	for s := start; s < end; s += models.SlotGranularity {
		slot := models.ReservedSlot{
			ProviderID: providerID,
			BookingID:  bookingID,
			Date:       date,
			Start:      s,
			End:        s + models.SlotGranularity,
			Status:     models.SlotStatusReserved,
		}
		if err := r.TryReserve(ctx, &slot); err != nil {
			if rbErr := r.deleteByBooking(ctx, bookingID); rbErr != nil {
				return fmt.Errorf("rollback after reserve conflict failed: %w", rbErr)
			}
			return err
		}
	}
	return nil
}

func (r *mongoSlotRepo) deleteByBooking(ctx context.Context, bookingID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.coll.DeleteMany(ctx, bson.M{"booking_id": bookingID})
	return err
}

func (r *mongoSlotRepo) Confirm(ctx context.Context, bookingID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"booking_id": bookingID, "status": models.SlotStatusReserved}
	update := bson.M{"$set": bson.M{"status": models.SlotStatusConfirmed}}
	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error confirming slot for booking %s: %w", bookingID, err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Release invalidates the reservation so the slot becomes bookable again.
func (r *mongoSlotRepo) Release(ctx context.Context, bookingID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"booking_id": bookingID,
		"status":     bson.M{"$in": bson.A{models.SlotStatusReserved, models.SlotStatusConfirmed}},
	}
	update := bson.M{"$set": bson.M{"status": models.SlotStatusCancelled}}
	if _, err := r.coll.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("error releasing slot for booking %s: %w", bookingID, err)
	}
	return nil
}

func (r *mongoSlotRepo) GetActiveByProviderAndDate(ctx context.Context, providerID, date string) ([]models.ReservedSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"provider_id": providerID,
		"date":        date,
		"status":      bson.M{"$in": bson.A{models.SlotStatusReserved, models.SlotStatusConfirmed}},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error fetching reserved slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []models.ReservedSlot
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}
