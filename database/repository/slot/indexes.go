// File: database/repository/slot/indexes.go
package slotRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"servana/models"
)

// EnsureIndexes creates the necessary indexes on the reserved_slots
// collection. The partial unique index is the storage-level guard that
// closes the "slot looked free" race: only active reservations occupy
// the (provider, date, start) key.
func (r *mongoSlotRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys: bson.D{{Key: "provider_id", Value: 1}, {Key: "date", Value: 1}, {Key: "start", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("unique_active_slot").
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": bson.A{models.SlotStatusReserved, models.SlotStatusConfirmed}},
				}),
		},
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().SetName("booking_idx"),
		},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create reserved slot indexes: %w", err)
	}
	return nil
}
