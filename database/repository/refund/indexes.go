// File: database/repository/refund/indexes.go
package refundRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"servana/models"
)

// EnsureIndexes creates the necessary indexes on the refund collections.
// The partial unique index enforces "at most one open request per booking"
// at the storage layer, under concurrent submissions included.
func (r *mongoRefundRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reqIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys: bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("unique_open_request").
				SetPartialFilterExpression(bson.M{"status": models.RefundStatusPending}),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("status_idx"),
		},
	}
	if _, err := r.reqColl.Indexes().CreateMany(ctx, reqIndexes); err != nil {
		return fmt.Errorf("failed to create refund request indexes: %w", err)
	}

	queueIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}},
			Options: options.Index().SetName("queued_idx"),
		},
	}
	if _, err := r.queueColl.Indexes().CreateMany(ctx, queueIndexes); err != nil {
		return fmt.Errorf("failed to create refund queue indexes: %w", err)
	}
	return nil
}
