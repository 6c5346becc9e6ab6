// File: database/repository/availability/indexes.go
package availabilityRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the necessary indexes on the availability collections.
func (r *mongoAvailabilityRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ruleIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "provider_id", Value: 1}, {Key: "day_of_week", Value: 1}, {Key: "is_recurring", Value: 1}},
			Options: options.Index().SetName("provider_weekday_idx"),
		},
		{
			Keys:    bson.D{{Key: "provider_id", Value: 1}, {Key: "start_date", Value: 1}, {Key: "end_date", Value: 1}},
			Options: options.Index().SetName("provider_span_idx"),
		},
	}
	if _, err := r.ruleColl.Indexes().CreateMany(ctx, ruleIndexes); err != nil {
		return fmt.Errorf("failed to create availability rule indexes: %w", err)
	}

	excIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "provider_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("provider_date_idx"),
		},
	}
	if _, err := r.excColl.Indexes().CreateMany(ctx, excIndexes); err != nil {
		return fmt.Errorf("failed to create availability exception indexes: %w", err)
	}
	return nil
}
