// File: database/repository/booking/indexes.go
package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the necessary indexes on the booking collections.
func (r *mongoBookingRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bookingIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("user_date_idx"),
		},
		{
			Keys:    bson.D{{Key: "provider_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("provider_date_idx"),
		},
		{
			Keys:    bson.D{{Key: "recurring_booking_id", Value: 1}},
			Options: options.Index().SetName("series_idx"),
		},
	}
	if _, err := r.bookingColl.Indexes().CreateMany(ctx, bookingIndexes); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}

	timelineIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("booking_time_idx"),
		},
	}
	if _, err := r.timelineColl.Indexes().CreateMany(ctx, timelineIndexes); err != nil {
		return fmt.Errorf("failed to create timeline indexes: %w", err)
	}

	seriesIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "is_active", Value: 1}, {Key: "next_occurrence_date", Value: 1}},
			Options: options.Index().SetName("due_series_idx"),
		},
	}
	if _, err := r.seriesColl.Indexes().CreateMany(ctx, seriesIndexes); err != nil {
		return fmt.Errorf("failed to create series indexes: %w", err)
	}
	return nil
}
