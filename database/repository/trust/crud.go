// File: database/repository/trust/crud.go
package trustRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"servana/models"
)

// Get returns the trust profile, defaulting to level 0 when none exists.
func (r *mongoTrustRepo) Get(ctx context.Context, userID, role string) (*models.TrustProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var profile models.TrustProfile
	err := r.coll.FindOne(ctx, bson.M{"user_id": userID, "role": role}).Decode(&profile)
	if err == mongo.ErrNoDocuments {
		return &models.TrustProfile{UserID: userID, Role: role, Level: models.TrustLevelNormal}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching trust profile: %w", err)
	}
	return &profile, nil
}

func (r *mongoTrustRepo) Upsert(ctx context.Context, profile *models.TrustProfile) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	profile.UpdatedAt = time.Now()
	filter := bson.M{"user_id": profile.UserID, "role": profile.Role}
	update := bson.M{"$set": profile}
	opts := options.Update().SetUpsert(true)
	if _, err := r.coll.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("error upserting trust profile: %w", err)
	}
	return nil
}

// IncrementStreak bumps the consecutive-completed counter and returns the
// updated profile.
func (r *mongoTrustRepo) IncrementStreak(ctx context.Context, userID, role string) (*models.TrustProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"user_id": userID, "role": role}
	update := bson.M{
		"$inc":         bson.M{"consecutive_completed": 1},
		"$set":         bson.M{"updated_at": time.Now()},
		"$setOnInsert": bson.M{"level": models.TrustLevelNormal},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var profile models.TrustProfile
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&profile); err != nil {
		return nil, fmt.Errorf("error incrementing trust streak: %w", err)
	}
	return &profile, nil
}

func (r *mongoTrustRepo) ResetStreak(ctx context.Context, userID, role string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"user_id": userID, "role": role}
	update := bson.M{"$set": bson.M{"consecutive_completed": 0, "updated_at": time.Now()}}
	if _, err := r.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("error resetting trust streak: %w", err)
	}
	return nil
}

// DecayLevel drops the level by one (never below normal) and resets the
// streak, guarded so a level-0 profile is left untouched.
func (r *mongoTrustRepo) DecayLevel(ctx context.Context, userID, role string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"user_id": userID, "role": role, "level": bson.M{"$gt": models.TrustLevelNormal}}
	update := bson.M{
		"$inc": bson.M{"level": -1},
		"$set": bson.M{"consecutive_completed": 0, "updated_at": time.Now()},
	}
	if _, err := r.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("error decaying trust level: %w", err)
	}
	return nil
}
