// File: database/repository/trust/interface.go
package trustRepo

import (
	"context"
	"fmt"

	"servana/database"
	"servana/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// TrustRepository stores per-user reliability profiles.
type TrustRepository interface {
	Get(ctx context.Context, userID, role string) (*models.TrustProfile, error)
	Upsert(ctx context.Context, profile *models.TrustProfile) error
	IncrementStreak(ctx context.Context, userID, role string) (*models.TrustProfile, error)
	ResetStreak(ctx context.Context, userID, role string) error
	DecayLevel(ctx context.Context, userID, role string) error
}

type mongoTrustRepo struct {
	coll *mongo.Collection
}

// NewMongoTrustRepo constructs a new MongoDB TrustRepository.
func NewMongoTrustRepo() TrustRepository {
	db := database.DB()
	repo := &mongoTrustRepo{coll: db.Collection("trust_profiles")}
	if err := repo.EnsureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}
