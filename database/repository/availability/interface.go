// File: database/repository/availability/interface.go
package availabilityRepo

import (
	"context"
	"fmt"

	"servana/database"
	"servana/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// AvailabilityRepository stores provider-authored rules and exceptions.
type AvailabilityRepository interface {
	CreateRule(ctx context.Context, rule *models.AvailabilityRule) error
	DeleteRule(ctx context.Context, providerID, ruleID string) error
	GetRulesByProvider(ctx context.Context, providerID string) ([]models.AvailabilityRule, error)
	GetRecurringRules(ctx context.Context, providerID string, dayOfWeek int, listingID string) ([]models.AvailabilityRule, error)
	GetBlockingRulesForDate(ctx context.Context, providerID, date string) ([]models.AvailabilityRule, error)

	CreateException(ctx context.Context, exc *models.AvailabilityException) error
	DeleteException(ctx context.Context, providerID, excID string) error
	GetExceptionsForDate(ctx context.Context, providerID, date string) ([]models.AvailabilityException, error)
}

type mongoAvailabilityRepo struct {
	ruleColl *mongo.Collection
	excColl  *mongo.Collection
}

// NewMongoAvailabilityRepo constructs a new MongoDB AvailabilityRepository.
func NewMongoAvailabilityRepo() AvailabilityRepository {
	db := database.DB()
	repo := &mongoAvailabilityRepo{
		ruleColl: db.Collection("availability_rules"),
		excColl:  db.Collection("availability_exceptions"),
	}
	if err := repo.EnsureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}
