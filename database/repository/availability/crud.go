// File: database/repository/availability/crud.go
package availabilityRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"servana/models"
)

func (r *mongoAvailabilityRepo) CreateRule(ctx context.Context, rule *models.AvailabilityRule) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.Start >= rule.End {
		return fmt.Errorf("invalid rule time range [%d, %d)", rule.Start, rule.End)
	}
	rule.CreatedAt = time.Now()

	if _, err := r.ruleColl.InsertOne(ctx, rule); err != nil {
		return fmt.Errorf("error creating availability rule: %w", err)
	}
	return nil
}

func (r *mongoAvailabilityRepo) DeleteRule(ctx context.Context, providerID, ruleID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.ruleColl.DeleteOne(ctx, bson.M{"id": ruleID, "provider_id": providerID})
	if err != nil {
		return fmt.Errorf("error deleting availability rule %s: %w", ruleID, err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoAvailabilityRepo) GetRulesByProvider(ctx context.Context, providerID string) ([]models.AvailabilityRule, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.ruleColl.Find(ctx, bson.M{"provider_id": providerID})
	if err != nil {
		return nil, fmt.Errorf("error fetching rules for provider %s: %w", providerID, err)
	}
	defer cursor.Close(ctx)

	var rules []models.AvailabilityRule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// GetRecurringRules returns recurring Available rules for the weekday,
// scoped to the listing when listingID is set (listing-less rules always apply).
func (r *mongoAvailabilityRepo) GetRecurringRules(ctx context.Context, providerID string, dayOfWeek int, listingID string) ([]models.AvailabilityRule, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"provider_id":  providerID,
		"day_of_week":  dayOfWeek,
		"is_recurring": true,
		"type":         models.RuleTypeAvailable,
	}
	if listingID != "" {
		filter["$or"] = bson.A{
			bson.M{"listing_id": listingID},
			bson.M{"listing_id": bson.M{"$exists": false}},
			bson.M{"listing_id": ""},
		}
	}

	cursor, err := r.ruleColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error fetching recurring rules: %w", err)
	}
	defer cursor.Close(ctx)

	var rules []models.AvailabilityRule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// GetBlockingRulesForDate returns non-recurring Blocked rules whose date span
// covers the given date (inclusive on both ends).
func (r *mongoAvailabilityRepo) GetBlockingRulesForDate(ctx context.Context, providerID, date string) ([]models.AvailabilityRule, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"provider_id":  providerID,
		"is_recurring": false,
		"type":         models.RuleTypeBlocked,
		"start_date":   bson.M{"$lte": date},
		"end_date":     bson.M{"$gte": date},
	}
	cursor, err := r.ruleColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error fetching blocking rules: %w", err)
	}
	defer cursor.Close(ctx)

	var rules []models.AvailabilityRule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *mongoAvailabilityRepo) CreateException(ctx context.Context, exc *models.AvailabilityException) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if exc.ID == "" {
		exc.ID = uuid.New().String()
	}
	exc.CreatedAt = time.Now()

	if _, err := r.excColl.InsertOne(ctx, exc); err != nil {
		return fmt.Errorf("error creating availability exception: %w", err)
	}
	return nil
}

func (r *mongoAvailabilityRepo) DeleteException(ctx context.Context, providerID, excID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.excColl.DeleteOne(ctx, bson.M{"id": excID, "provider_id": providerID})
	if err != nil {
		return fmt.Errorf("error deleting availability exception %s: %w", excID, err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoAvailabilityRepo) GetExceptionsForDate(ctx context.Context, providerID, date string) ([]models.AvailabilityException, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.excColl.Find(ctx, bson.M{"provider_id": providerID, "date": date})
	if err != nil {
		return nil, fmt.Errorf("error fetching exceptions: %w", err)
	}
	defer cursor.Close(ctx)

	var excs []models.AvailabilityException
	if err := cursor.All(ctx, &excs); err != nil {
		return nil, err
	}
	return excs, nil
}
