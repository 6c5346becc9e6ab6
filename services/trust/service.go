// File: services/trust/service.go
package trust

import (
	"context"

	trustRepo "servana/database/repository/trust"
	"servana/models"
	"servana/utils"

	"go.uber.org/zap"
)

// Consecutive completed (non-cancelled, non-no-show) jobs needed to drop
// one trust level.
const (
	CustomerDecayStreak = 5
	ProviderDecayStreak = 10
)

// TrustService reads trust levels for gating and maintains the decay
// counters as a side effect of booking outcomes.
type TrustService interface {
	EvaluateFor(ctx context.Context, userID, role string, actx ActionContext) (models.GateDecision, error)
	RecordCompletion(ctx context.Context, userID, role string) error
	RecordFailure(ctx context.Context, userID, role string) error
}

// DefaultTrustService is the production implementation.
type DefaultTrustService struct {
	Repo trustRepo.TrustRepository
}

func (s *DefaultTrustService) EvaluateFor(ctx context.Context, userID, role string, actx ActionContext) (models.GateDecision, error) {
	profile, err := s.Repo.Get(ctx, userID, role)
	if err != nil {
		return models.GateDecision{}, err
	}
	return Evaluate(profile.Level, role, actx), nil
}

// RecordCompletion bumps the consecutive-completed counter and decays the
// level once the role's streak threshold is reached.
func (s *DefaultTrustService) RecordCompletion(ctx context.Context, userID, role string) error {
	profile, err := s.Repo.IncrementStreak(ctx, userID, role)
	if err != nil {
		return err
	}

	threshold := CustomerDecayStreak
	if role == models.RoleProvider {
		threshold = ProviderDecayStreak
	}
	if profile.Level > models.TrustLevelNormal && profile.ConsecutiveCompleted >= threshold {
		utils.GetLogger().Info("trust: decaying level after completed streak",
			zap.String("userID", userID), zap.String("role", role),
			zap.Int("level", profile.Level), zap.Int("streak", profile.ConsecutiveCompleted))
		return s.Repo.DecayLevel(ctx, userID, role)
	}
	return nil
}

// RecordFailure resets the streak after a cancellation or no-show.
func (s *DefaultTrustService) RecordFailure(ctx context.Context, userID, role string) error {
	return s.Repo.ResetStreak(ctx, userID, role)
}
