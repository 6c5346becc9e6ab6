// File: services/availability/resolver.go
package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	availabilityRepo "servana/database/repository/availability"
	slotRepo "servana/database/repository/slot"
	"servana/models"
	"servana/utils"

	"go.uber.org/zap"
)

// Resolver computes the bookable slots for a provider on a calendar date.
type Resolver interface {
	ResolveSlots(ctx context.Context, providerID, date, listingID string) ([]models.SlotCandidate, error)
}

// DefaultResolver applies a strict precedence pipeline over the three data
// sources: absolute overrides, then recurring rules, then the reservation
// overlay. The read is advisory only; the reservation insert at commit time
// is what closes the race.
type DefaultResolver struct {
	Rules availabilityRepo.AvailabilityRepository
	Slots slotRepo.SlotRepository
}

func (r *DefaultResolver) ResolveSlots(ctx context.Context, providerID, date, listingID string) ([]models.SlotCandidate, error) {
	logger := utils.GetLogger()

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	// Stage 1: absolute overrides. A blocked span or an unavailable
	// exception empties the whole day regardless of recurring rules.
	blocking, err := r.Rules.GetBlockingRulesForDate(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blocking rules: %w", err)
	}
	exceptions, err := r.Rules.GetExceptionsForDate(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exceptions: %w", err)
	}
	if DayOverridden(blocking, exceptions) {
		logger.Debug("availability: date overridden",
			zap.String("providerID", providerID), zap.String("date", date))
		return []models.SlotCandidate{}, nil
	}

	// Stage 2: expand recurring rules for the weekday into candidates.
	rules, err := r.Rules.GetRecurringRules(ctx, providerID, int(day.Weekday()), listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recurring rules: %w", err)
	}
	candidates := ExpandRules(rules)
	if len(candidates) == 0 {
		// No rules for this weekday; nothing bookable, distinct from blocked
		// but externally identical.
		return []models.SlotCandidate{}, nil
	}

	// Stage 3: reservation overlay.
	reserved, err := r.Slots.GetActiveByProviderAndDate(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reserved slots: %w", err)
	}
	return ApplyReservations(candidates, reserved), nil
}

// DayOverridden reports whether the date is absolutely unavailable: any
// non-recurring Blocked rule covering it or any Unavailable exception.
func DayOverridden(blocking []models.AvailabilityRule, exceptions []models.AvailabilityException) bool {
	if len(blocking) > 0 {
		return true
	}
	for _, exc := range exceptions {
		if exc.Type == models.ExceptionTypeUnavailable {
			return true
		}
	}
	return false
}

// ExpandRules walks each rule's [start, end) range in 30-minute steps and
// emits one candidate per step, sorted chronologically and deduplicated on
// start time. No slot is synthesized outside a rule's range.
func ExpandRules(rules []models.AvailabilityRule) []models.SlotCandidate {
	seen := make(map[int]bool)
	var candidates []models.SlotCandidate
	for _, rule := range rules {
		for s := rule.Start; s+models.SlotGranularity <= rule.End; s += models.SlotGranularity {
			if seen[s] {
				continue
			}
			seen[s] = true
			candidates = append(candidates, models.SlotCandidate{
				Start:     s,
				End:       s + models.SlotGranularity,
				Available: true,
			})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Start < candidates[j].Start
	})
	return candidates
}

// ApplyReservations marks a candidate unavailable iff it overlaps a
// committed reservation by half-open interval intersection. Touching
// boundaries (end == start) never conflict.
func ApplyReservations(candidates []models.SlotCandidate, reserved []models.ReservedSlot) []models.SlotCandidate {
	out := make([]models.SlotCandidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		for _, res := range reserved {
			if overlaps(out[i].Start, out[i].End, res.Start, res.End) {
				out[i].Available = false
				break
			}
		}
	}
	return out
}

func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}
