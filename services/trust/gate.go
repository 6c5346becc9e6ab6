// File: services/trust/gate.go
package trust

import (
	"servana/models"
)

// Evaluation context: what the user is about to do.
type ActionContext struct {
	PostingJob      bool
	AcceptingWork   bool
	NoShowFeeSet    bool
	HasAcknowledged bool
}

// Warning copy per level. Level 3 carries the strongest wording; the gate
// adds friction but never locks a user out.
const (
	warnAdvisory = "Recent activity on your account suggests occasional reliability issues. Please honor your commitments."
	warnRisk     = "Your account has a reliability flag. Extra requirements apply to your bookings until your record recovers."
	warnHighRisk = "Your account is marked high risk after repeated reliability problems. All bookings require the strictest conditions, and further issues may affect your standing."
)

// Evaluate applies the trust policy table for the given level and role.
// The gate only reads the level; decay is a side effect of completion
// handled elsewhere.
func Evaluate(level int, role string, actx ActionContext) models.GateDecision {
	var decision models.GateDecision

	switch {
	case level <= models.TrustLevelNormal:
		return decision

	case level == models.TrustLevelAdvisory:
		decision.Warnings = append(decision.Warnings, warnAdvisory)
		return decision

	default: // levels 2 and 3
		if role == models.RoleCustomer && actx.PostingJob {
			decision.RequiredNoShowFee = true
		}
		if role == models.RoleProvider && actx.AcceptingWork {
			decision.RequiredConsultation = true
		}
		if level >= models.TrustLevelHighRisk {
			decision.Warnings = append(decision.Warnings, warnHighRisk)
		} else {
			decision.Warnings = append(decision.Warnings, warnRisk)
		}
		return decision
	}
}

// Satisfied reports whether the action context meets every requirement the
// decision imposes. Callers must reject the operation until it does.
func Satisfied(decision models.GateDecision, actx ActionContext) bool {
	if decision.Blocked {
		return false
	}
	if decision.RequiredNoShowFee && !actx.NoShowFeeSet {
		return false
	}
	if decision.RequiredConsultation && !actx.HasAcknowledged {
		return false
	}
	return true
}
