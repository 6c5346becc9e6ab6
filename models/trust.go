package models

import "time"

// Roles a trust profile applies to.
const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
)

// Trust levels. Higher means more booking friction; the gate never fully
// locks a user out.
const (
	TrustLevelNormal   = 0
	TrustLevelAdvisory = 1
	TrustLevelRisk     = 2
	TrustLevelHighRisk = 3
)

// TrustProfile reflects a user's recent reliability. The consecutive
// completed-job counter decays the level as a side effect of booking
// completion; the gate itself only reads the level.
type TrustProfile struct {
	UserID               string    `bson:"user_id" json:"user_id"`
	Role                 string    `bson:"role" json:"role"`
	Level                int       `bson:"level" json:"level"`
	ConsecutiveCompleted int       `bson:"consecutive_completed" json:"consecutive_completed"`
	UpdatedAt            time.Time `bson:"updated_at" json:"updated_at"`
}

// GateDecision is the outcome of a trust evaluation.
type GateDecision struct {
	Blocked              bool     `json:"blocked"`
	RequiredNoShowFee    bool     `json:"required_no_show_fee"`
	RequiredConsultation bool     `json:"required_consultation"`
	Warnings             []string `json:"warnings,omitempty"`
}
