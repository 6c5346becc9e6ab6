package booking

import "fmt"

// PolicyError is an expected rejection (slot unavailable, gate unmet),
// returned as a value with a human-readable reason, never a panic.
type PolicyError struct {
	Code    string
	Message string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewSlotUnavailableError(msg string) error {
	return &PolicyError{
		Code:    "slotUnavailable",
		Message: msg,
	}
}

func NewGateError(msg string) error {
	return &PolicyError{
		Code:    "trustGate",
		Message: msg,
	}
}
