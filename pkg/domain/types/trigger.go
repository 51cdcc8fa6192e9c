package types

import "fmt"

// TriggerType selects the candidate query an escalation rule runs
type TriggerType string

const (
	TriggerSLABreach         TriggerType = "sla_breach"
	TriggerNoProgress        TriggerType = "no_progress"
	TriggerHighPriorityStale TriggerType = "high_priority_stale"
	TriggerNoAssignment      TriggerType = "no_assignment"
)

// AllTriggerTypes returns all valid trigger types
func AllTriggerTypes() []TriggerType {
	return []TriggerType{
		TriggerSLABreach,
		TriggerNoProgress,
		TriggerHighPriorityStale,
		TriggerNoAssignment,
	}
}

// IsValid checks if the trigger type is valid
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerSLABreach, TriggerNoProgress, TriggerHighPriorityStale, TriggerNoAssignment:
		return true
	default:
		return false
	}
}

func (t TriggerType) String() string {
	return string(t)
}

// ParseTriggerType parses a string into a TriggerType
func ParseTriggerType(s string) (TriggerType, error) {
	t := TriggerType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid trigger type: %s", s)
	}
	return t, nil
}
