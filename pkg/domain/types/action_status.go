package types

import "fmt"

// ActionStatus represents the lifecycle status of an action
type ActionStatus string

const (
	ActionStatusPending    ActionStatus = "pending"
	ActionStatusOpen       ActionStatus = "open"
	ActionStatusInProgress ActionStatus = "in-progress"
	ActionStatusResolved   ActionStatus = "resolved"
)

// AllActionStatuses returns all valid action statuses
func AllActionStatuses() []ActionStatus {
	return []ActionStatus{
		ActionStatusPending,
		ActionStatusOpen,
		ActionStatusInProgress,
		ActionStatusResolved,
	}
}

// IsValid checks if the action status is valid
func (s ActionStatus) IsValid() bool {
	switch s {
	case ActionStatusPending,
		ActionStatusOpen,
		ActionStatusInProgress,
		ActionStatusResolved:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status ends the notification and escalation lifecycle
func (s ActionStatus) IsTerminal() bool {
	return s == ActionStatusResolved
}

// String returns the string representation of the action status
func (s ActionStatus) String() string {
	return string(s)
}

// ParseActionStatus parses a string into an ActionStatus
func ParseActionStatus(s string) (ActionStatus, error) {
	status := ActionStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid action status: %s", s)
	}
	return status, nil
}
