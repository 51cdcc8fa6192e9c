package types

import (
	"fmt"
	"time"
)

// Priority represents the urgency class of an action
type Priority string

const (
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
	PriorityLongTerm Priority = "long-term"
)

// AllPriorities returns all valid priorities, most urgent first
func AllPriorities() []Priority {
	return []Priority{
		PriorityHigh,
		PriorityMedium,
		PriorityLow,
		PriorityLongTerm,
	}
}

// IsValid checks if the priority is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow, PriorityLongTerm:
		return true
	default:
		return false
	}
}

// DueOffset returns the default time between creation and due date
func (p Priority) DueOffset() time.Duration {
	const day = 24 * time.Hour
	switch p {
	case PriorityHigh:
		return day
	case PriorityMedium:
		return 7 * day
	case PriorityLow:
		return 14 * day
	case PriorityLongTerm:
		return 30 * day
	default:
		return 7 * day
	}
}

// Rank orders priorities for sorting; lower is more urgent
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	case PriorityLongTerm:
		return 3
	default:
		return 4
	}
}

func (p Priority) String() string {
	return string(p)
}

// ParsePriority parses a string into a Priority
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid priority: %s", s)
	}
	return p, nil
}
