package types

import "strings"

// RootCauseCategory classifies the underlying cause of an action
type RootCauseCategory string

const (
	RootCauseCompensation  RootCauseCategory = "compensation"
	RootCauseProcess       RootCauseCategory = "process"
	RootCauseCommunication RootCauseCategory = "communication"
	RootCauseManagement    RootCauseCategory = "management"
	RootCauseWorkload      RootCauseCategory = "workload"
	RootCauseCulture       RootCauseCategory = "culture"
	RootCauseResources     RootCauseCategory = "resources"
	RootCauseUnknown       RootCauseCategory = "unknown"
)

// IsValid checks if the root cause category is valid
func (c RootCauseCategory) IsValid() bool {
	switch c {
	case RootCauseCompensation,
		RootCauseProcess,
		RootCauseCommunication,
		RootCauseManagement,
		RootCauseWorkload,
		RootCauseCulture,
		RootCauseResources,
		RootCauseUnknown:
		return true
	default:
		return false
	}
}

func (c RootCauseCategory) String() string {
	return string(c)
}

// rootCauseKeywords maps substrings found in feedback categories to a root cause.
// Order matters: the first matching entry wins.
var rootCauseKeywords = []struct {
	keywords []string
	category RootCauseCategory
}{
	{[]string{"salary", "pay", "compensation", "benefit", "bonus", "wage", "price", "pricing", "cost", "billing"}, RootCauseCompensation},
	{[]string{"process", "workflow", "procedure", "checkout", "delivery", "shipping", "onboarding", "policy"}, RootCauseProcess},
	{[]string{"communication", "information", "transparency", "feedback", "support", "response", "contact"}, RootCauseCommunication},
	{[]string{"management", "manager", "leadership", "supervisor", "recognition"}, RootCauseManagement},
	{[]string{"workload", "overtime", "stress", "burnout", "hours", "wait", "staffing"}, RootCauseWorkload},
	{[]string{"culture", "team", "environment", "respect", "inclusion", "morale"}, RootCauseCulture},
	{[]string{"resource", "tool", "equipment", "training", "software", "facility", "product", "quality"}, RootCauseResources},
}

// RootCauseFromCategories derives a root cause from free-text feedback categories.
// Returns RootCauseUnknown when no keyword matches.
func RootCauseFromCategories(categories []string) RootCauseCategory {
	for _, cat := range categories {
		lower := strings.ToLower(strings.TrimSpace(cat))
		if lower == "" {
			continue
		}
		for _, entry := range rootCauseKeywords {
			for _, kw := range entry.keywords {
				if strings.Contains(lower, kw) {
					return entry.category
				}
			}
		}
	}
	return RootCauseUnknown
}
