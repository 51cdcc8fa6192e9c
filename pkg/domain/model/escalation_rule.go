package model

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// EscalationRuleID is the unique identifier of an escalation rule
type EscalationRuleID string

// NewEscalationRuleID generates a new unique rule ID
func NewEscalationRuleID() EscalationRuleID {
	return EscalationRuleID(uuid.New().String())
}

func (id EscalationRuleID) String() string {
	return string(id)
}

// EscalationRule drives both create-time auto assignment and periodic escalation
type EscalationRule struct {
	ID         EscalationRuleID `json:"id"`
	TenantID   string           `json:"tenantId"`
	Name       string           `json:"name"`
	IsActive   bool             `json:"isActive"`
	Priority   int              `json:"priority"`
	Trigger    RuleTrigger      `json:"trigger"`
	Conditions RuleConditions   `json:"conditions"`
	Action     RuleAction       `json:"action"`
	LastRunAt  *time.Time       `json:"lastRunAt"`
	Stats      RuleStats        `json:"stats"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// RuleTrigger selects escalation candidates by elapsed time
type RuleTrigger struct {
	Type           types.TriggerType `json:"type"`
	ThresholdHours int               `json:"thresholdHours"`
}

// Threshold returns the trigger threshold as a duration
func (t RuleTrigger) Threshold() time.Duration {
	return time.Duration(t.ThresholdHours) * time.Hour
}

// RuleConditions narrows the actions a rule applies to. Empty lists match everything.
type RuleConditions struct {
	Priorities []types.Priority `json:"priorities"`
	Categories []string         `json:"categories"`
	SurveyIDs  []string         `json:"surveyIds"`
}

// RuleAction is what a rule does once it fires
type RuleAction struct {
	EscalateTo             *string         `json:"escalateTo"`
	EscalateToRole         *types.Role     `json:"escalateToRole"`
	AssignToTeam           *string         `json:"assignToTeam"`
	ChangePriorityTo       *types.Priority `json:"changePriorityTo"`
	NotifyOriginalAssignee bool            `json:"notifyOriginalAssignee"`
	AddNote                string          `json:"addNote,omitempty"`
}

// RuleStats counts escalations performed by a rule
type RuleStats struct {
	TotalEscalations int        `json:"totalEscalations"`
	LastEscalationAt *time.Time `json:"lastEscalationAt"`
}

// RuleSubject is the part of an action that rule conditions look at
type RuleSubject struct {
	Priority types.Priority
	Category string
	SurveyID string
}

// SubjectOf extracts the rule subject of an action
func SubjectOf(a *Action) RuleSubject {
	return RuleSubject{
		Priority: a.Priority,
		Category: a.Category,
		SurveyID: a.Metadata.SurveyID,
	}
}

// Match reports whether the subject satisfies every non-empty condition list
func (c RuleConditions) Match(s RuleSubject) bool {
	if len(c.Priorities) > 0 && !slices.Contains(c.Priorities, s.Priority) {
		return false
	}
	if len(c.Categories) > 0 {
		found := false
		for _, cat := range c.Categories {
			if strings.EqualFold(strings.TrimSpace(cat), strings.TrimSpace(s.Category)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(c.SurveyIDs) > 0 && !slices.Contains(c.SurveyIDs, s.SurveyID) {
		return false
	}
	return true
}

var ErrInvalidRule = goerr.New("invalid escalation rule")

// Validate checks rule consistency
func (r *EscalationRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return goerr.Wrap(ErrInvalidRule, "name is required", goerr.V("field", "name"))
	}
	if !r.Trigger.Type.IsValid() {
		return goerr.Wrap(ErrInvalidRule, "invalid trigger type",
			goerr.V("field", "trigger.type"), goerr.V("value", r.Trigger.Type))
	}
	if r.Trigger.ThresholdHours < 0 {
		return goerr.Wrap(ErrInvalidRule, "threshold must not be negative",
			goerr.V("field", "trigger.thresholdHours"), goerr.V("value", r.Trigger.ThresholdHours))
	}
	if r.Action.EscalateTo == nil && r.Action.EscalateToRole == nil && r.Action.AssignToTeam == nil {
		return goerr.Wrap(ErrInvalidRule, "rule action needs a target user, role or team",
			goerr.V("field", "action"))
	}
	if r.Action.EscalateToRole != nil && !r.Action.EscalateToRole.IsTenantRole() {
		return goerr.Wrap(ErrInvalidRule, "escalation role must be a tenant role",
			goerr.V("field", "action.escalateToRole"), goerr.V("value", *r.Action.EscalateToRole))
	}
	if r.Action.ChangePriorityTo != nil && !r.Action.ChangePriorityTo.IsValid() {
		return goerr.Wrap(ErrInvalidRule, "invalid priority",
			goerr.V("field", "action.changePriorityTo"), goerr.V("value", *r.Action.ChangePriorityTo))
	}
	for _, p := range r.Conditions.Priorities {
		if !p.IsValid() {
			return goerr.Wrap(ErrInvalidRule, "invalid condition priority",
				goerr.V("field", "conditions.priorities"), goerr.V("value", p))
		}
	}
	return nil
}

// SortRules orders rules by descending priority. Ties go to the older rule, then the lower ID.
func SortRules(rules []*EscalationRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
