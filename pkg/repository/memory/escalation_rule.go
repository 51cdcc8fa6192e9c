package memory

import (
	"context"
	"sync"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type escalationRuleRepository struct {
	mu    sync.RWMutex
	rules map[string]map[model.EscalationRuleID]*model.EscalationRule
}

func newEscalationRuleRepository() *escalationRuleRepository {
	return &escalationRuleRepository{
		rules: make(map[string]map[model.EscalationRuleID]*model.EscalationRule),
	}
}

func copyRule(r *model.EscalationRule) *model.EscalationRule {
	c := *r
	c.Conditions = model.RuleConditions{
		Priorities: copySlice(r.Conditions.Priorities),
		Categories: copySlice(r.Conditions.Categories),
		SurveyIDs:  copySlice(r.Conditions.SurveyIDs),
	}
	c.Action.EscalateTo = copyPtr(r.Action.EscalateTo)
	c.Action.EscalateToRole = copyPtr(r.Action.EscalateToRole)
	c.Action.AssignToTeam = copyPtr(r.Action.AssignToTeam)
	c.Action.ChangePriorityTo = copyPtr(r.Action.ChangePriorityTo)
	c.LastRunAt = copyPtr(r.LastRunAt)
	c.Stats.LastEscalationAt = copyPtr(r.Stats.LastEscalationAt)
	return &c
}

func (r *escalationRuleRepository) Create(ctx context.Context, tenantID string, rule *model.EscalationRule) (*model.EscalationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[tenantID]; !ok {
		r.rules[tenantID] = make(map[model.EscalationRuleID]*model.EscalationRule)
	}

	created := copyRule(rule)
	if created.ID == "" {
		created.ID = model.NewEscalationRuleID()
	}
	created.TenantID = tenantID
	now := time.Now().UTC()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	if created.UpdatedAt.IsZero() {
		created.UpdatedAt = created.CreatedAt
	}

	r.rules[tenantID][created.ID] = created
	return copyRule(created), nil
}

func (r *escalationRuleRepository) Get(ctx context.Context, tenantID string, id model.EscalationRuleID) (*model.EscalationRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[tenantID][id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "escalation rule not found", goerr.V("id", id))
	}
	return copyRule(rule), nil
}

func (r *escalationRuleRepository) List(ctx context.Context, tenantID string, activeOnly bool) ([]*model.EscalationRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]*model.EscalationRule, 0, len(r.rules[tenantID]))
	for _, rule := range r.rules[tenantID] {
		if activeOnly && !rule.IsActive {
			continue
		}
		rules = append(rules, copyRule(rule))
	}
	model.SortRules(rules)
	return rules, nil
}

func (r *escalationRuleRepository) Update(ctx context.Context, tenantID string, rule *model.EscalationRule) (*model.EscalationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rules[tenantID][rule.ID]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "escalation rule not found", goerr.V("id", rule.ID))
	}

	incoming := copyRule(rule)
	updated := copyRule(existing)
	updated.Name = incoming.Name
	updated.IsActive = incoming.IsActive
	updated.Priority = incoming.Priority
	updated.Trigger = incoming.Trigger
	updated.Conditions = incoming.Conditions
	updated.Action = incoming.Action
	updated.UpdatedAt = incoming.UpdatedAt
	if updated.UpdatedAt.IsZero() {
		updated.UpdatedAt = time.Now().UTC()
	}

	r.rules[tenantID][rule.ID] = updated
	return copyRule(updated), nil
}

func (r *escalationRuleRepository) Delete(ctx context.Context, tenantID string, id model.EscalationRuleID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[tenantID][id]; !ok {
		return goerr.Wrap(ErrNotFound, "escalation rule not found", goerr.V("id", id))
	}
	delete(r.rules[tenantID], id)
	return nil
}

func (r *escalationRuleRepository) RecordRun(ctx context.Context, tenantID string, id model.EscalationRuleID, at time.Time, escalated int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.rules[tenantID][id]
	if !ok {
		return goerr.Wrap(ErrNotFound, "escalation rule not found", goerr.V("id", id))
	}

	rule.LastRunAt = &at
	if escalated > 0 {
		rule.Stats.TotalEscalations += escalated
		rule.Stats.LastEscalationAt = &at
	}
	return nil
}
