package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type escalationRuleRepository struct {
	names *collections
}

func (r *escalationRuleRepository) Create(ctx context.Context, tenantID string, rule *model.EscalationRule) (*model.EscalationRule, error) {
	created := *rule
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

	if _, err := r.names.escalationRules(tenantID).Doc(string(created.ID)).Set(ctx, &created); err != nil {
		return nil, goerr.Wrap(err, "failed to create escalation rule", goerr.V("id", created.ID))
	}
	return &created, nil
}

func (r *escalationRuleRepository) Get(ctx context.Context, tenantID string, id model.EscalationRuleID) (*model.EscalationRule, error) {
	return getDoc[model.EscalationRule](ctx, r.names.escalationRules(tenantID).Doc(string(id)), "escalation rule")
}

func (r *escalationRuleRepository) List(ctx context.Context, tenantID string, activeOnly bool) ([]*model.EscalationRule, error) {
	q := r.names.escalationRules(tenantID).Query
	if activeOnly {
		q = q.Where("IsActive", "==", true)
	}

	rules, err := collect[model.EscalationRule](q.Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list escalation rules", goerr.V("tenant_id", tenantID))
	}
	model.SortRules(rules)
	return rules, nil
}

func (r *escalationRuleRepository) Update(ctx context.Context, tenantID string, rule *model.EscalationRule) (*model.EscalationRule, error) {
	updatedAt := rule.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	// Field paths leave LastRunAt and Stats to RecordRun
	updates := []firestore.Update{
		{Path: "Name", Value: rule.Name},
		{Path: "IsActive", Value: rule.IsActive},
		{Path: "Priority", Value: rule.Priority},
		{Path: "Trigger", Value: rule.Trigger},
		{Path: "Conditions", Value: rule.Conditions},
		{Path: "Action", Value: rule.Action},
		{Path: "UpdatedAt", Value: updatedAt},
	}

	if _, err := r.names.escalationRules(tenantID).Doc(string(rule.ID)).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "escalation rule not found", goerr.V("id", rule.ID))
		}
		return nil, goerr.Wrap(err, "failed to update escalation rule", goerr.V("id", rule.ID))
	}
	return r.Get(ctx, tenantID, rule.ID)
}

func (r *escalationRuleRepository) Delete(ctx context.Context, tenantID string, id model.EscalationRuleID) error {
	docRef := r.names.escalationRules(tenantID).Doc(string(id))
	if _, err := docRef.Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "escalation rule not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to delete escalation rule", goerr.V("id", id))
	}
	return nil
}

func (r *escalationRuleRepository) RecordRun(ctx context.Context, tenantID string, id model.EscalationRuleID, at time.Time, escalated int) error {
	updates := []firestore.Update{
		{Path: "LastRunAt", Value: at},
	}
	if escalated > 0 {
		updates = append(updates,
			firestore.Update{Path: "Stats.TotalEscalations", Value: firestore.Increment(escalated)},
			firestore.Update{Path: "Stats.LastEscalationAt", Value: at},
		)
	}

	if _, err := r.names.escalationRules(tenantID).Doc(string(id)).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "escalation rule not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to record rule run", goerr.V("id", id))
	}
	return nil
}
