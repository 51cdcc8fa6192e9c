package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/model/auth"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// RuleInput is the editable part of an escalation rule
type RuleInput struct {
	Name       string               `json:"name"`
	IsActive   *bool                `json:"isActive"`
	Priority   int                  `json:"priority"`
	Trigger    model.RuleTrigger    `json:"trigger"`
	Conditions model.RuleConditions `json:"conditions"`
	Action     model.RuleAction     `json:"action"`
}

type EscalationRuleUseCase struct {
	repo interfaces.Repository
	now  func() time.Time
}

func NewEscalationRuleUseCase(repo interfaces.Repository, now func() time.Time) *EscalationRuleUseCase {
	return &EscalationRuleUseCase{repo: repo, now: now}
}

func requireCompanyAdmin(actor *auth.Actor) error {
	if err := Guard(actor); err != nil {
		return err
	}
	if !actor.IsCompanyAdmin() {
		return goerr.Wrap(ErrForbidden, "company admin role required", goerr.V(ActorKey, actor.UserID))
	}
	return nil
}

// List returns the tenant's rules in evaluation order
func (uc *EscalationRuleUseCase) List(ctx context.Context, actor *auth.Actor) ([]*model.EscalationRule, error) {
	if err := Guard(actor); err != nil {
		return nil, err
	}
	rules, err := uc.repo.EscalationRule().List(ctx, actor.TenantID, false)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list escalation rules", goerr.V(TenantIDKey, actor.TenantID))
	}
	return rules, nil
}

// Get returns one rule of the actor's tenant
func (uc *EscalationRuleUseCase) Get(ctx context.Context, actor *auth.Actor, id model.EscalationRuleID) (*model.EscalationRule, error) {
	if err := Guard(actor); err != nil {
		return nil, err
	}
	rule, err := uc.repo.EscalationRule().Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, mapRepoErr(err, "escalation rule not found", goerr.V(RuleIDKey, id))
	}
	return rule, nil
}

// Create adds a rule. Company admins only.
func (uc *EscalationRuleUseCase) Create(ctx context.Context, actor *auth.Actor, input *RuleInput) (*model.EscalationRule, error) {
	if err := requireCompanyAdmin(actor); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, goerr.Wrap(ErrValidation, "input is required")
	}

	now := uc.now()
	rule := &model.EscalationRule{
		TenantID:  actor.TenantID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyRuleInput(rule, input)

	if err := uc.validate(ctx, rule); err != nil {
		return nil, err
	}

	created, err := uc.repo.EscalationRule().Create(ctx, actor.TenantID, rule)
	if err != nil {
		return nil, mapRepoErr(err, "failed to create escalation rule", goerr.V(TenantIDKey, actor.TenantID))
	}

	logging.From(ctx).Info("escalation rule created", "rule_id", created.ID, "tenant_id", actor.TenantID, "by", actor.UserID)
	return created, nil
}

// Update replaces the editable part of a rule. Company admins only.
func (uc *EscalationRuleUseCase) Update(ctx context.Context, actor *auth.Actor, id model.EscalationRuleID, input *RuleInput) (*model.EscalationRule, error) {
	if err := requireCompanyAdmin(actor); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, goerr.Wrap(ErrValidation, "input is required")
	}

	rule, err := uc.repo.EscalationRule().Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, mapRepoErr(err, "escalation rule not found", goerr.V(RuleIDKey, id))
	}

	applyRuleInput(rule, input)
	rule.UpdatedAt = uc.now()

	if err := uc.validate(ctx, rule); err != nil {
		return nil, err
	}

	updated, err := uc.repo.EscalationRule().Update(ctx, actor.TenantID, rule)
	if err != nil {
		return nil, mapRepoErr(err, "failed to update escalation rule", goerr.V(RuleIDKey, id))
	}
	return updated, nil
}

// Delete removes a rule. Company admins only.
func (uc *EscalationRuleUseCase) Delete(ctx context.Context, actor *auth.Actor, id model.EscalationRuleID) error {
	if err := requireCompanyAdmin(actor); err != nil {
		return err
	}
	if err := uc.repo.EscalationRule().Delete(ctx, actor.TenantID, id); err != nil {
		return mapRepoErr(err, "failed to delete escalation rule", goerr.V(RuleIDKey, id))
	}
	logging.From(ctx).Info("escalation rule deleted", "rule_id", id, "tenant_id", actor.TenantID, "by", actor.UserID)
	return nil
}

func applyRuleInput(rule *model.EscalationRule, input *RuleInput) {
	rule.Name = strings.TrimSpace(input.Name)
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	rule.Priority = input.Priority
	rule.Trigger = input.Trigger
	rule.Conditions = input.Conditions
	rule.Action = input.Action
}

// validate checks rule consistency and that an explicit target belongs to the tenant
func (uc *EscalationRuleUseCase) validate(ctx context.Context, rule *model.EscalationRule) error {
	if err := rule.Validate(); err != nil {
		return invalidField(err, "rule")
	}

	if rule.Action.EscalateTo != nil {
		user, err := uc.repo.User().Get(ctx, rule.TenantID, *rule.Action.EscalateTo)
		if errors.Is(err, interfaces.ErrNotFound) || (err == nil && !user.IsActive) {
			ve := &ValidationError{}
			ve.Add("action.escalateTo", "escalation target must be an active user of the tenant")
			return ve
		}
		if err != nil {
			return goerr.Wrap(err, "failed to load escalation target", goerr.V(UserIDKey, *rule.Action.EscalateTo))
		}
	}
	return nil
}

// RuleIssue is a stored rule that no longer passes validation
type RuleIssue struct {
	TenantID string
	RuleID   model.EscalationRuleID
	Name     string
	Fields   []FieldError
}

// Audit revalidates every stored rule of the active tenants. Rules whose explicit
// target left the tenant or was deactivated show up here.
func (uc *EscalationRuleUseCase) Audit(ctx context.Context) ([]RuleIssue, error) {
	tenants, err := uc.repo.Tenant().ListActive(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tenants")
	}

	var issues []RuleIssue
	for _, tenant := range tenants {
		rules, err := uc.repo.EscalationRule().List(ctx, tenant.ID, false)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list escalation rules", goerr.V(TenantIDKey, tenant.ID))
		}

		for _, rule := range rules {
			err := uc.validate(ctx, rule)
			if err == nil {
				continue
			}

			var ve *ValidationError
			if !errors.As(err, &ve) {
				return nil, err
			}
			issues = append(issues, RuleIssue{
				TenantID: tenant.ID,
				RuleID:   rule.ID,
				Name:     rule.Name,
				Fields:   ve.Fields,
			})
		}
	}
	return issues, nil
}
