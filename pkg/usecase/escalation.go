package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/feedbackloop/actionflow/pkg/utils/errutil"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// MatchRule returns the first active rule, in descending priority, whose
// conditions match the subject. Nil when nothing matches.
func MatchRule(rules []*model.EscalationRule, subject model.RuleSubject) *model.EscalationRule {
	sorted := make([]*model.EscalationRule, 0, len(rules))
	for _, r := range rules {
		if r != nil && r.IsActive {
			sorted = append(sorted, r)
		}
	}
	model.SortRules(sorted)

	for _, r := range sorted {
		if r.Conditions.Match(subject) {
			return r
		}
	}
	return nil
}

// resolveTarget picks the user a rule hands actions to: the explicit user when active
// in the tenant, else the earliest created active user holding the rule's role.
// Returns nil when no one qualifies.
func resolveTarget(ctx context.Context, repo interfaces.Repository, tenantID string, action model.RuleAction) (*model.User, error) {
	if action.EscalateTo != nil {
		user, err := repo.User().Get(ctx, tenantID, *action.EscalateTo)
		switch {
		case err == nil && user.IsActive && user.TenantID == tenantID:
			return user, nil
		case err != nil && !errors.Is(err, interfaces.ErrNotFound):
			return nil, goerr.Wrap(err, "failed to load escalation target", goerr.V(UserIDKey, *action.EscalateTo))
		}
	}

	if action.EscalateToRole != nil {
		role := *action.EscalateToRole
		users, err := repo.User().List(ctx, tenantID, model.UserFilter{Role: &role, ActiveOnly: true})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list escalation role users", goerr.V("role", role))
		}
		if len(users) > 0 {
			return users[0], nil
		}
	}

	return nil, nil
}

// EscalationConfig bounds the work of one escalation tick
type EscalationConfig struct {
	TickInterval     time.Duration
	BatchSizePerRule int
	BatchTimeout     time.Duration
}

// DefaultEscalationConfig returns the default escalation settings
func DefaultEscalationConfig() EscalationConfig {
	return EscalationConfig{
		TickInterval:     15 * time.Minute,
		BatchSizePerRule: 50,
		BatchTimeout:     60 * time.Second,
	}
}

// TickReport summarises one escalation tick
type TickReport struct {
	StartedAt  time.Time `json:"startedAt"`
	Tenants    int       `json:"tenants"`
	Rules      int       `json:"rules"`
	Candidates int       `json:"candidates"`
	Escalated  int       `json:"escalated"`
	Skipped    int       `json:"skipped"`
	Errors     int       `json:"errors"`
}

type EscalationUseCase struct {
	repo          interfaces.Repository
	notifications *NotificationUseCase
	config        EscalationConfig
	now           func() time.Time
}

func NewEscalationUseCase(repo interfaces.Repository, notifications *NotificationUseCase, cfg EscalationConfig, now func() time.Time) *EscalationUseCase {
	defaults := DefaultEscalationConfig()
	if cfg.BatchSizePerRule <= 0 {
		cfg.BatchSizePerRule = defaults.BatchSizePerRule
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaults.BatchTimeout
	}
	return &EscalationUseCase{
		repo:          repo,
		notifications: notifications,
		config:        cfg,
		now:           now,
	}
}

// RunTick evaluates every active rule of every active tenant once. Per-action and
// per-rule failures are counted and logged; only failing to list tenants aborts the tick.
func (uc *EscalationUseCase) RunTick(ctx context.Context) (*TickReport, error) {
	now := uc.now()
	report := &TickReport{StartedAt: now}

	tenants, err := uc.repo.Tenant().ListActive(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list active tenants")
	}

	for _, tenant := range tenants {
		if ctx.Err() != nil {
			return report, goerr.Wrap(ctx.Err(), "escalation tick cancelled")
		}
		report.Tenants++
		uc.runTenant(ctx, tenant.ID, now, report)
	}

	logging.From(ctx).Info("escalation tick finished",
		"tenants", report.Tenants,
		"rules", report.Rules,
		"candidates", report.Candidates,
		"escalated", report.Escalated,
		"skipped", report.Skipped,
		"errors", report.Errors,
	)
	return report, nil
}

func (uc *EscalationUseCase) runTenant(ctx context.Context, tenantID string, now time.Time, report *TickReport) {
	ctx = logging.With(ctx, logging.From(ctx).With("tenant_id", tenantID))

	rules, err := uc.repo.EscalationRule().List(ctx, tenantID, true)
	if err != nil {
		report.Errors++
		errutil.Handle(ctx, goerr.Wrap(err, "failed to list escalation rules", goerr.V(TenantIDKey, tenantID)), "escalation tenant failed")
		return
	}

	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		report.Rules++
		uc.runRule(ctx, tenantID, rule, now, report)
	}
}

func (uc *EscalationUseCase) runRule(ctx context.Context, tenantID string, rule *model.EscalationRule, now time.Time, report *TickReport) {
	logger := logging.From(ctx).With("rule_id", rule.ID, "rule_name", rule.Name)
	escalated := 0

	defer func() {
		if err := uc.repo.EscalationRule().RecordRun(ctx, tenantID, rule.ID, now, escalated); err != nil {
			report.Errors++
			errutil.Handle(ctx, goerr.Wrap(err, "failed to record rule run", goerr.V(RuleIDKey, rule.ID)), "escalation rule bookkeeping failed")
		}
	}()

	if !rule.Trigger.Type.IsValid() {
		logger.Warn("skipping rule with unknown trigger", "trigger", rule.Trigger.Type)
		return
	}

	batchCtx, cancel := context.WithTimeout(ctx, uc.config.BatchTimeout)
	defer cancel()

	query := &model.EscalationQuery{
		Trigger:    rule.Trigger.Type,
		Cutoff:     now.Add(-rule.Trigger.Threshold()),
		Priorities: rule.Conditions.Priorities,
		Categories: rule.Conditions.Categories,
		SurveyIDs:  rule.Conditions.SurveyIDs,
	}
	candidates, err := uc.repo.Action().FindEscalationCandidates(batchCtx, tenantID, query, uc.config.BatchSizePerRule)
	if err != nil {
		report.Errors++
		errutil.Handle(ctx, goerr.Wrap(err, "failed to find escalation candidates", goerr.V(RuleIDKey, rule.ID)), "escalation rule failed")
		return
	}
	report.Candidates += len(candidates)
	if len(candidates) == 0 {
		return
	}

	target, err := resolveTarget(batchCtx, uc.repo, tenantID, rule.Action)
	if err != nil {
		report.Errors++
		errutil.Handle(ctx, err, "failed to resolve escalation target")
		return
	}
	if target == nil {
		report.Skipped += len(candidates)
		logger.Warn("no escalation target available, skipping rule", "candidates", len(candidates))
		return
	}

	note := "Auto-escalated: " + rule.Name
	if rule.Action.AddNote != "" {
		note += " - " + rule.Action.AddNote
	}

	for i, candidate := range candidates {
		if batchCtx.Err() != nil {
			logger.Warn("escalation batch budget exhausted", "remaining", len(candidates)-i)
			break
		}

		ok, err := uc.escalate(batchCtx, tenantID, rule, candidate, target, note, now)
		switch {
		case err != nil:
			report.Errors++
			errutil.Handle(ctx, err, "failed to escalate action")
		case !ok:
			report.Skipped++
		default:
			report.Escalated++
			escalated++
		}
	}
}

// escalate applies one escalation. It returns false when another writer escalated
// or resolved the action first.
func (uc *EscalationUseCase) escalate(ctx context.Context, tenantID string, rule *model.EscalationRule, candidate *model.Action, target *model.User, note string, now time.Time) (bool, error) {
	toTeam := candidate.AssignedToTeam
	if rule.Action.AssignToTeam != nil {
		toTeam = model.Ptr(*rule.Action.AssignToTeam)
	}

	update := &interfaces.EscalationUpdate{
		EscalatedTo: target.ID,
		Priority:    rule.Action.ChangePriorityTo,
		Team:        rule.Action.AssignToTeam,
		Entry: model.AssignmentEntry{
			From:   candidate.AssignedTo,
			To:     model.Ptr(target.ID),
			ToTeam: toTeam,
			ByUser: nil,
			At:     now,
			Auto:   true,
			Note:   model.Ptr(note),
		},
		At: now,
	}

	updated, err := uc.repo.Action().Escalate(ctx, tenantID, candidate.ID, update)
	if errors.Is(err, interfaces.ErrConflict) || errors.Is(err, interfaces.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to write escalation",
			goerr.V(ActionIDKey, candidate.ID), goerr.V(RuleIDKey, rule.ID))
	}

	logging.From(ctx).Info("action escalated",
		"action_id", updated.ID,
		"rule_id", rule.ID,
		"escalated_to", target.ID,
	)

	if uc.notifications != nil {
		uc.notifications.notify(ctx, uc.notifications.actionInput(updated, target.ID,
			types.NotificationActionEscalated,
			"Action escalated to you",
			fmt.Sprintf("%s was escalated by rule %q", updated.Title, rule.Name)))

		original := candidate.AssignedTo
		if rule.Action.NotifyOriginalAssignee && original != nil && *original != target.ID {
			uc.notifications.notify(ctx, uc.notifications.actionInput(updated, *original,
				types.NotificationActionEscalated,
				"Your action was escalated",
				fmt.Sprintf("%s was escalated by rule %q", updated.Title, rule.Name)))
		}
	}

	return true, nil
}
