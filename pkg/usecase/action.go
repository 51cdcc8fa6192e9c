package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/model/auth"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/feedbackloop/actionflow/pkg/service/insight"
	"github.com/feedbackloop/actionflow/pkg/utils/errutil"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	maxTitleLength    = 120
	maxBulkItems      = 100
	maxMutateAttempts = 3
)

type ActionUseCase struct {
	repo          interfaces.Repository
	notifications *NotificationUseCase
	insight       insight.Service
	now           func() time.Time
}

func NewActionUseCase(repo interfaces.Repository, notifications *NotificationUseCase, insightService insight.Service, now func() time.Time) *ActionUseCase {
	return &ActionUseCase{
		repo:          repo,
		notifications: notifications,
		insight:       insightService,
		now:           now,
	}
}

// CreateActionInput is the caller supplied part of a new action.
// Tenant and creator always come from the actor.
type CreateActionInput struct {
	Title            string                  `json:"title"`
	Description      string                  `json:"description"`
	ProblemStatement string                  `json:"problemStatement"`
	RootCause        *model.RootCause        `json:"rootCause"`
	AffectedAudience *model.AffectedAudience `json:"affectedAudience"`
	Evidence         *model.Evidence         `json:"evidence"`
	Metadata         *model.ActionMetadata   `json:"metadata"`
	Priority         types.Priority          `json:"priority"`
	PriorityReason   string                  `json:"priorityReason"`
	UrgencyReason    string                  `json:"urgencyReason"`
	Status           types.ActionStatus      `json:"status"`
	Category         string                  `json:"category"`
	Source           types.ActionSource      `json:"source"`
	Tags             []string                `json:"tags"`
	AssignedTo       *string                 `json:"assignedTo"`
	Team             *string                 `json:"team"`
	DueDate          *time.Time              `json:"dueDate"`
	FeedbackID       *string                 `json:"feedbackId"`
}

// Validate checks the input and reports every invalid field
func (in *CreateActionInput) Validate() error {
	ve := &ValidationError{}

	if strings.TrimSpace(in.Description) == "" {
		ve.Add("description", "description is required")
	}
	if in.Priority == "" {
		ve.Add("priority", "priority is required")
	} else if !in.Priority.IsValid() {
		ve.Add("priority", fmt.Sprintf("invalid priority %q", in.Priority))
	}
	if in.Status != "" && !in.Status.IsValid() {
		ve.Add("status", fmt.Sprintf("invalid status %q", in.Status))
	}
	if in.Source != "" && !in.Source.IsValid() {
		ve.Add("source", fmt.Sprintf("invalid source %q", in.Source))
	}
	if in.RootCause != nil && in.RootCause.Category != "" && !in.RootCause.Category.IsValid() {
		ve.Add("rootCause.category", fmt.Sprintf("invalid root cause category %q", in.RootCause.Category))
	}
	if in.AffectedAudience != nil && in.AffectedAudience.EstimatedCount < 0 {
		ve.Add("affectedAudience.estimatedCount", "must not be negative")
	}
	if in.Evidence != nil && (in.Evidence.ConfidenceScore < 0 || in.Evidence.ConfidenceScore > 100) {
		ve.Add("evidence.confidenceScore", "must be between 0 and 100")
	}
	if in.Metadata != nil {
		if c := in.Metadata.Confidence; c != nil && (*c < 0 || *c > 1) {
			ve.Add("metadata.confidence", "must be between 0 and 1")
		}
		if in.Metadata.Sentiment != "" && !in.Metadata.Sentiment.IsValid() {
			ve.Add("metadata.sentiment", fmt.Sprintf("invalid sentiment %q", in.Metadata.Sentiment))
		}
	}
	if in.AssignedTo != nil && strings.TrimSpace(*in.AssignedTo) == "" {
		ve.Add("assignedTo", "must not be empty")
	}
	if in.FeedbackID != nil && strings.TrimSpace(*in.FeedbackID) == "" {
		ve.Add("feedbackId", "must not be empty")
	}
	for _, tag := range in.Tags {
		if strings.TrimSpace(tag) == "" {
			ve.Add("tags", "tags must not be empty")
			break
		}
	}

	return ve.OrNil()
}

type createOptions struct {
	skipNotification bool
	system           bool
	note             *string
}

// CreateOption changes how CreateAction records and announces a new action
type CreateOption func(*createOptions)

// WithSkipNotification suppresses the assignee notification
func WithSkipNotification() CreateOption {
	return func(o *createOptions) {
		o.skipNotification = true
	}
}

// AsSystem records the action as created by the system rather than the actor
func AsSystem() CreateOption {
	return func(o *createOptions) {
		o.system = true
	}
}

// WithAssignmentNote sets the note of the initial assignment history entry
func WithAssignmentNote(note string) CreateOption {
	return func(o *createOptions) {
		o.note = model.StrOrNil(note)
	}
}

// CreateAction is the single entry point for new actions
func (uc *ActionUseCase) CreateAction(ctx context.Context, actor *auth.Actor, input *CreateActionInput, opts ...CreateOption) (*model.Action, error) {
	if err := Guard(actor); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, goerr.Wrap(ErrValidation, "input is required")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	tenantID := actor.TenantID
	now := uc.now()

	var feedback *model.FeedbackAnalysis
	if input.FeedbackID != nil {
		fb, err := uc.repo.Feedback().Get(ctx, tenantID, *input.FeedbackID)
		if err != nil {
			return nil, lookupErr(err, "feedback not found",
				goerr.V(FeedbackIDKey, *input.FeedbackID), goerr.V(TenantIDKey, tenantID))
		}
		if fb.TenantID != tenantID {
			return nil, goerr.Wrap(ErrNotFound, "feedback not found",
				goerr.V(FeedbackIDKey, *input.FeedbackID), goerr.V(TenantIDKey, tenantID))
		}
		feedback = fb
	}

	if input.AssignedTo != nil {
		if _, err := uc.activeUser(ctx, tenantID, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	action := newActionFromInput(input, tenantID)
	if !o.system {
		action.CreatedBy = model.Ptr(actor.UserID)
	}
	if feedback != nil {
		action.FeedbackRef = model.Ptr(feedback.ID)
		if input.Source == "" {
			action.Source = types.ActionSourceSurveyFeedback
		}
		enrichFromFeedback(action, feedback)
	}

	if input.AssignedTo != nil && !o.system {
		survey, err := uc.loadSurvey(ctx, tenantID, action.Metadata.SurveyID)
		if err != nil {
			return nil, err
		}
		if !CanAssign(actor, survey) {
			return nil, goerr.Wrap(ErrForbidden, "actor may not assign actions of this survey",
				goerr.V(ActorKey, actor.UserID), goerr.V("survey_id", action.Metadata.SurveyID))
		}
	}

	note := o.note
	if action.AssignedTo == nil {
		if rule := uc.applyAssignmentRule(ctx, action); rule != nil && note == nil {
			note = model.Ptr("Auto-assigned: " + rule.Name)
		}
	}

	if input.DueDate != nil {
		action.DueDate = *input.DueDate
	} else {
		action.DueDate = now.Add(action.Priority.DueOffset())
	}

	action.CreatedAt = now
	action.UpdatedAt = now
	if action.Status == types.ActionStatusResolved {
		action.CompletedAt = model.Ptr(now)
		action.CompletedBy = action.CreatedBy
	}

	action.AppendHistory(model.AssignmentEntry{
		From:   nil,
		To:     action.AssignedTo,
		ToTeam: action.AssignedToTeam,
		ByUser: action.CreatedBy,
		At:     now,
		Auto:   action.AutoAssigned,
		Note:   note,
	})

	created, err := uc.repo.Action().Create(ctx, tenantID, action)
	if err != nil {
		return nil, mapRepoErr(err, "failed to create action", goerr.V(TenantIDKey, tenantID), goerr.V(ActorKey, actor.UserID))
	}

	logging.From(ctx).Info("action created",
		"action_id", created.ID,
		"tenant_id", tenantID,
		"source", created.Source,
		"auto_assigned", created.AutoAssigned,
	)

	if !o.skipNotification && created.AssignedTo != nil && uc.notifications != nil {
		uc.notifications.notify(ctx, uc.notifications.actionInput(created, *created.AssignedTo,
			types.NotificationActionAssigned,
			"New action assigned",
			fmt.Sprintf("You have been assigned: %s", created.Title)))
	}

	return created, nil
}

func newActionFromInput(in *CreateActionInput, tenantID string) *model.Action {
	a := &model.Action{
		TenantID:         tenantID,
		Title:            strings.TrimSpace(in.Title),
		Description:      strings.TrimSpace(in.Description),
		ProblemStatement: in.ProblemStatement,
		Priority:         in.Priority,
		PriorityReason:   in.PriorityReason,
		UrgencyReason:    in.UrgencyReason,
		Status:           in.Status,
		Category:         strings.TrimSpace(in.Category),
		Source:           in.Source,
		Tags:             in.Tags,
		AssignedTo:       in.AssignedTo,
		AssignedToTeam:   in.Team,
	}
	a.AssignmentHistory = []model.AssignmentEntry{}
	if a.Title == "" {
		a.Title = titleFromDescription(a.Description)
	}
	if a.Status == "" {
		a.Status = types.ActionStatusPending
	}
	if a.Source == "" {
		a.Source = types.ActionSourceManual
	}
	if in.RootCause != nil {
		a.RootCause = *in.RootCause
	}
	if in.AffectedAudience != nil {
		aud := *in.AffectedAudience
		a.AffectedAudience = &aud
	}
	if in.Evidence != nil {
		ev := *in.Evidence
		a.Evidence = &ev
	}
	if in.Metadata != nil {
		a.Metadata = *in.Metadata
	}
	return a
}

func titleFromDescription(description string) string {
	line, _, _ := strings.Cut(description, "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= maxTitleLength {
		return line
	}
	runes := []rune(line)
	return strings.TrimSpace(string(runes[:maxTitleLength-3])) + "..."
}

// applyAssignmentRule runs the rule matcher for an unassigned action and applies
// the winning rule's proposal. Lookup failures leave the action unassigned.
func (uc *ActionUseCase) applyAssignmentRule(ctx context.Context, a *model.Action) *model.EscalationRule {
	rules, err := uc.repo.EscalationRule().List(ctx, a.TenantID, true)
	if err != nil {
		errutil.Handle(ctx, err, "failed to load assignment rules")
		return nil
	}

	rule := MatchRule(rules, model.SubjectOf(a))
	if rule == nil {
		return nil
	}

	target, err := resolveTarget(ctx, uc.repo, a.TenantID, rule.Action)
	if err != nil {
		errutil.Handle(ctx, err, "failed to resolve assignment rule target")
	}

	applied := false
	if target != nil {
		a.AssignedTo = model.Ptr(target.ID)
		applied = true
	}
	if rule.Action.AssignToTeam != nil && a.AssignedToTeam == nil {
		a.AssignedToTeam = model.Ptr(*rule.Action.AssignToTeam)
		applied = true
	}
	if !applied {
		return nil
	}
	if rule.Action.ChangePriorityTo != nil {
		a.Priority = *rule.Action.ChangePriorityTo
	}
	a.AutoAssigned = true
	return rule
}

// UpdateActionInput lists the mutable fields of an action. Nil fields are left unchanged.
type UpdateActionInput struct {
	Description *string             `json:"description"`
	Priority    *types.Priority     `json:"priority"`
	Team        *string             `json:"team"`
	Status      *types.ActionStatus `json:"status"`
	DueDate     *time.Time          `json:"dueDate"`
	Tags        []string            `json:"tags"`
	Category    *string             `json:"category"`
	Resolution  *string             `json:"resolution"`
}

// Validate checks the changes and reports every invalid field
func (in *UpdateActionInput) Validate() error {
	ve := &ValidationError{}
	if in.Description != nil && strings.TrimSpace(*in.Description) == "" {
		ve.Add("description", "description must not be empty")
	}
	if in.Priority != nil && !in.Priority.IsValid() {
		ve.Add("priority", fmt.Sprintf("invalid priority %q", *in.Priority))
	}
	if in.Status != nil && !in.Status.IsValid() {
		ve.Add("status", fmt.Sprintf("invalid status %q", *in.Status))
	}
	if in.DueDate != nil && in.DueDate.IsZero() {
		ve.Add("dueDate", "due date must be set")
	}
	return ve.OrNil()
}

// UpdateAction applies whitelisted changes. Allowed for company admins and the current assignee.
func (uc *ActionUseCase) UpdateAction(ctx context.Context, actor *auth.Actor, id model.ActionID, changes *UpdateActionInput) (*model.Action, error) {
	if err := Guard(actor); err != nil {
		return nil, err
	}
	if changes == nil {
		return nil, goerr.Wrap(ErrValidation, "changes are required")
	}
	if err := changes.Validate(); err != nil {
		return nil, err
	}

	var statusChanged bool
	updated, err := uc.mutate(ctx, actor.TenantID, id, func(a *model.Action) error {
		statusChanged = false

		if err := uc.checkView(ctx, actor, a); err != nil {
			return err
		}
		if !actor.IsCompanyAdmin() && model.Deref(a.AssignedTo) != actor.UserID {
			return goerr.Wrap(ErrForbidden, "only company admins and the assignee may update the action",
				goerr.V(ActionIDKey, id), goerr.V(ActorKey, actor.UserID))
		}

		now := uc.now()
		if changes.Status != nil {
			changed, err := transitionStatus(a, *changes.Status, actor, now)
			if err != nil {
				return err
			}
			statusChanged = changed
		}
		if changes.Description != nil {
			a.Description = strings.TrimSpace(*changes.Description)
		}
		if changes.Priority != nil {
			a.Priority = *changes.Priority
		}
		if changes.DueDate != nil {
			a.DueDate = *changes.DueDate
			a.OverdueNotifiedAt = nil
		}
		if changes.Tags != nil {
			a.Tags = changes.Tags
		}
		if changes.Category != nil {
			a.Category = strings.TrimSpace(*changes.Category)
		}
		if changes.Resolution != nil {
			a.Resolution = *changes.Resolution
		}
		if changes.Team != nil {
			team := model.StrOrNil(strings.TrimSpace(*changes.Team))
			if model.Deref(team) != model.Deref(a.AssignedToTeam) {
				a.AssignedToTeam = team
				a.AppendHistory(model.AssignmentEntry{
					From:   a.AssignedTo,
					To:     a.AssignedTo,
					ToTeam: team,
					ByUser: model.Ptr(actor.UserID),
					At:     now,
					Note:   model.Ptr("Team changed"),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if statusChanged && updated.AssignedTo != nil && *updated.AssignedTo != actor.UserID && uc.notifications != nil {
		if updated.Status == types.ActionStatusResolved {
			uc.notifications.notify(ctx, uc.notifications.actionInput(updated, *updated.AssignedTo,
				types.NotificationActionCompleted,
				"Action completed",
				fmt.Sprintf("%s was marked resolved", updated.Title)))
		} else {
			uc.notifications.notify(ctx, uc.notifications.actionInput(updated, *updated.AssignedTo,
				types.NotificationActionStatusUpdated,
				"Action status updated",
				fmt.Sprintf("%s is now %s", updated.Title, updated.Status)))
		}
	}

	return updated, nil
}

// transitionStatus applies the status machine. It reports whether the status changed.
func transitionStatus(a *model.Action, next types.ActionStatus, actor *auth.Actor, now time.Time) (bool, error) {
	current := a.Status
	switch {
	case current == types.ActionStatusResolved && next == types.ActionStatusResolved:
		return false, goerr.Wrap(ErrConflict, "action is already resolved", goerr.V(ActionIDKey, a.ID))
	case current == types.ActionStatusResolved:
		if !actor.IsCompanyAdmin() {
			return false, goerr.Wrap(ErrForbidden, "only company admins may reopen a resolved action",
				goerr.V(ActionIDKey, a.ID), goerr.V(ActorKey, actor.UserID))
		}
		a.Status = next
		a.CompletedAt = nil
		a.CompletedBy = nil
		return true, nil
	case next == types.ActionStatusResolved:
		a.Status = next
		a.CompletedAt = model.Ptr(now)
		a.CompletedBy = model.Ptr(actor.UserID)
		return true, nil
	case current == next:
		return false, nil
	default:
		a.Status = next
		return true, nil
	}
}

// AssignInput is a manual (re)assignment
type AssignInput struct {
	AssignedTo string  `json:"assignedTo"`
	Team       *string `json:"team"`
	Note       string  `json:"note"`
}

func (in *AssignInput) validate() error {
	ve := &ValidationError{}
	if strings.TrimSpace(in.AssignedTo) == "" {
		ve.Add("assignedTo", "assignee is required")
	}
	return ve.OrNil()
}

// AssignAction reassigns the action. Reassigning to the current assignee still records history.
func (uc *ActionUseCase) AssignAction(ctx context.Context, actor *auth.Actor, id model.ActionID, input *AssignInput) (*model.Action, error) {
	if err := Guard(actor); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, goerr.Wrap(ErrValidation, "input is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	if _, err := uc.activeUser(ctx, actor.TenantID, input.AssignedTo); err != nil {
		return nil, err
	}

	updated, err := uc.assign(ctx, actor, id, input)
	if err != nil {
		return nil, err
	}

	if input.AssignedTo != actor.UserID && uc.notifications != nil {
		uc.notifications.notify(ctx, uc.notifications.actionInput(updated, input.AssignedTo,
			types.NotificationActionAssigned,
			"Action assigned to you",
			fmt.Sprintf("You have been assigned: %s", updated.Title)))
	}
	return updated, nil
}

func (uc *ActionUseCase) assign(ctx context.Context, actor *auth.Actor, id model.ActionID, input *AssignInput) (*model.Action, error) {
	return uc.mutate(ctx, actor.TenantID, id, func(a *model.Action) error {
		survey, err := uc.loadSurvey(ctx, a.TenantID, a.Metadata.SurveyID)
		if err != nil {
			return err
		}
		if !CanView(actor, survey) || !CanAssign(actor, survey) {
			return goerr.Wrap(ErrForbidden, "actor may not assign this action",
				goerr.V(ActionIDKey, id), goerr.V(ActorKey, actor.UserID))
		}

		from := a.AssignedTo
		a.AssignedTo = model.Ptr(input.AssignedTo)
		if input.Team != nil {
			a.AssignedToTeam = model.StrOrNil(strings.TrimSpace(*input.Team))
		}
		a.AutoAssigned = false
		a.AppendHistory(model.AssignmentEntry{
			From:   from,
			To:     a.AssignedTo,
			ToTeam: a.AssignedToTeam,
			ByUser: model.Ptr(actor.UserID),
			At:     uc.now(),
			Auto:   false,
			Note:   model.StrOrNil(input.Note),
		})
		return nil
	})
}

// BulkResult is the outcome of one item of a bulk operation
type BulkResult struct {
	ActionID model.ActionID `json:"actionId"`
	OK       bool           `json:"ok"`
	Error    string         `json:"error,omitempty"`
	Kind     ErrorKind      `json:"kind,omitempty"`
}

func bulkFailure(id model.ActionID, err error) BulkResult {
	kind, _ := ErrorStatus(err)
	return BulkResult{ActionID: id, OK: false, Error: err.Error(), Kind: kind}
}

func validateBulkIDs(ids []model.ActionID) error {
	ve := &ValidationError{}
	if len(ids) == 0 {
		ve.Add("actionIds", "at least one action is required")
	}
	if len(ids) > maxBulkItems {
		ve.Add("actionIds", fmt.Sprintf("at most %d actions per request", maxBulkItems))
	}
	return ve.OrNil()
}

// BulkAssign assigns every listed action to one user. Items succeed or fail independently
// and the assignee receives a single summary notification.
func (uc *ActionUseCase) BulkAssign(ctx context.Context, actor *auth.Actor, ids []model.ActionID, input *AssignInput) ([]BulkResult, error) {
	if err := Guard(actor); err != nil {
		return nil, err
	}
	if err := validateBulkIDs(ids); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, goerr.Wrap(ErrValidation, "input is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	if _, err := uc.activeUser(ctx, actor.TenantID, input.AssignedTo); err != nil {
		return nil, err
	}

	results := make([]BulkResult, 0, len(ids))
	var assigned []*model.Action
	for _, id := range ids {
		updated, err := uc.assign(ctx, actor, id, input)
		if err != nil {
			results = append(results, bulkFailure(id, err))
			continue
		}
		results = append(results, BulkResult{ActionID: id, OK: true})
		assigned = append(assigned, updated)
	}

	if len(assigned) > 0 && input.AssignedTo != actor.UserID && uc.notifications != nil {
		actionIDs := make([]string, 0, len(assigned))
		for _, a := range assigned {
			actionIDs = append(actionIDs, a.ID.String())
		}
		uc.notifications.notify(ctx, SendInput{
			UserID:   input.AssignedTo,
			TenantID: actor.TenantID,
			Type:     types.NotificationBulkActionAssigned,
			Title:    "Actions assigned to you",
			Message:  fmt.Sprintf("%d actions have been assigned to you", len(assigned)),
			Data: map[string]any{
				"count":     len(assigned),
				"actionIds": actionIDs,
			},
		})
	}

	return results, nil
}

// BulkUpdate applies the same changes to every listed action, best-effort per item
func (uc *ActionUseCase) BulkUpdate(ctx context.Context, actor *auth.Actor, ids []model.ActionID, changes *UpdateActionInput) ([]BulkResult, error) {
	if err := Guard(actor); err != nil {
		return nil, err
	}
	if err := validateBulkIDs(ids); err != nil {
		return nil, err
	}
	if changes == nil {
		return nil, goerr.Wrap(ErrValidation, "changes are required")
	}
	if err := changes.Validate(); err != nil {
		return nil, err
	}

	results := make([]BulkResult, 0, len(ids))
	for _, id := range ids {
		if _, err := uc.UpdateAction(ctx, actor, id, changes); err != nil {
			results = append(results, bulkFailure(id, err))
			continue
		}
		results = append(results, BulkResult{ActionID: id, OK: true})
	}
	return results, nil
}

// GetAction returns a visible action of the actor's tenant
func (uc *ActionUseCase) GetAction(ctx context.Context, actor *auth.Actor, id model.ActionID) (*model.Action, error) {
	if err := Guard(actor); err != nil {
		return nil, err
	}

	a, err := uc.repo.Action().Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, mapRepoErr(err, "action not found", goerr.V(ActionIDKey, id), goerr.V(TenantIDKey, actor.TenantID))
	}
	if err := uc.checkView(ctx, actor, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListActions returns one page of the actions the actor may see
func (uc *ActionUseCase) ListActions(ctx context.Context, actor *auth.Actor, filter *model.ActionFilter) (*model.ActionPage, error) {
	if err := Guard(actor); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &model.ActionFilter{}
	}
	if err := filter.Normalize(); err != nil {
		return nil, invalidField(err, "filter")
	}

	if actor.IsCompanyAdmin() {
		page, err := uc.repo.Action().List(ctx, actor.TenantID, filter)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list actions", goerr.V(TenantIDKey, actor.TenantID))
		}
		return page, nil
	}

	visible, err := uc.visibleActions(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	return filter.Apply(visible), nil
}

// visibleActions scans every matching action and drops those hidden by survey permissions
func (uc *ActionUseCase) visibleActions(ctx context.Context, actor *auth.Actor, filter *model.ActionFilter) ([]*model.Action, error) {
	actions, err := uc.repo.Action().Scan(ctx, actor.TenantID, filter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to scan actions", goerr.V(TenantIDKey, actor.TenantID))
	}
	if actor.IsCompanyAdmin() {
		return actions, nil
	}

	surveys := make(map[string]*model.Survey)
	visible := make([]*model.Action, 0, len(actions))
	for _, a := range actions {
		surveyID := a.Metadata.SurveyID
		survey, ok := surveys[surveyID]
		if !ok {
			survey, err = uc.loadSurvey(ctx, actor.TenantID, surveyID)
			if err != nil {
				return nil, err
			}
			surveys[surveyID] = survey
		}
		if CanView(actor, survey) {
			visible = append(visible, a)
		}
	}
	return visible, nil
}

// DeleteAction soft-deletes an action. Company admins only.
func (uc *ActionUseCase) DeleteAction(ctx context.Context, actor *auth.Actor, id model.ActionID) error {
	if err := Guard(actor); err != nil {
		return err
	}
	if !actor.IsCompanyAdmin() {
		return goerr.Wrap(ErrForbidden, "only company admins may delete actions",
			goerr.V(ActionIDKey, id), goerr.V(ActorKey, actor.UserID))
	}

	if err := uc.repo.Action().SoftDelete(ctx, actor.TenantID, id, actor.UserID, uc.now()); err != nil {
		return mapRepoErr(err, "failed to delete action", goerr.V(ActionIDKey, id), goerr.V(TenantIDKey, actor.TenantID))
	}

	logging.From(ctx).Info("action deleted", "action_id", id, "tenant_id", actor.TenantID, "by", actor.UserID)
	return nil
}

func (uc *ActionUseCase) checkView(ctx context.Context, actor *auth.Actor, a *model.Action) error {
	survey, err := uc.loadSurvey(ctx, a.TenantID, a.Metadata.SurveyID)
	if err != nil {
		return err
	}
	if !CanView(actor, survey) {
		return goerr.Wrap(ErrForbidden, "actor may not view actions of this survey",
			goerr.V(ActionIDKey, a.ID), goerr.V(ActorKey, actor.UserID))
	}
	return nil
}

// loadSurvey returns nil for actions without a survey or whose survey no longer exists
func (uc *ActionUseCase) loadSurvey(ctx context.Context, tenantID, surveyID string) (*model.Survey, error) {
	if surveyID == "" {
		return nil, nil
	}
	survey, err := uc.repo.Survey().Get(ctx, tenantID, surveyID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, lookupErr(err, "failed to load survey", goerr.V("survey_id", surveyID))
	}
	return survey, nil
}

// activeUser loads a user that must be active in the tenant. Anything else is NotFound.
func (uc *ActionUseCase) activeUser(ctx context.Context, tenantID, userID string) (*model.User, error) {
	user, err := uc.repo.User().Get(ctx, tenantID, userID)
	if err != nil {
		return nil, lookupErr(err, "user not found", goerr.V(UserIDKey, userID), goerr.V(TenantIDKey, tenantID))
	}
	if !user.IsActive || user.TenantID != tenantID {
		return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V(UserIDKey, userID), goerr.V(TenantIDKey, tenantID))
	}
	return user, nil
}

// mutate applies a user driven change and bumps UpdatedAt
func (uc *ActionUseCase) mutate(ctx context.Context, tenantID string, id model.ActionID, fn func(a *model.Action) error) (*model.Action, error) {
	return mutateAction(ctx, uc.repo.Action(), tenantID, id, func(a *model.Action) error {
		if err := fn(a); err != nil {
			return err
		}
		a.UpdatedAt = uc.now()
		return nil
	})
}

// mutateAction reads, modifies and writes an action, retrying when a concurrent
// writer bumped the version in between. UpdatedAt is left to fn.
func mutateAction(ctx context.Context, repo interfaces.ActionRepository, tenantID string, id model.ActionID, fn func(a *model.Action) error) (*model.Action, error) {
	for attempt := 1; ; attempt++ {
		a, err := repo.Get(ctx, tenantID, id)
		if err != nil {
			return nil, mapRepoErr(err, "action not found", goerr.V(ActionIDKey, id), goerr.V(TenantIDKey, tenantID))
		}

		if err := fn(a); err != nil {
			return nil, err
		}

		updated, err := repo.Update(ctx, tenantID, a)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, interfaces.ErrConflict) && attempt < maxMutateAttempts {
			logging.From(ctx).Debug("retrying action update after conflict", "action_id", id, "attempt", attempt)
			continue
		}
		return nil, mapRepoErr(err, "failed to update action", goerr.V(ActionIDKey, id), goerr.V(TenantIDKey, tenantID))
	}
}
