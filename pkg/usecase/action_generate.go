package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/model/auth"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/feedbackloop/actionflow/pkg/service/insight"
	"github.com/feedbackloop/actionflow/pkg/utils/errutil"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

const (
	maxGenerateItems    = 50
	generateConcurrency = 4
	fallbackTeam        = "Customer Service"
)

// GenerateError describes a feedback item that could not be turned into actions
type GenerateError struct {
	FeedbackID string    `json:"feedbackId"`
	Error      string    `json:"error"`
	Kind       ErrorKind `json:"kind"`
}

// GenerateResult is the outcome of an AI batch. Skipped lists feedback for
// which no action was warranted.
type GenerateResult struct {
	Created []*model.Action `json:"created"`
	Skipped []string        `json:"skipped"`
	Errors  []GenerateError `json:"errors"`
}

type generateOutcome struct {
	created []*model.Action
	skipped bool
	err     error
}

// GenerateFromFeedback asks the insight service for actions addressing each feedback item
// and creates them as system actions. When the LLM fails, negative feedback still gets a
// high priority investigation action.
func (uc *ActionUseCase) GenerateFromFeedback(ctx context.Context, actor *auth.Actor, feedbackIDs []string) (*GenerateResult, error) {
	if err := Guard(actor); err != nil {
		return nil, err
	}
	if !actor.IsCompanyAdmin() {
		return nil, goerr.Wrap(ErrForbidden, "only company admins may generate actions", goerr.V(ActorKey, actor.UserID))
	}

	ve := &ValidationError{}
	if len(feedbackIDs) == 0 {
		ve.Add("feedbackIds", "at least one feedback is required")
	}
	if len(feedbackIDs) > maxGenerateItems {
		ve.Add("feedbackIds", fmt.Sprintf("at most %d feedback items per request", maxGenerateItems))
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	outcomes := make([]generateOutcome, len(feedbackIDs))
	var mu sync.Mutex

	var eg errgroup.Group
	eg.SetLimit(generateConcurrency)
	for i, feedbackID := range feedbackIDs {
		eg.Go(func() error {
			created, skipped, err := uc.generateOne(ctx, actor, feedbackID)
			mu.Lock()
			outcomes[i] = generateOutcome{created: created, skipped: skipped, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	result := &GenerateResult{
		Created: []*model.Action{},
		Skipped: []string{},
		Errors:  []GenerateError{},
	}
	for i, o := range outcomes {
		// actions persisted before a failure on the same feedback are still reported
		result.Created = append(result.Created, o.created...)
		switch {
		case o.err != nil:
			kind, _ := ErrorStatus(o.err)
			result.Errors = append(result.Errors, GenerateError{FeedbackID: feedbackIDs[i], Error: o.err.Error(), Kind: kind})
		case o.skipped:
			result.Skipped = append(result.Skipped, feedbackIDs[i])
		}
	}

	logging.From(ctx).Info("actions generated from feedback",
		"tenant_id", actor.TenantID,
		"requested", len(feedbackIDs),
		"created", len(result.Created),
		"skipped", len(result.Skipped),
		"errors", len(result.Errors),
	)

	if len(result.Created) > 0 {
		uc.announceGenerated(ctx, actor.TenantID, result.Created)
	}

	return result, nil
}

func (uc *ActionUseCase) generateOne(ctx context.Context, actor *auth.Actor, feedbackID string) ([]*model.Action, bool, error) {
	feedback, err := uc.repo.Feedback().Get(ctx, actor.TenantID, feedbackID)
	if err != nil {
		return nil, false, lookupErr(err, "feedback not found", goerr.V(FeedbackIDKey, feedbackID))
	}
	if feedback.TenantID != actor.TenantID {
		return nil, false, goerr.Wrap(ErrNotFound, "feedback not found", goerr.V(FeedbackIDKey, feedbackID))
	}

	suggestions := uc.suggest(ctx, feedback)
	if len(suggestions) == 0 {
		return nil, true, nil
	}

	created := make([]*model.Action, 0, len(suggestions))
	for _, s := range suggestions {
		input := &CreateActionInput{
			Title:          s.Title,
			Description:    s.Description,
			Priority:       s.Priority,
			PriorityReason: s.PriorityReason,
			Category:       s.Category,
			Source:         types.ActionSourceAIGenerated,
			FeedbackID:     model.Ptr(feedback.ID),
			Team:           model.StrOrNil(s.Team),
		}
		if s.RootCauseSummary != "" {
			input.RootCause = &model.RootCause{Summary: s.RootCauseSummary}
		}

		a, err := uc.CreateAction(ctx, actor, input, AsSystem(), WithSkipNotification())
		if err != nil {
			return created, false, goerr.Wrap(err, "failed to create generated action", goerr.V(FeedbackIDKey, feedback.ID))
		}
		created = append(created, a)
	}
	return created, false, nil
}

// suggest asks the insight service, falling back to deterministic rules when it is
// unavailable or fails
func (uc *ActionUseCase) suggest(ctx context.Context, feedback *model.FeedbackAnalysis) []insight.Suggestion {
	if uc.insight != nil {
		suggestions, err := uc.insight.Suggest(ctx, feedback)
		if err == nil {
			return suggestions
		}
		errutil.Handle(ctx, goerr.Wrap(err, "insight service failed, using fallback",
			goerr.V(FeedbackIDKey, feedback.ID)), "action suggestion failed")
	}
	return fallbackSuggestions(feedback)
}

// fallbackSuggestions proposes an investigation for negative feedback and nothing otherwise
func fallbackSuggestions(feedback *model.FeedbackAnalysis) []insight.Suggestion {
	if feedback.Sentiment != types.SentimentNegative {
		return nil
	}

	topic := feedback.PrimaryCategory()
	if topic == "" {
		topic = "customer"
	}
	description := fmt.Sprintf("Investigate negative %s feedback", topic)
	if summary := strings.TrimSpace(feedback.Summary); summary != "" {
		description += ": " + summary
	}

	return []insight.Suggestion{
		{
			Title:          fmt.Sprintf("Investigate %s feedback", topic),
			Description:    description,
			Priority:       types.PriorityHigh,
			PriorityReason: "Negative feedback requires follow-up",
			Category:       feedback.PrimaryCategory(),
			Team:           fallbackTeam,
		},
	}
}

// announceGenerated tells every active company admin about the new actions
func (uc *ActionUseCase) announceGenerated(ctx context.Context, tenantID string, created []*model.Action) {
	if uc.notifications == nil {
		return
	}

	admins, err := uc.notifications.companyAdmins(ctx, tenantID)
	if err != nil {
		errutil.Handle(ctx, err, "failed to list company admins for generated actions")
		return
	}

	ids := make([]string, 0, len(created))
	for _, a := range created {
		ids = append(ids, a.ID.String())
	}

	for _, admin := range admins {
		uc.notifications.notify(ctx, SendInput{
			UserID:   admin.ID,
			TenantID: tenantID,
			Type:     types.NotificationActionCreated,
			Title:    "New actions generated from feedback",
			Message:  fmt.Sprintf("%d actions were generated from survey feedback", len(created)),
			Data: map[string]any{
				"count":     len(created),
				"actionIds": ids,
			},
		})
	}
}
