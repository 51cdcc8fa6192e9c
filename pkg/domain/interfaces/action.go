package interfaces

import (
	"context"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
)

// ActionRepository defines the interface for Action data access.
// Every method is scoped to a tenant and ignores soft-deleted actions unless stated otherwise.
type ActionRepository interface {
	// Create stores a new action. ID is generated when empty and Version starts at 1.
	Create(ctx context.Context, tenantID string, action *model.Action) (*model.Action, error)

	// Get retrieves an action by ID. Missing, foreign and deleted actions return ErrNotFound.
	Get(ctx context.Context, tenantID string, id model.ActionID) (*model.Action, error)

	// List returns one page of actions matching the filter. The filter must be normalized.
	List(ctx context.Context, tenantID string, filter *model.ActionFilter) (*model.ActionPage, error)

	// Scan returns every action matching the filter without paging
	Scan(ctx context.Context, tenantID string, filter *model.ActionFilter) ([]*model.Action, error)

	// Update replaces an action. The stored Version must equal action.Version,
	// otherwise ErrConflict is returned. Version is incremented on success.
	Update(ctx context.Context, tenantID string, action *model.Action) (*model.Action, error)

	// SoftDelete marks an action deleted
	SoftDelete(ctx context.Context, tenantID string, id model.ActionID, deletedBy string, at time.Time) error

	// Escalate atomically applies an escalation if the action has not been escalated yet.
	// ErrConflict is returned when the action is already escalated or resolved.
	Escalate(ctx context.Context, tenantID string, id model.ActionID, esc *EscalationUpdate) (*model.Action, error)

	// FindEscalationCandidates picks up to limit actions matching the query, those
	// furthest past the cutoff first, and returns them oldest first
	FindEscalationCandidates(ctx context.Context, tenantID string, query *model.EscalationQuery, limit int) ([]*model.Action, error)

	// ListTrendPending returns up to limit actions with a feedback reference and no trend data yet
	ListTrendPending(ctx context.Context, tenantID string, limit int) ([]*model.Action, error)

	// ListSimilar returns actions matching the similarity query
	ListSimilar(ctx context.Context, tenantID string, query *model.SimilarQuery) ([]*model.Action, error)

	// ListOverdue returns up to limit unresolved actions due before now that have not been reported overdue
	ListOverdue(ctx context.Context, tenantID string, now time.Time, limit int) ([]*model.Action, error)
}

// EscalationUpdate is the change written by an escalation
type EscalationUpdate struct {
	EscalatedTo string
	Priority    *types.Priority
	Team        *string
	Entry       model.AssignmentEntry
	At          time.Time
}

// FeedbackRepository provides FeedbackAnalysis lookups
type FeedbackRepository interface {
	Get(ctx context.Context, tenantID string, id string) (*model.FeedbackAnalysis, error)
	Put(ctx context.Context, feedback *model.FeedbackAnalysis) error
}

// SurveyRepository provides Survey lookups
type SurveyRepository interface {
	Get(ctx context.Context, tenantID string, id string) (*model.Survey, error)

	// GetPrevious returns the latest survey of the tenant created strictly before the given time
	GetPrevious(ctx context.Context, tenantID string, before time.Time) (*model.Survey, error)

	Put(ctx context.Context, survey *model.Survey) error
}

// SurveyResponseRepository provides SurveyResponse lookups
type SurveyResponseRepository interface {
	Get(ctx context.Context, tenantID string, id string) (*model.SurveyResponse, error)
	Put(ctx context.Context, response *model.SurveyResponse) error
}
