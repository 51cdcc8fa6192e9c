package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type actionRepository struct {
	mu      sync.RWMutex
	actions map[string]map[model.ActionID]*model.Action
}

func newActionRepository() *actionRepository {
	return &actionRepository{
		actions: make(map[string]map[model.ActionID]*model.Action),
	}
}

func (r *actionRepository) ensureTenant(tenantID string) map[model.ActionID]*model.Action {
	ws, exists := r.actions[tenantID]
	if !exists {
		ws = make(map[model.ActionID]*model.Action)
		r.actions[tenantID] = ws
	}
	return ws
}

// copyAction creates a deep copy of an action
func copyAction(a *model.Action) *model.Action {
	c := *a
	c.AffectedAudience = nil
	if a.AffectedAudience != nil {
		c.AffectedAudience = &model.AffectedAudience{
			Segments:       copySlice(a.AffectedAudience.Segments),
			EstimatedCount: a.AffectedAudience.EstimatedCount,
		}
	}
	c.Tags = copySlice(a.Tags)
	c.AssignedTo = copyPtr(a.AssignedTo)
	c.AssignedToTeam = copyPtr(a.AssignedToTeam)
	c.EscalatedTo = copyPtr(a.EscalatedTo)
	c.CompletedAt = copyPtr(a.CompletedAt)
	c.CompletedBy = copyPtr(a.CompletedBy)
	c.CreatedBy = copyPtr(a.CreatedBy)
	c.FeedbackRef = copyPtr(a.FeedbackRef)
	c.Metadata.Confidence = copyPtr(a.Metadata.Confidence)
	if a.Evidence != nil {
		c.Evidence = &model.Evidence{
			ResponseCount:   a.Evidence.ResponseCount,
			RespondentCount: a.Evidence.RespondentCount,
			ResponseIDs:     copySlice(a.Evidence.ResponseIDs),
			CommentExcerpts: copySlice(a.Evidence.CommentExcerpts),
			ConfidenceScore: a.Evidence.ConfidenceScore,
		}
	}
	if a.AssignmentHistory != nil {
		c.AssignmentHistory = make([]model.AssignmentEntry, len(a.AssignmentHistory))
		for i, e := range a.AssignmentHistory {
			c.AssignmentHistory[i] = model.AssignmentEntry{
				From:   copyPtr(e.From),
				To:     copyPtr(e.To),
				ToTeam: copyPtr(e.ToTeam),
				ByUser: copyPtr(e.ByUser),
				At:     e.At,
				Auto:   e.Auto,
				Note:   copyPtr(e.Note),
			}
		}
	}
	c.TrendData.PreviousSurveyID = copyPtr(a.TrendData.PreviousSurveyID)
	c.TrendData.FirstDetectedAt = copyPtr(a.TrendData.FirstDetectedAt)
	c.TrendData.CalculatedAt = copyPtr(a.TrendData.CalculatedAt)
	c.OverdueNotifiedAt = copyPtr(a.OverdueNotifiedAt)
	c.DeletedAt = copyPtr(a.DeletedAt)
	c.DeletedBy = copyPtr(a.DeletedBy)
	return &c
}

func (r *actionRepository) Create(ctx context.Context, tenantID string, action *model.Action) (*model.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws := r.ensureTenant(tenantID)

	created := copyAction(action)
	if created.ID == "" {
		created.ID = model.NewActionID()
	}
	if _, exists := ws[created.ID]; exists {
		return nil, goerr.Wrap(interfaces.ErrConflict, "action already exists", goerr.V("id", created.ID))
	}

	now := time.Now().UTC()
	created.TenantID = tenantID
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	if created.UpdatedAt.IsZero() {
		created.UpdatedAt = created.CreatedAt
	}
	created.Version = 1

	ws[created.ID] = created
	return copyAction(created), nil
}

// lookup returns the live action or ErrNotFound. Caller must hold the lock.
func (r *actionRepository) lookup(tenantID string, id model.ActionID) (*model.Action, error) {
	ws, exists := r.actions[tenantID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", id))
	}
	action, exists := ws[id]
	if !exists || action.IsDeleted {
		return nil, goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", id))
	}
	return action, nil
}

func (r *actionRepository) Get(ctx context.Context, tenantID string, id model.ActionID) (*model.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	action, err := r.lookup(tenantID, id)
	if err != nil {
		return nil, err
	}
	return copyAction(action), nil
}

func (r *actionRepository) snapshot(tenantID string, match func(a *model.Action) bool) []*model.Action {
	ws := r.actions[tenantID]
	result := make([]*model.Action, 0, len(ws))
	for _, a := range ws {
		if a.IsDeleted {
			continue
		}
		if match == nil || match(a) {
			result = append(result, copyAction(a))
		}
	}
	return result
}

func (r *actionRepository) List(ctx context.Context, tenantID string, filter *model.ActionFilter) (*model.ActionPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return filter.Apply(r.snapshot(tenantID, nil)), nil
}

func (r *actionRepository) Scan(ctx context.Context, tenantID string, filter *model.ActionFilter) ([]*model.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := r.snapshot(tenantID, filter.Match)
	model.SortActions(actions, model.SortByCreatedAt, false)
	return actions, nil
}

func (r *actionRepository) Update(ctx context.Context, tenantID string, action *model.Action) (*model.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.lookup(tenantID, action.ID)
	if err != nil {
		return nil, err
	}
	if existing.Version != action.Version {
		return nil, goerr.Wrap(interfaces.ErrConflict, "action was modified concurrently",
			goerr.V("id", action.ID),
			goerr.V("expected_version", action.Version),
			goerr.V("actual_version", existing.Version))
	}

	updated := copyAction(action)
	updated.TenantID = existing.TenantID
	updated.CreatedAt = existing.CreatedAt
	if updated.UpdatedAt.IsZero() {
		updated.UpdatedAt = time.Now().UTC()
	}
	updated.Version = existing.Version + 1

	r.actions[tenantID][updated.ID] = updated
	return copyAction(updated), nil
}

func (r *actionRepository) SoftDelete(ctx context.Context, tenantID string, id model.ActionID, deletedBy string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.lookup(tenantID, id)
	if err != nil {
		return err
	}

	existing.IsDeleted = true
	existing.DeletedAt = &at
	existing.DeletedBy = &deletedBy
	existing.UpdatedAt = at
	existing.Version++
	return nil
}

func (r *actionRepository) Escalate(ctx context.Context, tenantID string, id model.ActionID, esc *interfaces.EscalationUpdate) (*model.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.lookup(tenantID, id)
	if err != nil {
		return nil, err
	}
	if existing.EscalatedTo != nil || existing.Status == types.ActionStatusResolved {
		return nil, goerr.Wrap(interfaces.ErrConflict, "action is not escalatable",
			goerr.V("id", id), goerr.V("status", existing.Status))
	}

	updated := copyAction(existing)
	applyEscalation(updated, esc)
	r.actions[tenantID][id] = updated
	return copyAction(updated), nil
}

func applyEscalation(a *model.Action, esc *interfaces.EscalationUpdate) {
	target := esc.EscalatedTo
	a.EscalatedTo = &target
	if esc.Priority != nil {
		a.Priority = *esc.Priority
	}
	if esc.Team != nil {
		a.AssignedToTeam = copyPtr(esc.Team)
	}
	a.AppendHistory(esc.Entry)
	a.UpdatedAt = esc.At
	a.Version++
}

func (r *actionRepository) FindEscalationCandidates(ctx context.Context, tenantID string, query *model.EscalationQuery, limit int) ([]*model.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := r.snapshot(tenantID, query.Match)
	model.SortActions(candidates, query.SortKey(), false)
	candidates = truncate(candidates, limit)
	model.SortActions(candidates, model.SortByCreatedAt, false)
	return candidates, nil
}

func (r *actionRepository) ListTrendPending(ctx context.Context, tenantID string, limit int) ([]*model.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pending := r.snapshot(tenantID, func(a *model.Action) bool {
		return a.TrendData.CalculatedAt == nil && a.FeedbackRef != nil
	})
	model.SortActions(pending, model.SortByCreatedAt, false)
	return truncate(pending, limit), nil
}

func (r *actionRepository) ListSimilar(ctx context.Context, tenantID string, query *model.SimilarQuery) ([]*model.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	similar := r.snapshot(tenantID, query.Match)
	sort.Slice(similar, func(i, j int) bool {
		return similar[i].CreatedAt.Before(similar[j].CreatedAt)
	})
	return similar, nil
}

func (r *actionRepository) ListOverdue(ctx context.Context, tenantID string, now time.Time, limit int) ([]*model.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	overdue := r.snapshot(tenantID, func(a *model.Action) bool {
		return a.OverdueNotifiedAt == nil && a.IsOverdue(now)
	})
	model.SortActions(overdue, model.SortByDueDate, false)
	return truncate(overdue, limit), nil
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
