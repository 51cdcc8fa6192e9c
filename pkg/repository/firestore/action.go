package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type actionRepository struct {
	client *firestore.Client
	names  *collections
}

func (r *actionRepository) Create(ctx context.Context, tenantID string, action *model.Action) (*model.Action, error) {
	created := *action
	if created.ID == "" {
		created.ID = model.NewActionID()
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

	docRef := r.names.actions(tenantID).Doc(string(created.ID))
	if _, err := docRef.Create(ctx, &created); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(interfaces.ErrConflict, "action already exists", goerr.V("id", created.ID))
		}
		return nil, goerr.Wrap(err, "failed to create action", goerr.V("id", created.ID))
	}

	return &created, nil
}

func decodeAction(doc *firestore.DocumentSnapshot, id model.ActionID) (*model.Action, error) {
	var action model.Action
	if err := doc.DataTo(&action); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal action", goerr.V("id", id))
	}
	if action.IsDeleted {
		return nil, goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", id))
	}
	return &action, nil
}

func (r *actionRepository) Get(ctx context.Context, tenantID string, id model.ActionID) (*model.Action, error) {
	doc, err := r.names.actions(tenantID).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get action", goerr.V("id", id))
	}
	return decodeAction(doc, id)
}

// baseQuery pushes simple equality filters down to Firestore; the rest is applied in process
func (r *actionRepository) baseQuery(tenantID string, filter *model.ActionFilter) firestore.Query {
	q := r.names.actions(tenantID).Where("IsDeleted", "==", false)
	if len(filter.Statuses) == 1 {
		q = q.Where("Status", "==", string(filter.Statuses[0]))
	}
	if len(filter.Priorities) == 1 {
		q = q.Where("Priority", "==", string(filter.Priorities[0]))
	}
	if filter.AssignedTo != nil {
		q = q.Where("AssignedTo", "==", *filter.AssignedTo)
	}
	return q
}

func (r *actionRepository) List(ctx context.Context, tenantID string, filter *model.ActionFilter) (*model.ActionPage, error) {
	actions, err := collect[model.Action](r.baseQuery(tenantID, filter).Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list actions", goerr.V("tenant_id", tenantID))
	}
	return filter.Apply(actions), nil
}

func (r *actionRepository) Scan(ctx context.Context, tenantID string, filter *model.ActionFilter) ([]*model.Action, error) {
	actions, err := collect[model.Action](r.baseQuery(tenantID, filter).Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to scan actions", goerr.V("tenant_id", tenantID))
	}

	matched := make([]*model.Action, 0, len(actions))
	for _, a := range actions {
		if filter.Match(a) {
			matched = append(matched, a)
		}
	}
	model.SortActions(matched, model.SortByCreatedAt, false)
	return matched, nil
}

// mutate runs fn on the live action inside a transaction and writes the result back
func (r *actionRepository) mutate(ctx context.Context, tenantID string, id model.ActionID, fn func(current *model.Action) (*model.Action, error)) (*model.Action, error) {
	docRef := r.names.actions(tenantID).Doc(string(id))

	var result *model.Action
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", id))
			}
			return goerr.Wrap(err, "failed to get action", goerr.V("id", id))
		}

		current, err := decodeAction(doc, id)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		next.Version = current.Version + 1

		if err := tx.Set(docRef, next); err != nil {
			return goerr.Wrap(err, "failed to write action", goerr.V("id", id))
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *actionRepository) Update(ctx context.Context, tenantID string, action *model.Action) (*model.Action, error) {
	return r.mutate(ctx, tenantID, action.ID, func(current *model.Action) (*model.Action, error) {
		if current.Version != action.Version {
			return nil, goerr.Wrap(interfaces.ErrConflict, "action was modified concurrently",
				goerr.V("id", action.ID),
				goerr.V("expected_version", action.Version),
				goerr.V("actual_version", current.Version))
		}

		updated := *action
		updated.TenantID = current.TenantID
		updated.CreatedAt = current.CreatedAt
		if updated.UpdatedAt.IsZero() {
			updated.UpdatedAt = time.Now().UTC()
		}
		return &updated, nil
	})
}

func (r *actionRepository) SoftDelete(ctx context.Context, tenantID string, id model.ActionID, deletedBy string, at time.Time) error {
	_, err := r.mutate(ctx, tenantID, id, func(current *model.Action) (*model.Action, error) {
		current.IsDeleted = true
		current.DeletedAt = &at
		current.DeletedBy = &deletedBy
		current.UpdatedAt = at
		return current, nil
	})
	return err
}

func (r *actionRepository) Escalate(ctx context.Context, tenantID string, id model.ActionID, esc *interfaces.EscalationUpdate) (*model.Action, error) {
	return r.mutate(ctx, tenantID, id, func(current *model.Action) (*model.Action, error) {
		if current.EscalatedTo != nil || current.Status == types.ActionStatusResolved {
			return nil, goerr.Wrap(interfaces.ErrConflict, "action is not escalatable",
				goerr.V("id", id), goerr.V("status", current.Status))
		}

		target := esc.EscalatedTo
		current.EscalatedTo = &target
		if esc.Priority != nil {
			current.Priority = *esc.Priority
		}
		if esc.Team != nil {
			team := *esc.Team
			current.AssignedToTeam = &team
		}
		current.AppendHistory(esc.Entry)
		current.UpdatedAt = esc.At
		return current, nil
	})
}

// triggerField is the timestamp each trigger type compares against its cutoff
func triggerField(trigger types.TriggerType) string {
	switch trigger {
	case types.TriggerSLABreach:
		return "DueDate"
	case types.TriggerNoProgress:
		return "UpdatedAt"
	case types.TriggerHighPriorityStale, types.TriggerNoAssignment:
		return "CreatedAt"
	default:
		return "CreatedAt"
	}
}

func (r *actionRepository) FindEscalationCandidates(ctx context.Context, tenantID string, query *model.EscalationQuery, limit int) ([]*model.Action, error) {
	if limit <= 0 {
		limit = defaultCandidatePage
	}

	statuses := make([]string, 0, 3)
	for _, st := range query.Statuses() {
		statuses = append(statuses, string(st))
	}

	field := triggerField(query.Trigger)
	base := r.names.actions(tenantID).
		Where("IsDeleted", "==", false).
		Where("EscalatedTo", "==", nil).
		Where("Status", "in", statuses).
		Where(field, "<", query.Cutoff)
	if query.Trigger == types.TriggerHighPriorityStale {
		base = base.Where("Priority", "==", string(types.PriorityHigh))
	}
	base = base.OrderBy(field, firestore.Asc).OrderBy("CreatedAt", firestore.Asc).Limit(limit)

	// Rule conditions are matched in process, so keep paging until limit
	// candidates are found or the query is exhausted
	candidates := make([]*model.Action, 0, limit)
	var cursor *firestore.DocumentSnapshot
	for len(candidates) < limit {
		q := base
		if cursor != nil {
			q = q.StartAfter(cursor)
		}

		page, last, err := collectPage[model.Action](q.Documents(ctx))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query escalation candidates",
				goerr.V("tenant_id", tenantID), goerr.V("trigger", query.Trigger))
		}
		for _, a := range page {
			if len(candidates) < limit && query.Match(a) {
				candidates = append(candidates, a)
			}
		}
		if len(page) < limit {
			break
		}
		cursor = last
	}

	model.SortActions(candidates, model.SortByCreatedAt, false)
	return candidates, nil
}

func (r *actionRepository) ListTrendPending(ctx context.Context, tenantID string, limit int) ([]*model.Action, error) {
	iter := r.names.actions(tenantID).
		Where("IsDeleted", "==", false).
		Where("TrendData.CalculatedAt", "==", nil).
		Documents(ctx)

	actions, err := collect[model.Action](iter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query trend pending actions", goerr.V("tenant_id", tenantID))
	}

	pending := make([]*model.Action, 0, len(actions))
	for _, a := range actions {
		if a.FeedbackRef != nil {
			pending = append(pending, a)
		}
	}
	model.SortActions(pending, model.SortByCreatedAt, false)
	return truncate(pending, limit), nil
}

func (r *actionRepository) ListSimilar(ctx context.Context, tenantID string, query *model.SimilarQuery) ([]*model.Action, error) {
	iter := r.names.actions(tenantID).
		Where("IsDeleted", "==", false).
		Where("Metadata.SurveyID", "==", query.SurveyID).
		Documents(ctx)

	actions, err := collect[model.Action](iter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query similar actions",
			goerr.V("tenant_id", tenantID), goerr.V("survey_id", query.SurveyID))
	}

	similar := make([]*model.Action, 0, len(actions))
	for _, a := range actions {
		if query.Match(a) {
			similar = append(similar, a)
		}
	}
	model.SortActions(similar, model.SortByCreatedAt, false)
	return similar, nil
}

func (r *actionRepository) ListOverdue(ctx context.Context, tenantID string, now time.Time, limit int) ([]*model.Action, error) {
	iter := r.names.actions(tenantID).
		Where("OverdueNotifiedAt", "==", nil).
		Where("DueDate", "<", now).
		Documents(ctx)

	actions, err := collect[model.Action](iter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query overdue actions", goerr.V("tenant_id", tenantID))
	}

	overdue := make([]*model.Action, 0, len(actions))
	for _, a := range actions {
		if !a.IsDeleted && a.IsOverdue(now) {
			overdue = append(overdue, a)
		}
	}
	model.SortActions(overdue, model.SortByDueDate, false)
	return truncate(overdue, limit), nil
}

const defaultCandidatePage = 100

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
