package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

func sampleAction(title string) *model.Action {
	return &model.Action{
		Title:       title,
		Description: title + " description",
		Priority:    types.PriorityMedium,
		Status:      types.ActionStatusPending,
		Source:      types.ActionSourceManual,
		CreatedAt:   refTime,
		UpdatedAt:   refTime,
		DueDate:     refTime.Add(7 * 24 * time.Hour),
		AssignmentHistory: []model.AssignmentEntry{
			{ByUser: model.Ptr("u1"), At: refTime},
		},
	}
}

func runActionRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	t.Run("Create assigns ID, tenant and version", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		input := sampleAction("Fix checkout crash")
		input.TenantID = "somebody-else"
		created, err := repo.Action().Create(ctx, tenantID, input)
		gt.NoError(t, err).Required()

		gt.Value(t, created.ID).NotEqual(model.ActionID(""))
		gt.Value(t, created.TenantID).Equal(tenantID)
		gt.Value(t, created.Version).Equal(int64(1))
		gt.Bool(t, created.CreatedAt.Equal(refTime)).True()

		got, err := repo.Action().Get(ctx, tenantID, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Title).Equal("Fix checkout crash")
		gt.Array(t, got.AssignmentHistory).Length(1)
	})

	t.Run("Get from another tenant is not found", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		t1, t2 := newTenantID(), newTenantID()

		created, err := repo.Action().Create(ctx, t2, sampleAction("foreign"))
		gt.NoError(t, err).Required()

		_, err = repo.Action().Get(ctx, t1, created.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("Update checks version and keeps tenant", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		created, err := repo.Action().Create(ctx, tenantID, sampleAction("versioned"))
		gt.NoError(t, err).Required()

		created.Status = types.ActionStatusOpen
		created.TenantID = "hijack"
		created.UpdatedAt = refTime.Add(time.Hour)
		updated, err := repo.Action().Update(ctx, tenantID, created)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Version).Equal(int64(2))
		gt.Value(t, updated.TenantID).Equal(tenantID)
		gt.Value(t, updated.Status).Equal(types.ActionStatusOpen)

		// created still carries version 1
		created.Status = types.ActionStatusInProgress
		_, err = repo.Action().Update(ctx, tenantID, created)
		gt.Error(t, err).Is(interfaces.ErrConflict)
	})

	t.Run("SoftDelete hides the action", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		created, err := repo.Action().Create(ctx, tenantID, sampleAction("to delete"))
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Action().SoftDelete(ctx, tenantID, created.ID, "admin", refTime)).Required()

		_, err = repo.Action().Get(ctx, tenantID, created.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		filter := &model.ActionFilter{}
		gt.NoError(t, filter.Normalize())
		page, err := repo.Action().List(ctx, tenantID, filter)
		gt.NoError(t, err).Required()
		gt.Value(t, page.Total).Equal(0)

		err = repo.Action().SoftDelete(ctx, tenantID, created.ID, "admin", refTime)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("List filters and pages", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		for i, p := range []types.Priority{types.PriorityHigh, types.PriorityMedium, types.PriorityHigh} {
			a := sampleAction("item")
			a.Priority = p
			a.CreatedAt = refTime.Add(time.Duration(i) * time.Hour)
			_, err := repo.Action().Create(ctx, tenantID, a)
			gt.NoError(t, err).Required()
		}

		filter := &model.ActionFilter{Priorities: []types.Priority{types.PriorityHigh}, Limit: 1}
		gt.NoError(t, filter.Normalize())
		page, err := repo.Action().List(ctx, tenantID, filter)
		gt.NoError(t, err).Required()
		gt.Value(t, page.Total).Equal(2)
		gt.Array(t, page.Items).Length(1)
		gt.Bool(t, page.Items[0].CreatedAt.Equal(refTime.Add(2*time.Hour))).True()
	})

	t.Run("Escalate is applied at most once", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		created, err := repo.Action().Create(ctx, tenantID, sampleAction("escalate me"))
		gt.NoError(t, err).Required()

		esc := &interfaces.EscalationUpdate{
			EscalatedTo: "boss",
			Priority:    model.Ptr(types.PriorityHigh),
			Entry: model.AssignmentEntry{
				To:   model.Ptr("boss"),
				At:   refTime,
				Auto: true,
				Note: model.Ptr("Auto-escalated: SLA"),
			},
			At: refTime,
		}
		escalated, err := repo.Action().Escalate(ctx, tenantID, created.ID, esc)
		gt.NoError(t, err).Required()
		gt.Value(t, model.Deref(escalated.EscalatedTo)).Equal("boss")
		gt.Value(t, escalated.Priority).Equal(types.PriorityHigh)
		gt.Array(t, escalated.AssignmentHistory).Length(2)

		_, err = repo.Action().Escalate(ctx, tenantID, created.ID, esc)
		gt.Error(t, err).Is(interfaces.ErrConflict)

		got, err := repo.Action().Get(ctx, tenantID, created.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, got.AssignmentHistory).Length(2)
	})

	t.Run("FindEscalationCandidates honours trigger and limit", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		for i := 0; i < 3; i++ {
			a := sampleAction("late")
			a.DueDate = refTime.Add(-72 * time.Hour)
			a.CreatedAt = refTime.Add(-time.Duration(100-i) * time.Hour)
			_, err := repo.Action().Create(ctx, tenantID, a)
			gt.NoError(t, err).Required()
		}
		onTime := sampleAction("on time")
		_, err := repo.Action().Create(ctx, tenantID, onTime)
		gt.NoError(t, err).Required()

		q := &model.EscalationQuery{Trigger: types.TriggerSLABreach, Cutoff: refTime.Add(-24 * time.Hour)}
		candidates, err := repo.Action().FindEscalationCandidates(ctx, tenantID, q, 2)
		gt.NoError(t, err).Required()
		gt.Array(t, candidates).Length(2)
		gt.Bool(t, candidates[0].CreatedAt.Before(candidates[1].CreatedAt)).True()
	})

	t.Run("FindEscalationCandidates picks the longest breached first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		recent := sampleAction("recently breached")
		recent.CreatedAt = refTime.Add(-200 * time.Hour)
		recent.DueDate = refTime.Add(-30 * time.Hour)
		_, err := repo.Action().Create(ctx, tenantID, recent)
		gt.NoError(t, err).Required()

		longAgo := sampleAction("long breached")
		longAgo.CreatedAt = refTime.Add(-100 * time.Hour)
		longAgo.DueDate = refTime.Add(-90 * time.Hour)
		_, err = repo.Action().Create(ctx, tenantID, longAgo)
		gt.NoError(t, err).Required()

		resolved := sampleAction("resolved")
		resolved.Status = types.ActionStatusResolved
		resolved.DueDate = refTime.Add(-300 * time.Hour)
		_, err = repo.Action().Create(ctx, tenantID, resolved)
		gt.NoError(t, err).Required()

		q := &model.EscalationQuery{Trigger: types.TriggerSLABreach, Cutoff: refTime.Add(-24 * time.Hour)}
		candidates, err := repo.Action().FindEscalationCandidates(ctx, tenantID, q, 1)
		gt.NoError(t, err).Required()
		gt.Array(t, candidates).Length(1).Required()
		gt.Value(t, candidates[0].Title).Equal("long breached")

		candidates, err = repo.Action().FindEscalationCandidates(ctx, tenantID, q, 10)
		gt.NoError(t, err).Required()
		gt.Array(t, candidates).Length(2).Required()
		gt.Value(t, candidates[0].Title).Equal("recently breached")
	})

	t.Run("FindEscalationCandidates pages past rule condition misses", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		for i := 0; i < 3; i++ {
			a := sampleAction("other category")
			a.Category = "Billing"
			a.DueDate = refTime.Add(-time.Duration(200-i) * time.Hour)
			_, err := repo.Action().Create(ctx, tenantID, a)
			gt.NoError(t, err).Required()
		}
		wanted := sampleAction("wanted")
		wanted.Category = "Checkout"
		wanted.DueDate = refTime.Add(-48 * time.Hour)
		_, err := repo.Action().Create(ctx, tenantID, wanted)
		gt.NoError(t, err).Required()

		q := &model.EscalationQuery{
			Trigger:    types.TriggerSLABreach,
			Cutoff:     refTime.Add(-24 * time.Hour),
			Categories: []string{"Checkout"},
		}
		candidates, err := repo.Action().FindEscalationCandidates(ctx, tenantID, q, 2)
		gt.NoError(t, err).Required()
		gt.Array(t, candidates).Length(1).Required()
		gt.Value(t, candidates[0].Title).Equal("wanted")
	})

	t.Run("ListTrendPending requires feedback and no trend", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		withFeedback := sampleAction("with feedback")
		withFeedback.FeedbackRef = model.Ptr("f1")
		_, err := repo.Action().Create(ctx, tenantID, withFeedback)
		gt.NoError(t, err).Required()

		computed := sampleAction("computed")
		computed.FeedbackRef = model.Ptr("f2")
		computed.TrendData.CalculatedAt = model.Ptr(refTime)
		_, err = repo.Action().Create(ctx, tenantID, computed)
		gt.NoError(t, err).Required()

		_, err = repo.Action().Create(ctx, tenantID, sampleAction("manual"))
		gt.NoError(t, err).Required()

		pending, err := repo.Action().ListTrendPending(ctx, tenantID, 10)
		gt.NoError(t, err).Required()
		gt.Array(t, pending).Length(1)
		gt.Value(t, pending[0].Title).Equal("with feedback")
	})

	t.Run("ListSimilar matches category within survey", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		for _, c := range []struct{ category, survey string }{
			{"Compensation", "s1"},
			{"compensation", "s1"},
			{"compensation", "s2"},
			{"culture", "s1"},
		} {
			a := sampleAction(c.category)
			a.Category = c.category
			a.Metadata.SurveyID = c.survey
			_, err := repo.Action().Create(ctx, tenantID, a)
			gt.NoError(t, err).Required()
		}

		similar, err := repo.Action().ListSimilar(ctx, tenantID, &model.SimilarQuery{Category: "compensation", SurveyID: "s1"})
		gt.NoError(t, err).Required()
		gt.Array(t, similar).Length(2)
	})

	t.Run("ListOverdue skips resolved and notified", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		late := sampleAction("late")
		late.DueDate = refTime.Add(-time.Hour)
		_, err := repo.Action().Create(ctx, tenantID, late)
		gt.NoError(t, err).Required()

		resolved := sampleAction("resolved")
		resolved.DueDate = refTime.Add(-time.Hour)
		resolved.Status = types.ActionStatusResolved
		resolved.CompletedAt = model.Ptr(refTime)
		_, err = repo.Action().Create(ctx, tenantID, resolved)
		gt.NoError(t, err).Required()

		notified := sampleAction("notified")
		notified.DueDate = refTime.Add(-time.Hour)
		notified.OverdueNotifiedAt = model.Ptr(refTime)
		_, err = repo.Action().Create(ctx, tenantID, notified)
		gt.NoError(t, err).Required()

		overdue, err := repo.Action().ListOverdue(ctx, tenantID, refTime, 10)
		gt.NoError(t, err).Required()
		gt.Array(t, overdue).Length(1)
		gt.Value(t, overdue[0].Title).Equal("late")
	})
}
