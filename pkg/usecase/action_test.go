package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/feedbackloop/actionflow/pkg/service/realtime"
	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestActionUseCase_CreateAction(t *testing.T) {
	t.Run("manual create sets due date from priority", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		created, err := f.uc.Action.CreateAction(ctx, memberActor("u1", "Sales"), &usecase.CreateActionInput{
			Description: "Fix checkout crash",
			Priority:    types.PriorityHigh,
		})
		gt.NoError(t, err).Required()

		stored, err := f.repo.Action().Get(ctx, tenant1, created.ID)
		gt.NoError(t, err).Required()

		gt.Value(t, stored.TenantID).Equal(tenant1)
		gt.Value(t, stored.Title).Equal("Fix checkout crash")
		gt.Value(t, stored.Status).Equal(types.ActionStatusPending)
		gt.Value(t, stored.Source).Equal(types.ActionSourceManual)
		gt.Bool(t, stored.DueDate.Equal(time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC))).True()
		gt.Value(t, model.Deref(stored.CreatedBy)).Equal("u1")
		gt.Value(t, stored.AssignedTo).Nil()
		gt.Value(t, stored.CompletedAt).Nil()

		gt.Array(t, stored.AssignmentHistory).Length(1).Required()
		entry := stored.AssignmentHistory[0]
		gt.Value(t, entry.To).Nil()
		gt.Value(t, model.Deref(entry.ByUser)).Equal("u1")
		gt.Bool(t, entry.Auto).False()
		gt.Value(t, entry.Note).Nil()
		gt.Bool(t, entry.At.Equal(baseTime)).True()
	})

	t.Run("explicit due date wins", func(t *testing.T) {
		f := newFixture(t)
		due := baseTime.Add(72 * time.Hour)
		created := f.createAction(t, &usecase.CreateActionInput{
			Description: "Call back customer",
			Priority:    types.PriorityLow,
			DueDate:     &due,
		})
		gt.Bool(t, created.DueDate.Equal(due)).True()
	})

	t.Run("long description becomes a truncated title", func(t *testing.T) {
		f := newFixture(t)
		long := strings.Repeat("x", 200) + "\nsecond line"
		created := f.createAction(t, &usecase.CreateActionInput{Description: long, Priority: types.PriorityLow})
		gt.Number(t, len([]rune(created.Title))).Equal(120)
		gt.String(t, created.Title).Contains("...")
	})

	t.Run("created resolved carries completion", func(t *testing.T) {
		f := newFixture(t)
		created := f.createAction(t, &usecase.CreateActionInput{
			Description: "Already handled",
			Priority:    types.PriorityMedium,
			Status:      types.ActionStatusResolved,
		})
		gt.Value(t, created.CompletedAt).NotNil()
		gt.Value(t, model.Deref(created.CompletedBy)).Equal("admin1")
	})

	t.Run("invalid input reports fields", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.uc.Action.CreateAction(context.Background(), adminActor(), &usecase.CreateActionInput{
			Description: "  ",
			Priority:    types.Priority("urgent"),
			Status:      types.ActionStatus("completed"),
		})
		gt.Error(t, err).Is(usecase.ErrValidation)

		var ve *usecase.ValidationError
		gt.Bool(t, errors.As(err, &ve)).True()
		fields := make([]string, 0, len(ve.Fields))
		for _, fe := range ve.Fields {
			fields = append(fields, fe.Field)
		}
		gt.Array(t, fields).Has("description")
		gt.Array(t, fields).Has("priority")
		gt.Array(t, fields).Has("status")
	})

	t.Run("assignee from another tenant is not found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.uc.Action.CreateAction(context.Background(), adminActor(), &usecase.CreateActionInput{
			Description: "Cross tenant",
			Priority:    types.PriorityMedium,
			AssignedTo:  model.Ptr("u9"),
		})
		gt.Error(t, err).Is(usecase.ErrNotFound)
	})

	t.Run("inactive assignee is not found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.uc.Action.CreateAction(context.Background(), adminActor(), &usecase.CreateActionInput{
			Description: "Inactive",
			Priority:    types.PriorityMedium,
			AssignedTo:  model.Ptr("gone"),
		})
		gt.Error(t, err).Is(usecase.ErrNotFound)
	})

	t.Run("platform admin is rejected", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.uc.Action.CreateAction(context.Background(), actorOf(tenant1, "root", types.RoleAdmin), &usecase.CreateActionInput{
			Description: "Should not exist",
			Priority:    types.PriorityMedium,
		})
		gt.Error(t, err).Is(usecase.ErrForbidden)
	})

	t.Run("assignee is notified on every live channel", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.uc.Action.CreateAction(context.Background(), memberActor("u2", "Engineering"), &usecase.CreateActionInput{
			Description: "Review refund policy",
			Priority:    types.PriorityMedium,
			AssignedTo:  model.Ptr("admin1"),
		})
		gt.NoError(t, err).Required()
		f.uc.Wait()

		assigned := f.notificationsOfType(t, "admin1", types.NotificationActionAssigned)
		gt.Array(t, assigned).Length(1).Required()
		gt.Value(t, assigned[0].Reference.ID).Equal(created.ID.String())
		gt.Value(t, model.Deref(assigned[0].TenantID)).Equal(tenant1)

		gt.Array(t, f.publisher.Events(realtime.UserChannel("admin1"))).Length(1)
		gt.Array(t, f.publisher.Events(realtime.TenantChannel(tenant1))).Length(1)
		gt.Array(t, f.slack.Sent("UADMIN1")).Length(1)
	})

	t.Run("feedback populates metadata and evidence", func(t *testing.T) {
		f := newFixture(t)
		f.putFeedback(t, &model.FeedbackAnalysis{
			ID:         "fb1",
			TenantID:   tenant1,
			SurveyID:   "s1",
			ResponseID: "r1",
			Sentiment:  types.SentimentNegative,
			Categories: []string{"Compensation"},
			Summary:    "Pay is below market",
			Confidence: model.Ptr(0.82),
			Comment:    "I am underpaid",
		})

		created := f.createAction(t, &usecase.CreateActionInput{
			Description: "Benchmark salaries",
			Priority:    types.PriorityHigh,
			FeedbackID:  model.Ptr("fb1"),
		})

		gt.Value(t, created.Source).Equal(types.ActionSourceSurveyFeedback)
		gt.Value(t, model.Deref(created.FeedbackRef)).Equal("fb1")
		gt.Value(t, created.Metadata.SurveyID).Equal("s1")
		gt.Value(t, created.Metadata.ResponseID).Equal("r1")
		gt.Value(t, created.Metadata.Sentiment).Equal(types.SentimentNegative)
		gt.Value(t, created.Category).Equal("Compensation")
		gt.Value(t, created.ProblemStatement).Equal("Pay is below market")
		gt.Value(t, created.RootCause.Category).Equal(types.RootCauseCompensation)
		gt.Value(t, created.Evidence).NotNil().Required()
		gt.Value(t, created.Evidence.ConfidenceScore).Equal(82)
		gt.Array(t, created.Evidence.ResponseIDs).Equal([]string{"r1"})
		gt.Array(t, created.Evidence.CommentExcerpts).Length(1)
	})

	t.Run("feedback of another tenant is not found", func(t *testing.T) {
		f := newFixture(t)
		f.putFeedback(t, &model.FeedbackAnalysis{ID: "fb9", TenantID: tenant2, Sentiment: types.SentimentNegative})

		_, err := f.uc.Action.CreateAction(context.Background(), adminActor(), &usecase.CreateActionInput{
			Description: "Leaky",
			Priority:    types.PriorityMedium,
			FeedbackID:  model.Ptr("fb9"),
		})
		gt.Error(t, err).Is(usecase.ErrNotFound)
	})

	t.Run("matching rule auto assigns at create time", func(t *testing.T) {
		f := newFixture(t)
		role := types.RoleCompanyAdmin
		f.putRule(t, &model.EscalationRule{
			Name:       "High to admins",
			IsActive:   true,
			Priority:   10,
			Trigger:    model.RuleTrigger{Type: types.TriggerNoAssignment, ThresholdHours: 1},
			Conditions: model.RuleConditions{Priorities: []types.Priority{types.PriorityHigh}},
			Action:     model.RuleAction{EscalateToRole: &role, AssignToTeam: model.Ptr("Escalations")},
		})

		high, err := f.uc.Action.CreateAction(context.Background(), memberActor("u1", "Sales"), &usecase.CreateActionInput{
			Description: "Data loss report",
			Priority:    types.PriorityHigh,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, model.Deref(high.AssignedTo)).Equal("admin1")
		gt.Value(t, model.Deref(high.AssignedToTeam)).Equal("Escalations")
		gt.Bool(t, high.AutoAssigned).True()
		gt.Array(t, high.AssignmentHistory).Length(1).Required()
		gt.Bool(t, high.AssignmentHistory[0].Auto).True()
		gt.Value(t, model.Deref(high.AssignmentHistory[0].Note)).Equal("Auto-assigned: High to admins")

		medium := f.createAction(t, &usecase.CreateActionInput{Description: "Typo on page", Priority: types.PriorityMedium})
		gt.Value(t, medium.AssignedTo).Nil()
		gt.Bool(t, medium.AutoAssigned).False()
	})
}

func TestActionUseCase_UpdateAction(t *testing.T) {
	setup := func(t *testing.T) (*fixture, *model.Action) {
		f := newFixture(t)
		a := f.createAction(t, &usecase.CreateActionInput{
			Description: "Improve onboarding emails",
			Priority:    types.PriorityMedium,
			AssignedTo:  model.Ptr("u1"),
		})
		f.clock.Advance(time.Hour)
		return f, a
	}

	t.Run("assignee resolves", func(t *testing.T) {
		f, a := setup(t)
		resolved := types.ActionStatusResolved
		updated, err := f.uc.Action.UpdateAction(context.Background(), memberActor("u1", "Sales"), a.ID, &usecase.UpdateActionInput{
			Status:     &resolved,
			Resolution: model.Ptr("Rewrote templates"),
		})
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Status).Equal(types.ActionStatusResolved)
		gt.Value(t, updated.CompletedAt).NotNil().Required()
		gt.Bool(t, updated.CompletedAt.Equal(f.clock.Now())).True()
		gt.Value(t, model.Deref(updated.CompletedBy)).Equal("u1")
		gt.Value(t, updated.Resolution).Equal("Rewrote templates")
		gt.Bool(t, updated.UpdatedAt.Equal(f.clock.Now())).True()

		gt.Array(t, f.notificationsOfType(t, "u1", types.NotificationActionCompleted)).Length(0)
	})

	t.Run("admin resolution notifies the assignee", func(t *testing.T) {
		f, a := setup(t)
		resolved := types.ActionStatusResolved
		_, err := f.uc.Action.UpdateAction(context.Background(), adminActor(), a.ID, &usecase.UpdateActionInput{Status: &resolved})
		gt.NoError(t, err).Required()
		gt.Array(t, f.notificationsOfType(t, "u1", types.NotificationActionCompleted)).Length(1)
	})

	t.Run("status change notifies the assignee", func(t *testing.T) {
		f, a := setup(t)
		next := types.ActionStatusInProgress
		_, err := f.uc.Action.UpdateAction(context.Background(), adminActor(), a.ID, &usecase.UpdateActionInput{Status: &next})
		gt.NoError(t, err).Required()
		gt.Array(t, f.notificationsOfType(t, "u1", types.NotificationActionStatusUpdated)).Length(1)
	})

	t.Run("other members may not update", func(t *testing.T) {
		f, a := setup(t)
		next := types.ActionStatusInProgress
		_, err := f.uc.Action.UpdateAction(context.Background(), memberActor("u2", "Engineering"), a.ID, &usecase.UpdateActionInput{Status: &next})
		gt.Error(t, err).Is(usecase.ErrForbidden)
	})

	t.Run("resolving twice conflicts", func(t *testing.T) {
		f, a := setup(t)
		resolved := types.ActionStatusResolved
		_, err := f.uc.Action.UpdateAction(context.Background(), adminActor(), a.ID, &usecase.UpdateActionInput{Status: &resolved})
		gt.NoError(t, err).Required()
		_, err = f.uc.Action.UpdateAction(context.Background(), adminActor(), a.ID, &usecase.UpdateActionInput{Status: &resolved})
		gt.Error(t, err).Is(usecase.ErrConflict)
	})

	t.Run("only admins reopen", func(t *testing.T) {
		f, a := setup(t)
		ctx := context.Background()
		resolved := types.ActionStatusResolved
		open := types.ActionStatusOpen

		_, err := f.uc.Action.UpdateAction(ctx, memberActor("u1", "Sales"), a.ID, &usecase.UpdateActionInput{Status: &resolved})
		gt.NoError(t, err).Required()

		_, err = f.uc.Action.UpdateAction(ctx, memberActor("u1", "Sales"), a.ID, &usecase.UpdateActionInput{Status: &open})
		gt.Error(t, err).Is(usecase.ErrForbidden)

		reopened, err := f.uc.Action.UpdateAction(ctx, adminActor(), a.ID, &usecase.UpdateActionInput{Status: &open})
		gt.NoError(t, err).Required()
		gt.Value(t, reopened.Status).Equal(types.ActionStatusOpen)
		gt.Value(t, reopened.CompletedAt).Nil()
		gt.Value(t, reopened.CompletedBy).Nil()
	})

	t.Run("team change is recorded in history", func(t *testing.T) {
		f, a := setup(t)
		updated, err := f.uc.Action.UpdateAction(context.Background(), adminActor(), a.ID, &usecase.UpdateActionInput{Team: model.Ptr("Billing")})
		gt.NoError(t, err).Required()
		gt.Value(t, model.Deref(updated.AssignedToTeam)).Equal("Billing")
		gt.Array(t, updated.AssignmentHistory).Length(2).Required()
		last := updated.AssignmentHistory[1]
		gt.Value(t, model.Deref(last.ToTeam)).Equal("Billing")
		gt.Value(t, model.Deref(last.Note)).Equal("Team changed")
		gt.Value(t, model.Deref(last.To)).Equal("u1")
	})

	t.Run("invalid priority", func(t *testing.T) {
		f, a := setup(t)
		bad := types.Priority("critical")
		_, err := f.uc.Action.UpdateAction(context.Background(), adminActor(), a.ID, &usecase.UpdateActionInput{Priority: &bad})
		gt.Error(t, err).Is(usecase.ErrValidation)
	})

	t.Run("action of another tenant is not found", func(t *testing.T) {
		f, a := setup(t)
		next := types.ActionStatusOpen
		_, err := f.uc.Action.UpdateAction(context.Background(), actorOf(tenant2, "admin2", types.RoleCompanyAdmin), a.ID, &usecase.UpdateActionInput{Status: &next})
		gt.Error(t, err).Is(usecase.ErrNotFound)
	})
}

func TestActionUseCase_AssignAction(t *testing.T) {
	t.Run("reassignment appends one entry and notifies", func(t *testing.T) {
		f := newFixture(t)
		a := f.createAction(t, &usecase.CreateActionInput{Description: "Fix billing export", Priority: types.PriorityMedium, AssignedTo: model.Ptr("u1")})

		updated, err := f.uc.Action.AssignAction(context.Background(), adminActor(), a.ID, &usecase.AssignInput{AssignedTo: "u2", Note: "Engineering owns this"})
		gt.NoError(t, err).Required()
		gt.Value(t, model.Deref(updated.AssignedTo)).Equal("u2")
		gt.Array(t, updated.AssignmentHistory).Length(2).Required()

		last := updated.AssignmentHistory[1]
		gt.Value(t, model.Deref(last.From)).Equal("u1")
		gt.Value(t, model.Deref(last.To)).Equal("u2")
		gt.Value(t, model.Deref(last.ByUser)).Equal("admin1")
		gt.Value(t, model.Deref(last.Note)).Equal("Engineering owns this")
		gt.Bool(t, last.Auto).False()

		gt.Array(t, f.notificationsOfType(t, "u2", types.NotificationActionAssigned)).Length(1)
	})

	t.Run("reassigning to the current assignee still records history", func(t *testing.T) {
		f := newFixture(t)
		a := f.createAction(t, &usecase.CreateActionInput{Description: "Same person", Priority: types.PriorityMedium, AssignedTo: model.Ptr("u1")})

		updated, err := f.uc.Action.AssignAction(context.Background(), adminActor(), a.ID, &usecase.AssignInput{AssignedTo: "u1"})
		gt.NoError(t, err).Required()
		gt.Array(t, updated.AssignmentHistory).Length(2)
	})

	t.Run("assignee of another tenant is not found", func(t *testing.T) {
		f := newFixture(t)
		a := f.createAction(t, &usecase.CreateActionInput{Description: "Cross", Priority: types.PriorityMedium})

		_, err := f.uc.Action.AssignAction(context.Background(), adminActor(), a.ID, &usecase.AssignInput{AssignedTo: "u9"})
		gt.Error(t, err).Is(usecase.ErrNotFound)
	})

	t.Run("survey scoped assignment permission", func(t *testing.T) {
		f := newFixture(t)
		f.putSurvey(t, &model.Survey{
			ID:        "s-restricted",
			TenantID:  tenant1,
			CreatedAt: baseTime,
			ActionPermissions: &model.ActionPermissions{
				Enabled:          true,
				AllowedAssigners: []string{"u3"},
			},
		})
		a := f.createAction(t, &usecase.CreateActionInput{
			Description: "Restricted",
			Priority:    types.PriorityMedium,
			Metadata:    &model.ActionMetadata{SurveyID: "s-restricted"},
		})
		ctx := context.Background()

		_, err := f.uc.Action.AssignAction(ctx, memberActor("u2", "Engineering"), a.ID, &usecase.AssignInput{AssignedTo: "u1"})
		gt.Error(t, err).Is(usecase.ErrForbidden)

		_, err = f.uc.Action.AssignAction(ctx, memberActor("u3", "Engineering"), a.ID, &usecase.AssignInput{AssignedTo: "u1"})
		gt.NoError(t, err)

		_, err = f.uc.Action.AssignAction(ctx, adminActor(), a.ID, &usecase.AssignInput{AssignedTo: "u2"})
		gt.NoError(t, err)

		stored, err := f.repo.Action().Get(ctx, tenant1, a.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, stored.AssignmentHistory).Length(3)
	})
}

func TestActionUseCase_Bulk(t *testing.T) {
	t.Run("bulk assign is best effort with one summary notification", func(t *testing.T) {
		f := newFixture(t)
		a1 := f.createAction(t, &usecase.CreateActionInput{Description: "First", Priority: types.PriorityMedium})
		a2 := f.createAction(t, &usecase.CreateActionInput{Description: "Second", Priority: types.PriorityLow})

		results, err := f.uc.Action.BulkAssign(context.Background(), adminActor(),
			[]model.ActionID{a1.ID, a2.ID, "missing"},
			&usecase.AssignInput{AssignedTo: "u1"})
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(3).Required()
		gt.Bool(t, results[0].OK).True()
		gt.Bool(t, results[1].OK).True()
		gt.Bool(t, results[2].OK).False()
		gt.Value(t, results[2].Kind).Equal(usecase.KindNotFound)

		gt.Array(t, f.notificationsOfType(t, "u1", types.NotificationBulkActionAssigned)).Length(1)
		gt.Array(t, f.notificationsOfType(t, "u1", types.NotificationActionAssigned)).Length(0)

		for _, id := range []model.ActionID{a1.ID, a2.ID} {
			stored, err := f.repo.Action().Get(context.Background(), tenant1, id)
			gt.NoError(t, err).Required()
			gt.Value(t, model.Deref(stored.AssignedTo)).Equal("u1")
			gt.Array(t, stored.AssignmentHistory).Length(2)
		}
	})

	t.Run("bulk update reports per item failures", func(t *testing.T) {
		f := newFixture(t)
		mine := f.createAction(t, &usecase.CreateActionInput{Description: "Mine", Priority: types.PriorityMedium, AssignedTo: model.Ptr("u1")})
		theirs := f.createAction(t, &usecase.CreateActionInput{Description: "Theirs", Priority: types.PriorityMedium, AssignedTo: model.Ptr("u2")})

		next := types.ActionStatusInProgress
		results, err := f.uc.Action.BulkUpdate(context.Background(), memberActor("u1", "Sales"),
			[]model.ActionID{mine.ID, theirs.ID},
			&usecase.UpdateActionInput{Status: &next})
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(2).Required()
		gt.Bool(t, results[0].OK).True()
		gt.Value(t, results[1].Kind).Equal(usecase.KindForbidden)
	})

	t.Run("too many items", func(t *testing.T) {
		f := newFixture(t)
		ids := make([]model.ActionID, 101)
		for i := range ids {
			ids[i] = model.ActionID(fmt.Sprintf("a-%d", i))
		}
		_, err := f.uc.Action.BulkAssign(context.Background(), adminActor(), ids, &usecase.AssignInput{AssignedTo: "u1"})
		gt.Error(t, err).Is(usecase.ErrValidation)
	})
}

func TestActionUseCase_Visibility(t *testing.T) {
	t.Run("action of another tenant is not found", func(t *testing.T) {
		f := newFixture(t)
		other, err := f.uc.Action.CreateAction(context.Background(), actorOf(tenant2, "admin2", types.RoleCompanyAdmin), &usecase.CreateActionInput{
			Description: "Tenant two secret",
			Priority:    types.PriorityHigh,
		})
		gt.NoError(t, err).Required()

		_, err = f.uc.Action.GetAction(context.Background(), memberActor("u1", "Sales"), other.ID)
		gt.Error(t, err).Is(usecase.ErrNotFound)
		_, err = f.uc.Action.GetAction(context.Background(), adminActor(), other.ID)
		gt.Error(t, err).Is(usecase.ErrNotFound)
	})

	t.Run("survey viewers restrict get and list", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.putSurvey(t, &model.Survey{
			ID:       "s-private",
			TenantID: tenant1,
			ActionPermissions: &model.ActionPermissions{
				Enabled:        true,
				AllowedViewers: []string{"u3"},
			},
		})
		hidden := f.createAction(t, &usecase.CreateActionInput{
			Description: "Private",
			Priority:    types.PriorityMedium,
			Metadata:    &model.ActionMetadata{SurveyID: "s-private"},
		})
		f.createAction(t, &usecase.CreateActionInput{Description: "Public", Priority: types.PriorityMedium})

		_, err := f.uc.Action.GetAction(ctx, memberActor("u1", "Sales"), hidden.ID)
		gt.Error(t, err).Is(usecase.ErrForbidden)

		got, err := f.uc.Action.GetAction(ctx, memberActor("u3", "Engineering"), hidden.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.ID).Equal(hidden.ID)

		page, err := f.uc.Action.ListActions(ctx, memberActor("u1", "Sales"), nil)
		gt.NoError(t, err).Required()
		gt.Value(t, page.Total).Equal(1)

		page, err = f.uc.Action.ListActions(ctx, adminActor(), nil)
		gt.NoError(t, err).Required()
		gt.Value(t, page.Total).Equal(2)
	})

	t.Run("invalid paging is a validation error", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.uc.Action.ListActions(context.Background(), adminActor(), &model.ActionFilter{Limit: 500})
		gt.Error(t, err).Is(usecase.ErrValidation)

		var ve *usecase.ValidationError
		gt.Bool(t, errors.As(err, &ve)).True()
		gt.Value(t, ve.Fields[0].Field).Equal("filter")
	})

	t.Run("soft deleted actions disappear", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		a := f.createAction(t, &usecase.CreateActionInput{Description: "Obsolete", Priority: types.PriorityLow})

		err := f.uc.Action.DeleteAction(ctx, memberActor("u1", "Sales"), a.ID)
		gt.Error(t, err).Is(usecase.ErrForbidden)

		gt.NoError(t, f.uc.Action.DeleteAction(ctx, adminActor(), a.ID)).Required()

		_, err = f.uc.Action.GetAction(ctx, adminActor(), a.ID)
		gt.Error(t, err).Is(usecase.ErrNotFound)

		page, err := f.uc.Action.ListActions(ctx, adminActor(), nil)
		gt.NoError(t, err).Required()
		gt.Value(t, page.Total).Equal(0)
	})
}

// TestActionInvariants drives random mutations and checks the lifecycle invariants after each one
func TestActionInvariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(20250110, 42))

	assignees := []string{"admin1", "u1", "u2", "u3"}
	teams := []string{"Support", "Billing", "Engineering"}
	statuses := types.AllActionStatuses()

	ids := make([]model.ActionID, 0, 5)
	for i := range 5 {
		a := f.createAction(t, &usecase.CreateActionInput{
			Description: fmt.Sprintf("Random action %d", i),
			Priority:    types.PriorityMedium,
		})
		ids = append(ids, a.ID)
	}

	for step := range 300 {
		id := ids[rng.IntN(len(ids))]
		before, err := f.repo.Action().Get(ctx, tenant1, id)
		gt.NoError(t, err).Required()
		f.clock.Advance(time.Minute)

		switch rng.IntN(3) {
		case 0:
			to := assignees[rng.IntN(len(assignees))]
			after, err := f.uc.Action.AssignAction(ctx, adminActor(), id, &usecase.AssignInput{AssignedTo: to})
			gt.NoError(t, err).Required()
			gt.Array(t, after.AssignmentHistory).Length(len(before.AssignmentHistory) + 1).Required()
			last := after.AssignmentHistory[len(after.AssignmentHistory)-1]
			gt.Value(t, model.Deref(last.To)).Equal(model.Deref(after.AssignedTo))
			gt.Value(t, model.Deref(after.AssignedTo)).Equal(to)

		case 1:
			next := statuses[rng.IntN(len(statuses))]
			_, err := f.uc.Action.UpdateAction(ctx, adminActor(), id, &usecase.UpdateActionInput{Status: &next})
			if before.Status == types.ActionStatusResolved && next == types.ActionStatusResolved {
				gt.Error(t, err).Is(usecase.ErrConflict)
			} else {
				gt.NoError(t, err).Required()
			}

		case 2:
			team := teams[rng.IntN(len(teams))]
			_, err := f.uc.Action.UpdateAction(ctx, adminActor(), id, &usecase.UpdateActionInput{Team: &team})
			gt.NoError(t, err).Required()
		}

		after, err := f.repo.Action().Get(ctx, tenant1, id)
		gt.NoError(t, err).Required()
		gt.Value(t, after.TenantID).Equal(tenant1)
		if after.Status == types.ActionStatusResolved && after.CompletedAt == nil {
			t.Fatalf("step %d: resolved action %s has no completedAt", step, id)
		}
	}

	all, err := f.repo.Action().Scan(ctx, tenant1, &model.ActionFilter{})
	gt.NoError(t, err).Required()
	gt.Array(t, all).Length(len(ids))
	for _, a := range all {
		gt.Value(t, a.TenantID).Equal(tenant1)
		if a.Status == types.ActionStatusResolved {
			gt.Value(t, a.CompletedAt).NotNil()
		}
	}
}
