package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestOverdueUseCase_Run(t *testing.T) {
	t.Run("assignee is told once", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		a := f.createAction(t, &usecase.CreateActionInput{
			Description: "Ship the fix",
			Priority:    types.PriorityHigh,
			AssignedTo:  model.Ptr("u1"),
		})

		f.clock.Advance(25 * time.Hour)
		report, err := f.uc.Overdue.Run(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, report.Overdue).Equal(1)
		gt.Value(t, report.Notified).Equal(1)

		overdue := f.notificationsOfType(t, "u1", types.NotificationActionOverdue)
		gt.Array(t, overdue).Length(1).Required()
		gt.Value(t, overdue[0].Priority).Equal(types.NotificationPriorityUrgent)

		stored, err := f.repo.Action().Get(ctx, tenant1, a.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, stored.OverdueNotifiedAt).NotNil()
		gt.Bool(t, stored.UpdatedAt.Equal(a.UpdatedAt)).True()

		f.clock.Advance(time.Hour)
		report, err = f.uc.Overdue.Run(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, report.Notified).Equal(0)
		gt.Array(t, f.notificationsOfType(t, "u1", types.NotificationActionOverdue)).Length(1)
	})

	t.Run("new due date re-arms the reminder", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		a := f.createAction(t, &usecase.CreateActionInput{Description: "Renew cert", Priority: types.PriorityHigh, AssignedTo: model.Ptr("u1")})

		f.clock.Advance(25 * time.Hour)
		_, err := f.uc.Overdue.Run(ctx)
		gt.NoError(t, err).Required()

		due := f.clock.Now().Add(time.Hour)
		_, err = f.uc.Action.UpdateAction(ctx, adminActor(), a.ID, &usecase.UpdateActionInput{DueDate: &due})
		gt.NoError(t, err).Required()

		f.clock.Advance(2 * time.Hour)
		report, err := f.uc.Overdue.Run(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, report.Notified).Equal(1)
		gt.Array(t, f.notificationsOfType(t, "u1", types.NotificationActionOverdue)).Length(2)
	})

	t.Run("team members are told when nobody is assigned", func(t *testing.T) {
		f := newFixture(t)
		f.createAction(t, &usecase.CreateActionInput{Description: "Team work", Priority: types.PriorityHigh, Team: model.Ptr("Support")})

		f.clock.Advance(25 * time.Hour)
		report, err := f.uc.Overdue.Run(context.Background())
		gt.NoError(t, err).Required()
		gt.Value(t, report.Notified).Equal(2)
		gt.Array(t, f.notificationsOfType(t, "u1", types.NotificationActionOverdue)).Length(1)
		gt.Array(t, f.notificationsOfType(t, "u3", types.NotificationActionOverdue)).Length(1)
	})

	t.Run("company admins are the last resort", func(t *testing.T) {
		f := newFixture(t)
		f.createAction(t, &usecase.CreateActionInput{Description: "Nobody's", Priority: types.PriorityHigh})

		f.clock.Advance(25 * time.Hour)
		_, err := f.uc.Overdue.Run(context.Background())
		gt.NoError(t, err).Required()
		gt.Array(t, f.notificationsOfType(t, "admin1", types.NotificationActionOverdue)).Length(1)
		gt.Array(t, f.notificationsOfType(t, "admin2", types.NotificationActionOverdue)).Length(0)
	})

	t.Run("resolved actions are never overdue", func(t *testing.T) {
		f := newFixture(t)
		f.createAction(t, &usecase.CreateActionInput{Description: "Done", Priority: types.PriorityHigh, Status: types.ActionStatusResolved})

		f.clock.Advance(48 * time.Hour)
		report, err := f.uc.Overdue.Run(context.Background())
		gt.NoError(t, err).Required()
		gt.Value(t, report.Overdue).Equal(0)
	})
}
