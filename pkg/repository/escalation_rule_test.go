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

func runEscalationRuleRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	newRule := func(name string, priority int, active bool) *model.EscalationRule {
		return &model.EscalationRule{
			Name:     name,
			IsActive: active,
			Priority: priority,
			Trigger:  model.RuleTrigger{Type: types.TriggerSLABreach, ThresholdHours: 24},
			Action:   model.RuleAction{EscalateToRole: model.Ptr(types.RoleCompanyAdmin)},
		}
	}

	t.Run("List returns active rules by descending priority", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		for _, r := range []*model.EscalationRule{
			newRule("low", 1, true),
			newRule("high", 10, true),
			newRule("inactive", 100, false),
		} {
			_, err := repo.EscalationRule().Create(ctx, tenantID, r)
			gt.NoError(t, err).Required()
		}

		active, err := repo.EscalationRule().List(ctx, tenantID, true)
		gt.NoError(t, err).Required()
		gt.Array(t, active).Length(2)
		gt.Value(t, active[0].Name).Equal("high")
		gt.Value(t, active[1].Name).Equal("low")

		all, err := repo.EscalationRule().List(ctx, tenantID, false)
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(3)
		gt.Value(t, all[0].Name).Equal("inactive")
	})

	t.Run("RecordRun updates stats only when escalated", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		created, err := repo.EscalationRule().Create(ctx, tenantID, newRule("sla", 1, true))
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.EscalationRule().RecordRun(ctx, tenantID, created.ID, refTime, 0)).Required()
		got, err := repo.EscalationRule().Get(ctx, tenantID, created.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, got.LastRunAt.Equal(refTime)).True()
		gt.Value(t, got.Stats.TotalEscalations).Equal(0)
		gt.Value(t, got.Stats.LastEscalationAt).Nil()

		later := refTime.Add(time.Hour)
		gt.NoError(t, repo.EscalationRule().RecordRun(ctx, tenantID, created.ID, later, 3)).Required()
		got, err = repo.EscalationRule().Get(ctx, tenantID, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Stats.TotalEscalations).Equal(3)
		gt.Bool(t, got.Stats.LastEscalationAt.Equal(later)).True()
	})

	t.Run("Update keeps stats recorded by runs", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		created, err := repo.EscalationRule().Create(ctx, tenantID, newRule("sla", 1, true))
		gt.NoError(t, err).Required()

		// a tick records a run after the admin loaded the rule
		gt.NoError(t, repo.EscalationRule().RecordRun(ctx, tenantID, created.ID, refTime, 2)).Required()

		created.Name = "renamed"
		created.Priority = 5
		created.Stats = model.RuleStats{}
		created.LastRunAt = nil
		updated, err := repo.EscalationRule().Update(ctx, tenantID, created)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Name).Equal("renamed")
		gt.Value(t, updated.Priority).Equal(5)
		gt.Value(t, updated.Stats.TotalEscalations).Equal(2)
		gt.Value(t, updated.LastRunAt).NotNil().Required()
		gt.Bool(t, updated.LastRunAt.Equal(refTime)).True()

		got, err := repo.EscalationRule().Get(ctx, tenantID, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Stats.TotalEscalations).Equal(2)
		gt.Value(t, got.Name).Equal("renamed")
	})

	t.Run("Update of a missing rule", func(t *testing.T) {
		repo := newRepo(t)
		rule := newRule("ghost", 1, true)
		rule.ID = model.EscalationRuleID("missing")
		_, err := repo.EscalationRule().Update(context.Background(), newTenantID(), rule)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("Update and Delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		created, err := repo.EscalationRule().Create(ctx, tenantID, newRule("old", 1, true))
		gt.NoError(t, err).Required()

		created.Name = "new"
		updated, err := repo.EscalationRule().Update(ctx, tenantID, created)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Name).Equal("new")

		gt.NoError(t, repo.EscalationRule().Delete(ctx, tenantID, created.ID)).Required()
		_, err = repo.EscalationRule().Get(ctx, tenantID, created.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		err = repo.EscalationRule().Delete(ctx, tenantID, created.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})
}
