package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
)

func runDirectoryRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	t.Run("User lookups are tenant scoped", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		t1, t2 := newTenantID(), newTenantID()
		prefix := uuid.New().String()[:8]

		users := []*model.User{
			{ID: prefix + "-b", TenantID: t1, Role: types.RoleCompanyAdmin, IsActive: true, CreatedAt: refTime},
			{ID: prefix + "-a", TenantID: t1, Role: types.RoleCompanyAdmin, IsActive: true, CreatedAt: refTime},
			{ID: prefix + "-c", TenantID: t1, Role: types.RoleMember, IsActive: true, Teams: []string{"ops"}, CreatedAt: refTime.Add(-time.Hour)},
			{ID: prefix + "-d", TenantID: t1, Role: types.RoleCompanyAdmin, IsActive: false, CreatedAt: refTime.Add(-2 * time.Hour)},
			{ID: prefix + "-e", TenantID: t2, Role: types.RoleCompanyAdmin, IsActive: true, CreatedAt: refTime.Add(-3 * time.Hour)},
		}
		for _, u := range users {
			gt.NoError(t, repo.User().Put(ctx, u)).Required()
		}

		_, err := repo.User().Get(ctx, t1, prefix+"-e")
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		admins, err := repo.User().List(ctx, t1, model.UserFilter{Role: model.Ptr(types.RoleCompanyAdmin), ActiveOnly: true})
		gt.NoError(t, err).Required()
		gt.Array(t, admins).Length(2)
		gt.Value(t, admins[0].ID).Equal(prefix + "-a")

		team, err := repo.User().List(ctx, t1, model.UserFilter{Team: "ops"})
		gt.NoError(t, err).Required()
		gt.Array(t, team).Length(1)
	})

	t.Run("Survey previous lookup", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		for i, id := range []string{"s1", "s2", "s3"} {
			gt.NoError(t, repo.Survey().Put(ctx, &model.Survey{
				ID:        id,
				TenantID:  tenantID,
				CreatedAt: refTime.Add(time.Duration(i) * 24 * time.Hour),
			})).Required()
		}

		prev, err := repo.Survey().GetPrevious(ctx, tenantID, refTime.Add(48*time.Hour))
		gt.NoError(t, err).Required()
		gt.Value(t, prev.ID).Equal("s2")

		_, err = repo.Survey().GetPrevious(ctx, tenantID, refTime)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("Feedback and response lookups", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		tenantID := newTenantID()

		gt.NoError(t, repo.Feedback().Put(ctx, &model.FeedbackAnalysis{
			ID:         "f1",
			TenantID:   tenantID,
			ResponseID: "r1",
			Sentiment:  types.SentimentNegative,
			Categories: []string{"pay"},
		})).Required()
		gt.NoError(t, repo.SurveyResponse().Put(ctx, &model.SurveyResponse{
			ID:       "r1",
			TenantID: tenantID,
			SurveyID: "s1",
		})).Required()

		f, err := repo.Feedback().Get(ctx, tenantID, "f1")
		gt.NoError(t, err).Required()
		gt.Value(t, f.Sentiment).Equal(types.SentimentNegative)

		_, err = repo.Feedback().Get(ctx, newTenantID(), "f1")
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		resp, err := repo.SurveyResponse().Get(ctx, tenantID, "r1")
		gt.NoError(t, err).Required()
		gt.Value(t, resp.SurveyID).Equal("s1")
	})

	t.Run("Tenant registry lists active tenants", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		active, inactive := newTenantID(), newTenantID()

		gt.NoError(t, repo.Tenant().Put(ctx, &model.Tenant{ID: active, Name: "A", IsActive: true})).Required()
		gt.NoError(t, repo.Tenant().Put(ctx, &model.Tenant{ID: inactive, Name: "B"})).Required()

		tenants, err := repo.Tenant().ListActive(ctx)
		gt.NoError(t, err).Required()

		ids := make(map[string]bool)
		for _, tn := range tenants {
			ids[tn.ID] = true
		}
		gt.Bool(t, ids[active]).True()
		gt.Bool(t, ids[inactive]).False()
	})
}
