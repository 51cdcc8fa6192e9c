package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// getDoc loads a single document into T, mapping a missing document to ErrNotFound
func getDoc[T any](ctx context.Context, ref *firestore.DocumentRef, kind string) (*T, error) {
	doc, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, kind+" not found", goerr.V("id", ref.ID))
		}
		return nil, goerr.Wrap(err, "failed to get "+kind, goerr.V("id", ref.ID))
	}

	var v T
	if err := doc.DataTo(&v); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal "+kind, goerr.V("id", ref.ID))
	}
	return &v, nil
}

type feedbackRepository struct {
	names *collections
}

func (r *feedbackRepository) Get(ctx context.Context, tenantID string, id string) (*model.FeedbackAnalysis, error) {
	return getDoc[model.FeedbackAnalysis](ctx, r.names.feedbackAnalyses(tenantID).Doc(id), "feedback")
}

func (r *feedbackRepository) Put(ctx context.Context, feedback *model.FeedbackAnalysis) error {
	if _, err := r.names.feedbackAnalyses(feedback.TenantID).Doc(feedback.ID).Set(ctx, feedback); err != nil {
		return goerr.Wrap(err, "failed to put feedback", goerr.V("id", feedback.ID))
	}
	return nil
}

type surveyRepository struct {
	names *collections
}

func (r *surveyRepository) Get(ctx context.Context, tenantID string, id string) (*model.Survey, error) {
	return getDoc[model.Survey](ctx, r.names.surveys(tenantID).Doc(id), "survey")
}

func (r *surveyRepository) GetPrevious(ctx context.Context, tenantID string, before time.Time) (*model.Survey, error) {
	iter := r.names.surveys(tenantID).
		Where("CreatedAt", "<", before).
		OrderBy("CreatedAt", firestore.Desc).
		Limit(1).
		Documents(ctx)

	surveys, err := collect[model.Survey](iter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query previous survey", goerr.V("tenant_id", tenantID))
	}
	if len(surveys) == 0 {
		return nil, goerr.Wrap(ErrNotFound, "no previous survey", goerr.V("before", before))
	}
	return surveys[0], nil
}

func (r *surveyRepository) Put(ctx context.Context, survey *model.Survey) error {
	if _, err := r.names.surveys(survey.TenantID).Doc(survey.ID).Set(ctx, survey); err != nil {
		return goerr.Wrap(err, "failed to put survey", goerr.V("id", survey.ID))
	}
	return nil
}

type surveyResponseRepository struct {
	names *collections
}

func (r *surveyResponseRepository) Get(ctx context.Context, tenantID string, id string) (*model.SurveyResponse, error) {
	return getDoc[model.SurveyResponse](ctx, r.names.surveyResponses(tenantID).Doc(id), "survey response")
}

func (r *surveyResponseRepository) Put(ctx context.Context, response *model.SurveyResponse) error {
	if _, err := r.names.surveyResponses(response.TenantID).Doc(response.ID).Set(ctx, response); err != nil {
		return goerr.Wrap(err, "failed to put survey response", goerr.V("id", response.ID))
	}
	return nil
}

type userRepository struct {
	names *collections
}

func (r *userRepository) Get(ctx context.Context, tenantID string, id string) (*model.User, error) {
	user, err := getDoc[model.User](ctx, r.names.users().Doc(id), "user")
	if err != nil {
		return nil, err
	}
	// Users of other tenants are reported as missing
	if user.TenantID != tenantID {
		return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, tenantID string, filter model.UserFilter) ([]*model.User, error) {
	q := r.names.users().Where("TenantID", "==", tenantID)
	if filter.ActiveOnly {
		q = q.Where("IsActive", "==", true)
	}
	if filter.Role != nil {
		q = q.Where("Role", "==", string(*filter.Role))
	}
	if filter.Team != "" {
		q = q.Where("Teams", "array-contains", filter.Team)
	}

	users, err := collect[model.User](q.OrderBy("CreatedAt", firestore.Asc).Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users", goerr.V("tenant_id", tenantID))
	}

	result := make([]*model.User, 0, len(users))
	for _, u := range users {
		if filter.Match(u) {
			result = append(result, u)
		}
	}
	return result, nil
}

func (r *userRepository) Put(ctx context.Context, user *model.User) error {
	if _, err := r.names.users().Doc(user.ID).Set(ctx, user); err != nil {
		return goerr.Wrap(err, "failed to put user", goerr.V("id", user.ID))
	}
	return nil
}

type tenantRepository struct {
	names *collections
}

func (r *tenantRepository) Get(ctx context.Context, id string) (*model.Tenant, error) {
	return getDoc[model.Tenant](ctx, r.names.tenants().Doc(id), "tenant")
}

func (r *tenantRepository) ListActive(ctx context.Context) ([]*model.Tenant, error) {
	iter := r.names.tenants().Where("IsActive", "==", true).Documents(ctx)
	tenants, err := collect[model.Tenant](iter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list active tenants")
	}
	return tenants, nil
}

func (r *tenantRepository) Put(ctx context.Context, tenant *model.Tenant) error {
	if _, err := r.names.tenants().Doc(tenant.ID).Set(ctx, tenant); err != nil {
		return goerr.Wrap(err, "failed to put tenant", goerr.V("id", tenant.ID))
	}
	return nil
}
