package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// tenantStore is a tenant-keyed map of records guarded by a mutex
type tenantStore[T any] struct {
	mu      sync.RWMutex
	records map[string]map[string]*T
}

func newTenantStore[T any]() *tenantStore[T] {
	return &tenantStore[T]{records: make(map[string]map[string]*T)}
}

func (s *tenantStore[T]) get(tenantID, id string) (*T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[tenantID][id]
	if !ok {
		return nil, false
	}
	c := *rec
	return &c, true
}

func (s *tenantStore[T]) put(tenantID, id string, v *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[tenantID]; !ok {
		s.records[tenantID] = make(map[string]*T)
	}
	c := *v
	s.records[tenantID][id] = &c
}

func (s *tenantStore[T]) all(tenantID string) []*T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*T, 0, len(s.records[tenantID]))
	for _, rec := range s.records[tenantID] {
		c := *rec
		result = append(result, &c)
	}
	return result
}

type feedbackRepository struct {
	store *tenantStore[model.FeedbackAnalysis]
}

func newFeedbackRepository() *feedbackRepository {
	return &feedbackRepository{store: newTenantStore[model.FeedbackAnalysis]()}
}

func (r *feedbackRepository) Get(ctx context.Context, tenantID string, id string) (*model.FeedbackAnalysis, error) {
	f, ok := r.store.get(tenantID, id)
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "feedback not found", goerr.V("id", id))
	}
	f.Categories = copySlice(f.Categories)
	f.Confidence = copyPtr(f.Confidence)
	return f, nil
}

func (r *feedbackRepository) Put(ctx context.Context, feedback *model.FeedbackAnalysis) error {
	c := *feedback
	c.Categories = copySlice(feedback.Categories)
	c.Confidence = copyPtr(feedback.Confidence)
	r.store.put(feedback.TenantID, feedback.ID, &c)
	return nil
}

type surveyRepository struct {
	store *tenantStore[model.Survey]
}

func newSurveyRepository() *surveyRepository {
	return &surveyRepository{store: newTenantStore[model.Survey]()}
}

func copySurvey(s *model.Survey) *model.Survey {
	c := *s
	if s.ActionPermissions != nil {
		p := *s.ActionPermissions
		p.AllowedViewers = copySlice(p.AllowedViewers)
		p.AllowedAssigners = copySlice(p.AllowedAssigners)
		c.ActionPermissions = &p
	}
	return &c
}

func (r *surveyRepository) Get(ctx context.Context, tenantID string, id string) (*model.Survey, error) {
	s, ok := r.store.get(tenantID, id)
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "survey not found", goerr.V("id", id))
	}
	return copySurvey(s), nil
}

func (r *surveyRepository) GetPrevious(ctx context.Context, tenantID string, before time.Time) (*model.Survey, error) {
	var latest *model.Survey
	for _, s := range r.store.all(tenantID) {
		if !s.CreatedAt.Before(before) {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) ||
			(s.CreatedAt.Equal(latest.CreatedAt) && s.ID > latest.ID) {
			latest = s
		}
	}
	if latest == nil {
		return nil, goerr.Wrap(ErrNotFound, "no previous survey", goerr.V("before", before))
	}
	return copySurvey(latest), nil
}

func (r *surveyRepository) Put(ctx context.Context, survey *model.Survey) error {
	r.store.put(survey.TenantID, survey.ID, copySurvey(survey))
	return nil
}

type surveyResponseRepository struct {
	store *tenantStore[model.SurveyResponse]
}

func newSurveyResponseRepository() *surveyResponseRepository {
	return &surveyResponseRepository{store: newTenantStore[model.SurveyResponse]()}
}

func (r *surveyResponseRepository) Get(ctx context.Context, tenantID string, id string) (*model.SurveyResponse, error) {
	resp, ok := r.store.get(tenantID, id)
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "survey response not found", goerr.V("id", id))
	}
	return resp, nil
}

func (r *surveyResponseRepository) Put(ctx context.Context, response *model.SurveyResponse) error {
	r.store.put(response.TenantID, response.ID, response)
	return nil
}

type userRepository struct {
	store *tenantStore[model.User]
}

func newUserRepository() *userRepository {
	return &userRepository{store: newTenantStore[model.User]()}
}

func copyUser(u *model.User) *model.User {
	c := *u
	c.Teams = copySlice(u.Teams)
	c.NotificationPreferences.DisabledTypes = copySlice(u.NotificationPreferences.DisabledTypes)
	c.NotificationPreferences.Channels = maps.Clone(u.NotificationPreferences.Channels)
	return &c
}

func (r *userRepository) Get(ctx context.Context, tenantID string, id string) (*model.User, error) {
	u, ok := r.store.get(tenantID, id)
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
	}
	return copyUser(u), nil
}

func (r *userRepository) List(ctx context.Context, tenantID string, filter model.UserFilter) ([]*model.User, error) {
	users := make([]*model.User, 0)
	for _, u := range r.store.all(tenantID) {
		if filter.Match(u) {
			users = append(users, copyUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (r *userRepository) Put(ctx context.Context, user *model.User) error {
	r.store.put(user.TenantID, user.ID, copyUser(user))
	return nil
}

const tenantRegistry = ""

type tenantRepository struct {
	store *tenantStore[model.Tenant]
}

func newTenantRepository() *tenantRepository {
	return &tenantRepository{store: newTenantStore[model.Tenant]()}
}

func (r *tenantRepository) Get(ctx context.Context, id string) (*model.Tenant, error) {
	t, ok := r.store.get(tenantRegistry, id)
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "tenant not found", goerr.V("id", id))
	}
	return t, nil
}

func (r *tenantRepository) ListActive(ctx context.Context) ([]*model.Tenant, error) {
	tenants := make([]*model.Tenant, 0)
	for _, t := range r.store.all(tenantRegistry) {
		if t.IsActive {
			tenants = append(tenants, t)
		}
	}
	sort.Slice(tenants, func(i, j int) bool {
		return tenants[i].ID < tenants[j].ID
	})
	return tenants, nil
}

func (r *tenantRepository) Put(ctx context.Context, tenant *model.Tenant) error {
	r.store.put(tenantRegistry, tenant.ID, tenant)
	return nil
}
