package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/model/auth"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/feedbackloop/actionflow/pkg/repository/memory"
	"github.com/feedbackloop/actionflow/pkg/service/insight"
	"github.com/feedbackloop/actionflow/pkg/service/realtime"
	"github.com/feedbackloop/actionflow/pkg/service/slack"
	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
)

const (
	tenant1 = "t1"
	tenant2 = "t2"
)

var baseTime = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockPublisher struct {
	mu     sync.Mutex
	events map[string][]*realtime.Event
}

func (m *mockPublisher) Publish(_ context.Context, channel string, event *realtime.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events == nil {
		m.events = make(map[string][]*realtime.Event)
	}
	m.events[channel] = append(m.events[channel], event)
	return nil
}

func (m *mockPublisher) Events(channel string) []*realtime.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[channel]
}

type mockSlackService struct {
	mu   sync.Mutex
	sent map[string][]*slack.Message
}

func (m *mockSlackService) SendDirectMessage(_ context.Context, slackUserID string, msg *slack.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent == nil {
		m.sent = make(map[string][]*slack.Message)
	}
	m.sent[slackUserID] = append(m.sent[slackUserID], msg)
	return "1700000000.000100", nil
}

func (m *mockSlackService) GetUserInfo(_ context.Context, userID string) (*slack.User, error) {
	return &slack.User{ID: userID, Name: userID}, nil
}

func (m *mockSlackService) Sent(slackUserID string) []*slack.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[slackUserID]
}

type mockInsightService struct {
	suggestFn func(ctx context.Context, f *model.FeedbackAnalysis) ([]insight.Suggestion, error)
}

func (m *mockInsightService) Suggest(ctx context.Context, f *model.FeedbackAnalysis) ([]insight.Suggestion, error) {
	return m.suggestFn(ctx, f)
}

type mockLLMSession struct {
	text string
}

func (s *mockLLMSession) Generate(_ context.Context, _ []gollem.Input, _ ...gollem.GenerateOption) (*gollem.Response, error) {
	return &gollem.Response{Texts: []string{s.text}}, nil
}

func (s *mockLLMSession) Stream(_ context.Context, _ []gollem.Input, _ ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) GenerateContent(_ context.Context, _ ...gollem.Input) (*gollem.Response, error) {
	return &gollem.Response{Texts: []string{s.text}}, nil
}

func (s *mockLLMSession) GenerateStream(_ context.Context, _ ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(_ context.Context, _ ...gollem.Input) (int, error) {
	return 0, nil
}

type mockLLMClient struct {
	text string
}

func (c *mockLLMClient) NewSession(_ context.Context, _ ...gollem.SessionOption) (gollem.Session, error) {
	return &mockLLMSession{text: c.text}, nil
}

func (c *mockLLMClient) GenerateEmbedding(_ context.Context, _ int, _ []string) ([][]float64, error) {
	return nil, nil
}

type fixture struct {
	repo      *memory.Memory
	clock     *testClock
	uc        *usecase.UseCases
	publisher *mockPublisher
	slack     *mockSlackService
}

// newFixture seeds two tenants. Tenant t1 has admin1 (company admin), u1, u2
// and u3 (members) and the inactive member gone. Tenant t2 has admin2 and u9.
func newFixture(t *testing.T, opts ...usecase.Option) *fixture {
	t.Helper()
	f := &fixture{
		repo:      memory.New(),
		clock:     &testClock{now: baseTime},
		publisher: &mockPublisher{},
		slack:     &mockSlackService{},
	}

	ctx := context.Background()
	for _, id := range []string{tenant1, tenant2} {
		gt.NoError(t, f.repo.Tenant().Put(ctx, &model.Tenant{ID: id, Name: id, IsActive: true})).Required()
	}

	seed := baseTime.Add(-30 * 24 * time.Hour)
	users := []*model.User{
		{ID: "admin1", TenantID: tenant1, Name: "Alice Admin", Role: types.RoleCompanyAdmin, IsActive: true, SlackUserID: "UADMIN1"},
		{ID: "u1", TenantID: tenant1, Name: "Uma", Role: types.RoleMember, Department: "Sales", Teams: []string{"Support"}, IsActive: true},
		{ID: "u2", TenantID: tenant1, Name: "Ugo", Role: types.RoleMember, Department: "Engineering", IsActive: true},
		{ID: "u3", TenantID: tenant1, Name: "Ula", Role: types.RoleMember, Department: "Engineering", Teams: []string{"Support"}, IsActive: true},
		{ID: "gone", TenantID: tenant1, Name: "Gone", Role: types.RoleMember, IsActive: false},
		{ID: "admin2", TenantID: tenant2, Name: "Bob Admin", Role: types.RoleCompanyAdmin, IsActive: true},
		{ID: "u9", TenantID: tenant2, Name: "Other", Role: types.RoleMember, IsActive: true},
	}
	for i, u := range users {
		u.CreatedAt = seed.Add(time.Duration(i) * time.Minute)
		gt.NoError(t, f.repo.User().Put(ctx, u)).Required()
	}

	options := append([]usecase.Option{
		usecase.WithClock(f.clock.Now),
		usecase.WithPublisher(f.publisher),
		usecase.WithSlack(f.slack),
	}, opts...)
	f.uc = usecase.New(f.repo, options...)
	return f
}

func actorOf(tenantID, userID string, role types.Role) *auth.Actor {
	return &auth.Actor{UserID: userID, TenantID: tenantID, Role: role}
}

func adminActor() *auth.Actor {
	return actorOf(tenant1, "admin1", types.RoleCompanyAdmin)
}

func memberActor(userID, department string) *auth.Actor {
	a := actorOf(tenant1, userID, types.RoleMember)
	a.Department = department
	return a
}

func (f *fixture) putSurvey(t *testing.T, s *model.Survey) {
	t.Helper()
	gt.NoError(t, f.repo.Survey().Put(context.Background(), s)).Required()
}

func (f *fixture) putFeedback(t *testing.T, fb *model.FeedbackAnalysis) {
	t.Helper()
	gt.NoError(t, f.repo.Feedback().Put(context.Background(), fb)).Required()
}

func (f *fixture) putRule(t *testing.T, rule *model.EscalationRule) *model.EscalationRule {
	t.Helper()
	if rule.TenantID == "" {
		rule.TenantID = tenant1
	}
	created, err := f.repo.EscalationRule().Create(context.Background(), rule.TenantID, rule)
	gt.NoError(t, err).Required()
	return created
}

// createAction creates a manual action as admin1 and fails the test on error
func (f *fixture) createAction(t *testing.T, input *usecase.CreateActionInput) *model.Action {
	t.Helper()
	a, err := f.uc.Action.CreateAction(context.Background(), adminActor(), input)
	gt.NoError(t, err).Required()
	return a
}

func (f *fixture) notifications(t *testing.T, userID string) []*model.Notification {
	t.Helper()
	list, err := f.repo.Notification().List(context.Background(), userID, model.NotificationFilter{})
	gt.NoError(t, err).Required()
	return list
}

func (f *fixture) notificationsOfType(t *testing.T, userID string, nt types.NotificationType) []*model.Notification {
	t.Helper()
	var out []*model.Notification
	for _, n := range f.notifications(t, userID) {
		if n.Type == nt {
			out = append(out, n)
		}
	}
	return out
}
