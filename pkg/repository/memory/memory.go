package memory

import (
	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
)

// ErrNotFound is returned when a record does not exist in the tenant
var ErrNotFound = interfaces.ErrNotFound

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is an in-process implementation of interfaces.Repository for development and tests
type Memory struct {
	action         *actionRepository
	feedback       *feedbackRepository
	survey         *surveyRepository
	surveyResponse *surveyResponseRepository
	user           *userRepository
	tenant         *tenantRepository
	escalationRule *escalationRuleRepository
	notification   *notificationRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		action:         newActionRepository(),
		feedback:       newFeedbackRepository(),
		survey:         newSurveyRepository(),
		surveyResponse: newSurveyResponseRepository(),
		user:           newUserRepository(),
		tenant:         newTenantRepository(),
		escalationRule: newEscalationRuleRepository(),
		notification:   newNotificationRepository(),
	}
}

func (m *Memory) Action() interfaces.ActionRepository {
	return m.action
}

func (m *Memory) Feedback() interfaces.FeedbackRepository {
	return m.feedback
}

func (m *Memory) Survey() interfaces.SurveyRepository {
	return m.survey
}

func (m *Memory) SurveyResponse() interfaces.SurveyResponseRepository {
	return m.surveyResponse
}

func (m *Memory) User() interfaces.UserRepository {
	return m.user
}

func (m *Memory) Tenant() interfaces.TenantRepository {
	return m.tenant
}

func (m *Memory) EscalationRule() interfaces.EscalationRuleRepository {
	return m.escalationRule
}

func (m *Memory) Notification() interfaces.NotificationRepository {
	return m.notification
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copySlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
