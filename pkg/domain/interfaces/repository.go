package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Action() ActionRepository
	Feedback() FeedbackRepository
	Survey() SurveyRepository
	SurveyResponse() SurveyResponseRepository
	User() UserRepository
	Tenant() TenantRepository
	EscalationRule() EscalationRuleRepository
	Notification() NotificationRepository
}
