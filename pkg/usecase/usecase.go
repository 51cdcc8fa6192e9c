package usecase

import (
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/feedbackloop/actionflow/pkg/service/insight"
	"github.com/feedbackloop/actionflow/pkg/service/realtime"
	"github.com/feedbackloop/actionflow/pkg/service/slack"
	"github.com/feedbackloop/actionflow/pkg/utils/async"
)

type UseCases struct {
	repo               interfaces.Repository
	now                func() time.Time
	insight            insight.Service
	publisher          realtime.Publisher
	slack              slack.Service
	dispatcher         *async.Dispatcher
	escalationConfig   EscalationConfig
	trendConfig        TrendConfig
	notificationConfig NotificationConfig
	overdueConfig      OverdueConfig

	Action         *ActionUseCase
	Escalation     *EscalationUseCase
	EscalationRule *EscalationRuleUseCase
	Trend          *TrendUseCase
	Overdue        *OverdueUseCase
	Notification   *NotificationUseCase
	Auth           AuthUseCaseInterface
}

type Option func(*UseCases)

// WithClock replaces the wall clock. Returned times should be UTC.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func WithInsight(svc insight.Service) Option {
	return func(uc *UseCases) {
		uc.insight = svc
	}
}

func WithPublisher(publisher realtime.Publisher) Option {
	return func(uc *UseCases) {
		uc.publisher = publisher
	}
}

func WithSlack(svc slack.Service) Option {
	return func(uc *UseCases) {
		uc.slack = svc
	}
}

func WithEscalationConfig(cfg EscalationConfig) Option {
	return func(uc *UseCases) {
		uc.escalationConfig = cfg
	}
}

func WithTrendConfig(cfg TrendConfig) Option {
	return func(uc *UseCases) {
		uc.trendConfig = cfg
	}
}

func WithNotificationConfig(cfg NotificationConfig) Option {
	return func(uc *UseCases) {
		uc.notificationConfig = cfg
	}
}

func WithOverdueConfig(cfg OverdueConfig) Option {
	return func(uc *UseCases) {
		uc.overdueConfig = cfg
	}
}

func WithAuth(auth AuthUseCaseInterface) Option {
	return func(uc *UseCases) {
		uc.Auth = auth
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:               repo,
		now:                func() time.Time { return time.Now().UTC() },
		escalationConfig:   DefaultEscalationConfig(),
		trendConfig:        DefaultTrendConfig(),
		notificationConfig: DefaultNotificationConfig(),
		overdueConfig:      DefaultOverdueConfig(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.dispatcher = async.NewDispatcher()

	uc.Notification = NewNotificationUseCase(repo, uc.publisher, uc.slack, uc.dispatcher, uc.notificationConfig, uc.now)
	uc.Action = NewActionUseCase(repo, uc.Notification, uc.insight, uc.now)
	uc.Escalation = NewEscalationUseCase(repo, uc.Notification, uc.escalationConfig, uc.now)
	uc.EscalationRule = NewEscalationRuleUseCase(repo, uc.now)
	uc.Trend = NewTrendUseCase(repo, uc.trendConfig, uc.now)
	uc.Overdue = NewOverdueUseCase(repo, uc.Notification, uc.overdueConfig, uc.now)

	return uc
}

// Wait blocks until background deliveries started by the use cases have finished
func (uc *UseCases) Wait() {
	uc.dispatcher.Wait()
}
