package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/model/auth"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/feedbackloop/actionflow/pkg/service/realtime"
	"github.com/feedbackloop/actionflow/pkg/service/slack"
	"github.com/feedbackloop/actionflow/pkg/utils/async"
	"github.com/feedbackloop/actionflow/pkg/utils/errutil"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	notificationSource      = "action-engine"
	defaultNotificationList = 50
	maxNotificationList     = 200
)

// Skip reasons reported by Send
const (
	SkipReasonUserInactive  = "user_inactive"
	SkipReasonChannelOptOut = "in_app_disabled"
	SkipReasonTypeOptOut    = "type_disabled"
)

// NotificationConfig holds notification settings
type NotificationConfig struct {
	// RetentionDays is the age after which read and archived notifications are removed
	RetentionDays int
	// BaseURL is the frontend URL used to build action links
	BaseURL string
}

// DefaultNotificationConfig returns the default notification settings
func DefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{RetentionDays: 90}
}

// SendInput is a request to notify one user
type SendInput struct {
	UserID string
	// TenantID is empty for platform scoped notifications
	TenantID  string
	Type      types.NotificationType
	Title     string
	Message   string
	Priority  types.NotificationPriority
	Reference *model.NotificationReference
	ActionURL string
	Data      map[string]any
	Source    string
	ExpiresAt *time.Time
}

// SendResult is the outcome of Send. Notification is nil when skipped.
type SendResult struct {
	Notification *model.Notification
	Skipped      bool
	Reason       string
}

type NotificationUseCase struct {
	repo       interfaces.Repository
	publisher  realtime.Publisher
	slack      slack.Service
	dispatcher *async.Dispatcher
	config     NotificationConfig
	now        func() time.Time
}

func NewNotificationUseCase(repo interfaces.Repository, publisher realtime.Publisher, slackService slack.Service, dispatcher *async.Dispatcher, cfg NotificationConfig, now func() time.Time) *NotificationUseCase {
	if dispatcher == nil {
		dispatcher = async.NewDispatcher()
	}
	return &NotificationUseCase{
		repo:       repo,
		publisher:  publisher,
		slack:      slackService,
		dispatcher: dispatcher,
		config:     cfg,
		now:        now,
	}
}

// Send persists a notification for the user unless the user opted out, then
// pushes it to live channels. Only the persistence step can fail.
func (uc *NotificationUseCase) Send(ctx context.Context, input SendInput) (*SendResult, error) {
	if input.UserID == "" {
		return nil, goerr.Wrap(ErrValidation, "notification recipient is required")
	}

	user, err := uc.repo.User().Get(ctx, input.TenantID, input.UserID)
	if err != nil {
		return nil, mapRepoErr(err, "failed to load notification recipient",
			goerr.V(UserIDKey, input.UserID), goerr.V(TenantIDKey, input.TenantID))
	}

	notificationType := input.Type.Normalize()

	if !user.IsActive {
		return &SendResult{Skipped: true, Reason: SkipReasonUserInactive}, nil
	}
	prefs := user.NotificationPreferences
	if !prefs.ChannelEnabled(types.ChannelInApp) {
		return &SendResult{Skipped: true, Reason: SkipReasonChannelOptOut}, nil
	}
	if !prefs.TypeEnabled(input.Type) || !prefs.TypeEnabled(notificationType) {
		return &SendResult{Skipped: true, Reason: SkipReasonTypeOptOut}, nil
	}

	priority := input.Priority
	if !priority.IsValid() {
		priority = notificationType.DefaultPriority()
	}

	source := input.Source
	if source == "" {
		source = notificationSource
	}

	notification := &model.Notification{
		UserID:    input.UserID,
		TenantID:  model.StrOrNil(input.TenantID),
		Scope:     types.NotificationScopeTenant,
		Title:     input.Title,
		Message:   input.Message,
		Type:      notificationType,
		Category:  notificationType.Category(),
		Priority:  priority,
		Status:    types.NotificationStatusUnread,
		Reference: input.Reference,
		ActionURL: input.ActionURL,
		Data:      input.Data,
		Source:    source,
		CreatedAt: uc.now(),
		ExpiresAt: input.ExpiresAt,
	}
	if input.TenantID == "" {
		notification.Scope = types.NotificationScopePlatform
	}

	created, err := uc.repo.Notification().Create(ctx, notification)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to persist notification",
			goerr.V(UserIDKey, input.UserID), goerr.V("type", notificationType))
	}

	uc.emit(ctx, created)
	if uc.slack != nil && user.SlackUserID != "" && prefs.ChannelEnabled(types.ChannelSlack) {
		slackUserID := user.SlackUserID
		msg := &slack.Message{
			Title:    created.Title,
			Body:     created.Message,
			Priority: string(created.Priority),
			Link:     created.ActionURL,
		}
		uc.dispatcher.Go(ctx, "slack-dm", func(ctx context.Context) error {
			_, err := uc.slack.SendDirectMessage(ctx, slackUserID, msg)
			return err
		})
	}

	return &SendResult{Notification: created}, nil
}

// emit pushes the notification to the user channel and, for tenant notifications, the tenant channel
func (uc *NotificationUseCase) emit(ctx context.Context, n *model.Notification) {
	if uc.publisher == nil {
		return
	}

	event := &realtime.Event{
		Type:      "notification",
		Data:      n,
		Timestamp: n.CreatedAt,
	}
	if err := uc.publisher.Publish(ctx, realtime.UserChannel(n.UserID), event); err != nil {
		errutil.Handle(ctx, err, "failed to publish notification to user channel")
	}

	if n.TenantID != nil {
		tenantEvent := &realtime.Event{
			Type: "notification_created",
			Data: map[string]any{
				"userId": n.UserID,
				"id":     n.ID,
				"type":   n.Type,
			},
			Timestamp: n.CreatedAt,
		}
		if err := uc.publisher.Publish(ctx, realtime.TenantChannel(*n.TenantID), tenantEvent); err != nil {
			errutil.Handle(ctx, err, "failed to publish notification to tenant channel")
		}
	}
}

// notify sends a notification and swallows every failure. Used by lifecycle
// mutations which must not fail because of notifications.
func (uc *NotificationUseCase) notify(ctx context.Context, input SendInput) {
	result, err := uc.Send(ctx, input)
	if err != nil {
		errutil.Handle(ctx, err, "failed to send notification")
		return
	}
	if result.Skipped {
		logging.From(ctx).Debug("notification skipped",
			"user_id", input.UserID,
			"type", input.Type,
			"reason", result.Reason,
		)
	}
}

// actionInput builds a SendInput referring to an action
func (uc *NotificationUseCase) actionInput(a *model.Action, userID string, t types.NotificationType, title, message string) SendInput {
	return SendInput{
		UserID:    userID,
		TenantID:  a.TenantID,
		Type:      t,
		Title:     title,
		Message:   message,
		Reference: &model.NotificationReference{Type: "action", ID: a.ID.String()},
		ActionURL: uc.actionURL(a),
		Data: map[string]any{
			"actionId": a.ID.String(),
			"priority": string(a.Priority),
			"status":   string(a.Status),
		},
	}
}

func (uc *NotificationUseCase) actionURL(a *model.Action) string {
	if uc.config.BaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/actions/%s", strings.TrimRight(uc.config.BaseURL, "/"), a.ID)
}

// UrgentRecipients returns who must hear about an urgent action: the assignee,
// else the members of the assigned team, else the tenant's company admins.
func (uc *NotificationUseCase) UrgentRecipients(ctx context.Context, a *model.Action) ([]string, error) {
	if a.AssignedTo != nil {
		return []string{*a.AssignedTo}, nil
	}

	var users []*model.User
	if a.AssignedToTeam != nil {
		members, err := uc.repo.User().List(ctx, a.TenantID, model.UserFilter{Team: *a.AssignedToTeam, ActiveOnly: true})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list team members", goerr.V("team", *a.AssignedToTeam))
		}
		users = members
	}

	if len(users) == 0 {
		admins, err := uc.companyAdmins(ctx, a.TenantID)
		if err != nil {
			return nil, err
		}
		users = admins
	}

	seen := make(map[string]struct{}, len(users))
	recipients := make([]string, 0, len(users))
	for _, u := range users {
		if _, ok := seen[u.ID]; ok {
			continue
		}
		seen[u.ID] = struct{}{}
		recipients = append(recipients, u.ID)
	}
	return recipients, nil
}

// NotifyUrgentAction fans a notification about the action out to its urgent recipients
func (uc *NotificationUseCase) NotifyUrgentAction(ctx context.Context, a *model.Action, t types.NotificationType, title, message string) ([]*SendResult, error) {
	recipients, err := uc.UrgentRecipients(ctx, a)
	if err != nil {
		return nil, err
	}

	results := make([]*SendResult, 0, len(recipients))
	for _, userID := range recipients {
		input := uc.actionInput(a, userID, t, title, message)
		input.Priority = types.NotificationPriorityUrgent
		result, err := uc.Send(ctx, input)
		if err != nil {
			errutil.Handle(ctx, err, "failed to send urgent action notification")
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

func (uc *NotificationUseCase) companyAdmins(ctx context.Context, tenantID string) ([]*model.User, error) {
	role := types.RoleCompanyAdmin
	admins, err := uc.repo.User().List(ctx, tenantID, model.UserFilter{Role: &role, ActiveOnly: true})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list company admins", goerr.V(TenantIDKey, tenantID))
	}
	return admins, nil
}

// List returns the actor's notifications in its tenant, newest first
func (uc *NotificationUseCase) List(ctx context.Context, actor *auth.Actor, statuses []types.NotificationStatus, limit int) ([]*model.Notification, error) {
	if err := Guard(actor); err != nil {
		return nil, err
	}
	for _, s := range statuses {
		if !s.IsValid() {
			ve := &ValidationError{}
			ve.Add("status", fmt.Sprintf("invalid notification status %q", s))
			return nil, ve
		}
	}
	if limit <= 0 {
		limit = defaultNotificationList
	}
	limit = min(limit, maxNotificationList)

	tenantID := actor.TenantID
	notifications, err := uc.repo.Notification().List(ctx, actor.UserID, model.NotificationFilter{
		TenantID: &tenantID,
		Statuses: statuses,
		Limit:    limit,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notifications", goerr.V(UserIDKey, actor.UserID))
	}
	return notifications, nil
}

// MarkRead marks one of the actor's notifications as read
func (uc *NotificationUseCase) MarkRead(ctx context.Context, actor *auth.Actor, id model.NotificationID) (*model.Notification, error) {
	return uc.setStatus(ctx, actor, id, types.NotificationStatusRead)
}

// Archive archives one of the actor's notifications
func (uc *NotificationUseCase) Archive(ctx context.Context, actor *auth.Actor, id model.NotificationID) (*model.Notification, error) {
	return uc.setStatus(ctx, actor, id, types.NotificationStatusArchived)
}

func (uc *NotificationUseCase) setStatus(ctx context.Context, actor *auth.Actor, id model.NotificationID, status types.NotificationStatus) (*model.Notification, error) {
	if err := Guard(actor); err != nil {
		return nil, err
	}

	existing, err := uc.repo.Notification().Get(ctx, actor.UserID, id)
	if err != nil {
		return nil, mapRepoErr(err, "notification not found", goerr.V("notification_id", id))
	}
	if existing.TenantID != nil && *existing.TenantID != actor.TenantID {
		return nil, goerr.Wrap(ErrNotFound, "notification not found", goerr.V("notification_id", id))
	}

	updated, err := uc.repo.Notification().UpdateStatus(ctx, actor.UserID, id, status, uc.now())
	if err != nil {
		return nil, mapRepoErr(err, "failed to update notification", goerr.V("notification_id", id))
	}
	return updated, nil
}

// CountUnread counts the actor's unread notifications in its tenant
func (uc *NotificationUseCase) CountUnread(ctx context.Context, actor *auth.Actor) (int, error) {
	if err := Guard(actor); err != nil {
		return 0, err
	}
	tenantID := actor.TenantID
	n, err := uc.repo.Notification().CountUnread(ctx, actor.UserID, &tenantID)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count unread notifications", goerr.V(UserIDKey, actor.UserID))
	}
	return n, nil
}

// CleanupReport summarises a retention run
type CleanupReport struct {
	Cutoff  time.Time `json:"cutoff"`
	Deleted int       `json:"deleted"`
}

// Cleanup removes read and archived notifications older than the retention period
func (uc *NotificationUseCase) Cleanup(ctx context.Context) (*CleanupReport, error) {
	days := uc.config.RetentionDays
	if days <= 0 {
		days = DefaultNotificationConfig().RetentionDays
	}
	cutoff := uc.now().Add(-time.Duration(days) * 24 * time.Hour)

	deleted, err := uc.repo.Notification().DeleteExpired(ctx, cutoff)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to delete expired notifications", goerr.V("cutoff", cutoff))
	}

	logging.From(ctx).Info("notification cleanup finished", "cutoff", cutoff, "deleted", deleted)
	return &CleanupReport{Cutoff: cutoff, Deleted: deleted}, nil
}
