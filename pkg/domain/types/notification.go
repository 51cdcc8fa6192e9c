package types

import "strings"

// NotificationType identifies the lifecycle event behind a notification
type NotificationType string

const (
	NotificationActionAssigned      NotificationType = "action_assigned"
	NotificationActionStatusUpdated NotificationType = "action_status_updated"
	NotificationActionEscalated     NotificationType = "action_escalated"
	NotificationActionOverdue       NotificationType = "action_overdue"
	NotificationActionCompleted     NotificationType = "action_completed"
	NotificationActionCreated       NotificationType = "action_created"
	NotificationBulkActionAssigned  NotificationType = "bulk_action_assigned"

	// Generic buckets for legacy or unknown types
	NotificationAction NotificationType = "action"
	NotificationSurvey NotificationType = "survey"
	NotificationSystem NotificationType = "system"
)

// IsValid checks if the notification type is a known type
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationActionAssigned,
		NotificationActionStatusUpdated,
		NotificationActionEscalated,
		NotificationActionOverdue,
		NotificationActionCompleted,
		NotificationActionCreated,
		NotificationBulkActionAssigned,
		NotificationAction,
		NotificationSurvey,
		NotificationSystem:
		return true
	default:
		return false
	}
}

// Normalize remaps unknown types to the nearest generic bucket
func (t NotificationType) Normalize() NotificationType {
	if t.IsValid() {
		return t
	}
	s := string(t)
	switch {
	case strings.HasPrefix(s, "action_"):
		return NotificationAction
	case strings.HasPrefix(s, "survey_"):
		return NotificationSurvey
	default:
		return NotificationSystem
	}
}

// Category returns the category a notification type belongs to
func (t NotificationType) Category() NotificationCategory {
	switch t.Normalize() {
	case NotificationActionAssigned,
		NotificationActionStatusUpdated,
		NotificationActionEscalated,
		NotificationActionOverdue,
		NotificationActionCompleted,
		NotificationActionCreated,
		NotificationBulkActionAssigned,
		NotificationAction:
		return NotificationCategoryAction
	case NotificationSurvey:
		return NotificationCategorySurvey
	default:
		return NotificationCategorySystem
	}
}

// DefaultPriority returns the priority used when the sender does not set one
func (t NotificationType) DefaultPriority() NotificationPriority {
	switch t {
	case NotificationActionEscalated:
		return NotificationPriorityUrgent
	case NotificationActionOverdue:
		return NotificationPriorityHigh
	case NotificationActionAssigned:
		return NotificationPriorityMedium
	case NotificationActionStatusUpdated:
		return NotificationPriorityLow
	default:
		return NotificationPriorityMedium
	}
}

func (t NotificationType) String() string {
	return string(t)
}

// NotificationCategory groups notification types for filtering
type NotificationCategory string

const (
	NotificationCategoryAction NotificationCategory = "action"
	NotificationCategorySurvey NotificationCategory = "survey"
	NotificationCategorySystem NotificationCategory = "system"
)

// NotificationPriority is the urgency shown to the recipient
type NotificationPriority string

const (
	NotificationPriorityUrgent NotificationPriority = "urgent"
	NotificationPriorityHigh   NotificationPriority = "high"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityLow    NotificationPriority = "low"
)

// IsValid checks if the notification priority is valid
func (p NotificationPriority) IsValid() bool {
	switch p {
	case NotificationPriorityUrgent, NotificationPriorityHigh, NotificationPriorityMedium, NotificationPriorityLow:
		return true
	default:
		return false
	}
}

// NotificationStatus is the read state of a notification
type NotificationStatus string

const (
	NotificationStatusUnread   NotificationStatus = "unread"
	NotificationStatusRead     NotificationStatus = "read"
	NotificationStatusArchived NotificationStatus = "archived"
)

// IsValid checks if the notification status is valid
func (s NotificationStatus) IsValid() bool {
	switch s {
	case NotificationStatusUnread, NotificationStatusRead, NotificationStatusArchived:
		return true
	default:
		return false
	}
}

// NotificationScope tells whether a notification belongs to a tenant or the platform
type NotificationScope string

const (
	NotificationScopePlatform NotificationScope = "platform"
	NotificationScopeTenant   NotificationScope = "tenant"
)

// NotificationChannel is a delivery channel a user can opt out of
type NotificationChannel string

const (
	ChannelInApp NotificationChannel = "in_app"
	ChannelSlack NotificationChannel = "slack"
	ChannelEmail NotificationChannel = "email"
)
