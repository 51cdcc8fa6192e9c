package model

import (
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/google/uuid"
)

// NotificationID is the unique identifier of a notification
type NotificationID string

// NewNotificationID generates a new unique notification ID
func NewNotificationID() NotificationID {
	return NotificationID(uuid.New().String())
}

func (id NotificationID) String() string {
	return string(id)
}

// Notification is the durable record of a message to a user.
// TenantID is nil for platform scoped notifications.
type Notification struct {
	ID        NotificationID             `json:"id"`
	UserID    string                     `json:"userId"`
	TenantID  *string                    `json:"tenantId"`
	Scope     types.NotificationScope    `json:"scope"`
	Title     string                     `json:"title"`
	Message   string                     `json:"message"`
	Type      types.NotificationType     `json:"type"`
	Category  types.NotificationCategory `json:"category"`
	Priority  types.NotificationPriority `json:"priority"`
	Status    types.NotificationStatus   `json:"status"`
	Reference *NotificationReference     `json:"reference,omitempty"`
	ActionURL string                     `json:"actionUrl,omitempty"`
	Data      map[string]any             `json:"data,omitempty"`
	Source    string                     `json:"source,omitempty"`
	CreatedAt time.Time                  `json:"createdAt"`
	ReadAt    *time.Time                 `json:"readAt"`
	ExpiresAt *time.Time                 `json:"expiresAt"`
}

// NotificationReference points to the entity a notification is about
type NotificationReference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// NotificationFilter selects a user's notifications
type NotificationFilter struct {
	TenantID *string
	Statuses []types.NotificationStatus
	Limit    int
}
