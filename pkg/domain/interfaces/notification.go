package interfaces

import (
	"context"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
)

// NotificationRepository defines the interface for Notification data access.
// Notifications are keyed by recipient.
type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) (*model.Notification, error)
	Get(ctx context.Context, userID string, id model.NotificationID) (*model.Notification, error)

	// List returns the user's notifications, newest first
	List(ctx context.Context, userID string, filter model.NotificationFilter) ([]*model.Notification, error)

	// UpdateStatus changes the status. ReadAt is set when moving away from unread.
	UpdateStatus(ctx context.Context, userID string, id model.NotificationID, status types.NotificationStatus, at time.Time) (*model.Notification, error)

	// CountUnread counts unread notifications, optionally limited to a tenant
	CountUnread(ctx context.Context, userID string, tenantID *string) (int, error)

	// DeleteExpired removes read and archived notifications created before cutoff
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}
