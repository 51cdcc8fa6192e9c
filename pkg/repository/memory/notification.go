package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type notificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]map[model.NotificationID]*model.Notification
}

func newNotificationRepository() *notificationRepository {
	return &notificationRepository{
		notifications: make(map[string]map[model.NotificationID]*model.Notification),
	}
}

func copyNotification(n *model.Notification) *model.Notification {
	c := *n
	c.TenantID = copyPtr(n.TenantID)
	c.Reference = copyPtr(n.Reference)
	c.Data = maps.Clone(n.Data)
	c.ReadAt = copyPtr(n.ReadAt)
	c.ExpiresAt = copyPtr(n.ExpiresAt)
	return &c
}

func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyNotification(notification)
	if created.ID == "" {
		created.ID = model.NewNotificationID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	if _, ok := r.notifications[created.UserID]; !ok {
		r.notifications[created.UserID] = make(map[model.NotificationID]*model.Notification)
	}
	r.notifications[created.UserID][created.ID] = created
	return copyNotification(created), nil
}

func (r *notificationRepository) Get(ctx context.Context, userID string, id model.NotificationID) (*model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.notifications[userID][id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "notification not found", goerr.V("id", id))
	}
	return copyNotification(n), nil
}

func (r *notificationRepository) List(ctx context.Context, userID string, filter model.NotificationFilter) ([]*model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Notification, 0)
	for _, n := range r.notifications[userID] {
		if filter.TenantID != nil && model.Deref(n.TenantID) != *filter.TenantID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, n.Status) {
			continue
		}
		result = append(result, copyNotification(n))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *notificationRepository) UpdateStatus(ctx context.Context, userID string, id model.NotificationID, status types.NotificationStatus, at time.Time) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[userID][id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "notification not found", goerr.V("id", id))
	}

	if status != types.NotificationStatusUnread && n.ReadAt == nil {
		n.ReadAt = &at
	}
	n.Status = status
	return copyNotification(n), nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string, tenantID *string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, n := range r.notifications[userID] {
		if n.Status != types.NotificationStatusUnread {
			continue
		}
		if tenantID != nil && model.Deref(n.TenantID) != *tenantID {
			continue
		}
		count++
	}
	return count, nil
}

func (r *notificationRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for _, byID := range r.notifications {
		for id, n := range byID {
			if n.Status == types.NotificationStatusUnread {
				continue
			}
			if n.CreatedAt.Before(cutoff) {
				delete(byID, id)
				deleted++
			}
		}
	}
	return deleted, nil
}
