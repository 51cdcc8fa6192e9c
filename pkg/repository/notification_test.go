package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
)

func runNotificationRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	newNotification := func(userID, tenantID string, createdAt time.Time) *model.Notification {
		return &model.Notification{
			UserID:    userID,
			TenantID:  model.Ptr(tenantID),
			Scope:     types.NotificationScopeTenant,
			Title:     "Action assigned",
			Type:      types.NotificationActionAssigned,
			Category:  types.NotificationCategoryAction,
			Priority:  types.NotificationPriorityMedium,
			Status:    types.NotificationStatusUnread,
			CreatedAt: createdAt,
		}
	}

	t.Run("List returns newest first for the recipient only", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := "user-" + uuid.New().String()
		tenantID := newTenantID()

		for i := 0; i < 3; i++ {
			_, err := repo.Notification().Create(ctx, newNotification(userID, tenantID, refTime.Add(time.Duration(i)*time.Minute)))
			gt.NoError(t, err).Required()
		}
		_, err := repo.Notification().Create(ctx, newNotification("someone-else", tenantID, refTime))
		gt.NoError(t, err).Required()

		list, err := repo.Notification().List(ctx, userID, model.NotificationFilter{TenantID: &tenantID})
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(3)
		gt.Bool(t, list[0].CreatedAt.After(list[1].CreatedAt)).True()

		limited, err := repo.Notification().List(ctx, userID, model.NotificationFilter{Limit: 2})
		gt.NoError(t, err).Required()
		gt.Array(t, limited).Length(2)
	})

	t.Run("UpdateStatus and CountUnread", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := "user-" + uuid.New().String()
		tenantID := newTenantID()

		n1, err := repo.Notification().Create(ctx, newNotification(userID, tenantID, refTime))
		gt.NoError(t, err).Required()
		_, err = repo.Notification().Create(ctx, newNotification(userID, tenantID, refTime))
		gt.NoError(t, err).Required()

		count, err := repo.Notification().CountUnread(ctx, userID, &tenantID)
		gt.NoError(t, err).Required()
		gt.Value(t, count).Equal(2)

		read, err := repo.Notification().UpdateStatus(ctx, userID, n1.ID, types.NotificationStatusRead, refTime.Add(time.Hour))
		gt.NoError(t, err).Required()
		gt.Value(t, read.Status).Equal(types.NotificationStatusRead)
		gt.Value(t, read.ReadAt).NotNil()

		count, err = repo.Notification().CountUnread(ctx, userID, nil)
		gt.NoError(t, err).Required()
		gt.Value(t, count).Equal(1)

		_, err = repo.Notification().UpdateStatus(ctx, "intruder", n1.ID, types.NotificationStatusArchived, refTime)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("DeleteExpired keeps unread and recent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := "user-" + uuid.New().String()
		tenantID := newTenantID()

		old := refTime.Add(-100 * 24 * time.Hour)
		oldRead := newNotification(userID, tenantID, old)
		oldRead.Status = types.NotificationStatusRead
		_, err := repo.Notification().Create(ctx, oldRead)
		gt.NoError(t, err).Required()

		_, err = repo.Notification().Create(ctx, newNotification(userID, tenantID, old))
		gt.NoError(t, err).Required()

		recentArchived := newNotification(userID, tenantID, refTime)
		recentArchived.Status = types.NotificationStatusArchived
		_, err = repo.Notification().Create(ctx, recentArchived)
		gt.NoError(t, err).Required()

		deleted, err := repo.Notification().DeleteExpired(ctx, refTime.Add(-90*24*time.Hour))
		gt.NoError(t, err).Required()
		gt.Value(t, deleted).Equal(1)

		list, err := repo.Notification().List(ctx, userID, model.NotificationFilter{})
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(2)
	})
}
