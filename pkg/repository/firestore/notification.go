package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type notificationRepository struct {
	client *firestore.Client
	names  *collections
}

func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification) (*model.Notification, error) {
	created := *notification
	if created.ID == "" {
		created.ID = model.NewNotificationID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	if _, err := r.names.notifications().Doc(string(created.ID)).Set(ctx, &created); err != nil {
		return nil, goerr.Wrap(err, "failed to create notification", goerr.V("id", created.ID))
	}
	return &created, nil
}

func (r *notificationRepository) Get(ctx context.Context, userID string, id model.NotificationID) (*model.Notification, error) {
	n, err := getDoc[model.Notification](ctx, r.names.notifications().Doc(string(id)), "notification")
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, goerr.Wrap(ErrNotFound, "notification not found", goerr.V("id", id))
	}
	return n, nil
}

func statusValues(statuses []types.NotificationStatus) []string {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return values
}

func (r *notificationRepository) List(ctx context.Context, userID string, filter model.NotificationFilter) ([]*model.Notification, error) {
	q := r.names.notifications().Where("UserID", "==", userID)
	if filter.TenantID != nil {
		q = q.Where("TenantID", "==", *filter.TenantID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("Status", "in", statusValues(filter.Statuses))
	}
	q = q.OrderBy("CreatedAt", firestore.Desc)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	notifications, err := collect[model.Notification](q.Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notifications", goerr.V("user_id", userID))
	}
	return notifications, nil
}

func (r *notificationRepository) UpdateStatus(ctx context.Context, userID string, id model.NotificationID, st types.NotificationStatus, at time.Time) (*model.Notification, error) {
	docRef := r.names.notifications().Doc(string(id))

	var result *model.Notification
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "notification not found", goerr.V("id", id))
			}
			return goerr.Wrap(err, "failed to get notification", goerr.V("id", id))
		}

		var n model.Notification
		if err := doc.DataTo(&n); err != nil {
			return goerr.Wrap(err, "failed to unmarshal notification", goerr.V("id", id))
		}
		if n.UserID != userID {
			return goerr.Wrap(ErrNotFound, "notification not found", goerr.V("id", id))
		}

		if st != types.NotificationStatusUnread && n.ReadAt == nil {
			n.ReadAt = &at
		}
		n.Status = st
		result = &n
		return tx.Set(docRef, &n)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string, tenantID *string) (int, error) {
	q := r.names.notifications().
		Where("UserID", "==", userID).
		Where("Status", "==", string(types.NotificationStatusUnread))
	if tenantID != nil {
		q = q.Where("TenantID", "==", *tenantID)
	}

	iter := q.Select().Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, goerr.Wrap(err, "failed to count unread notifications", goerr.V("user_id", userID))
		}
		count++
	}
	return count, nil
}

func (r *notificationRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	iter := r.names.notifications().
		Where("Status", "in", statusValues([]types.NotificationStatus{
			types.NotificationStatusRead,
			types.NotificationStatusArchived,
		})).
		Where("CreatedAt", "<", cutoff).
		Select().
		Documents(ctx)
	defer iter.Stop()

	bw := r.client.BulkWriter(ctx)
	deleted := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bw.End()
			return deleted, goerr.Wrap(err, "failed to iterate expired notifications")
		}
		if _, err := bw.Delete(doc.Ref); err != nil {
			bw.End()
			return deleted, goerr.Wrap(err, "failed to enqueue notification delete", goerr.V("id", doc.Ref.ID))
		}
		deleted++
	}
	bw.End()

	return deleted, nil
}
