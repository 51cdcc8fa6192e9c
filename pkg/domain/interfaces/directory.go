package interfaces

import (
	"context"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
)

// UserRepository is the tenant user directory
type UserRepository interface {
	Get(ctx context.Context, tenantID string, id string) (*model.User, error)

	// List returns matching users ordered by CreatedAt, then ID
	List(ctx context.Context, tenantID string, filter model.UserFilter) ([]*model.User, error)

	Put(ctx context.Context, user *model.User) error
}

// TenantRepository is the tenant registry
type TenantRepository interface {
	Get(ctx context.Context, id string) (*model.Tenant, error)
	ListActive(ctx context.Context) ([]*model.Tenant, error)
	Put(ctx context.Context, tenant *model.Tenant) error
}
