package auth

import (
	"context"

	"github.com/feedbackloop/actionflow/pkg/domain/types"
)

// Actor is the authenticated caller. It is the only source of tenant and
// user identity for tenant-scoped operations.
type Actor struct {
	UserID     string     `json:"userId"`
	TenantID   string     `json:"tenantId"`
	Role       types.Role `json:"role"`
	Department string     `json:"department,omitempty"`
}

// IsCompanyAdmin reports whether the actor administers its tenant
func (a *Actor) IsCompanyAdmin() bool {
	return a != nil && a.Role == types.RoleCompanyAdmin
}

// IsPlatformAdmin reports whether the actor is a platform administrator
func (a *Actor) IsPlatformAdmin() bool {
	return a != nil && a.Role == types.RoleAdmin
}

type ctxActorKey struct{}

// ContextWithActor stores the actor in ctx
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, ctxActorKey{}, actor)
}

// ActorFromContext returns the actor stored in ctx or nil
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(ctxActorKey{}).(*Actor)
	return actor
}
