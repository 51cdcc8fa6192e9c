package usecase

import (
	"context"

	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/feedbackloop/actionflow/pkg/domain/model/auth"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
)

// NoAuthnUseCase authenticates every request as a fixed user (for development/testing)
type NoAuthnUseCase struct {
	repo     interfaces.Repository
	tenantID string
	userID   string
}

func NewNoAuthnUseCase(repo interfaces.Repository, tenantID, userID string) *NoAuthnUseCase {
	return &NoAuthnUseCase{
		repo:     repo,
		tenantID: tenantID,
		userID:   userID,
	}
}

// Authenticate ignores the token. The actor comes from the directory when the
// user exists there, otherwise it is a company admin of the configured tenant.
func (uc *NoAuthnUseCase) Authenticate(ctx context.Context, _ string) (*auth.Actor, error) {
	user, err := uc.repo.User().Get(ctx, uc.tenantID, uc.userID)
	if err == nil {
		return &auth.Actor{
			UserID:     user.ID,
			TenantID:   user.TenantID,
			Role:       user.Role,
			Department: user.Department,
		}, nil
	}

	logging.From(ctx).Debug("no-auth user not in directory, using company admin", "user_id", uc.userID, "error", err)
	return &auth.Actor{
		UserID:   uc.userID,
		TenantID: uc.tenantID,
		Role:     types.RoleCompanyAdmin,
	}, nil
}

// IsNoAuthn returns true for NoAuthnUseCase
func (uc *NoAuthnUseCase) IsNoAuthn() bool {
	return true
}
