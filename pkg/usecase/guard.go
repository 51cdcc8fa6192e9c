package usecase

import (
	"slices"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/model/auth"
	"github.com/m-mizutani/goerr/v2"
)

// Guard admits an actor to tenant-scoped operations. Platform admins and
// actors without a tenant are rejected.
func Guard(actor *auth.Actor) error {
	if actor == nil || actor.UserID == "" {
		return goerr.Wrap(ErrForbidden, "actor is required")
	}
	if actor.IsPlatformAdmin() {
		return goerr.Wrap(ErrForbidden, "platform admin cannot access tenant actions",
			goerr.V(ActorKey, actor.UserID))
	}
	if !actor.Role.IsTenantRole() {
		return goerr.Wrap(ErrForbidden, "role is not allowed", goerr.V(ActorKey, actor.UserID), goerr.V("role", actor.Role))
	}
	if actor.TenantID == "" {
		return goerr.Wrap(ErrForbidden, "actor has no tenant", goerr.V(ActorKey, actor.UserID))
	}
	return nil
}

// CanView reports whether the actor may see actions raised from the survey
func CanView(actor *auth.Actor, survey *model.Survey) bool {
	if survey == nil || survey.ActionPermissions == nil {
		return permitted(actor, nil, nil)
	}
	return permitted(actor, survey.ActionPermissions, survey.ActionPermissions.AllowedViewers)
}

// CanAssign reports whether the actor may perform assignment-class mutations
// on actions raised from the survey
func CanAssign(actor *auth.Actor, survey *model.Survey) bool {
	if survey == nil || survey.ActionPermissions == nil {
		return permitted(actor, nil, nil)
	}
	return permitted(actor, survey.ActionPermissions, survey.ActionPermissions.AllowedAssigners)
}

func permitted(actor *auth.Actor, perm *model.ActionPermissions, allowed []string) bool {
	if actor == nil {
		return false
	}
	if actor.IsPlatformAdmin() {
		return true
	}
	if perm == nil || !perm.Enabled {
		return true
	}

	if !actor.IsCompanyAdmin() {
		if len(allowed) > 0 && !slices.Contains(allowed, actor.UserID) {
			return false
		}
		if perm.RestrictToDepartment != "" && actor.Department != perm.RestrictToDepartment {
			return false
		}
	}
	return true
}
