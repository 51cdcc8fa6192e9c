package usecase_test

import (
	"testing"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/model/auth"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestGuard(t *testing.T) {
	tests := []struct {
		name    string
		actor   *auth.Actor
		wantErr bool
	}{
		{name: "company admin", actor: actorOf(tenant1, "admin1", types.RoleCompanyAdmin)},
		{name: "member", actor: actorOf(tenant1, "u1", types.RoleMember)},
		{name: "nil actor", actor: nil, wantErr: true},
		{name: "empty user", actor: actorOf(tenant1, "", types.RoleMember), wantErr: true},
		{name: "platform admin", actor: actorOf(tenant1, "root", types.RoleAdmin), wantErr: true},
		{name: "no tenant", actor: actorOf("", "u1", types.RoleMember), wantErr: true},
		{name: "unknown role", actor: actorOf(tenant1, "u1", types.Role("guest")), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := usecase.Guard(tt.actor)
			if tt.wantErr {
				gt.Error(t, err).Is(usecase.ErrForbidden)
			} else {
				gt.NoError(t, err)
			}
		})
	}
}

func TestSurveyPermissions(t *testing.T) {
	restricted := &model.Survey{
		ID: "s1",
		ActionPermissions: &model.ActionPermissions{
			Enabled:              true,
			AllowedViewers:       []string{"u1", "u3"},
			AllowedAssigners:     []string{"u3"},
			RestrictToDepartment: "Engineering",
		},
	}
	disabled := &model.Survey{
		ID: "s2",
		ActionPermissions: &model.ActionPermissions{
			Enabled:          false,
			AllowedAssigners: []string{"u3"},
		},
	}

	tests := []struct {
		name       string
		actor      *auth.Actor
		survey     *model.Survey
		wantView   bool
		wantAssign bool
	}{
		{name: "no survey", actor: memberActor("u2", "Engineering"), survey: nil, wantView: true, wantAssign: true},
		{name: "permissions disabled", actor: memberActor("u2", "Engineering"), survey: disabled, wantView: true, wantAssign: true},
		{name: "company admin bypasses lists", actor: adminActor(), survey: restricted, wantView: true, wantAssign: true},
		{name: "allowed assigner in department", actor: memberActor("u3", "Engineering"), survey: restricted, wantView: true, wantAssign: true},
		{name: "viewer only", actor: memberActor("u1", "Engineering"), survey: restricted, wantView: true, wantAssign: false},
		{name: "viewer in wrong department", actor: memberActor("u1", "Sales"), survey: restricted, wantView: false, wantAssign: false},
		{name: "not listed", actor: memberActor("u2", "Engineering"), survey: restricted, wantView: false, wantAssign: false},
		{name: "platform admin", actor: actorOf(tenant1, "root", types.RoleAdmin), survey: restricted, wantView: true, wantAssign: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, usecase.CanView(tt.actor, tt.survey)).Equal(tt.wantView)
			gt.Value(t, usecase.CanAssign(tt.actor, tt.survey)).Equal(tt.wantAssign)
		})
	}
}
