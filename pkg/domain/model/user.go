package model

import (
	"slices"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/types"
)

// User is a member of the tenant directory
type User struct {
	ID                      string                  `json:"id"`
	TenantID                string                  `json:"tenantId"`
	Name                    string                  `json:"name"`
	Email                   string                  `json:"email" masq:"secret"`
	Role                    types.Role              `json:"role"`
	Department              string                  `json:"department,omitempty"`
	Teams                   []string                `json:"teams,omitempty"`
	IsActive                bool                    `json:"isActive"`
	SlackUserID             string                  `json:"slackUserId,omitempty"`
	NotificationPreferences NotificationPreferences `json:"notificationPreferences"`
	CreatedAt               time.Time               `json:"createdAt"`
}

// NotificationPreferences holds per-channel and per-type opt-outs.
// Channels missing from the map are enabled.
type NotificationPreferences struct {
	Channels      map[types.NotificationChannel]bool `json:"channels,omitempty"`
	DisabledTypes []types.NotificationType           `json:"disabledTypes,omitempty"`
}

// ChannelEnabled reports whether the user receives notifications on the channel
func (p NotificationPreferences) ChannelEnabled(ch types.NotificationChannel) bool {
	enabled, ok := p.Channels[ch]
	return !ok || enabled
}

// TypeEnabled reports whether the user receives the notification type
func (p NotificationPreferences) TypeEnabled(t types.NotificationType) bool {
	return !slices.Contains(p.DisabledTypes, t)
}

// InTeam reports whether the user belongs to the team
func (u *User) InTeam(team string) bool {
	return slices.Contains(u.Teams, team)
}

// UserFilter selects users within a tenant
type UserFilter struct {
	Role       *types.Role
	Team       string
	ActiveOnly bool
}

// Match reports whether the user satisfies the filter
func (f UserFilter) Match(u *User) bool {
	if f.ActiveOnly && !u.IsActive {
		return false
	}
	if f.Role != nil && u.Role != *f.Role {
		return false
	}
	if f.Team != "" && !u.InTeam(f.Team) {
		return false
	}
	return true
}

// Tenant is a customer organization
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}
