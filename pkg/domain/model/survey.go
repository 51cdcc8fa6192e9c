package model

import "time"

// Survey is the subset of a survey the action engine needs
type Survey struct {
	ID                string             `json:"id"`
	TenantID          string             `json:"tenantId"`
	Title             string             `json:"title"`
	CreatedAt         time.Time          `json:"createdAt"`
	ActionPermissions *ActionPermissions `json:"actionPermissions,omitempty"`
}

// ActionPermissions restricts who may view or assign actions raised from a survey
type ActionPermissions struct {
	Enabled              bool     `json:"enabled"`
	AllowedViewers       []string `json:"allowedViewers"`
	AllowedAssigners     []string `json:"allowedAssigners"`
	RestrictToDepartment string   `json:"restrictToDepartment,omitempty"`
}

// SurveyResponse links a response to its survey
type SurveyResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	SurveyID  string    `json:"surveyId"`
	CreatedAt time.Time `json:"createdAt"`
}
