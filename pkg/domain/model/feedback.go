package model

import (
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/types"
)

// FeedbackAnalysis is the analysed form of a survey response. It is produced
// by the survey subsystem and is read-only here.
type FeedbackAnalysis struct {
	ID         string          `json:"id"`
	TenantID   string          `json:"tenantId"`
	SurveyID   string          `json:"surveyId,omitempty"`
	ResponseID string          `json:"responseId,omitempty"`
	Sentiment  types.Sentiment `json:"sentiment"`
	Categories []string        `json:"categories"`
	Summary    string          `json:"summary,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	Comment    string          `json:"comment,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// PrimaryCategory returns the first non-empty category
func (f *FeedbackAnalysis) PrimaryCategory() string {
	for _, c := range f.Categories {
		if c != "" {
			return c
		}
	}
	return ""
}
