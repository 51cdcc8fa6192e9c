package insight

import (
	"context"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
)

// Service turns analysed feedback into suggested follow-up actions
type Service interface {
	// Suggest asks the LLM for actions addressing the feedback.
	// A malformed or unusable model response is reported as ErrMalformedResponse.
	Suggest(ctx context.Context, feedback *model.FeedbackAnalysis) ([]Suggestion, error)
}

// Suggestion is one action proposed by the LLM
type Suggestion struct {
	Title            string
	Description      string
	Priority         types.Priority
	PriorityReason   string
	Category         string
	Team             string
	RootCauseSummary string
}

// llmResponse is the structured output from the LLM
type llmResponse struct {
	Actions []llmAction `json:"actions"`
}

type llmAction struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Priority         string `json:"priority"`
	PriorityReason   string `json:"priority_reason"`
	Category         string `json:"category"`
	Team             string `json:"team"`
	RootCauseSummary string `json:"root_cause_summary"`
}
