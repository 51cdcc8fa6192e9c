package types

// ActionSource records which path created an action
type ActionSource string

const (
	ActionSourceManual         ActionSource = "manual"
	ActionSourceSurveyFeedback ActionSource = "survey_feedback"
	ActionSourceAIGenerated    ActionSource = "ai_generated"
)

// IsValid checks if the action source is valid
func (s ActionSource) IsValid() bool {
	switch s {
	case ActionSourceManual, ActionSourceSurveyFeedback, ActionSourceAIGenerated:
		return true
	default:
		return false
	}
}

func (s ActionSource) String() string {
	return string(s)
}
