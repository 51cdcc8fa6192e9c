package usecase

import (
	"math"
	"strings"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
)

// enrichFromFeedback fills empty action fields from the originating feedback.
// Fields already set by the caller are kept, so applying it twice changes nothing.
func enrichFromFeedback(a *model.Action, f *model.FeedbackAnalysis) {
	if a.ProblemStatement == "" {
		switch {
		case strings.TrimSpace(f.Summary) != "":
			a.ProblemStatement = strings.TrimSpace(f.Summary)
		case len(f.Categories) > 0:
			a.ProblemStatement = "Feedback concerns: " + strings.Join(f.Categories, ", ")
		default:
			a.ProblemStatement = a.Description
		}
	}

	if a.RootCause.Category == "" {
		a.RootCause.Category = types.RootCauseFromCategories(f.Categories)
	}
	if a.Category == "" {
		a.Category = f.PrimaryCategory()
	}

	if a.Metadata.SurveyID == "" {
		a.Metadata.SurveyID = f.SurveyID
	}
	if a.Metadata.ResponseID == "" {
		a.Metadata.ResponseID = f.ResponseID
	}
	if a.Metadata.Sentiment == "" {
		a.Metadata.Sentiment = f.Sentiment
	}
	if a.Metadata.Confidence == nil && f.Confidence != nil {
		a.Metadata.Confidence = model.Ptr(*f.Confidence)
	}

	if a.Evidence == nil {
		excerpt := strings.TrimSpace(f.Comment)
		if excerpt == "" {
			excerpt = strings.TrimSpace(f.Summary)
		}

		ev := &model.Evidence{
			ResponseCount:   1,
			RespondentCount: 1,
			ResponseIDs:     []string{},
			CommentExcerpts: []model.CommentExcerpt{},
		}
		if f.ResponseID != "" {
			ev.ResponseIDs = append(ev.ResponseIDs, f.ResponseID)
		}
		if excerpt != "" {
			ev.CommentExcerpts = append(ev.CommentExcerpts, model.CommentExcerpt{
				Text:       excerpt,
				Sentiment:  f.Sentiment,
				ResponseID: f.ResponseID,
			})
		}
		if a.Metadata.Confidence != nil {
			ev.ConfidenceScore = int(math.Round(*a.Metadata.Confidence * 100))
		}
		a.Evidence = ev
	}
}
