package model

import (
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/google/uuid"
)

// ActionID is the unique identifier of an action
type ActionID string

// NewActionID generates a new unique action ID
func NewActionID() ActionID {
	return ActionID(uuid.New().String())
}

func (id ActionID) String() string {
	return string(id)
}

// Action is a tracked unit of follow-up work derived from feedback or created manually
type Action struct {
	ID       ActionID `json:"id"`
	TenantID string   `json:"tenantId"`

	Title            string             `json:"title"`
	Description      string             `json:"description"`
	ProblemStatement string             `json:"problemStatement,omitempty"`
	RootCause        RootCause          `json:"rootCause"`
	AffectedAudience *AffectedAudience  `json:"affectedAudience,omitempty"`
	Priority         types.Priority     `json:"priority"`
	PriorityReason   string             `json:"priorityReason,omitempty"`
	UrgencyReason    string             `json:"urgencyReason,omitempty"`
	Status           types.ActionStatus `json:"status"`
	Category         string             `json:"category,omitempty"`
	Source           types.ActionSource `json:"source"`
	Tags             []string           `json:"tags,omitempty"`
	Resolution       string             `json:"resolution,omitempty"`

	AssignedTo     *string `json:"assignedTo"`
	AssignedToTeam *string `json:"assignedToTeam"`
	AutoAssigned   bool    `json:"autoAssigned"`
	EscalatedTo    *string `json:"escalatedTo"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DueDate     time.Time  `json:"dueDate"`
	CompletedAt *time.Time `json:"completedAt"`
	CompletedBy *string    `json:"completedBy"`

	CreatedBy   *string        `json:"createdBy"`
	FeedbackRef *string        `json:"feedbackRef"`
	Metadata    ActionMetadata `json:"metadata"`
	Evidence    *Evidence      `json:"evidence,omitempty"`

	AssignmentHistory []AssignmentEntry `json:"assignmentHistory"`
	TrendData         TrendData         `json:"trendData"`

	OverdueNotifiedAt *time.Time `json:"overdueNotifiedAt,omitempty"`

	IsDeleted bool       `json:"-"`
	DeletedAt *time.Time `json:"-"`
	DeletedBy *string    `json:"-"`

	// Version is incremented by the store on every write
	Version int64 `json:"version"`
}

// RootCause is the classified underlying cause of an action
type RootCause struct {
	Category types.RootCauseCategory `json:"category,omitempty"`
	Summary  string                  `json:"summary,omitempty"`
}

// AffectedAudience describes who is impacted by the issue behind an action
type AffectedAudience struct {
	Segments       []string `json:"segments"`
	EstimatedCount int      `json:"estimatedCount"`
}

// ActionMetadata links an action back to its survey origin
type ActionMetadata struct {
	SurveyID   string          `json:"surveyId,omitempty"`
	ResponseID string          `json:"responseId,omitempty"`
	Sentiment  types.Sentiment `json:"sentiment,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	Urgency    string          `json:"urgency,omitempty"`
}

// Evidence summarises the feedback supporting an action
type Evidence struct {
	ResponseCount   int              `json:"responseCount"`
	RespondentCount int              `json:"respondentCount"`
	ResponseIDs     []string         `json:"responseIds"`
	CommentExcerpts []CommentExcerpt `json:"commentExcerpts"`
	ConfidenceScore int              `json:"confidenceScore"`
}

// CommentExcerpt is a quoted piece of feedback
type CommentExcerpt struct {
	Text       string          `json:"text"`
	Sentiment  types.Sentiment `json:"sentiment,omitempty"`
	ResponseID string          `json:"responseId,omitempty"`
}

// AssignmentEntry is one element of the append-only assignment log.
// ByUser is nil for system driven changes such as escalation.
type AssignmentEntry struct {
	From   *string   `json:"from"`
	To     *string   `json:"to"`
	ToTeam *string   `json:"toTeam"`
	ByUser *string   `json:"by"`
	At     time.Time `json:"at"`
	Auto   bool      `json:"auto"`
	Note   *string   `json:"note"`
}

// TrendData is the recurrence context computed by the trend classifier.
// CalculatedAt is nil until the classifier has processed the action.
type TrendData struct {
	PreviousSurveyID *string               `json:"previousSurveyId"`
	MetricName       string                `json:"metricName,omitempty"`
	ChangeDirection  types.ChangeDirection `json:"changeDirection,omitempty"`
	IssueStatus      types.IssueStatus     `json:"issueStatus,omitempty"`
	IsRecurring      bool                  `json:"isRecurring"`
	FirstDetectedAt  *time.Time            `json:"firstDetectedAt"`
	CalculatedAt     *time.Time            `json:"calculatedAt"`
}

// IsOverdue reports whether an unresolved action is past its due date
func (a *Action) IsOverdue(now time.Time) bool {
	return !a.Status.IsTerminal() && !a.DueDate.IsZero() && a.DueDate.Before(now)
}

// AppendHistory adds an entry to the assignment log
func (a *Action) AppendHistory(entry AssignmentEntry) {
	a.AssignmentHistory = append(a.AssignmentHistory, entry)
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

// StrOrNil returns nil for an empty string
func StrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed value or the zero value
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
