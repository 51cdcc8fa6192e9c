package model

import (
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// ActionSortKey is a whitelisted sort key for action listings
type ActionSortKey string

const (
	SortByCreatedAt ActionSortKey = "createdAt"
	SortByUpdatedAt ActionSortKey = "updatedAt"
	SortByDueDate   ActionSortKey = "dueDate"
	SortByPriority  ActionSortKey = "priority"
	SortByStatus    ActionSortKey = "status"
)

// IsValid checks if the sort key is whitelisted
func (k ActionSortKey) IsValid() bool {
	switch k {
	case SortByCreatedAt, SortByUpdatedAt, SortByDueDate, SortByPriority, SortByStatus:
		return true
	default:
		return false
	}
}

// SortOrder is the requested listing direction. Empty means the default: newest
// first without a sort key, ascending with one.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

var ErrInvalidFilter = goerr.New("invalid action filter")

// ActionFilter selects, orders and pages actions within a tenant.
// Soft-deleted actions never match.
type ActionFilter struct {
	Priorities  []types.Priority
	Statuses    []types.ActionStatus
	AssignedTo  *string
	Team        *string
	Category    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Search      string

	Page     int
	Limit    int
	SortBy   ActionSortKey
	Order    SortOrder
	SortDesc bool
}

// ActionPage is one page of a filtered listing
type ActionPage struct {
	Items []*Action `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// Normalize fills defaults and validates paging and sort parameters
func (f *ActionFilter) Normalize() error {
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = DefaultPageLimit
	}
	switch f.Order {
	case "":
		if f.SortBy == "" {
			f.SortDesc = true
		}
	case OrderAsc:
		f.SortDesc = false
	case OrderDesc:
		f.SortDesc = true
	default:
		return goerr.Wrap(ErrInvalidFilter, "unsupported sort order", goerr.V("order", f.Order))
	}
	if f.SortBy == "" {
		f.SortBy = SortByCreatedAt
	}

	if f.Page < 1 {
		return goerr.Wrap(ErrInvalidFilter, "page must be positive", goerr.V("page", f.Page))
	}
	if f.Limit < 1 || f.Limit > MaxPageLimit {
		return goerr.Wrap(ErrInvalidFilter, "limit out of range", goerr.V("limit", f.Limit))
	}
	if !f.SortBy.IsValid() {
		return goerr.Wrap(ErrInvalidFilter, "unsupported sort key", goerr.V("sort", f.SortBy))
	}
	for _, p := range f.Priorities {
		if !p.IsValid() {
			return goerr.Wrap(ErrInvalidFilter, "invalid priority", goerr.V("priority", p))
		}
	}
	for _, s := range f.Statuses {
		if !s.IsValid() {
			return goerr.Wrap(ErrInvalidFilter, "invalid status", goerr.V("status", s))
		}
	}
	return nil
}

// Match reports whether the action satisfies every filter condition
func (f *ActionFilter) Match(a *Action) bool {
	if a.IsDeleted {
		return false
	}
	if len(f.Priorities) > 0 && !slices.Contains(f.Priorities, a.Priority) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
		return false
	}
	if f.AssignedTo != nil && Deref(a.AssignedTo) != *f.AssignedTo {
		return false
	}
	if f.Team != nil && Deref(a.AssignedToTeam) != *f.Team {
		return false
	}
	if f.Category != "" && !strings.EqualFold(a.Category, f.Category) {
		return false
	}
	if f.CreatedFrom != nil && a.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && a.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		fields := []string{a.Title, a.Description, Deref(a.AssignedToTeam), a.Category}
		found := false
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field), q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Apply filters, sorts and pages the given actions
func (f *ActionFilter) Apply(actions []*Action) *ActionPage {
	matched := make([]*Action, 0, len(actions))
	for _, a := range actions {
		if f.Match(a) {
			matched = append(matched, a)
		}
	}

	SortActions(matched, f.SortBy, f.SortDesc)

	page := &ActionPage{
		Total: len(matched),
		Page:  f.Page,
		Limit: f.Limit,
		Items: []*Action{},
	}
	start := (f.Page - 1) * f.Limit
	if start >= len(matched) {
		return page
	}
	end := min(start+f.Limit, len(matched))
	page.Items = matched[start:end]
	return page
}

// SortActions orders actions by key. Ties are broken by ID for stable paging.
func SortActions(actions []*Action, key ActionSortKey, desc bool) {
	less := func(a, b *Action) int {
		switch key {
		case SortByUpdatedAt:
			return a.UpdatedAt.Compare(b.UpdatedAt)
		case SortByDueDate:
			return a.DueDate.Compare(b.DueDate)
		case SortByPriority:
			return a.Priority.Rank() - b.Priority.Rank()
		case SortByStatus:
			return strings.Compare(string(a.Status), string(b.Status))
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}

	sort.SliceStable(actions, func(i, j int) bool {
		c := less(actions[i], actions[j])
		if c == 0 {
			return actions[i].ID < actions[j].ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// EscalationQuery selects actions a rule may escalate
type EscalationQuery struct {
	Trigger    types.TriggerType
	Cutoff     time.Time
	Priorities []types.Priority
	Categories []string
	SurveyIDs  []string
}

// Statuses returns the statuses an action may have to be escalated by the query's trigger
func (q *EscalationQuery) Statuses() []types.ActionStatus {
	switch q.Trigger {
	case types.TriggerNoProgress:
		return []types.ActionStatus{types.ActionStatusPending, types.ActionStatusOpen}
	case types.TriggerHighPriorityStale:
		return []types.ActionStatus{types.ActionStatusPending}
	default:
		return []types.ActionStatus{types.ActionStatusPending, types.ActionStatusOpen, types.ActionStatusInProgress}
	}
}

// SortKey returns the time field the trigger compares with the cutoff. Candidates
// furthest past the cutoff are picked first.
func (q *EscalationQuery) SortKey() ActionSortKey {
	switch q.Trigger {
	case types.TriggerSLABreach:
		return SortByDueDate
	case types.TriggerNoProgress:
		return SortByUpdatedAt
	default:
		return SortByCreatedAt
	}
}

// Match reports whether the action is an escalation candidate for the query
func (q *EscalationQuery) Match(a *Action) bool {
	if a.IsDeleted || a.EscalatedTo != nil || a.Status == types.ActionStatusResolved {
		return false
	}

	switch q.Trigger {
	case types.TriggerSLABreach:
		if a.DueDate.IsZero() || !a.DueDate.Before(q.Cutoff) {
			return false
		}
	case types.TriggerNoProgress:
		if !a.UpdatedAt.Before(q.Cutoff) {
			return false
		}
		if a.Status != types.ActionStatusPending && a.Status != types.ActionStatusOpen {
			return false
		}
	case types.TriggerHighPriorityStale:
		if a.Priority != types.PriorityHigh || a.Status != types.ActionStatusPending {
			return false
		}
		if !a.CreatedAt.Before(q.Cutoff) {
			return false
		}
	case types.TriggerNoAssignment:
		if a.AssignedTo != nil || !a.CreatedAt.Before(q.Cutoff) {
			return false
		}
	default:
		return false
	}

	conditions := RuleConditions{
		Priorities: q.Priorities,
		Categories: q.Categories,
		SurveyIDs:  q.SurveyIDs,
	}
	return conditions.Match(SubjectOf(a))
}

// SimilarQuery finds earlier actions raised for the same category in a given survey
type SimilarQuery struct {
	Category  string
	SurveyID  string
	ExcludeID ActionID
}

// CategoryPattern returns the case-insensitive whole-string category pattern
func (q *SimilarQuery) CategoryPattern() *regexp.Regexp {
	return regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(strings.TrimSpace(q.Category)) + `$`)
}

// Match reports whether the action is similar according to the query
func (q *SimilarQuery) Match(a *Action) bool {
	if a.IsDeleted || a.ID == q.ExcludeID {
		return false
	}
	if a.Metadata.SurveyID != q.SurveyID {
		return false
	}
	return q.CategoryPattern().MatchString(strings.TrimSpace(a.Category))
}
