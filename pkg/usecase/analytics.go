package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/model/auth"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
)

const unassignedTeam = "unassigned"

// TimelinePoint counts actions created and resolved on one UTC day
type TimelinePoint struct {
	Date     string `json:"date"`
	Created  int    `json:"created"`
	Resolved int    `json:"resolved"`
}

// AnalyticsReport aggregates the actions visible to the actor
type AnalyticsReport struct {
	Total                  int                        `json:"total"`
	ByPriority             map[types.Priority]int     `json:"byPriority"`
	ByStatus               map[types.ActionStatus]int `json:"byStatus"`
	ByTeam                 map[string]int             `json:"byTeam"`
	Timeline               []TimelinePoint            `json:"timeline"`
	Overdue                int                        `json:"overdue"`
	AverageResolutionHours *float64                   `json:"averageResolutionHours"`
}

// Analytics aggregates the actions matching the filter. Paging fields of the filter are ignored.
func (uc *ActionUseCase) Analytics(ctx context.Context, actor *auth.Actor, filter *model.ActionFilter) (*AnalyticsReport, error) {
	if err := Guard(actor); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &model.ActionFilter{}
	}
	if err := filter.Normalize(); err != nil {
		return nil, invalidField(err, "filter")
	}

	actions, err := uc.visibleActions(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	return aggregate(actions, uc.now()), nil
}

func aggregate(actions []*model.Action, now time.Time) *AnalyticsReport {
	report := &AnalyticsReport{
		ByPriority: make(map[types.Priority]int),
		ByStatus:   make(map[types.ActionStatus]int),
		ByTeam:     make(map[string]int),
		Timeline:   []TimelinePoint{},
	}

	days := make(map[string]*TimelinePoint)
	point := func(t time.Time) *TimelinePoint {
		key := t.UTC().Format(time.DateOnly)
		p, ok := days[key]
		if !ok {
			p = &TimelinePoint{Date: key}
			days[key] = p
		}
		return p
	}

	var resolvedCount int
	var resolutionTotal time.Duration
	for _, a := range actions {
		report.Total++
		report.ByPriority[a.Priority]++
		report.ByStatus[a.Status]++

		team := model.Deref(a.AssignedToTeam)
		if team == "" {
			team = unassignedTeam
		}
		report.ByTeam[team]++

		point(a.CreatedAt).Created++
		if a.CompletedAt != nil {
			point(*a.CompletedAt).Resolved++
		}

		if a.IsOverdue(now) {
			report.Overdue++
		}
		if a.Status == types.ActionStatusResolved && a.CompletedAt != nil {
			resolvedCount++
			resolutionTotal += a.CompletedAt.Sub(a.CreatedAt)
		}
	}

	for _, p := range days {
		report.Timeline = append(report.Timeline, *p)
	}
	sort.Slice(report.Timeline, func(i, j int) bool {
		return report.Timeline[i].Date < report.Timeline[j].Date
	})

	if resolvedCount > 0 {
		avg := resolutionTotal.Hours() / float64(resolvedCount)
		report.AverageResolutionHours = &avg
	}
	return report
}
