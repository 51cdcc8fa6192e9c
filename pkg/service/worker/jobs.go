package worker

import (
	"context"
	"time"

	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
)

// Job names accepted by the run command
const (
	JobEscalation = "escalation"
	JobTrend      = "trend"
	JobOverdue    = "overdue"
	JobCleanup    = "cleanup"
)

// Intervals sets how often each lifecycle job runs
type Intervals struct {
	Escalation time.Duration
	Trend      time.Duration
	Overdue    time.Duration
	Cleanup    time.Duration
}

// DefaultIntervals returns the intervals used when nothing is configured
func DefaultIntervals() Intervals {
	return Intervals{
		Escalation: usecase.DefaultEscalationConfig().TickInterval,
		Trend:      usecase.DefaultTrendConfig().Interval,
		Overdue:    usecase.DefaultOverdueConfig().Interval,
		Cleanup:    24 * time.Hour,
	}
}

// LifecycleJobs builds the escalation, trend, overdue and cleanup jobs
func LifecycleJobs(uc *usecase.UseCases, iv Intervals) []Job {
	return []Job{
		{
			Name:     JobEscalation,
			Interval: iv.Escalation,
			Run: func(ctx context.Context) (any, error) {
				return uc.Escalation.RunTick(ctx)
			},
		},
		{
			Name:     JobTrend,
			Interval: iv.Trend,
			Run: func(ctx context.Context) (any, error) {
				return uc.Trend.Run(ctx)
			},
		},
		{
			Name:     JobOverdue,
			Interval: iv.Overdue,
			Run: func(ctx context.Context) (any, error) {
				return uc.Overdue.Run(ctx)
			},
		},
		{
			Name:     JobCleanup,
			Interval: iv.Cleanup,
			Run: func(ctx context.Context) (any, error) {
				return uc.Notification.Cleanup(ctx)
			},
		},
	}
}

// FindJob returns the job with the given name
func FindJob(jobs []Job, name string) (Job, error) {
	for _, j := range jobs {
		if j.Name == name {
			return j, nil
		}
	}
	return Job{}, goerr.New("unknown job", goerr.V("job", name))
}
