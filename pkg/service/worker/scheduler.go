package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/feedbackloop/actionflow/pkg/utils/errutil"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Job is a periodic task. Run returns a report that is logged and archived.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (any, error)
}

// ReportSink stores the report of a finished job run
type ReportSink interface {
	Store(ctx context.Context, job string, startedAt time.Time, report any) error
}

// ErrLocked is returned by RunOnce when another runner holds the job lock
var ErrLocked = goerr.New("job is locked by another runner")

// Scheduler runs jobs on their own tickers. Each run takes the job lock first,
// so with a shared Locker only one replica executes a given job at a time.
//
// Architecture assumptions:
// - One Scheduler per process
// - Runs of the same job never overlap within a process
type Scheduler struct {
	jobs    []Job
	locker  Locker
	sink    ReportSink
	lockTTL time.Duration
	now     func() time.Time
	onStart bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithLocker sets the lock shared between replicas. Defaults to a process-local lock.
func WithLocker(l Locker) Option {
	return func(s *Scheduler) {
		s.locker = l
	}
}

// WithReportSink archives every run's report
func WithReportSink(sink ReportSink) Option {
	return func(s *Scheduler) {
		s.sink = sink
	}
}

// WithLockTTL bounds how long a crashed runner can hold a job lock. Non-positive
// values are ignored.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Scheduler) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithClock replaces the clock used to stamp runs
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithRunOnStart runs every job once right after Start
func WithRunOnStart() Option {
	return func(s *Scheduler) {
		s.onStart = true
	}
}

// NewScheduler creates a scheduler for the given jobs
func NewScheduler(jobs []Job, opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:    jobs,
		locker:  NewLocalLocker(),
		lockTTL: 10 * time.Minute,
		now:     time.Now,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the background loops and returns immediately
func (s *Scheduler) Start(ctx context.Context) error {
	for _, job := range s.jobs {
		if job.Interval <= 0 {
			return goerr.New("job interval must be positive", goerr.V("job", job.Name), goerr.V("interval", job.Interval))
		}
		if job.Run == nil {
			return goerr.New("job has no run function", goerr.V("job", job.Name))
		}
	}

	logging.From(ctx).Info("scheduler starting", "jobs", len(s.jobs))

	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, job)
		}()
	}

	go func() {
		wg.Wait()
		close(s.doneCh)
	}()
	return nil
}

// Stop signals every loop to stop and waits for running jobs to return
func (s *Scheduler) Stop() {
	logging.Default().Info("scheduler stopping")
	close(s.stopCh)
	<-s.doneCh
	logging.Default().Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	ctx = logging.With(ctx, logging.From(ctx).With("job", job.Name))

	if s.onStart {
		s.tick(ctx, job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx, job)

		case <-s.stopCh:
			return

		case <-ctx.Done():
			logging.From(ctx).Info("scheduler context cancelled")
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, job Job) {
	if _, err := s.RunOnce(ctx, job); err != nil {
		if errors.Is(err, ErrLocked) {
			logging.From(ctx).Debug("job skipped, lock held elsewhere")
			return
		}
		errutil.Handle(ctx, err, "scheduled job failed")
	}
}

// RunOnce runs the job under its lock and archives the report. The lock is
// extended every third of its TTL while the job runs; the job context is
// cancelled with ErrLeaseLost when the lock can no longer be held.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) (any, error) {
	lease, ok, err := s.locker.Acquire(ctx, lockKey(job.Name), s.lockTTL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to acquire job lock", goerr.V("job", job.Name))
	}
	if !ok {
		return nil, goerr.Wrap(ErrLocked, "job lock not acquired", goerr.V("job", job.Name))
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	stopRenewal := s.keepAlive(runCtx, lease, cancel)
	defer func() {
		stopRenewal()
		cancel(nil)
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			errutil.Handle(ctx, err, "failed to release job lock")
		}
	}()

	startedAt := s.now()
	report, err := job.Run(runCtx)
	if cause := context.Cause(runCtx); errors.Is(cause, ErrLeaseLost) {
		return nil, goerr.Wrap(cause, "job stopped after losing its lock", goerr.V("job", job.Name))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "job run failed", goerr.V("job", job.Name))
	}

	logging.From(ctx).Info("job finished",
		"job", job.Name,
		"duration", s.now().Sub(startedAt).String(),
		"report", report,
	)

	if s.sink != nil {
		if err := s.sink.Store(ctx, job.Name, startedAt, report); err != nil {
			errutil.Handle(ctx, err, "failed to archive job report")
		}
	}
	return report, nil
}

// keepAlive extends lease until the returned stop func is called. A lease that
// is lost, or that could not be extended for a whole TTL, cancels ctx.
func (s *Scheduler) keepAlive(ctx context.Context, lease Lease, lost context.CancelCauseFunc) func() {
	interval := s.lockTTL / 3
	if interval <= 0 {
		interval = s.lockTTL
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		extendedAt := time.Now()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := lease.Extend(ctx, s.lockTTL)
				if err == nil {
					extendedAt = time.Now()
					continue
				}
				if !errors.Is(err, ErrLeaseLost) && time.Since(extendedAt) < s.lockTTL {
					logging.From(ctx).Warn("failed to extend job lock, retrying", "error", err.Error())
					continue
				}
				if !errors.Is(err, ErrLeaseLost) {
					err = goerr.Wrap(ErrLeaseLost, "job lock expired while unreachable", goerr.V("cause", err.Error()))
				}
				errutil.Handle(ctx, err, "job lock lost")
				lost(err)
				return
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

func lockKey(job string) string {
	return "actionflow:job:" + job
}
