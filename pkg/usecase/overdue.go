package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/feedbackloop/actionflow/pkg/utils/errutil"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// OverdueConfig bounds the overdue sweep
type OverdueConfig struct {
	Interval  time.Duration
	BatchSize int
}

// DefaultOverdueConfig returns the default overdue sweep settings
func DefaultOverdueConfig() OverdueConfig {
	return OverdueConfig{
		Interval:  time.Hour,
		BatchSize: 100,
	}
}

// OverdueReport summarises an overdue sweep
type OverdueReport struct {
	Tenants  int `json:"tenants"`
	Overdue  int `json:"overdue"`
	Notified int `json:"notified"`
	Errors   int `json:"errors"`
}

type OverdueUseCase struct {
	repo          interfaces.Repository
	notifications *NotificationUseCase
	config        OverdueConfig
	now           func() time.Time
}

func NewOverdueUseCase(repo interfaces.Repository, notifications *NotificationUseCase, cfg OverdueConfig, now func() time.Time) *OverdueUseCase {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultOverdueConfig().BatchSize
	}
	return &OverdueUseCase{
		repo:          repo,
		notifications: notifications,
		config:        cfg,
		now:           now,
	}
}

// Run reports every action that passed its due date exactly once. The action is
// marked before the fan-out so a crash never produces a second round.
func (uc *OverdueUseCase) Run(ctx context.Context) (*OverdueReport, error) {
	tenants, err := uc.repo.Tenant().ListActive(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list active tenants")
	}

	now := uc.now()
	report := &OverdueReport{}
	for _, tenant := range tenants {
		report.Tenants++

		actions, err := uc.repo.Action().ListOverdue(ctx, tenant.ID, now, uc.config.BatchSize)
		if err != nil {
			report.Errors++
			errutil.Handle(ctx, goerr.Wrap(err, "failed to list overdue actions", goerr.V(TenantIDKey, tenant.ID)), "overdue sweep failed for tenant")
			continue
		}
		report.Overdue += len(actions)

		for _, a := range actions {
			marked, err := mutateAction(ctx, uc.repo.Action(), tenant.ID, a.ID, func(current *model.Action) error {
				if current.OverdueNotifiedAt != nil || !current.IsOverdue(now) {
					return errAlreadyHandled
				}
				current.OverdueNotifiedAt = model.Ptr(now)
				return nil
			})
			if errors.Is(err, errAlreadyHandled) {
				continue
			}
			if err != nil {
				report.Errors++
				errutil.Handle(ctx, err, "failed to mark overdue action")
				continue
			}

			if uc.notifications == nil {
				continue
			}
			results, err := uc.notifications.NotifyUrgentAction(ctx, marked,
				types.NotificationActionOverdue,
				"Action overdue",
				fmt.Sprintf("%s was due %s", marked.Title, marked.DueDate.Format("2006-01-02")))
			if err != nil {
				report.Errors++
				errutil.Handle(ctx, err, "failed to notify overdue action")
				continue
			}
			for _, r := range results {
				if !r.Skipped {
					report.Notified++
				}
			}
		}
	}

	logging.From(ctx).Info("overdue sweep finished",
		"tenants", report.Tenants,
		"overdue", report.Overdue,
		"notified", report.Notified,
		"errors", report.Errors,
	)
	return report, nil
}
