package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/feedbackloop/actionflow/pkg/utils/errutil"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// TrendConfig bounds the work of one trend run
type TrendConfig struct {
	Interval     time.Duration
	BatchSize    int
	BatchTimeout time.Duration
}

// DefaultTrendConfig returns the default trend settings
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		Interval:     24 * time.Hour,
		BatchSize:    100,
		BatchTimeout: 5 * time.Minute,
	}
}

// TrendReport summarises a classifier run
type TrendReport struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
	Total     int `json:"total"`
}

func (r *TrendReport) add(o *TrendReport) {
	r.Processed += o.Processed
	r.Errors += o.Errors
	r.Total += o.Total
}

type TrendUseCase struct {
	repo   interfaces.Repository
	config TrendConfig
	now    func() time.Time
}

func NewTrendUseCase(repo interfaces.Repository, cfg TrendConfig, now func() time.Time) *TrendUseCase {
	defaults := DefaultTrendConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaults.BatchTimeout
	}
	return &TrendUseCase{repo: repo, config: cfg, now: now}
}

// Run classifies every pending action of every active tenant
func (uc *TrendUseCase) Run(ctx context.Context) (*TrendReport, error) {
	tenants, err := uc.repo.Tenant().ListActive(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list active tenants")
	}

	report := &TrendReport{}
	for _, tenant := range tenants {
		if ctx.Err() != nil {
			return report, goerr.Wrap(ctx.Err(), "trend run cancelled")
		}
		r, err := uc.RunTenant(ctx, tenant.ID)
		if err != nil {
			report.Errors++
			errutil.Handle(ctx, err, "trend classification failed for tenant")
			continue
		}
		report.add(r)
	}

	logging.From(ctx).Info("trend run finished",
		"tenants", len(tenants),
		"processed", report.Processed,
		"errors", report.Errors,
		"total", report.Total,
	)
	return report, nil
}

// RunTenant classifies the tenant's pending actions batch by batch. Actions that failed
// stay pending for the next run and are skipped for the rest of this one.
func (uc *TrendUseCase) RunTenant(ctx context.Context, tenantID string) (*TrendReport, error) {
	ctx = logging.With(ctx, logging.From(ctx).With("tenant_id", tenantID))
	report := &TrendReport{}
	failed := make(map[model.ActionID]struct{})

	for {
		limit := uc.config.BatchSize + len(failed)
		pending, err := uc.repo.Action().ListTrendPending(ctx, tenantID, limit)
		if err != nil {
			return report, goerr.Wrap(err, "failed to list trend pending actions", goerr.V(TenantIDKey, tenantID))
		}

		progressed := uc.runBatch(ctx, tenantID, pending, failed, report)
		if progressed == 0 || len(pending) < limit || ctx.Err() != nil {
			return report, nil
		}
	}
}

// runBatch classifies one batch under the batch budget and returns how many actions it attempted
func (uc *TrendUseCase) runBatch(ctx context.Context, tenantID string, pending []*model.Action, failed map[model.ActionID]struct{}, report *TrendReport) int {
	batchCtx, cancel := context.WithTimeout(ctx, uc.config.BatchTimeout)
	defer cancel()

	attempted := 0
	for _, a := range pending {
		if _, ok := failed[a.ID]; ok {
			continue
		}
		if batchCtx.Err() != nil {
			logging.From(ctx).Warn("trend batch budget exhausted", "attempted", attempted)
			break
		}
		attempted++
		report.Total++

		if err := uc.classifyAndStore(batchCtx, tenantID, a); err != nil {
			failed[a.ID] = struct{}{}
			report.Errors++
			errutil.Handle(ctx, err, "failed to classify action trend")
			continue
		}
		report.Processed++
	}
	return attempted
}

func (uc *TrendUseCase) classifyAndStore(ctx context.Context, tenantID string, a *model.Action) error {
	trend, err := uc.Classify(ctx, a)
	if err != nil {
		return err
	}

	_, err = mutateAction(ctx, uc.repo.Action(), tenantID, a.ID, func(current *model.Action) error {
		current.TrendData = *trend
		return nil
	})
	return err
}

// Classify computes the recurrence context of an action against the previous survey
func (uc *TrendUseCase) Classify(ctx context.Context, a *model.Action) (*model.TrendData, error) {
	now := uc.now()
	sentiment := a.Metadata.Sentiment

	var feedback *model.FeedbackAnalysis
	if a.FeedbackRef != nil {
		fb, err := uc.repo.Feedback().Get(ctx, a.TenantID, *a.FeedbackRef)
		switch {
		case err == nil:
			feedback = fb
			if fb.Sentiment != "" {
				sentiment = fb.Sentiment
			}
		case !errors.Is(err, interfaces.ErrNotFound):
			return nil, goerr.Wrap(err, "failed to load feedback", goerr.V(ActionIDKey, a.ID), goerr.V(FeedbackIDKey, *a.FeedbackRef))
		}
	}

	trend := &model.TrendData{
		MetricName:      a.Category,
		ChangeDirection: sentiment.ChangeDirection(),
		IssueStatus:     types.IssueStatusNew,
		IsRecurring:     false,
		FirstDetectedAt: model.Ptr(a.CreatedAt),
		CalculatedAt:    model.Ptr(now),
	}

	current, err := uc.currentSurvey(ctx, a, feedback)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return trend, nil
	}

	previous, err := uc.repo.Survey().GetPrevious(ctx, a.TenantID, current.CreatedAt)
	if errors.Is(err, interfaces.ErrNotFound) {
		return trend, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load previous survey", goerr.V(ActionIDKey, a.ID), goerr.V("survey_id", current.ID))
	}
	trend.PreviousSurveyID = model.Ptr(previous.ID)

	if strings.TrimSpace(a.Category) == "" {
		return trend, nil
	}

	similar, err := uc.repo.Action().ListSimilar(ctx, a.TenantID, &model.SimilarQuery{
		Category:  a.Category,
		SurveyID:  previous.ID,
		ExcludeID: a.ID,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list similar actions", goerr.V(ActionIDKey, a.ID))
	}

	total := len(similar)
	if total == 0 {
		return trend, nil
	}

	resolved := 0
	earliest := a.CreatedAt
	for _, s := range similar {
		if s.Status == types.ActionStatusResolved {
			resolved++
		}
		if s.CreatedAt.Before(earliest) {
			earliest = s.CreatedAt
		}
	}

	trend.IsRecurring = true
	trend.FirstDetectedAt = model.Ptr(earliest)
	if resolved == total {
		trend.IssueStatus = types.IssueStatusWorsening
	} else {
		trend.IssueStatus = types.IssueStatusChronic
	}
	return trend, nil
}

// currentSurvey resolves the survey the action was raised from, via the feedback,
// then the response, then the action's own metadata
func (uc *TrendUseCase) currentSurvey(ctx context.Context, a *model.Action, feedback *model.FeedbackAnalysis) (*model.Survey, error) {
	surveyID := ""
	if feedback != nil {
		surveyID = feedback.SurveyID
		if surveyID == "" && feedback.ResponseID != "" {
			resp, err := uc.repo.SurveyResponse().Get(ctx, a.TenantID, feedback.ResponseID)
			switch {
			case err == nil:
				surveyID = resp.SurveyID
			case !errors.Is(err, interfaces.ErrNotFound):
				return nil, goerr.Wrap(err, "failed to load survey response", goerr.V("response_id", feedback.ResponseID))
			}
		}
	}
	if surveyID == "" {
		surveyID = a.Metadata.SurveyID
	}
	if surveyID == "" {
		return nil, nil
	}

	survey, err := uc.repo.Survey().Get(ctx, a.TenantID, surveyID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load survey", goerr.V("survey_id", surveyID))
	}
	return survey, nil
}
