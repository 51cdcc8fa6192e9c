package cli

import (
	"context"

	"github.com/feedbackloop/actionflow/pkg/cli/config"
	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/feedbackloop/actionflow/pkg/service/realtime"
	"github.com/feedbackloop/actionflow/pkg/service/worker"
	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/feedbackloop/actionflow/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// backends groups the flags shared by serve and run
type backends struct {
	app     config.App
	repo    config.Repository
	gemini  config.Gemini
	slack   config.Slack
	redis   config.Redis
	storage config.Storage
}

func (b *backends) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, b.app.Flags()...)
	flags = append(flags, b.repo.Flags()...)
	flags = append(flags, b.gemini.Flags()...)
	flags = append(flags, b.slack.Flags()...)
	flags = append(flags, b.redis.Flags()...)
	flags = append(flags, b.storage.Flags()...)
	return flags
}

// stack is the wired application
type stack struct {
	appCfg  *config.AppConfig
	repo    interfaces.Repository
	uc      *usecase.UseCases
	jobs    []worker.Job
	workers []worker.Option
	closers []func()
}

// Close releases backends in reverse order of creation
func (r *stack) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func (b *backends) build(ctx context.Context, extra ...usecase.Option) (*stack, error) {
	logger := logging.Default()
	rt := &stack{}
	built := false
	defer func() {
		if !built {
			rt.Close()
		}
	}()

	appCfg, err := b.app.Configure()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load configuration")
	}
	rt.appCfg = appCfg

	repo, closeRepo, err := b.repo.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize repository")
	}
	rt.repo = repo
	rt.closers = append(rt.closers, closeRepo)

	ucOpts := rt.appCfg.UseCaseOptions()

	insightSvc, err := b.gemini.Configure(ctx)
	if err != nil {
		return nil, err
	}
	if insightSvc != nil {
		ucOpts = append(ucOpts, usecase.WithInsight(insightSvc))
		logger.Info("AI action generation enabled", "gemini", b.gemini)
	} else {
		logger.Info("Gemini not configured, action generation uses the deterministic fallback")
	}

	slackSvc, err := b.slack.Configure()
	if err != nil {
		return nil, err
	}
	if slackSvc != nil {
		ucOpts = append(ucOpts, usecase.WithSlack(slackSvc))
		logger.Info("Slack notification DMs enabled", "slack", b.slack)
	}

	redisClient, err := b.redis.Configure(ctx)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		rt.closers = append(rt.closers, func() { safe.Close(ctx, redisClient) })
		publisher := realtime.NewRedisPublisher(redisClient, realtime.WithChannelPrefix(b.redis.ChannelPrefix()))
		ucOpts = append(ucOpts, usecase.WithPublisher(publisher))
		rt.workers = append(rt.workers, worker.WithLocker(worker.NewRedisLocker(redisClient)))
		logger.Info("Redis enabled for realtime push and job locks", "redis", b.redis)
	} else {
		rt.workers = append(rt.workers, worker.WithLocker(worker.NewLocalLocker()))
	}

	reports, closeStorage, err := b.storage.Configure(ctx)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, closeStorage)
	if reports != nil {
		rt.workers = append(rt.workers, worker.WithReportSink(reports))
	}

	ucOpts = append(ucOpts, extra...)
	rt.uc = usecase.New(repo, ucOpts...)
	rt.closers = append(rt.closers, rt.uc.Wait)
	rt.jobs = worker.LifecycleJobs(rt.uc, rt.appCfg.Intervals())

	built = true
	return rt, nil
}
