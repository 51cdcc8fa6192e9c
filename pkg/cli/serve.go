package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feedbackloop/actionflow/pkg/cli/config"
	httpctrl "github.com/feedbackloop/actionflow/pkg/controller/http"
	"github.com/feedbackloop/actionflow/pkg/service/worker"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func cmdServe() *cli.Command {
	var addr string
	var noWorker bool
	var be backends
	var authCfg config.Auth

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("ACTIONFLOW_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "no-worker",
			Usage:       "Do not run scheduled jobs in this process",
			Sources:     cli.EnvVars("ACTIONFLOW_NO_WORKER"),
			Destination: &noWorker,
		},
	}
	flags = append(flags, be.Flags()...)
	flags = append(flags, authCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server and scheduled jobs",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			rt, err := be.build(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			authUC, err := authCfg.Configure(rt.repo)
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}
			if authCfg.IsNoAuthMode() {
				logger.Warn("Running in no-auth mode (development only)", "auth", authCfg)
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(rt.uc, httpctrl.WithAuth(authUC)),
				ReadHeaderTimeout: 30 * time.Second,
			}

			var scheduler *worker.Scheduler
			if !noWorker {
				scheduler = worker.NewScheduler(rt.jobs, rt.workers...)
				if err := scheduler.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start scheduler")
				}
				defer scheduler.Stop()
			}

			sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			eg, egCtx := errgroup.WithContext(sigCtx)
			eg.Go(func() error {
				logger.Info("Starting HTTP server", "addr", addr, "worker", !noWorker)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "failed to start server")
				}
				return nil
			})
			eg.Go(func() error {
				<-egCtx.Done()
				logger.Info("Shutting down", "cause", context.Cause(egCtx))

				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}
				return nil
			})

			if err := eg.Wait(); err != nil {
				return err
			}

			logger.Info("Server shutdown completed")
			return nil
		},
	}
}
