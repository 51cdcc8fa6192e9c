package cli

import (
	"context"
	"fmt"

	"github.com/feedbackloop/actionflow/pkg/cli/config"
	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var appCfg config.App
	var repoCfg config.Repository
	var checkDB bool

	var flags []cli.Flag
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, &cli.BoolFlag{
		Name:        "check-db",
		Usage:       "Revalidate stored escalation rules against the user directory",
		Destination: &checkDB,
	})

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the configuration file and optionally stored escalation rules",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			cfg, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}
			logger.Info("Configuration validation passed",
				"path", appCfg.Path(),
				"escalation", cfg.Escalation,
				"trend", cfg.Trend,
				"notification", cfg.Notification,
				"overdue", cfg.Overdue,
			)

			if !checkDB {
				return nil
			}

			repo, closer, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer closer()

			uc := usecase.New(repo, cfg.UseCaseOptions()...)
			issues, err := uc.EscalationRule.Audit(ctx)
			if err != nil {
				return goerr.Wrap(err, "escalation rule check failed")
			}

			if len(issues) > 0 {
				for _, issue := range issues {
					logger.Warn("Escalation rule issue found",
						"tenant_id", issue.TenantID,
						"rule_id", issue.RuleID,
						"name", issue.Name,
						"fields", issue.Fields,
					)
				}
				return fmt.Errorf("escalation rule check found %d issue(s)", len(issues))
			}

			logger.Info("Escalation rule check passed")
			return nil
		},
	}
}
