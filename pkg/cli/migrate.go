package cli

import (
	"context"

	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var projectID string
	var databaseID string
	var dryRun bool

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (required)",
				Required:    true,
				Sources:     cli.EnvVars("ACTIONFLOW_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("ACTIONFLOW_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview changes without applying",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			logger.Info("Migrate configuration",
				"projectID", projectID,
				"databaseID", databaseID,
				"dryRun", dryRun)

			indexConfig := getIndexConfig()

			client, err := fireconf.NewClient(ctx, projectID, databaseID)
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client")
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Error("failed to close fireconf client", "error", err.Error())
				}
			}()

			if dryRun {
				logger.Info("Dry run mode - previewing changes")
				plan, err := client.GetMigrationPlan(ctx, indexConfig)
				if err != nil {
					return goerr.Wrap(err, "failed to create migration plan")
				}

				if len(plan.Steps) == 0 {
					logger.Info("No changes required")
					return nil
				}

				for _, step := range plan.Steps {
					logger.Info("Migration step",
						"collection", step.Collection,
						"operation", step.Operation,
						"description", step.Description,
						"destructive", step.Destructive)
				}
				return nil
			}

			logger.Info("Applying migrations")
			if err := client.Migrate(ctx, indexConfig); err != nil {
				return goerr.Wrap(err, "failed to apply migrations")
			}
			logger.Info("Migrations applied successfully")
			return nil
		},
	}
}

func asc(path string) fireconf.IndexField {
	return fireconf.IndexField{Path: path, Order: fireconf.OrderAscending}
}

func desc(path string) fireconf.IndexField {
	return fireconf.IndexField{Path: path, Order: fireconf.OrderDescending}
}

func index(fields ...fireconf.IndexField) fireconf.Index {
	return fireconf.Index{Fields: fields}
}

// getIndexConfig returns the Firestore index configuration.
// Collection names are collection group IDs, so tenant subcollections are covered.
func getIndexConfig() *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: "actions",
				Indexes: []fireconf.Index{
					// List with single value filters, newest first
					index(asc("Status"), desc("CreatedAt")),
					index(asc("Priority"), desc("CreatedAt")),
					index(asc("AssignedTo"), desc("CreatedAt")),
					index(asc("IsDeleted"), desc("CreatedAt")),
					// Escalation candidates per trigger field
					index(asc("IsDeleted"), asc("EscalatedTo"), asc("Status"), asc("DueDate"), asc("CreatedAt")),
					index(asc("IsDeleted"), asc("EscalatedTo"), asc("Status"), asc("UpdatedAt"), asc("CreatedAt")),
					index(asc("IsDeleted"), asc("EscalatedTo"), asc("Status"), asc("CreatedAt")),
					index(asc("IsDeleted"), asc("EscalatedTo"), asc("Status"), asc("Priority"), asc("CreatedAt")),
					// Overdue sweep
					index(asc("OverdueNotifiedAt"), asc("DueDate")),
					// Trend classifier
					index(asc("IsDeleted"), asc("TrendData.CalculatedAt")),
					index(asc("IsDeleted"), asc("Metadata.SurveyID")),
				},
			},
			{
				Name: "notifications",
				Indexes: []fireconf.Index{
					// Inbox
					index(asc("UserID"), desc("CreatedAt")),
					index(asc("UserID"), asc("TenantID"), desc("CreatedAt")),
					index(asc("UserID"), asc("Status"), desc("CreatedAt")),
					index(asc("UserID"), asc("TenantID"), asc("Status"), desc("CreatedAt")),
					// Retention cleanup
					index(asc("Status"), asc("CreatedAt")),
				},
			},
			{
				Name: "escalation_rules",
				Indexes: []fireconf.Index{
					index(asc("IsActive"), desc("Priority")),
				},
			},
			{
				Name: "users",
				Indexes: []fireconf.Index{
					index(asc("TenantID"), asc("IsActive"), asc("CreatedAt")),
					index(asc("TenantID"), asc("IsActive"), asc("Role"), asc("CreatedAt")),
					index(asc("TenantID"), asc("Role"), asc("CreatedAt")),
					index(asc("TenantID"), asc("CreatedAt")),
				},
			},
		},
	}
}
