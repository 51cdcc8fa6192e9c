package config

import (
	"context"
	"log/slog"

	"cloud.google.com/go/storage"
	"github.com/feedbackloop/actionflow/pkg/service/archive"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/feedbackloop/actionflow/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Storage holds CLI flags for archiving job reports to Cloud Storage
type Storage struct {
	bucket string
	prefix string
}

func (x *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "report-bucket",
			Usage:       "Cloud Storage bucket for scheduled job reports",
			Category:    "Storage",
			Destination: &x.bucket,
			Sources:     cli.EnvVars("ACTIONFLOW_REPORT_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "report-prefix",
			Usage:       "Object name prefix for job reports",
			Category:    "Storage",
			Value:       "reports/",
			Destination: &x.prefix,
			Sources:     cli.EnvVars("ACTIONFLOW_REPORT_PREFIX"),
		},
	}
}

func (x Storage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bucket", x.bucket),
		slog.String("prefix", x.prefix),
	)
}

// Configure creates the report archive. Returns nil when no bucket is set.
func (x *Storage) Configure(ctx context.Context) (*archive.GCS, func(), error) {
	if x.bucket == "" {
		return nil, func() {}, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create storage client")
	}

	closer := func() { safe.Close(ctx, client) }

	logging.Default().Info("Job reports archived to Cloud Storage", "bucket", x.bucket, "prefix", x.prefix)
	return archive.NewGCS(client, x.bucket, archive.WithPrefix(x.prefix)), closer, nil
}
