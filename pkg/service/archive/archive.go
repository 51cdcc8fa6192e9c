package archive

import (
	"context"
	"encoding/json"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// Record is the archived form of one job run
type Record struct {
	Job       string    `json:"job"`
	StartedAt time.Time `json:"startedAt"`
	Report    any       `json:"report"`
}

// GCS writes job reports as JSON objects into a Cloud Storage bucket
type GCS struct {
	open   func(ctx context.Context, object string) io.WriteCloser
	bucket string
	prefix string
}

// Option configures GCS
type Option func(*GCS)

// WithPrefix puts every object under prefix, e.g. "reports/"
func WithPrefix(prefix string) Option {
	return func(g *GCS) {
		g.prefix = prefix
	}
}

// NewGCS creates an archive writing to bucket
func NewGCS(client *storage.Client, bucket string, opts ...Option) *GCS {
	g := &GCS{
		bucket: bucket,
		open: func(ctx context.Context, object string) io.WriteCloser {
			w := client.Bucket(bucket).Object(object).NewWriter(ctx)
			w.ContentType = "application/json"
			return w
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ObjectName returns where the report of a run is stored:
// <prefix><job>/<yyyy>/<mm>/<dd>/<hhmmss>.json
func (g *GCS) ObjectName(job string, startedAt time.Time) string {
	return g.prefix + path.Join(job, startedAt.UTC().Format("2006/01/02/150405")+".json")
}

// Store writes the report. The object is only committed when Close succeeds.
func (g *GCS) Store(ctx context.Context, job string, startedAt time.Time, report any) error {
	object := g.ObjectName(job, startedAt)

	raw, err := json.Marshal(&Record{Job: job, StartedAt: startedAt.UTC(), Report: report})
	if err != nil {
		return goerr.Wrap(err, "failed to marshal job report", goerr.V("job", job))
	}

	w := g.open(ctx, object)
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write job report",
			goerr.V("bucket", g.bucket), goerr.V("object", object))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to commit job report",
			goerr.V("bucket", g.bucket), goerr.V("object", object))
	}
	return nil
}
