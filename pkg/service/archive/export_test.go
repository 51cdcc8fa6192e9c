package archive

import (
	"context"
	"io"
)

// NewWithOpener creates an archive writing through open instead of Cloud Storage
func NewWithOpener(open func(ctx context.Context, object string) io.WriteCloser, opts ...Option) *GCS {
	g := &GCS{open: open, bucket: "test"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}
