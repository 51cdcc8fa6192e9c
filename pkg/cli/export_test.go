package cli

import (
	"context"
	"io"
)

// RunWithWriter runs the app with command output sent to w
func RunWithWriter(ctx context.Context, w io.Writer, args []string, version string) error {
	return run(ctx, w, args, version)
}

var GetIndexConfig = getIndexConfig
