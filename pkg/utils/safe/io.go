package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/feedbackloop/actionflow/pkg/utils/logging"
)

// Close closes an io.Closer and logs failures. A nil closer is ignored.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("Failed to close", slog.Any("error", err))
	}
}

// Write writes data to w and logs failures. Used for response bodies where
// the client may already be gone.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.From(ctx).Warn("Failed to write response", slog.Any("error", err))
	}
}
