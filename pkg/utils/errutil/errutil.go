package errutil

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
)

var sentryEnabled atomic.Bool

// EnableSentry turns on error reporting to Sentry. sentry.Init must have been called before.
func EnableSentry() {
	sentryEnabled.Store(true)
}

// Handle logs the error with a message and reports it to Sentry when enabled.
// The error is returned unchanged so callers can use it inline.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error(msg, "error", err.Error())
	}

	report(ctx, err, msg)
	return err
}

// HandleHTTP logs the error and writes an HTTP error response with a JSON body.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int) {
	if err == nil {
		return
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error("HTTP error",
			"status", statusCode,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error("HTTP error",
			"status", statusCode,
			"error", err.Error(),
		)
	}

	// Only server side failures are worth an alert
	if statusCode >= http.StatusInternalServerError {
		report(ctx, err, "HTTP error")
	}

	http.Error(w, err.Error(), statusCode)
}

func report(ctx context.Context, err error, msg string) {
	if !sentryEnabled.Load() {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("message", msg)
		if values := errorContext(err); values != nil {
			scope.SetContext("goerr", values)
		}
		hub.CaptureException(err)
	})
}

// errorContext collects goerr values of err as a Sentry context. Returns nil
// when err carries no values.
func errorContext(err error) sentry.Context {
	var ge *goerr.Error
	if !errors.As(err, &ge) {
		return nil
	}
	values := ge.Values()
	if len(values) == 0 {
		return nil
	}
	c := make(sentry.Context, len(values))
	for k, v := range values {
		c[k] = v
	}
	return c
}
