package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/feedbackloop/actionflow/pkg/domain/model/auth"
	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/feedbackloop/actionflow/pkg/utils/errutil"
	"github.com/feedbackloop/actionflow/pkg/utils/logging"
	"github.com/feedbackloop/actionflow/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string               `json:"error"`
	Kind   usecase.ErrorKind    `json:"kind"`
	Fields []usecase.FieldError `json:"fields,omitempty"`
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "failed to marshal response body"), "failed to encode JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	safe.Write(ctx, w, append(raw, '\n'))
}

// writeError maps err to its status code. Server side failures are reported and
// their detail is not exposed to the client.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	kind, status := usecase.ErrorStatus(err)

	resp := errorResponse{Error: err.Error(), Kind: kind}
	if status >= http.StatusInternalServerError {
		errutil.Handle(ctx, err, "request failed")
		if kind == usecase.KindInternal {
			resp.Error = "internal server error"
		}
	} else {
		logging.From(ctx).Info("request rejected", "kind", kind, "status", status, "error", err.Error())
	}

	var ve *usecase.ValidationError
	if errors.As(err, &ve) {
		resp.Fields = ve.Fields
	}

	writeJSON(ctx, w, status, resp)
}

// decodeJSON reads the request body into v. A malformed body is a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return invalid("body", "request body is required")
		}
		return invalid("body", "malformed JSON: "+err.Error())
	}
	return nil
}

func invalid(field, message string) error {
	ve := &usecase.ValidationError{}
	ve.Add(field, message)
	return ve
}

// actorOf returns the actor set by authMiddleware
func actorOf(r *http.Request) (*auth.Actor, error) {
	actor := auth.ActorFromContext(r.Context())
	if actor == nil {
		return nil, goerr.Wrap(usecase.ErrUnauthenticated, "no actor in request context")
	}
	return actor, nil
}
