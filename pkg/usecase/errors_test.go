package usecase_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   usecase.ErrorKind
		status int
	}{
		{name: "validation", err: goerr.Wrap(usecase.ErrValidation, "bad"), kind: usecase.KindValidation, status: http.StatusBadRequest},
		{name: "validation error type", err: &usecase.ValidationError{Fields: []usecase.FieldError{{Field: "priority", Message: "bad"}}}, kind: usecase.KindValidation, status: http.StatusBadRequest},
		{name: "not found", err: goerr.Wrap(usecase.ErrNotFound, "missing"), kind: usecase.KindNotFound, status: http.StatusNotFound},
		{name: "forbidden", err: goerr.Wrap(usecase.ErrForbidden, "no"), kind: usecase.KindForbidden, status: http.StatusForbidden},
		{name: "conflict", err: goerr.Wrap(usecase.ErrConflict, "again"), kind: usecase.KindConflict, status: http.StatusConflict},
		{name: "dependency", err: goerr.Wrap(usecase.ErrDependency, "down"), kind: usecase.KindDependency, status: http.StatusBadGateway},
		{name: "unauthenticated", err: goerr.Wrap(usecase.ErrUnauthenticated, "who"), kind: usecase.KindAuth, status: http.StatusUnauthorized},
		{name: "anything else", err: errors.New("boom"), kind: usecase.KindInternal, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, status := usecase.ErrorStatus(tt.err)
			gt.Value(t, kind).Equal(tt.kind)
			gt.Value(t, status).Equal(tt.status)
		})
	}
}

func TestValidationError(t *testing.T) {
	ve := &usecase.ValidationError{}
	gt.NoError(t, ve.OrNil())

	ve.Add("priority", "invalid priority")
	ve.Add("description", "description is required")

	err := ve.OrNil()
	gt.Error(t, err).Is(usecase.ErrValidation)
	gt.String(t, err.Error()).Contains("priority: invalid priority")
	gt.String(t, err.Error()).Contains("description: description is required")

	var got *usecase.ValidationError
	gt.Bool(t, errors.As(goerr.Wrap(err, "wrapped"), &got)).True()
	gt.Array(t, got.Fields).Length(2)
}
