package usecase

import (
	"errors"
	"net/http"
	"strings"

	"github.com/feedbackloop/actionflow/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
)

// Sentinel errors for use case layer. Every error returned to a caller wraps one of them,
// or is treated as internal.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrDependency = errors.New("dependency failure")

	// ErrUnauthenticated is returned when the caller's credentials are missing or invalid
	ErrUnauthenticated = errors.New("unauthenticated")

	// errAlreadyHandled aborts a mutation whose work was done by someone else
	errAlreadyHandled = errors.New("already handled")
)

// Context keys for error values
const (
	ActionIDKey   = "action_id"
	TenantIDKey   = "tenant_id"
	ActorKey      = "actor"
	RuleIDKey     = "rule_id"
	UserIDKey     = "user_id"
	FeedbackIDKey = "feedback_id"
)

// FieldError describes one invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field level detail. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Add records an invalid field
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no field was recorded
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ErrorKind is the machine readable category of an error
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindForbidden  ErrorKind = "forbidden"
	KindConflict   ErrorKind = "conflict"
	KindDependency ErrorKind = "dependency_failure"
	KindAuth       ErrorKind = "unauthenticated"
	KindInternal   ErrorKind = "internal"
)

// ErrorStatus maps an error to its kind and HTTP status code
func ErrorStatus(err error) (ErrorKind, int) {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation, http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return KindNotFound, http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden, http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return KindConflict, http.StatusConflict
	case errors.Is(err, ErrDependency):
		return KindDependency, http.StatusBadGateway
	case errors.Is(err, ErrUnauthenticated):
		return KindAuth, http.StatusUnauthorized
	default:
		return KindInternal, http.StatusInternalServerError
	}
}

// mapRepoErr translates repository sentinels into use case sentinels
func mapRepoErr(err error, msg string, opts ...goerr.Option) error {
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		return goerr.Wrap(ErrNotFound, msg, opts...)
	case errors.Is(err, interfaces.ErrConflict):
		return goerr.Wrap(ErrConflict, msg, opts...)
	default:
		return goerr.Wrap(err, msg, opts...)
	}
}

// lookupErr maps a failed lookup of an external collaborator. Misses stay NotFound,
// anything else is a dependency failure.
func lookupErr(err error, msg string, opts ...goerr.Option) error {
	if errors.Is(err, interfaces.ErrNotFound) {
		return goerr.Wrap(ErrNotFound, msg, opts...)
	}
	return goerr.Wrap(ErrDependency, msg, append(opts, goerr.V("cause", err.Error()))...)
}

// invalidField turns a model validation error into a ValidationError
func invalidField(err error, fallbackField string) error {
	field := fallbackField
	var ge *goerr.Error
	if errors.As(err, &ge) {
		if f, ok := ge.Values()["field"].(string); ok && f != "" {
			field = f
		}
	}

	ve := &ValidationError{}
	ve.Add(field, err.Error())
	return ve
}
