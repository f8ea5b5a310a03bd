package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/awantoch/n8n-mcp/auth"
	"github.com/awantoch/n8n-mcp/constants"
	"github.com/awantoch/n8n-mcp/n8n"
)

var (
	// ErrOperationNotFound is matched with errors.Is for unknown operation names.
	ErrOperationNotFound = errors.New("operation not found")
	// ErrValidation is matched with errors.Is for malformed arguments.
	ErrValidation = errors.New("invalid arguments")
)

// OperationNotFoundError names the operation that was requested.
type OperationNotFoundError struct {
	Name string
}

func (e *OperationNotFoundError) Error() string {
	return fmt.Sprintf("%s: %q", ErrOperationNotFound, e.Name)
}

func (e *OperationNotFoundError) Unwrap() error { return ErrOperationNotFound }

// ValidationError reports arguments rejected before any remote call.
type ValidationError struct {
	Operation string
	Field     string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s for %s: %s", ErrValidation, e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s for %s: %s %s", ErrValidation, e.Operation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(op, field, reason string) *ValidationError {
	return &ValidationError{Operation: op, Field: field, Reason: reason}
}

// StatusFor maps an error to the status code reported in a failure envelope.
func StatusFor(err error) int {
	var apiErr *n8n.APIError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, auth.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrOperationNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.As(err, &apiErr) && apiErr.StatusCode != 0:
		return apiErr.StatusCode
	default:
		return http.StatusInternalServerError
	}
}

// FailureFromError converts an error raised out of Dispatch into a failure
// envelope. Transports call this at their boundary.
func FailureFromError(operation string, err error) *Result {
	r := Fail(err, fmt.Sprintf(constants.MsgFailedTo, "run "+operation))
	r.StatusCode = StatusFor(err)
	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		r.Message = constants.MsgAuthRequired
		r.With("auth", authErr.Hints())
	}
	return r
}
