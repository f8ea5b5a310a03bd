package api

import (
	"errors"

	"github.com/awantoch/n8n-mcp/n8n"
)

// Result is the envelope every operation yields: a success carrying data,
// or a failure carrying the upstream error and status. Build one with
// Succeed or Fail.
type Result struct {
	Success    bool           `json:"success"`
	Data       any            `json:"data,omitempty"`
	Message    string         `json:"message"`
	Error      string         `json:"error,omitempty"`
	StatusCode int            `json:"statusCode,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Succeed builds a success envelope.
func Succeed(data any, message string) *Result {
	return &Result{Success: true, Data: data, Message: message}
}

// Fail builds a failure envelope from err. Upstream errors contribute their
// own message and status code.
func Fail(err error, message string) *Result {
	r := &Result{Success: false, Message: message, Error: "unknown error"}
	if err == nil {
		return r
	}
	r.Error = err.Error()
	var apiErr *n8n.APIError
	if errors.As(err, &apiErr) {
		r.Error = apiErr.Message
		r.StatusCode = apiErr.StatusCode
	}
	return r
}

// FailWithStatus builds a failure envelope with an explicit status code.
func FailWithStatus(errMsg, message string, status int) *Result {
	return &Result{Success: false, Message: message, Error: errMsg, StatusCode: status}
}

// With attaches an extra top-level field to the envelope's meta block.
func (r *Result) With(key string, value any) *Result {
	if r.Meta == nil {
		r.Meta = make(map[string]any)
	}
	r.Meta[key] = value
	return r
}
