package n8n

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-success answer from n8n, or a transport failure when
// StatusCode is zero. StatusCode is preserved verbatim for callers.
type APIError struct {
	StatusCode int
	Message    string
	Method     string
	Path       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("n8n request %s %s failed: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("n8n API error %d on %s %s: %s", e.StatusCode, e.Method, e.Path, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// HTTPStatus returns the upstream status code, zero for network failures.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// newStatusError builds an APIError from a response body, preferring the
// "message" field n8n puts in its error documents.
func newStatusError(method, path string, status int, body []byte) *APIError {
	msg := ""
	var doc struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &doc) == nil {
		msg = doc.Message
		if msg == "" {
			msg = doc.Error
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return &APIError{StatusCode: status, Message: msg, Method: method, Path: path}
}
