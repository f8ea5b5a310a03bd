// Package auth decides which n8n API key a call runs with.
package auth

import (
	"net/http"
	"strings"

	"github.com/awantoch/n8n-mcp/constants"
)

// Source records where a resolved credential came from.
type Source int

const (
	SourceSession Source = iota + 1
	SourceHeader
	SourceDefault
)

func (s Source) String() string {
	switch s {
	case SourceSession:
		return "session"
	case SourceHeader:
		return "header"
	case SourceDefault:
		return "default"
	default:
		return "none"
	}
}

// Credential is the effective API key for one call.
type Credential struct {
	Secret string
	Source Source
}

// CredentialReader is the read side of the session store.
type CredentialReader interface {
	Get(sessionID string) (string, bool)
}

// Resolver picks a credential from, in order: the session store, the
// request headers, the configured default.
type Resolver struct {
	sessions CredentialReader
	fallback string
}

// NewResolver creates a Resolver reading sessions. defaultCredential may be empty.
func NewResolver(sessions CredentialReader, defaultCredential string) *Resolver {
	return &Resolver{sessions: sessions, fallback: strings.TrimSpace(defaultCredential)}
}

// Resolve returns the first credential found or an *AuthError.
func (r *Resolver) Resolve(sessionID string, headers http.Header) (Credential, error) {
	if sessionID != "" && r.sessions != nil {
		if secret, ok := r.sessions.Get(sessionID); ok && secret != "" {
			return Credential{Secret: secret, Source: SourceSession}, nil
		}
	}
	if secret, ok := CredentialFromHeaders(headers); ok {
		return Credential{Secret: secret, Source: SourceHeader}, nil
	}
	if r.fallback != "" {
		return Credential{Secret: r.fallback, Source: SourceDefault}, nil
	}
	return Credential{}, newAuthError()
}

// HasDefault reports whether a process-wide credential is configured.
func (r *Resolver) HasDefault() bool {
	return r.fallback != ""
}

// CredentialFromHeaders extracts an API key from the n8n key headers or a
// bearer Authorization header. Header names are matched case-insensitively.
func CredentialFromHeaders(headers http.Header) (string, bool) {
	if len(headers) == 0 {
		return "", false
	}
	for _, name := range constants.CredentialHeaders {
		if v := headerValue(headers, name); v != "" {
			return v, true
		}
	}
	authz := headerValue(headers, constants.HeaderAuthorization)
	if len(authz) > len(constants.BearerPrefix) && strings.EqualFold(authz[:len(constants.BearerPrefix)], constants.BearerPrefix) {
		if token := strings.TrimSpace(authz[len(constants.BearerPrefix):]); token != "" {
			return token, true
		}
	}
	return "", false
}

// headerValue looks name up without relying on canonical keys, since
// underscores and hand-built maps defeat http.Header.Get.
func headerValue(headers http.Header, name string) string {
	if vs := headers.Values(name); len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	for k, vs := range headers {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return strings.TrimSpace(vs[0])
		}
	}
	return ""
}
