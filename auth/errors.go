package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/awantoch/n8n-mcp/constants"
)

// ErrAuthenticationRequired is matched with errors.Is when no credential can be resolved.
var ErrAuthenticationRequired = errors.New(constants.MsgAuthRequired)

// CodeAuthenticationRequired is the JSON-RPC error code reported to MCP clients.
const CodeAuthenticationRequired = -32001

// AuthError carries remediation hints for a caller that supplied no credential.
type AuthError struct {
	RequiredHeaders     []string `json:"requiredHeaders"`
	BearerToken         string   `json:"bearerToken"`
	EnvironmentVariable string   `json:"environmentVariable"`
}

func newAuthError() *AuthError {
	return &AuthError{
		RequiredHeaders:     append([]string(nil), constants.CredentialHeaders...),
		BearerToken:         constants.HeaderAuthorization + ": " + constants.BearerPrefix + "<token>",
		EnvironmentVariable: constants.EnvAPIKey,
	}
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s (send one of the headers %s, or %s, or set %s)",
		constants.MsgAuthRequired, strings.Join(e.RequiredHeaders, ", "), e.BearerToken, e.EnvironmentVariable)
}

func (e *AuthError) Unwrap() error { return ErrAuthenticationRequired }

// Hints returns the remediation data attached to JSON-RPC errors.
func (e *AuthError) Hints() map[string]any {
	return map[string]any{
		"requiredHeaders":     e.RequiredHeaders,
		"bearerToken":         e.BearerToken,
		"environmentVariable": e.EnvironmentVariable,
	}
}
