package constants

// Content Types
const (
	ContentTypeJSON = "application/json"
)

// HTTP Headers
const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderAccept        = "Accept"
	HeaderN8NAPIKey     = "X-N8N-API-KEY"
	HeaderRequestID     = "X-Request-ID"
)

// Inbound credential headers, matched case-insensitively.
var CredentialHeaders = []string{
	"n8n-api-key",
	HeaderN8NAPIKey,
	"N8N-API-KEY",
	"N8N_API_KEY",
}

// BearerPrefix is the scheme prefix accepted in the Authorization header.
const BearerPrefix = "Bearer "

// HTTP routes
const (
	RouteSSE     = "/sse"
	RouteMessage = "/message"
	RouteMCP     = "/mcp"
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)

// n8n REST paths, relative to the API root.
const (
	PathWorkflows   = "/workflows"
	PathExecutions  = "/executions"
	PathCredentials = "/credentials"
	PathNodeTypes   = "/types/nodes.json"
	PathRunWorkflow = "/rest/workflows/%s/run"
)
