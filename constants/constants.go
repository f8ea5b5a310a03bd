package constants

// ============================================================================
// CONFIGURATION
// ============================================================================

// Configuration Files
const (
	ConfigFileName = "n8n-mcp.yaml"
	EnvFileName    = ".env"
)

// Environment Variables
const (
	EnvDebug      = "N8N_MCP_DEBUG"
	EnvBaseURL    = "N8N_BASE_URL"
	EnvAPIKey     = "N8N_API_KEY"
	EnvAPIKeyAlt  = "N8N_API"
	EnvHTTPPort   = "PORT"
	EnvServiceURL = "N8N_MCP_PUBLIC_URL"
)

// Defaults
const (
	DefaultBaseURL         = "http://localhost:5678"
	DefaultAPIPath         = "/api/v1"
	DefaultHTTPHost        = "0.0.0.0"
	DefaultHTTPPort        = 3000
	DefaultWorkflowLimit   = 50
	DefaultExecutionLimit  = 10
	DefaultCredentialLimit = 50
	DefaultSessionEntries  = 1024
	DefaultServiceName     = "n8n-mcp"
)

// ============================================================================
// SERVER IDENTITY
// ============================================================================

const (
	ServerName    = "n8n-mcp"
	ServerVersion = "1.2.0"
)
