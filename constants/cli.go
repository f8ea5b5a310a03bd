package constants

// CLI Commands
const (
	CmdServe    = "serve"
	CmdSelfTest = "selftest"
	CmdTools    = "tools"
	CmdVersion  = "version"
)

// CLI Short Descriptions
const (
	DescRoot     = "MCP server exposing n8n workflows, executions, credentials and nodes"
	DescServe    = "Serve the n8n tools over MCP (stdio or HTTP)"
	DescSelfTest = "Run the self-test battery against the configured n8n instance"
	DescTools    = "List the tools exposed to MCP clients"
	DescVersion  = "Print the server version"
)

// CLI output
const (
	OutputToolLine    = "%-22s %s"
	OutputTestLine    = "[%s] %s: %s"
	OutputTestSummary = "%d total, %d passed, %d failed, %d skipped (%.1f%%)"
)
