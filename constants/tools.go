package constants

// Tool names exposed to MCP clients.
const (
	ToolListWorkflows      = "list_workflows"
	ToolGetWorkflow        = "get_workflow"
	ToolCreateWorkflow     = "create_workflow"
	ToolUpdateWorkflow     = "update_workflow"
	ToolDeleteWorkflow     = "delete_workflow"
	ToolActivateWorkflow   = "activate_workflow"
	ToolDeactivateWorkflow = "deactivate_workflow"
	ToolExecuteWorkflow    = "execute_workflow"
	ToolListExecutions     = "list_executions"
	ToolGetExecution       = "get_execution"
	ToolListCredentials    = "list_credentials"
	ToolCreateCredential   = "create_credential"
	ToolDeleteCredential   = "delete_credential"
	ToolListNodes          = "list_nodes"
	ToolSelfTest           = "self_test"
)

// Tool groups
const (
	GroupWorkflows   = "workflows"
	GroupExecutions  = "executions"
	GroupCredentials = "credentials"
	GroupNodes       = "nodes"
	GroupSystem      = "system"
)
