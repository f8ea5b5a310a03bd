package constants

// Success messages
const (
	MsgRetrievedWorkflows   = "Retrieved %d workflows successfully"
	MsgRetrievedWorkflow    = "Workflow %s retrieved successfully"
	MsgCreatedWorkflow      = "Workflow \"%s\" created successfully with ID: %s"
	MsgUpdatedWorkflow      = "Workflow %s updated successfully"
	MsgDeletedWorkflow      = "Workflow %s deleted successfully"
	MsgActivatedWorkflow    = "Workflow %s activated successfully"
	MsgDeactivatedWorkflow  = "Workflow %s deactivated successfully"
	MsgViaFullUpdate        = "%s via full update"
	MsgAlreadyInState       = "Workflow %s was already in desired state (%s)"
	MsgExecutedWorkflow     = "Workflow %s execution started"
	MsgRetrievedExecutions  = "Retrieved %d executions successfully"
	MsgRetrievedExecution   = "Execution %s retrieved successfully"
	MsgRetrievedCredentials = "Retrieved %d credentials successfully"
	MsgCreatedCredential    = "Credential \"%s\" created successfully"
	MsgDeletedCredential    = "Credential %s deleted successfully"
	MsgRetrievedNodes       = "Retrieved %d available node types grouped by category"
	MsgSelfTestCompleted    = "Self-test completed: %d/%d tests passed (%.1f%% success rate)"
)

// Failure messages
const (
	MsgFailedTo             = "Failed to %s"
	MsgCredentialsAPIAbsent = "Credentials API not available"
	MsgCredentialsEndpoint  = "n8n credentials endpoint is not accessible (this is normal for security reasons)"
	NoteCredentialsAPI      = "Credentials management may be restricted in your n8n instance"
	NoteExecuteInternalAPI  = "This uses n8n's internal run endpoint which may not work in all environments; webhook triggers are the supported way to start workflows"
)

// Authentication messages
const (
	MsgAuthRequired = "authentication required: provide an n8n API key"
)

// Workflow states
const (
	StateActive   = "active"
	StateInactive = "inactive"
)
