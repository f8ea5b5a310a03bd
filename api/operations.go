package api

import (
	"context"
	"net/http"

	"github.com/awantoch/n8n-mcp/constants"
)

// Call is one invocation of an operation: decoded arguments plus the
// request context the credential is resolved from.
type Call struct {
	Args      map[string]any
	Headers   http.Header
	SessionID string
}

// HandlerFunc implements an operation. Handlers return a failure envelope
// for upstream errors and a non-nil error only for problems detected before
// any remote call (bad arguments, no credential).
type HandlerFunc func(ctx context.Context, call *Call) (*Result, error)

// OperationDefinition binds a catalog name to its handler.
type OperationDefinition struct {
	ID      string      // Catalog name, e.g. list_workflows
	Group   string      // Logical group (workflows, executions, credentials, nodes, system)
	Handler HandlerFunc // Core implementation
}

// Operations returns every operation the service implements.
func (s *Service) Operations() []OperationDefinition {
	return []OperationDefinition{
		{ID: constants.ToolListWorkflows, Group: constants.GroupWorkflows, Handler: s.listWorkflows},
		{ID: constants.ToolGetWorkflow, Group: constants.GroupWorkflows, Handler: s.getWorkflow},
		{ID: constants.ToolCreateWorkflow, Group: constants.GroupWorkflows, Handler: s.createWorkflow},
		{ID: constants.ToolUpdateWorkflow, Group: constants.GroupWorkflows, Handler: s.updateWorkflow},
		{ID: constants.ToolDeleteWorkflow, Group: constants.GroupWorkflows, Handler: s.deleteWorkflow},
		{ID: constants.ToolActivateWorkflow, Group: constants.GroupWorkflows, Handler: s.activateWorkflow},
		{ID: constants.ToolDeactivateWorkflow, Group: constants.GroupWorkflows, Handler: s.deactivateWorkflow},
		{ID: constants.ToolExecuteWorkflow, Group: constants.GroupExecutions, Handler: s.executeWorkflow},
		{ID: constants.ToolListExecutions, Group: constants.GroupExecutions, Handler: s.listExecutions},
		{ID: constants.ToolGetExecution, Group: constants.GroupExecutions, Handler: s.getExecution},
		{ID: constants.ToolListCredentials, Group: constants.GroupCredentials, Handler: s.listCredentials},
		{ID: constants.ToolCreateCredential, Group: constants.GroupCredentials, Handler: s.createCredential},
		{ID: constants.ToolDeleteCredential, Group: constants.GroupCredentials, Handler: s.deleteCredential},
		{ID: constants.ToolListNodes, Group: constants.GroupNodes, Handler: s.listNodes},
	}
}
