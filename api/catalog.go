package api

import (
	"encoding/json"
	"fmt"

	"github.com/awantoch/n8n-mcp/constants"
)

// ToolSpec is one entry of the declarative tool catalog shown to clients.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Group       string          `json:"group"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

const emptySchema = `{"type":"object","properties":{},"required":[]}`

const workflowIDSchema = `{
  "type": "object",
  "properties": {
    "workflowId": {"type": "string", "minLength": 1, "description": "The workflow ID to %s"}
  },
  "required": ["workflowId"]
}`

const nodesProperty = `"nodes": {
      "type": "array",
      "description": "Array of nodes for the workflow; each needs id, name, type and an [x, y] position",
      "items": {"type": "object"}
    }`

// Catalog returns the tools exposed to MCP clients, in listing order.
func Catalog() []ToolSpec {
	return []ToolSpec{
		{
			Name:        constants.ToolSelfTest,
			Description: "Test basic server functionality and n8n API connectivity by exercising every tool",
			Group:       constants.GroupSystem,
			InputSchema: json.RawMessage(emptySchema),
		},
		{
			Name:        constants.ToolListWorkflows,
			Description: "List all workflows in the n8n instance",
			Group:       constants.GroupWorkflows,
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "limit": {"type": "number", "minimum": 1, "description": "Number of workflows to return (default: 50)"}
  },
  "required": []
}`),
		},
		{
			Name:        constants.ToolGetWorkflow,
			Description: "Get detailed information about a specific workflow by ID",
			Group:       constants.GroupWorkflows,
			InputSchema: idSchema("retrieve"),
		},
		{
			Name:        constants.ToolCreateWorkflow,
			Description: "Create a new workflow in n8n",
			Group:       constants.GroupWorkflows,
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 1, "description": "The workflow name"},
    ` + nodesProperty + `,
    "connections": {"type": "object", "description": "Connections between nodes, keyed by source node name"},
    "settings": {"type": "object", "description": "Workflow settings"}
  },
  "required": ["name", "nodes"]
}`),
		},
		{
			Name:        constants.ToolUpdateWorkflow,
			Description: "Update an existing workflow; given fields replace the current ones",
			Group:       constants.GroupWorkflows,
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "workflowId": {"type": "string", "minLength": 1, "description": "The workflow ID to update"},
    "name": {"type": "string", "description": "The workflow name"},
    ` + nodesProperty + `,
    "connections": {"type": "object", "description": "Connections between nodes"},
    "settings": {"type": "object", "description": "Workflow settings"}
  },
  "required": ["workflowId"]
}`),
		},
		{
			Name:        constants.ToolDeleteWorkflow,
			Description: "Delete an existing workflow",
			Group:       constants.GroupWorkflows,
			InputSchema: idSchema("delete"),
		},
		{
			Name:        constants.ToolActivateWorkflow,
			Description: "Activate a workflow; succeeds if it is already active",
			Group:       constants.GroupWorkflows,
			InputSchema: idSchema("activate"),
		},
		{
			Name:        constants.ToolDeactivateWorkflow,
			Description: "Deactivate a workflow; succeeds if it is already inactive",
			Group:       constants.GroupWorkflows,
			InputSchema: idSchema("deactivate"),
		},
		{
			Name:        constants.ToolExecuteWorkflow,
			Description: "Execute a workflow manually with optional input data",
			Group:       constants.GroupExecutions,
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "workflowId": {"type": "string", "minLength": 1, "description": "The workflow ID to execute"},
    "inputData": {"type": "object", "description": "Optional input data for the workflow execution", "default": {}}
  },
  "required": ["workflowId"]
}`),
		},
		{
			Name:        constants.ToolListExecutions,
			Description: "List workflow executions with optional filtering",
			Group:       constants.GroupExecutions,
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "limit": {"type": "number", "minimum": 1, "maximum": 250, "description": "Number of executions to return (default: 10)"},
    "workflowId": {"type": "string", "description": "Only return executions of this workflow"}
  },
  "required": []
}`),
		},
		{
			Name:        constants.ToolGetExecution,
			Description: "Get detailed information about a specific execution by ID",
			Group:       constants.GroupExecutions,
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "executionId": {"type": "string", "minLength": 1, "description": "The execution ID to retrieve"}
  },
  "required": ["executionId"]
}`),
		},
		{
			Name:        constants.ToolListCredentials,
			Description: "List all credentials in the n8n instance",
			Group:       constants.GroupCredentials,
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "limit": {"type": "number", "minimum": 1, "description": "Number of credentials to return (default: 50)"}
  },
  "required": []
}`),
		},
		{
			Name:        constants.ToolCreateCredential,
			Description: "Create a new credential",
			Group:       constants.GroupCredentials,
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 1, "description": "The credential name"},
    "type": {"type": "string", "minLength": 1, "description": "The credential type (e.g., 'httpBasicAuth', 'telegramApi')"},
    "data": {"type": "object", "description": "The credential data/configuration"}
  },
  "required": ["name", "type", "data"]
}`),
		},
		{
			Name:        constants.ToolDeleteCredential,
			Description: "Delete a credential",
			Group:       constants.GroupCredentials,
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "credentialId": {"type": "string", "minLength": 1, "description": "The credential ID to delete"}
  },
  "required": ["credentialId"]
}`),
		},
		{
			Name:        constants.ToolListNodes,
			Description: "List all available node types that n8n currently supports",
			Group:       constants.GroupNodes,
			InputSchema: json.RawMessage(emptySchema),
		},
	}
}

func idSchema(verb string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(workflowIDSchema, verb))
}
