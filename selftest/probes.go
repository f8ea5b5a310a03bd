package selftest

import (
	"context"

	"github.com/awantoch/n8n-mcp/constants"
)

// ProbeConnection is the name of the first probe, a minimal list call.
const ProbeConnection = "n8n API Connection"

const (
	triggerNodeName = "Cron Trigger"
	setNodeName     = "Set"
)

// triggerNode fires once a year. n8n only activates workflows holding a
// trigger, poller or webhook node, and a manual trigger is none of those.
func triggerNode() map[string]any {
	return map[string]any{
		"id":          "self-test-cron-trigger",
		"name":        triggerNodeName,
		"type":        "n8n-nodes-base.cron",
		"typeVersion": 1,
		"position":    []any{240, 300},
		"parameters": map[string]any{
			"rule": map[string]any{
				"interval": []any{map[string]any{"field": "cronExpression", "expression": "0 0 1 1 *"}},
			},
		},
	}
}

func setNode() map[string]any {
	return map[string]any{
		"id":          "self-test-set",
		"name":        setNodeName,
		"type":        "n8n-nodes-base.set",
		"typeVersion": 1,
		"position":    []any{460, 300},
		"parameters":  map[string]any{},
	}
}

// probes runs the fixed battery. Each step appends exactly one record.
func (s *run) probes(ctx context.Context) {
	s.probe(ctx, ProbeConnection, constants.ToolListWorkflows, map[string]any{"limit": 1})

	listed := s.probe(ctx, constants.ToolListWorkflows, constants.ToolListWorkflows, map[string]any{"limit": 3})
	switch existing := firstID(listed); {
	case listed == nil:
		s.skip(ctx, constants.ToolGetWorkflow, "list_workflows did not succeed; no workflow id to fetch")
	case existing == "":
		s.skip(ctx, constants.ToolGetWorkflow, "No workflows available to test get_workflow")
	default:
		s.probe(ctx, constants.ToolGetWorkflow, constants.ToolGetWorkflow, map[string]any{"workflowId": existing})
	}

	s.probe(ctx, constants.ToolListExecutions, constants.ToolListExecutions, map[string]any{"limit": 2})
	s.probe(ctx, constants.ToolListCredentials, constants.ToolListCredentials, map[string]any{"limit": 5})
	s.probe(ctx, constants.ToolListNodes, constants.ToolListNodes, map[string]any{})

	workflowID, missing := s.createWorkflow(ctx)
	s.updateWorkflow(ctx, workflowID, missing)
	s.toggle(ctx, constants.ToolActivateWorkflow, workflowID, missing)
	s.toggle(ctx, constants.ToolDeactivateWorkflow, workflowID, missing)

	s.createCredential(ctx)
	s.deleteWorkflow(ctx)
}

const (
	reasonNotCreated = "create_workflow did not succeed"
	reasonNoID       = "create_workflow returned no workflow id"
)

// createWorkflow returns the new workflow's id, or an empty id and the
// reason dependent probes are skipped.
func (s *run) createWorkflow(ctx context.Context) (string, string) {
	name := "Self-Test Workflow " + s.suffix()
	res := s.probe(ctx, constants.ToolCreateWorkflow, constants.ToolCreateWorkflow, map[string]any{
		"name":        name,
		"nodes":       []any{triggerNode()},
		"connections": map[string]any{},
		"settings":    map[string]any{},
	})
	if res == nil {
		return "", reasonNotCreated
	}
	id := resultID(res)
	if id == "" {
		return "", reasonNoID
	}
	s.track(Resource{Kind: KindWorkflow, ID: id, Name: name})
	return id, ""
}

func (s *run) updateWorkflow(ctx context.Context, id, missing string) {
	if id == "" {
		s.skip(ctx, constants.ToolUpdateWorkflow, missing+"; no workflow to update")
		return
	}
	s.probe(ctx, constants.ToolUpdateWorkflow, constants.ToolUpdateWorkflow, map[string]any{
		"workflowId": id,
		"name":       "Updated Self-Test Workflow " + s.suffix(),
		"nodes":      []any{triggerNode(), setNode()},
		"connections": map[string]any{
			triggerNodeName: map[string]any{
				"main": []any{[]any{map[string]any{"node": setNodeName, "type": "main", "index": 0}}},
			},
		},
	})
}

func (s *run) toggle(ctx context.Context, op, id, missing string) {
	if id == "" {
		s.skip(ctx, op, missing+"; no workflow to "+verbOf(op))
		return
	}
	s.probe(ctx, op, op, map[string]any{"workflowId": id})
}

func verbOf(op string) string {
	if op == constants.ToolActivateWorkflow {
		return "activate"
	}
	return "deactivate"
}

func (s *run) createCredential(ctx context.Context) {
	name := "Self-Test Credential " + s.suffix()
	res := s.probe(ctx, constants.ToolCreateCredential, constants.ToolCreateCredential, map[string]any{
		"name": name,
		"type": "httpBasicAuth",
		"data": map[string]any{"user": "self-test", "password": s.id},
	})
	if res == nil {
		return
	}
	if id := resultID(res); id != "" {
		s.track(Resource{Kind: KindCredential, ID: id, Name: name})
	}
}

// deleteWorkflow exercises deletion on a workflow of its own, so the test
// does not depend on the earlier one still existing.
func (s *run) deleteWorkflow(ctx context.Context) {
	name := "MCP Delete Test Workflow " + s.suffix()
	res, err := s.dispatch(ctx, constants.ToolCreateWorkflow, map[string]any{
		"name":  name,
		"nodes": []any{triggerNode()},
	})
	if err != nil || !res.Success || resultID(res) == "" {
		s.skip(ctx, constants.ToolDeleteWorkflow, "could not create a workflow to delete")
		return
	}
	id := resultID(res)
	s.track(Resource{Kind: KindWorkflow, ID: id, Name: name})

	if s.probe(ctx, constants.ToolDeleteWorkflow, constants.ToolDeleteWorkflow, map[string]any{"workflowId": id}) != nil {
		s.untrack(id, KindWorkflow)
	}
}
