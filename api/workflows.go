package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/awantoch/n8n-mcp/constants"
	"github.com/awantoch/n8n-mcp/n8n"
	"github.com/awantoch/n8n-mcp/reconcile"
	"github.com/awantoch/n8n-mcp/utils"
)

func (s *Service) listWorkflows(ctx context.Context, call *Call) (*Result, error) {
	limit := intArg(call.Args, "limit", s.limits.Workflows)
	client, err := s.client(ctx, call)
	if err != nil {
		return nil, err
	}
	workflows, err := client.ListWorkflows(ctx, limit)
	if err != nil {
		return failure("list workflows", err), nil
	}
	if workflows == nil {
		workflows = []n8n.Workflow{}
	}
	return Succeed(workflows, fmt.Sprintf(constants.MsgRetrievedWorkflows, len(workflows))).
		With("count", len(workflows)), nil
}

func (s *Service) getWorkflow(ctx context.Context, call *Call) (*Result, error) {
	id, err := requireString(constants.ToolGetWorkflow, call.Args, "workflowId")
	if err != nil {
		return nil, err
	}
	client, err := s.client(ctx, call)
	if err != nil {
		return nil, err
	}
	wf, err := client.GetWorkflow(ctx, id)
	if err != nil {
		return failure("get workflow", err), nil
	}
	return Succeed(wf, fmt.Sprintf(constants.MsgRetrievedWorkflow, id)), nil
}

func (s *Service) createWorkflow(ctx context.Context, call *Call) (*Result, error) {
	var in createWorkflowArgs
	if err := bind(constants.ToolCreateWorkflow, call.Args, &in); err != nil {
		return nil, err
	}
	client, err := s.client(ctx, call)
	if err != nil {
		return nil, err
	}
	payload := n8n.Workflow{
		"name":        in.Name,
		"nodes":       call.Args["nodes"],
		"connections": objectArg(call.Args, "connections"),
		"settings":    objectArg(call.Args, "settings"),
	}
	created, err := client.CreateWorkflow(ctx, payload)
	if err != nil {
		return failure("create workflow", err), nil
	}
	name := created.Name()
	if name == "" {
		name = in.Name
	}
	utils.InfoCtx(ctx, "workflow created", "workflow_id", created.ID())
	return Succeed(created, fmt.Sprintf(constants.MsgCreatedWorkflow, name, created.ID())), nil
}

// updateWorkflow replaces the given fields of the current document. n8n's PUT
// takes the whole workflow and rejects read-only fields, so the current
// version is fetched, stripped and merged first.
func (s *Service) updateWorkflow(ctx context.Context, call *Call) (*Result, error) {
	op := constants.ToolUpdateWorkflow
	id, err := requireString(op, call.Args, "workflowId")
	if err != nil {
		return nil, err
	}
	updates := n8n.Object(call.Args).Without(append([]string{"workflowId"}, n8n.ReadOnlyWorkflowFields...)...)
	if nodes, ok := updates["nodes"]; ok {
		var in updateNodesArgs
		if err := bind(op, map[string]any{"nodes": nodes}, &in); err != nil {
			return nil, err
		}
	}
	client, err := s.client(ctx, call)
	if err != nil {
		return nil, err
	}
	current, err := client.GetWorkflow(ctx, id)
	if err != nil {
		return failure("update workflow", err), nil
	}
	merged := current.Without(n8n.ReadOnlyWorkflowFields...)
	for k, v := range updates {
		merged[k] = v
	}
	updated, err := client.UpdateWorkflow(ctx, id, merged)
	if err != nil {
		return failure("update workflow", err), nil
	}
	return Succeed(updated, fmt.Sprintf(constants.MsgUpdatedWorkflow, id)), nil
}

func (s *Service) deleteWorkflow(ctx context.Context, call *Call) (*Result, error) {
	id, err := requireString(constants.ToolDeleteWorkflow, call.Args, "workflowId")
	if err != nil {
		return nil, err
	}
	client, err := s.client(ctx, call)
	if err != nil {
		return nil, err
	}
	deleted, err := client.DeleteWorkflow(ctx, id)
	if err != nil {
		return failure("delete workflow", err), nil
	}
	return Succeed(deleted, fmt.Sprintf(constants.MsgDeletedWorkflow, id)), nil
}

func (s *Service) activateWorkflow(ctx context.Context, call *Call) (*Result, error) {
	return s.setActive(ctx, call, true)
}

func (s *Service) deactivateWorkflow(ctx context.Context, call *Call) (*Result, error) {
	return s.setActive(ctx, call, false)
}

func (s *Service) setActive(ctx context.Context, call *Call, desired bool) (*Result, error) {
	op, verb, msg, state := constants.ToolActivateWorkflow, "activate workflow", constants.MsgActivatedWorkflow, constants.StateActive
	if !desired {
		op, verb, msg, state = constants.ToolDeactivateWorkflow, "deactivate workflow", constants.MsgDeactivatedWorkflow, constants.StateInactive
	}
	id, err := requireString(op, call.Args, "workflowId")
	if err != nil {
		return nil, err
	}
	client, err := s.client(ctx, call)
	if err != nil {
		return nil, err
	}

	out, err := reconcile.Reconcile(ctx, client, id, desired)
	if err != nil {
		res := failure(verb, err)
		var rerr *reconcile.Error
		if errors.As(err, &rerr) {
			res.With("transitions", rerr.Transitions)
		}
		return res, nil
	}
	s.observer.ObserveReconcile(string(out.Path))

	message := fmt.Sprintf(msg, id)
	switch out.Path {
	case reconcile.PathFullUpdate:
		message = fmt.Sprintf(constants.MsgViaFullUpdate, message)
	case reconcile.PathAlreadyInState:
		message = fmt.Sprintf(constants.MsgAlreadyInState, id, state)
	}
	utils.InfoCtx(ctx, "workflow reconciled", "workflow_id", id, "state", state, "path", string(out.Path))
	return Succeed(out.Workflow, message).
		With("path", out.Path).
		With("transitions", out.Transitions), nil
}

func (s *Service) executeWorkflow(ctx context.Context, call *Call) (*Result, error) {
	id, err := requireString(constants.ToolExecuteWorkflow, call.Args, "workflowId")
	if err != nil {
		return nil, err
	}
	client, err := s.client(ctx, call)
	if err != nil {
		return nil, err
	}
	out, err := client.ExecuteWorkflow(ctx, id, objectArg(call.Args, "inputData"))
	if err != nil {
		return failure("execute workflow", err).With("note", constants.NoteExecuteInternalAPI), nil
	}
	return Succeed(out, fmt.Sprintf(constants.MsgExecutedWorkflow, id)).
		With("note", constants.NoteExecuteInternalAPI), nil
}
