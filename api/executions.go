package api

import (
	"context"
	"fmt"

	"github.com/awantoch/n8n-mcp/constants"
	"github.com/awantoch/n8n-mcp/n8n"
)

func (s *Service) listExecutions(ctx context.Context, call *Call) (*Result, error) {
	limit := intArg(call.Args, "limit", s.limits.Executions)
	workflowID := stringArg(call.Args, "workflowId")
	client, err := s.client(ctx, call)
	if err != nil {
		return nil, err
	}
	executions, err := client.ListExecutions(ctx, limit, workflowID)
	if err != nil {
		return failure("list executions", err), nil
	}
	if executions == nil {
		executions = []n8n.Object{}
	}
	res := Succeed(executions, fmt.Sprintf(constants.MsgRetrievedExecutions, len(executions))).
		With("count", len(executions))
	if workflowID != "" {
		res.With("workflowId", workflowID)
	}
	return res, nil
}

func (s *Service) getExecution(ctx context.Context, call *Call) (*Result, error) {
	id, err := requireString(constants.ToolGetExecution, call.Args, "executionId")
	if err != nil {
		return nil, err
	}
	client, err := s.client(ctx, call)
	if err != nil {
		return nil, err
	}
	execution, err := client.GetExecution(ctx, id)
	if err != nil {
		return failure("get execution", err), nil
	}
	return Succeed(execution, fmt.Sprintf(constants.MsgRetrievedExecution, id)), nil
}
