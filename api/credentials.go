package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/awantoch/n8n-mcp/constants"
	"github.com/awantoch/n8n-mcp/n8n"
)

// credentialsFailure reports a missing credentials API distinctly: many
// instances hide the endpoint and that is not a fault of the call.
func credentialsFailure(verb string, err error) *Result {
	switch status := upstreamStatus(err); status {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return FailWithStatus(constants.MsgCredentialsAPIAbsent, constants.MsgCredentialsEndpoint, status).
			With("note", constants.NoteCredentialsAPI)
	default:
		return failure(verb, err)
	}
}

func (s *Service) listCredentials(ctx context.Context, call *Call) (*Result, error) {
	limit := intArg(call.Args, "limit", s.limits.Credentials)
	client, err := s.client(ctx, call)
	if err != nil {
		return nil, err
	}
	creds, err := client.ListCredentials(ctx, limit)
	if err != nil {
		return credentialsFailure("list credentials", err), nil
	}
	if creds == nil {
		creds = []n8n.Object{}
	}
	return Succeed(creds, fmt.Sprintf(constants.MsgRetrievedCredentials, len(creds))).
		With("count", len(creds)), nil
}

func (s *Service) createCredential(ctx context.Context, call *Call) (*Result, error) {
	op := constants.ToolCreateCredential
	name, err := requireString(op, call.Args, "name")
	if err != nil {
		return nil, err
	}
	credType, err := requireString(op, call.Args, "type")
	if err != nil {
		return nil, err
	}
	client, err := s.client(ctx, call)
	if err != nil {
		return nil, err
	}
	created, err := client.CreateCredential(ctx, name, credType, objectArg(call.Args, "data"))
	if err != nil {
		return credentialsFailure("create credential", err), nil
	}
	return Succeed(created, fmt.Sprintf(constants.MsgCreatedCredential, name)), nil
}

func (s *Service) deleteCredential(ctx context.Context, call *Call) (*Result, error) {
	id, err := requireString(constants.ToolDeleteCredential, call.Args, "credentialId")
	if err != nil {
		return nil, err
	}
	client, err := s.client(ctx, call)
	if err != nil {
		return nil, err
	}
	deleted, err := client.DeleteCredential(ctx, id)
	if err != nil {
		return credentialsFailure("delete credential", err), nil
	}
	return Succeed(deleted, fmt.Sprintf(constants.MsgDeletedCredential, id)), nil
}
