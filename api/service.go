package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/awantoch/n8n-mcp/auth"
	"github.com/awantoch/n8n-mcp/config"
	"github.com/awantoch/n8n-mcp/constants"
	"github.com/awantoch/n8n-mcp/n8n"
	"github.com/awantoch/n8n-mcp/utils"
)

// Service implements the n8n operations. Each call resolves its own
// credential and gets a client bound to it.
type Service struct {
	resolver *auth.Resolver
	clients  *n8n.Factory
	limits   config.LimitsConfig
	observer Observer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithReconcileObserver reports the reconciliation path of every
// activate/deactivate call to o.
func WithReconcileObserver(o Observer) ServiceOption {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewService wires the operations to a resolver and a client factory.
func NewService(resolver *auth.Resolver, clients *n8n.Factory, limits config.LimitsConfig, opts ...ServiceOption) *Service {
	s := &Service{
		resolver: resolver,
		clients:  clients,
		limits:   limits,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// client resolves the credential for call. An *auth.AuthError is returned
// as is so the transport can report it.
func (s *Service) client(ctx context.Context, call *Call) (*n8n.Client, error) {
	cred, err := s.resolver.Resolve(call.SessionID, call.Headers)
	if err != nil {
		utils.WarnCtx(ctx, "no credential for call")
		return nil, err
	}
	utils.DebugCtx(ctx, "resolved credential", "source", cred.Source.String(), "key", utils.MaskSecret(cred.Secret))
	return s.clients.ForCredential(cred.Secret), nil
}

// failure converts an upstream error into a failure envelope.
func failure(verb string, err error) *Result {
	return Fail(err, fmt.Sprintf(constants.MsgFailedTo, verb))
}

// upstreamStatus returns the status of an *n8n.APIError in err's chain.
func upstreamStatus(err error) int {
	var apiErr *n8n.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
