package mcp

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/awantoch/n8n-mcp/api"
	"github.com/awantoch/n8n-mcp/auth"
	"github.com/awantoch/n8n-mcp/constants"
	"github.com/awantoch/n8n-mcp/session"
	"github.com/awantoch/n8n-mcp/utils"
)

// Dispatcher is what the MCP layer needs from api.Dispatcher.
type Dispatcher interface {
	Tools() []api.ToolSpec
	Dispatch(ctx context.Context, name string, call *api.Call) (*api.Result, error)
}

// Server exposes a dispatcher as MCP tools and owns the handshake side of
// the session credential store.
type Server struct {
	dispatcher Dispatcher
	sessions   *session.Store
	mcp        *server.MCPServer
}

// NewServer registers one MCP tool per catalog entry.
func NewServer(d Dispatcher, sessions *session.Store) *Server {
	s := &Server{dispatcher: d, sessions: sessions}

	hooks := &server.Hooks{}
	hooks.AddOnRegisterSession(s.onRegister)
	hooks.AddOnUnregisterSession(s.onUnregister)

	s.mcp = server.NewMCPServer(
		constants.ServerName,
		constants.ServerVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithHooks(hooks),
	)
	for _, spec := range d.Tools() {
		s.mcp.AddTool(mcpgo.NewToolWithRawSchema(spec.Name, spec.Description, spec.InputSchema), s.handleTool(spec.Name))
	}
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// Sessions returns the number of sessions holding a credential.
func (s *Server) Sessions() int {
	if s.sessions == nil {
		return 0
	}
	return s.sessions.Len()
}

// ServeStdio serves JSON-RPC on in/out until ctx is done or in closes.
// Stdio has no headers, so calls resolve to the configured default key.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	utils.Info("Starting MCP server on stdio...")
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// SSEServer returns the SSE transport. baseURL is the public address
// clients use to reach the message endpoint; empty means relative URLs.
func (s *Server) SSEServer(baseURL string) *server.SSEServer {
	opts := []server.SSEOption{
		server.WithSSEEndpoint(constants.RouteSSE),
		server.WithMessageEndpoint(constants.RouteMessage),
	}
	if baseURL != "" {
		opts = append(opts, server.WithBaseURL(baseURL))
	}
	return server.NewSSEServer(s.mcp, opts...)
}

// StreamableHTTPServer returns the streamable HTTP transport mounted at /mcp.
func (s *Server) StreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.mcp, server.WithEndpointPath(constants.RouteMCP))
}

// StoreClientCredentials records the credential found in handshake headers
// under sessionID. Handshakes without one create no entry.
func (s *Server) StoreClientCredentials(sessionID string, headers http.Header) bool {
	if s.sessions == nil || sessionID == "" {
		return false
	}
	secret, ok := auth.CredentialFromHeaders(headers)
	if !ok {
		return false
	}
	if !s.sessions.Put(sessionID, secret) {
		utils.Warn("Session store full; credential for session %s not stored", sessionID)
		return false
	}
	return true
}

func (s *Server) onRegister(ctx context.Context, cs server.ClientSession) {
	headers, _ := HandshakeHeaders(ctx)
	id := cs.SessionID()
	if s.StoreClientCredentials(id, headers) {
		utils.InfoCtx(ctx, "session credential stored", "session_id", id)
		return
	}
	utils.DebugCtx(ctx, "session registered without credential", "session_id", id)
}

func (s *Server) onUnregister(ctx context.Context, cs server.ClientSession) {
	if s.sessions != nil {
		s.sessions.Drop(cs.SessionID())
	}
	utils.DebugCtx(ctx, "session closed", "session_id", cs.SessionID())
}

// handleTool is the error boundary: anything Dispatch returns as an error
// becomes a failure envelope with isError set.
func (s *Server) handleTool(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		call := &api.Call{Args: req.GetArguments(), Headers: req.Header}
		if cs := server.ClientSessionFromContext(ctx); cs != nil {
			call.SessionID = cs.SessionID()
		}
		ctx = utils.WithRequestID(ctx, uuid.NewString())
		ctx = utils.WithSessionID(ctx, call.SessionID)

		res, err := s.dispatcher.Dispatch(ctx, name, call)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrAuthenticationRequired), errors.Is(err, api.ErrValidation):
				utils.WarnCtx(ctx, "tool call rejected", "tool", name, "error", err)
			default:
				utils.ErrorCtx(ctx, "tool call failed", "tool", name, "error", err)
			}
			res = api.FailureFromError(name, err)
			if errors.Is(err, auth.ErrAuthenticationRequired) {
				res.With("code", auth.CodeAuthenticationRequired)
			}
			// Lets a client quote the id that appears in the server log.
			if reqID, ok := utils.RequestIDFromContext(ctx); ok {
				res.With("requestId", reqID)
			}
		}
		return toToolResult(res), nil
	}
}

func toToolResult(res *api.Result) *mcpgo.CallToolResult {
	out := mcpgo.NewToolResultStructured(res, utils.MarshalIndent(res))
	out.IsError = !res.Success
	return out
}

type handshakeKey struct{}

// CaptureHandshake makes the request headers visible to session hooks,
// which only receive the request context.
func CaptureHandshake(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), handshakeKey{}, r.Header.Clone())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HandshakeHeaders returns the headers stored by CaptureHandshake.
func HandshakeHeaders(ctx context.Context) (http.Header, bool) {
	return utils.ContextValue[http.Header](ctx, handshakeKey{})
}
