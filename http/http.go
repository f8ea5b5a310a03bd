// Package http mounts the MCP transports and the operational endpoints on
// one listener.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/awantoch/n8n-mcp/constants"
	"github.com/awantoch/n8n-mcp/mcp"
	"github.com/awantoch/n8n-mcp/telemetry"
	"github.com/awantoch/n8n-mcp/utils"
)

const shutdownTimeout = 10 * time.Second

// Headers browsers may send cross-origin. The credential headers must be
// listed or inspector-style clients cannot authenticate.
var allowedHeaders = append([]string{
	constants.HeaderContentType,
	constants.HeaderAuthorization,
	constants.HeaderAccept,
	server.HeaderKeySessionID,
	"Last-Event-ID",
}, constants.CredentialHeaders...)

// Server is the HTTP front of an mcp.Server: legacy SSE on /sse and
// /message, streamable HTTP on /mcp, plus health and metrics.
type Server struct {
	mcp        *mcp.Server
	sse        *server.SSEServer
	streamable *server.StreamableHTTPServer
	handler    http.Handler
}

// NewServer builds the route table. publicURL is advertised to SSE clients
// for the message endpoint; empty keeps it relative.
func NewServer(m *mcp.Server, publicURL string) *Server {
	s := &Server{
		mcp:        m,
		sse:        m.SSEServer(publicURL),
		streamable: m.StreamableHTTPServer(),
	}

	mux := http.NewServeMux()
	sse := mcp.CaptureHandshake(s.sse)
	mux.Handle(constants.RouteSSE, telemetry.WrapHandler("sse", sse))
	mux.Handle(constants.RouteMessage, telemetry.WrapHandler("message", sse))
	mux.Handle(constants.RouteMCP, telemetry.WrapHandler("mcp", mcp.CaptureHandshake(s.streamable)))
	mux.Handle(constants.RouteHealth, telemetry.WrapHandler("healthz", http.HandlerFunc(s.health)))
	mux.Handle(constants.RouteMetrics, telemetry.MetricsHandler())

	s.handler = withCORS(mux)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is cancelled, then drains open
// connections for up to shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with ctx so open SSE streams return on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Info("n8n MCP server listening on http://%s (sse %s, streamable %s)", ln.Addr(), constants.RouteSSE, constants.RouteMCP)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	utils.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		utils.WriteHTTPError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_ = utils.WriteHTTPJSON(w, healthResponse{Status: "ok", Sessions: s.mcp.Sessions()})
}

func withCORS(next http.Handler) http.Handler {
	allow := strings.Join(allowedHeaders, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", allow)
		w.Header().Set("Access-Control-Expose-Headers", server.HeaderKeySessionID)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
