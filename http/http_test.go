package http

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/awantoch/n8n-mcp/api"
	"github.com/awantoch/n8n-mcp/auth"
	"github.com/awantoch/n8n-mcp/config"
	"github.com/awantoch/n8n-mcp/constants"
	"github.com/awantoch/n8n-mcp/mcp"
	"github.com/awantoch/n8n-mcp/n8n"
	"github.com/awantoch/n8n-mcp/session"
	"github.com/awantoch/n8n-mcp/testutil"
)

func newTestServer(t *testing.T, defaultKey string) (*Server, *testutil.FakeN8N, *session.Store) {
	t.Helper()
	fake := testutil.NewFakeN8N(t)
	store := session.NewStore(16, 0)
	factory := n8n.NewFactory(n8n.Options{APIRoot: fake.APIRoot(), InstanceRoot: fake.URL, Timeout: 5 * time.Second})
	svc := api.NewService(auth.NewResolver(store, defaultKey), factory, config.Default().Limits)

	var catalog []api.ToolSpec
	for _, spec := range api.Catalog() {
		if spec.Name != constants.ToolSelfTest {
			catalog = append(catalog, spec)
		}
	}
	d, err := api.NewDispatcher(catalog)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	if err := d.RegisterAll(svc.Operations()); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if err := d.Seal(); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return NewServer(mcp.NewServer(d, store), ""), fake, store
}

func TestHealth(t *testing.T) {
	srv, _, store := newTestServer(t, "")
	store.Put("s1", "k1")

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, constants.RouteHealth, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Sessions != 1 {
		t.Errorf("unexpected health body %+v", body)
	}
	if ct := w.Header().Get(constants.HeaderContentType); ct != constants.ContentTypeJSON {
		t.Errorf("expected JSON content type, got %q", ct)
	}
}

func TestHealthRejectsPost(t *testing.T) {
	srv, _, _ := newTestServer(t, "")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, constants.RouteHealth, nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, "")
	h := srv.Handler()
	// Hit health once so the request counter has a series.
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, constants.RouteHealth, nil))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, constants.RouteMetrics, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "n8nmcp_http_requests_total") {
		t.Errorf("metrics output missing request counter")
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t, "")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, constants.RouteMCP, nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	allow := w.Header().Get("Access-Control-Allow-Headers")
	for _, h := range append([]string{constants.HeaderAuthorization}, constants.CredentialHeaders...) {
		if !strings.Contains(allow, h) {
			t.Errorf("Access-Control-Allow-Headers %q missing %s", allow, h)
		}
	}
}

func TestStreamableHTTPCredentialHeader(t *testing.T) {
	srv, fake, _ := newTestServer(t, "")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := client.NewStreamableHttpClient(ts.URL+constants.RouteMCP,
		transport.WithHTTPHeaders(map[string]string{constants.HeaderAuthorization: constants.BearerPrefix + "tok-S"}))
	if err != nil {
		t.Fatalf("NewStreamableHttpClient: %v", err)
	}
	defer c.Close()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{Name: "http-test", Version: "0.0.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	req := mcpgo.CallToolRequest{}
	req.Params.Name = constants.ToolListWorkflows
	out, err := c.CallTool(ctx, req)
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if out.IsError {
		t.Fatalf("list_workflows reported an error: %+v", out.Content)
	}
	keys := fake.Keys()
	if len(keys) != 1 || keys[0] != "tok-S" {
		t.Errorf("expected n8n to see tok-S once, got %v", keys)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	srv, _, _ := newTestServer(t, "")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + constants.RouteHealth
	var resp *http.Response
	for i := 0; i < 50; i++ {
		if resp, err = http.Get(url); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestListenAndServeBadAddress(t *testing.T) {
	srv, _, _ := newTestServer(t, "")
	if err := srv.ListenAndServe(context.Background(), "invalid:address"); err == nil {
		t.Error("expected error for invalid address")
	}
}
