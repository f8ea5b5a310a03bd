package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awantoch/n8n-mcp/api"
	"github.com/awantoch/n8n-mcp/auth"
	"github.com/awantoch/n8n-mcp/config"
	"github.com/awantoch/n8n-mcp/constants"
	"github.com/awantoch/n8n-mcp/n8n"
	"github.com/awantoch/n8n-mcp/session"
	"github.com/awantoch/n8n-mcp/testutil"
	"github.com/awantoch/n8n-mcp/utils"
)

type stack struct {
	fake     *testutil.FakeN8N
	sessions *session.Store
	server   *Server
}

// newStack wires a server over the fake n8n with every catalog entry except
// self_test registered.
func newStack(t *testing.T, defaultKey string) *stack {
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
	require.NoError(t, err)
	require.NoError(t, d.RegisterAll(svc.Operations()))
	require.NoError(t, d.Seal())

	return &stack{fake: fake, sessions: store, server: NewServer(d, store)}
}

func startClient(t *testing.T, ctx context.Context, c *client.Client) {
	t.Helper()
	require.NoError(t, c.Start(ctx))
	req := mcpgo.InitializeRequest{}
	req.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcpgo.Implementation{Name: "n8n-mcp-test", Version: "0.0.0"}
	_, err := c.Initialize(ctx, req)
	require.NoError(t, err)
}

func callTool(t *testing.T, ctx context.Context, c *client.Client, name string, args map[string]any) (*mcpgo.CallToolResult, api.Result) {
	t.Helper()
	req := mcpgo.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	out, err := c.CallTool(ctx, req)
	require.NoError(t, err)

	var res api.Result
	raw, err := json.Marshal(out.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &res))
	return out, res
}

func TestListToolsMatchesCatalog(t *testing.T) {
	st := newStack(t, "tok-default")
	ctx := context.Background()
	c, err := client.NewInProcessClient(st.server.MCPServer())
	require.NoError(t, err)
	defer c.Close()
	startClient(t, ctx, c)

	tools, err := c.ListTools(ctx, mcpgo.ListToolsRequest{})
	require.NoError(t, err)

	var got []string
	for _, tool := range tools.Tools {
		got = append(got, tool.Name)
	}
	var want []string
	for _, spec := range api.Catalog() {
		if spec.Name != constants.ToolSelfTest {
			want = append(want, spec.Name)
		}
	}
	assert.ElementsMatch(t, want, got)
}

func TestCallToolWithDefaultCredential(t *testing.T) {
	st := newStack(t, "tok-default")
	st.fake.AddWorkflow(map[string]any{"name": "one", "nodes": []any{}})
	ctx := context.Background()
	c, err := client.NewInProcessClient(st.server.MCPServer())
	require.NoError(t, err)
	defer c.Close()
	startClient(t, ctx, c)

	out, res := callTool(t, ctx, c, constants.ToolListWorkflows, map[string]any{"limit": 5})
	assert.False(t, out.IsError)
	assert.True(t, res.Success)
	assert.Equal(t, fmt.Sprintf(constants.MsgRetrievedWorkflows, 1), res.Message)
	assert.Equal(t, []string{"tok-default"}, st.fake.Keys())
}

func TestCallToolWithoutCredential(t *testing.T) {
	st := newStack(t, "")
	ctx := context.Background()
	c, err := client.NewInProcessClient(st.server.MCPServer())
	require.NoError(t, err)
	defer c.Close()
	startClient(t, ctx, c)

	out, res := callTool(t, ctx, c, constants.ToolListWorkflows, nil)
	assert.True(t, out.IsError)
	assert.False(t, res.Success)
	assert.Equal(t, constants.MsgAuthRequired, res.Message)
	assert.Contains(t, res.Error, constants.EnvAPIKey)
	assert.EqualValues(t, auth.CodeAuthenticationRequired, res.Meta["code"])
	assert.NotEmpty(t, res.Meta["requestId"])
	assert.Zero(t, st.fake.Requests())
}

func TestCallToolInvalidArguments(t *testing.T) {
	var logs bytes.Buffer
	utils.SetInternalOutput(&logs)
	defer utils.SetInternalOutput(os.Stderr)

	st := newStack(t, "tok-default")
	ctx := context.Background()
	c, err := client.NewInProcessClient(st.server.MCPServer())
	require.NoError(t, err)
	defer c.Close()
	startClient(t, ctx, c)

	out, res := callTool(t, ctx, c, constants.ToolGetWorkflow, map[string]any{})
	assert.True(t, out.IsError)
	assert.Contains(t, res.Error, "workflowId")
	assert.Zero(t, st.fake.Requests())

	reqID, ok := res.Meta["requestId"].(string)
	require.True(t, ok)
	assert.Contains(t, logs.String(), "tool call rejected")
	assert.Contains(t, logs.String(), reqID)
}

type noSampling struct{}

func (noSampling) CreateMessage(context.Context, mcpgo.CreateMessageRequest) (*mcpgo.CreateMessageResult, error) {
	return nil, errors.New("sampling not supported")
}

func TestHandshakeCredentialStoredForSession(t *testing.T) {
	st := newStack(t, "")
	ctx := context.WithValue(context.Background(), handshakeKey{}, http.Header{"N8n-Api-Key": []string{"tok-session"}})

	// The in-process transport only registers a session when it has a
	// client-side handler to offer.
	c, err := client.NewInProcessClientWithSamplingHandler(st.server.MCPServer(), noSampling{})
	require.NoError(t, err)
	startClient(t, ctx, c)
	assert.Equal(t, 1, st.server.Sessions())

	_, res := callTool(t, context.Background(), c, constants.ToolListWorkflows, nil)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"tok-session"}, st.fake.Keys())

	require.NoError(t, c.Close())
	assert.Eventually(t, func() bool { return st.server.Sessions() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSSEHandshakeHeaders(t *testing.T) {
	st := newStack(t, "")
	sse := st.server.SSEServer("")
	ts := httptest.NewServer(CaptureHandshake(sse))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := client.NewSSEMCPClient(ts.URL+constants.RouteSSE, transport.WithHeaders(map[string]string{"n8n-api-key": "tok-A"}))
	require.NoError(t, err)
	startClient(t, ctx, c)

	assert.Eventually(t, func() bool { return st.server.Sessions() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, res := callTool(t, ctx, c, constants.ToolListWorkflows, nil)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"tok-A"}, st.fake.Keys())

	require.NoError(t, c.Close())
	assert.Eventually(t, func() bool { return st.server.Sessions() == 0 }, 5*time.Second, 20*time.Millisecond)
}

func TestStoreClientCredentials(t *testing.T) {
	st := newStack(t, "")
	srv := st.server

	tests := []struct {
		name      string
		sessionID string
		headers   http.Header
		stored    bool
	}{
		{"api key header", "s1", http.Header{"N8n-Api-Key": []string{"k1"}}, true},
		{"bearer", "s2", http.Header{"Authorization": []string{"Bearer k2"}}, true},
		{"no credential", "s3", http.Header{"Accept": []string{"*/*"}}, false},
		{"nil headers", "s4", nil, false},
		{"empty session id", "", http.Header{"N8n-Api-Key": []string{"k5"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.stored, srv.StoreClientCredentials(tt.sessionID, tt.headers))
		})
	}

	got, ok := st.sessions.Get("s2")
	require.True(t, ok)
	assert.Equal(t, "k2", got)
	assert.Equal(t, 2, srv.Sessions())
}

func TestStoreClientCredentialsFullStoreKeepsLiveSession(t *testing.T) {
	var logs bytes.Buffer
	utils.SetInternalOutput(&logs)
	defer utils.SetInternalOutput(os.Stderr)

	st := newStack(t, "")
	store := session.NewStore(1, 0)
	srv := NewServer(st.server.dispatcher, store)
	require.True(t, srv.StoreClientCredentials("live", http.Header{"N8n-Api-Key": []string{"tok-live"}}))

	for _, id := range []string{"late-1", "late-2"} {
		assert.False(t, srv.StoreClientCredentials(id, http.Header{"N8n-Api-Key": []string{"tok-" + id}}))
	}

	got, ok := store.Get("live")
	require.True(t, ok)
	assert.Equal(t, "tok-live", got)
	assert.Contains(t, logs.String(), "Session store full")
}

func TestCaptureHandshake(t *testing.T) {
	var seen http.Header
	h := CaptureHandshake(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = HandshakeHeaders(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, constants.RouteSSE, nil)
	req.Header.Set("N8N-API-KEY", "tok")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, seen)
	assert.Equal(t, "tok", seen.Get("n8n-api-key"))

	_, ok := HandshakeHeaders(context.Background())
	assert.False(t, ok)
}
