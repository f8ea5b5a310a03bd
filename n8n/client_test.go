package n8n

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	f := NewFactory(Options{APIRoot: srv.URL + "/api/v1", InstanceRoot: srv.URL, Timeout: 2 * time.Second})
	return f.ForCredential("secret-key")
}

func TestClient_ListWorkflowsUnwrapsEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/workflows", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		assert.Equal(t, "secret-key", r.Header.Get("X-N8N-API-KEY"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = io.WriteString(w, `{"data":[{"id":"1","name":"a","active":true},{"id":"2","name":"b"}],"nextCursor":null}`)
	})

	wfs, err := c.ListWorkflows(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, wfs, 2)
	assert.Equal(t, "1", wfs[0].ID())
	assert.Equal(t, "a", wfs[0].Name())
	active, ok := wfs[0].Active()
	assert.True(t, ok)
	assert.True(t, active)
	_, ok = wfs[1].Active()
	assert.False(t, ok)
}

func TestClient_GetWorkflowBareAndWrapped(t *testing.T) {
	bodies := []string{
		`{"id":"42","name":"bare","active":false}`,
		`{"data":{"id":"42","name":"wrapped","active":false}}`,
	}
	for _, body := range bodies {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/workflows/42", r.URL.Path)
			_, _ = io.WriteString(w, body)
		})
		wf, err := c.GetWorkflow(context.Background(), "42")
		require.NoError(t, err)
		assert.Equal(t, "42", wf.ID())
	}
}

func TestClient_ExecutionDataFieldIsNotUnwrapped(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":7,"finished":true,"data":{"resultData":{}}}`)
	})
	exec, err := c.GetExecution(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "7", exec.ID())
	assert.Contains(t, exec, "finished")
	assert.Contains(t, exec, "data")
}

func TestClient_CreateAndUpdateSendJSON(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		got["_method"] = r.Method
		got["_path"] = r.URL.Path
		_, _ = io.WriteString(w, `{"id":"9","name":"x"}`)
	})

	_, err := c.CreateWorkflow(context.Background(), Workflow{"name": "x", "nodes": []any{}})
	require.NoError(t, err)
	assert.Equal(t, "POST", got["_method"])
	assert.Equal(t, "/api/v1/workflows", got["_path"])
	assert.Equal(t, "x", got["name"])

	_, err = c.UpdateWorkflow(context.Background(), "9", Workflow{"name": "y"})
	require.NoError(t, err)
	assert.Equal(t, "PUT", got["_method"])
	assert.Equal(t, "/api/v1/workflows/9", got["_path"])

	_, err = c.SetWorkflowActive(context.Background(), "9", true)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/workflows/9/activate", got["_path"])

	_, err = c.SetWorkflowActive(context.Background(), "9", false)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/workflows/9/deactivate", got["_path"])
}

func TestClient_StatusErrorCarriesMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message":"Workflow has no trigger node"}`)
	})

	_, err := c.SetWorkflowActive(context.Background(), "1", true)
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus())
	assert.Equal(t, "Workflow has no trigger node", apiErr.Message)
	assert.Contains(t, err.Error(), "400")
}

func TestClient_StatusErrorWithoutBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.ListCredentials(context.Background(), 5)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Unauthorized", apiErr.Message)
}

func TestClient_NetworkErrorHasZeroStatus(t *testing.T) {
	f := NewFactory(Options{APIRoot: "http://127.0.0.1:1/api/v1", InstanceRoot: "http://127.0.0.1:1", Timeout: time.Second})
	_, err := f.ForCredential("k").ListWorkflows(context.Background(), 1)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 0, apiErr.StatusCode)
	assert.NotNil(t, apiErr.Unwrap())
}

func TestClient_ExecuteFallsBackOn405(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/rest/workflows/5/run":
			w.WriteHeader(http.StatusMethodNotAllowed)
		case "/api/v1/executions":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "5", body["workflowId"])
			_, _ = io.WriteString(w, `{"id":"100"}`)
		}
	})

	out, err := c.ExecuteWorkflow(context.Background(), "5", map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, "100", out.ID())
	assert.Equal(t, []string{"POST /rest/workflows/5/run", "POST /api/v1/executions"}, calls)
}

func TestClient_ExecuteFallbackFailureReturnsOriginal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rest/workflows/5/run" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := c.ExecuteWorkflow(context.Background(), "5", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusMethodNotAllowed, apiErr.StatusCode)
}

func TestClient_ListExecutionsFilters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		assert.Equal(t, "wf1", r.URL.Query().Get("workflowId"))
		_, _ = io.WriteString(w, `{"data":[{"id":"1"}]}`)
	})
	execs, err := c.ListExecutions(context.Background(), 2, "wf1")
	require.NoError(t, err)
	assert.Len(t, execs, 1)
}

func TestClient_CredentialsAndNodeTypes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /api/v1/credentials":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "httpBasicAuth", body["type"])
			_, _ = io.WriteString(w, `{"id":"c1","name":"n"}`)
		case "DELETE /api/v1/credentials/c1":
			_, _ = io.WriteString(w, `{"id":"c1"}`)
		case "GET /types/nodes.json":
			_, _ = io.WriteString(w, `[{"name":"n8n-nodes-base.set","group":["input"]}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	cred, err := c.CreateCredential(context.Background(), "n", "httpBasicAuth", nil)
	require.NoError(t, err)
	assert.Equal(t, "c1", cred.ID())

	_, err = c.DeleteCredential(context.Background(), "c1")
	require.NoError(t, err)

	nodes, err := c.ListNodeTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, []string{"input"}, nodes[0].Groups())
}

func TestObjectHelpers(t *testing.T) {
	wf := Workflow{"id": json.Number("12"), "name": "n", "active": true, "versionId": "v", "nodes": []any{}}
	assert.Equal(t, "12", wf.ID())
	stripped := wf.Without(ReadOnlyWorkflowFields...)
	assert.NotContains(t, stripped, "id")
	assert.NotContains(t, stripped, "active")
	assert.NotContains(t, stripped, "versionId")
	assert.Contains(t, stripped, "nodes")
	// The original is untouched.
	assert.Contains(t, wf, "id")

	assert.Equal(t, "3", Object{"id": float64(3)}.ID())
	assert.Equal(t, "", Object{}.ID())
}
