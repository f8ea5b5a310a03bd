// Package n8n is a thin client for the n8n public REST API.
package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/awantoch/n8n-mcp/constants"
	"github.com/awantoch/n8n-mcp/utils"
)

const maxResponseBytes = 16 << 20

// Options configures a Factory.
type Options struct {
	// APIRoot is the public API base, e.g. http://localhost:5678/api/v1.
	APIRoot string
	// InstanceRoot is the instance base used for non-API paths such as the node catalog.
	InstanceRoot string
	Timeout      time.Duration
	Transport    http.RoundTripper
}

// Factory hands out Clients bound to a credential while sharing one
// connection pool.
type Factory struct {
	apiRoot      string
	instanceRoot string
	httpClient   *http.Client
}

func NewFactory(opts Options) *Factory {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Factory{
		apiRoot:      strings.TrimRight(opts.APIRoot, "/"),
		instanceRoot: strings.TrimRight(opts.InstanceRoot, "/"),
		httpClient:   &http.Client{Timeout: opts.Timeout, Transport: transport},
	}
}

// ForCredential returns a Client sending apiKey with every request.
func (f *Factory) ForCredential(apiKey string) *Client {
	return &Client{factory: f, apiKey: apiKey}
}

// Client calls n8n with one API key.
type Client struct {
	factory *Factory
	apiKey  string
}

// ============================================================================
// WORKFLOWS
// ============================================================================

func (c *Client) ListWorkflows(ctx context.Context, limit int) ([]Workflow, error) {
	var out []Workflow
	err := c.api(ctx, http.MethodGet, constants.PathWorkflows, limitQuery(limit, nil), nil, &out)
	return out, err
}

func (c *Client) GetWorkflow(ctx context.Context, id string) (Workflow, error) {
	var out Workflow
	err := c.api(ctx, http.MethodGet, workflowPath(id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateWorkflow(ctx context.Context, wf Workflow) (Workflow, error) {
	var out Workflow
	err := c.api(ctx, http.MethodPost, constants.PathWorkflows, nil, wf, &out)
	return out, err
}

// UpdateWorkflow replaces the workflow with wf.
func (c *Client) UpdateWorkflow(ctx context.Context, id string, wf Workflow) (Workflow, error) {
	var out Workflow
	err := c.api(ctx, http.MethodPut, workflowPath(id), nil, wf, &out)
	return out, err
}

func (c *Client) DeleteWorkflow(ctx context.Context, id string) (Workflow, error) {
	var out Workflow
	err := c.api(ctx, http.MethodDelete, workflowPath(id), nil, nil, &out)
	return out, err
}

// SetWorkflowActive calls the dedicated activate or deactivate endpoint.
func (c *Client) SetWorkflowActive(ctx context.Context, id string, active bool) (Workflow, error) {
	action := "/deactivate"
	if active {
		action = "/activate"
	}
	var out Workflow
	err := c.api(ctx, http.MethodPost, workflowPath(id)+action, nil, map[string]any{}, &out)
	return out, err
}

// ExecuteWorkflow starts a run through the instance's internal run endpoint,
// falling back to POST /executions when that endpoint rejects the method.
func (c *Client) ExecuteWorkflow(ctx context.Context, id string, input map[string]any) (Object, error) {
	if input == nil {
		input = map[string]any{}
	}
	var out Object
	runURL := c.factory.instanceRoot + fmt.Sprintf(constants.PathRunWorkflow, url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, runURL, input, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusMethodNotAllowed {
		utils.DebugCtx(ctx, "run endpoint not allowed, falling back to executions", "workflow_id", id)
		var fallback Object
		body := map[string]any{"workflowId": id, "data": input}
		if ferr := c.api(ctx, http.MethodPost, constants.PathExecutions, nil, body, &fallback); ferr != nil {
			return nil, err
		}
		return fallback, nil
	}
	return out, err
}

// ============================================================================
// EXECUTIONS
// ============================================================================

func (c *Client) ListExecutions(ctx context.Context, limit int, workflowID string) ([]Object, error) {
	extra := url.Values{}
	if workflowID != "" {
		extra.Set("workflowId", workflowID)
	}
	var out []Object
	err := c.api(ctx, http.MethodGet, constants.PathExecutions, limitQuery(limit, extra), nil, &out)
	return out, err
}

func (c *Client) GetExecution(ctx context.Context, id string) (Object, error) {
	var out Object
	err := c.api(ctx, http.MethodGet, constants.PathExecutions+"/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// ============================================================================
// CREDENTIALS
// ============================================================================

func (c *Client) ListCredentials(ctx context.Context, limit int) ([]Object, error) {
	var out []Object
	err := c.api(ctx, http.MethodGet, constants.PathCredentials, limitQuery(limit, nil), nil, &out)
	return out, err
}

func (c *Client) CreateCredential(ctx context.Context, name, credType string, data map[string]any) (Object, error) {
	if data == nil {
		data = map[string]any{}
	}
	var out Object
	body := map[string]any{"name": name, "type": credType, "data": data}
	err := c.api(ctx, http.MethodPost, constants.PathCredentials, nil, body, &out)
	return out, err
}

func (c *Client) DeleteCredential(ctx context.Context, id string) (Object, error) {
	var out Object
	err := c.api(ctx, http.MethodDelete, constants.PathCredentials+"/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// ============================================================================
// NODE TYPES
// ============================================================================

// ListNodeTypes fetches the node catalog the editor UI uses.
func (c *Client) ListNodeTypes(ctx context.Context) ([]NodeType, error) {
	var out []NodeType
	err := c.do(ctx, http.MethodGet, c.factory.instanceRoot+constants.PathNodeTypes, nil, &out)
	return out, err
}

// ============================================================================
// TRANSPORT
// ============================================================================

func workflowPath(id string) string {
	return constants.PathWorkflows + "/" + url.PathEscape(id)
}

func limitQuery(limit int, extra url.Values) url.Values {
	q := url.Values{}
	for k, vs := range extra {
		q[k] = vs
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

func (c *Client) api(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.factory.apiRoot + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return c.do(ctx, method, endpoint, body, out)
}

// do sends one request and decodes the answer into out, unwrapping n8n's
// {"data": ...} envelope when present.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	path := endpoint
	if u, err := url.Parse(endpoint); err == nil {
		path = u.Path
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &APIError{Method: method, Path: path, Message: "failed to encode request: " + err.Error(), Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &APIError{Method: method, Path: path, Message: err.Error(), Err: err}
	}
	req.Header.Set(constants.HeaderN8NAPIKey, c.apiKey)
	req.Header.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	if body != nil {
		req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}

	start := time.Now()
	resp, err := c.factory.httpClient.Do(req)
	if err != nil {
		utils.WarnCtx(ctx, "n8n request failed", "method", method, "path", path, "error", err)
		return &APIError{Method: method, Path: path, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Method: method, Path: path, Message: "failed to read response: " + err.Error(), Err: err}
	}
	utils.DebugCtx(ctx, "n8n request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(method, path, resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := decodeEnvelope(raw, out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Method: method, Path: path, Message: "failed to decode response: " + err.Error(), Err: err}
	}
	return nil
}

// decodeEnvelope decodes raw into out. Bodies shaped {"data": X} or
// {"data": X, "nextCursor": ...} decode X; anything else decodes as is, so
// an execution's own "data" field is left alone.
func decodeEnvelope(raw []byte, out any) error {
	var probe map[string]json.RawMessage
	if json.Unmarshal(raw, &probe) == nil {
		if inner, ok := probe["data"]; ok && isEnvelope(probe) {
			raw = inner
		}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}

func isEnvelope(doc map[string]json.RawMessage) bool {
	for k := range doc {
		if k != "data" && k != "nextCursor" {
			return false
		}
	}
	return true
}
