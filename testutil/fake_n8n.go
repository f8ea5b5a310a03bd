// Package testutil provides an in-memory n8n instance for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// ToggleMode selects how the activate/deactivate endpoints behave.
type ToggleMode int

const (
	// ToggleDirect: the endpoints exist and always apply the change.
	ToggleDirect ToggleMode = iota
	// ToggleMissing: the endpoints answer 404, as on instances without them.
	ToggleMissing
	// ToggleStrict: the endpoints answer 400 when the workflow is already in the requested state.
	ToggleStrict
)

// FakeN8N serves the subset of the n8n REST API the server uses. It keeps
// workflows, credentials and executions in memory.
type FakeN8N struct {
	*httptest.Server

	mu          sync.Mutex
	workflows   map[string]map[string]any
	credentials map[string]map[string]any
	executions  map[string]map[string]any
	nodeTypes   []map[string]any
	nextID      int
	toggle      ToggleMode
	failures    map[string]int
	keys        []string
	requests    int
}

// NewFakeN8N starts a fake instance that is closed when the test ends.
func NewFakeN8N(t testing.TB) *FakeN8N {
	t.Helper()
	f := &FakeN8N{
		workflows:   map[string]map[string]any{},
		credentials: map[string]map[string]any{},
		executions:  map[string]map[string]any{},
		failures:    map[string]int{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// APIRoot is the public API base, <url>/api/v1.
func (f *FakeN8N) APIRoot() string { return f.URL + "/api/v1" }

// SetToggleMode changes how activate/deactivate behave.
func (f *FakeN8N) SetToggleMode(m ToggleMode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggle = m
}

// FailWith makes requests matching method and the path glob answer status.
func (f *FakeN8N) FailWith(method, pattern string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+pattern] = status
}

// AddWorkflow stores wf and returns its id.
func (f *FakeN8N) AddWorkflow(wf map[string]any) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.storeWorkflow(wf)
}

// Workflow returns a copy of the stored workflow.
func (f *FakeN8N) Workflow(id string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wf, ok := f.workflows[id]
	if !ok {
		return nil, false
	}
	return clone(wf), true
}

func (f *FakeN8N) WorkflowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.workflows)
}

func (f *FakeN8N) CredentialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.credentials)
}

// AddNodeType appends an entry to /types/nodes.json.
func (f *FakeN8N) AddNodeType(nt map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodeTypes = append(f.nodeTypes, nt)
}

// Requests counts every request received.
func (f *FakeN8N) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

// Keys lists the X-N8N-API-KEY values received, in order.
func (f *FakeN8N) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func (f *FakeN8N) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	f.keys = append(f.keys, r.Header.Get("X-N8N-API-KEY"))

	for key, status := range f.failures {
		method, pattern, _ := strings.Cut(key, " ")
		if ok, _ := path.Match(pattern, r.URL.Path); ok && method == r.Method {
			writeJSON(w, status, map[string]any{"message": http.StatusText(status)})
			return
		}
	}

	var body map[string]any
	if r.Body != nil && r.ContentLength != 0 {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	p := r.URL.Path
	switch {
	case p == "/types/nodes.json" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, f.nodeTypes)
	case strings.HasPrefix(p, "/rest/workflows/") && strings.HasSuffix(p, "/run"):
		f.run(w, strings.TrimSuffix(strings.TrimPrefix(p, "/rest/workflows/"), "/run"), body)
	case strings.HasPrefix(p, "/api/v1/workflows"):
		f.serveWorkflows(w, r, strings.Trim(strings.TrimPrefix(p, "/api/v1/workflows"), "/"), body)
	case strings.HasPrefix(p, "/api/v1/executions"):
		f.serveExecutions(w, r, strings.Trim(strings.TrimPrefix(p, "/api/v1/executions"), "/"), body)
	case strings.HasPrefix(p, "/api/v1/credentials"):
		f.serveCredentials(w, r, strings.Trim(strings.TrimPrefix(p, "/api/v1/credentials"), "/"), body)
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
	}
}

func (f *FakeN8N) serveWorkflows(w http.ResponseWriter, r *http.Request, rest string, body map[string]any) {
	id, action, _ := strings.Cut(rest, "/")
	switch {
	case id == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"data": f.list(f.workflows, limitOf(r)), "nextCursor": nil})
	case id == "" && r.Method == http.MethodPost:
		if name, _ := body["name"].(string); name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "request/body must have required property 'name'"})
			return
		}
		id := f.storeWorkflow(body)
		writeJSON(w, http.StatusOK, f.workflows[id])
	case action == "" && r.Method == http.MethodGet:
		f.withWorkflow(w, id, func(wf map[string]any) { writeJSON(w, http.StatusOK, wf) })
	case action == "" && r.Method == http.MethodPut:
		f.withWorkflow(w, id, func(wf map[string]any) {
			active, _ := body["active"].(bool)
			was, _ := wf["active"].(bool)
			if active && !was && !canActivate(body, wf) {
				writeJSON(w, http.StatusBadRequest, map[string]any{"message": msgNoTrigger})
				return
			}
			for k, v := range body {
				if k == "id" || k == "createdAt" {
					continue
				}
				wf[k] = v
			}
			wf["updatedAt"] = time.Now().UTC().Format(time.RFC3339)
			writeJSON(w, http.StatusOK, wf)
		})
	case action == "" && r.Method == http.MethodDelete:
		f.withWorkflow(w, id, func(wf map[string]any) {
			delete(f.workflows, id)
			writeJSON(w, http.StatusOK, wf)
		})
	case (action == "activate" || action == "deactivate") && r.Method == http.MethodPost:
		f.toggleWorkflow(w, id, action == "activate")
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"message": "method not allowed"})
	}
}

func (f *FakeN8N) toggleWorkflow(w http.ResponseWriter, id string, desired bool) {
	if f.toggle == ToggleMissing {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "The requested resource could not be found"})
		return
	}
	f.withWorkflow(w, id, func(wf map[string]any) {
		if f.toggle == ToggleStrict && wf["active"] == desired {
			state := "inactive"
			if desired {
				state = "active"
			}
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Workflow is already " + state})
			return
		}
		if desired && !canActivate(wf) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": msgNoTrigger})
			return
		}
		wf["active"] = desired
		writeJSON(w, http.StatusOK, wf)
	})
}

const msgNoTrigger = "Workflow has no node to start the workflow - at least one trigger, poller or webhook node is required"

// canActivate mirrors n8n's activation rule on the first document carrying
// nodes: some node must be a trigger, poller or webhook. A manual trigger
// does not count.
func canActivate(docs ...map[string]any) bool {
	for _, doc := range docs {
		nodes, ok := doc["nodes"].([]any)
		if !ok {
			continue
		}
		for _, n := range nodes {
			node, _ := n.(map[string]any)
			typ, _ := node["type"].(string)
			if startsWorkflow(typ) {
				return true
			}
		}
		return false
	}
	return false
}

func startsWorkflow(nodeType string) bool {
	t := strings.ToLower(nodeType)
	switch {
	case t == "n8n-nodes-base.manualtrigger":
		return false
	case strings.HasSuffix(t, "trigger"):
		return true
	}
	switch t {
	case "n8n-nodes-base.cron", "n8n-nodes-base.webhook", "n8n-nodes-base.interval":
		return true
	}
	return false
}

func (f *FakeN8N) run(w http.ResponseWriter, workflowID string, input map[string]any) {
	if _, ok := f.workflows[workflowID]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "workflow not found"})
		return
	}
	f.nextID++
	id := strconv.Itoa(f.nextID)
	f.executions[id] = map[string]any{"id": id, "workflowId": workflowID, "finished": true, "mode": "manual", "data": input}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"executionId": id}})
}

func (f *FakeN8N) serveExecutions(w http.ResponseWriter, r *http.Request, id string, _ map[string]any) {
	switch {
	case id == "" && r.Method == http.MethodGet:
		all := f.list(f.executions, 0)
		if wfID := r.URL.Query().Get("workflowId"); wfID != "" {
			filtered := all[:0]
			for _, e := range all {
				if e["workflowId"] == wfID {
					filtered = append(filtered, e)
				}
			}
			all = filtered
		}
		if n := limitOf(r); n > 0 && len(all) > n {
			all = all[:n]
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": all, "nextCursor": nil})
	case r.Method == http.MethodGet:
		e, ok := f.executions[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "execution not found"})
			return
		}
		writeJSON(w, http.StatusOK, e)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"message": "method not allowed"})
	}
}

func (f *FakeN8N) serveCredentials(w http.ResponseWriter, r *http.Request, id string, body map[string]any) {
	switch {
	case id == "" && r.Method == http.MethodGet:
		list := f.list(f.credentials, limitOf(r))
		for _, c := range list {
			delete(c, "data")
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": list, "nextCursor": nil})
	case id == "" && r.Method == http.MethodPost:
		f.nextID++
		id := strconv.Itoa(f.nextID)
		cred := clone(body)
		cred["id"] = id
		f.credentials[id] = cred
		out := clone(cred)
		delete(out, "data")
		writeJSON(w, http.StatusOK, out)
	case r.Method == http.MethodDelete:
		cred, ok := f.credentials[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "credential not found"})
			return
		}
		delete(f.credentials, id)
		out := clone(cred)
		delete(out, "data")
		writeJSON(w, http.StatusOK, out)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"message": "method not allowed"})
	}
}

func (f *FakeN8N) storeWorkflow(wf map[string]any) string {
	f.nextID++
	id := strconv.Itoa(f.nextID)
	doc := clone(wf)
	doc["id"] = id
	if _, ok := doc["active"]; !ok {
		doc["active"] = false
	}
	doc["createdAt"] = time.Now().UTC().Format(time.RFC3339)
	f.workflows[id] = doc
	return id
}

func (f *FakeN8N) withWorkflow(w http.ResponseWriter, id string, fn func(map[string]any)) {
	wf, ok := f.workflows[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": fmt.Sprintf("Workflow %s not found", id)})
		return
	}
	fn(wf)
}

// list returns copies ordered by numeric id.
func (f *FakeN8N) list(items map[string]map[string]any, limit int) []map[string]any {
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(items[id]))
	}
	return out
}

func limitOf(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
