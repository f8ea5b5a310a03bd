package api

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[string]string
	paths    []string
}

func (o *recordingObserver) ObserveDispatch(op, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = map[string]string{}
	}
	o.outcomes[op] = outcome
}

func (o *recordingObserver) ObserveReconcile(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paths = append(o.paths, path)
}

func toyCatalog(names ...string) []ToolSpec {
	out := make([]ToolSpec, 0, len(names))
	for _, n := range names {
		out = append(out, ToolSpec{Name: n, InputSchema: json.RawMessage(emptySchema)})
	}
	return out
}

func TestDispatch_UnknownOperation(t *testing.T) {
	called := false
	d, err := NewDispatcher(toyCatalog("list_x"))
	require.NoError(t, err)
	require.NoError(t, d.Register(OperationDefinition{ID: "list_x", Handler: func(context.Context, *Call) (*Result, error) {
		called = true
		return Succeed(nil, "ok"), nil
	}}))
	require.NoError(t, d.Seal())

	res, err := d.Dispatch(context.Background(), "list_y", &Call{})
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOperationNotFound))
	var nf *OperationNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "list_y", nf.Name)
	assert.False(t, called)
}

func TestDispatcher_RegistryMatchesCatalog(t *testing.T) {
	noop := func(context.Context, *Call) (*Result, error) { return Succeed(nil, "ok"), nil }

	d, err := NewDispatcher(toyCatalog("a", "b"))
	require.NoError(t, err)
	require.NoError(t, d.Register(OperationDefinition{ID: "a", Handler: noop}))

	err = d.Seal()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b")

	assert.Error(t, d.Register(OperationDefinition{ID: "a", Handler: noop}), "duplicate")
	assert.Error(t, d.Register(OperationDefinition{ID: "c", Handler: noop}), "not in catalog")
	assert.Error(t, d.Register(OperationDefinition{ID: "b"}), "nil handler")

	require.NoError(t, d.Register(OperationDefinition{ID: "b", Handler: noop}))
	require.NoError(t, d.Seal())
	assert.Error(t, d.Register(OperationDefinition{ID: "b", Handler: noop}), "sealed")
	assert.True(t, d.Has("a"))
	assert.False(t, d.Has("c"))
}

func TestNewDispatcher_RejectsBadCatalog(t *testing.T) {
	_, err := NewDispatcher(toyCatalog("a", "a"))
	assert.Error(t, err)

	_, err = NewDispatcher([]ToolSpec{{Name: "bad", InputSchema: json.RawMessage(`{"type": 12}`)}})
	assert.Error(t, err)
}

func TestDispatch_SchemaViolationSkipsHandler(t *testing.T) {
	called := false
	d, err := NewDispatcher(Catalog())
	require.NoError(t, err)
	for _, spec := range Catalog() {
		require.NoError(t, d.Register(OperationDefinition{ID: spec.Name, Handler: func(context.Context, *Call) (*Result, error) {
			called = true
			return Succeed(nil, "ok"), nil
		}}))
	}
	require.NoError(t, d.Seal())

	tests := []struct {
		name string
		op   string
		args map[string]any
	}{
		{"missing id", "get_workflow", map[string]any{}},
		{"empty id", "delete_workflow", map[string]any{"workflowId": ""}},
		{"wrong type", "list_workflows", map[string]any{"limit": "ten"}},
		{"limit below minimum", "list_executions", map[string]any{"limit": 0}},
		{"nodes not array", "create_workflow", map[string]any{"name": "x", "nodes": "n"}},
		{"credential without data", "create_credential", map[string]any{"name": "x", "type": "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Dispatch(context.Background(), tt.op, &Call{Args: tt.args})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.op, ve.Operation)
		})
	}
	assert.False(t, called)
}

func TestDispatch_NormalizesArguments(t *testing.T) {
	var got map[string]any
	d, err := NewDispatcher(Catalog())
	require.NoError(t, err)
	require.NoError(t, d.Register(OperationDefinition{ID: "create_workflow", Handler: func(_ context.Context, c *Call) (*Result, error) {
		got = c.Args
		return Succeed(nil, "ok"), nil
	}}))

	// Typed Go values from in-process callers would otherwise trip the validator.
	_, err = d.Dispatch(context.Background(), "create_workflow", &Call{Args: map[string]any{
		"name":  "wf",
		"nodes": []map[string]any{{"id": "a", "name": "A", "type": "t", "position": []int{0, 0}}},
	}})
	require.NoError(t, err)
	nodes, ok := got["nodes"].([]any)
	require.True(t, ok)
	assert.Len(t, nodes, 1)
}

func TestDispatch_PassesHandlerResultThrough(t *testing.T) {
	obs := &recordingObserver{}
	boom := errors.New("boom")
	d, err := NewDispatcher(toyCatalog("ok", "fail", "raise"), WithObserver(obs))
	require.NoError(t, err)
	require.NoError(t, d.RegisterAll([]OperationDefinition{
		{ID: "ok", Handler: func(context.Context, *Call) (*Result, error) { return Succeed(1, "fine"), nil }},
		{ID: "fail", Handler: func(context.Context, *Call) (*Result, error) {
			return FailWithStatus("nope", "Failed to fail", 502), nil
		}},
		{ID: "raise", Handler: func(context.Context, *Call) (*Result, error) { return nil, boom }},
	}))
	require.NoError(t, d.Seal())

	res, err := d.Dispatch(context.Background(), "ok", nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "fine", res.Message)

	res, err = d.Dispatch(context.Background(), "fail", &Call{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 502, res.StatusCode)

	_, err = d.Dispatch(context.Background(), "raise", &Call{})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, map[string]string{"ok": OutcomeSuccess, "fail": OutcomeFailure, "raise": OutcomeError}, obs.outcomes)
}

func TestCatalogMatchesOperations(t *testing.T) {
	svc := NewService(nil, nil, defaultLimits())
	names := map[string]bool{}
	for _, op := range svc.Operations() {
		names[op.ID] = true
	}
	for _, spec := range Catalog() {
		if spec.Name == "self_test" {
			continue
		}
		assert.True(t, names[spec.Name], "no handler for %s", spec.Name)
		delete(names, spec.Name)
	}
	assert.Empty(t, names)
}
