package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/awantoch/n8n-mcp/utils"
)

// Observer receives dispatch outcomes. Metrics hang off this.
type Observer interface {
	ObserveDispatch(operation, outcome string, elapsed time.Duration)
	ObserveReconcile(path string)
}

type nopObserver struct{}

func (nopObserver) ObserveDispatch(string, string, time.Duration) {}
func (nopObserver) ObserveReconcile(string)                       {}

// Dispatch outcomes reported to the Observer.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver reports every dispatch to o.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

// Dispatcher routes named calls to their handlers after checking arguments
// against the catalog's input schemas. Handlers are registered once during
// startup; Seal fails if the catalog and the registered set differ.
type Dispatcher struct {
	mu       sync.RWMutex
	specs    []ToolSpec
	schemas  map[string]*jsonschema.Schema
	ops      map[string]OperationDefinition
	sealed   bool
	observer Observer
}

// NewDispatcher compiles the input schema of every catalog entry.
func NewDispatcher(catalog []ToolSpec, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		specs:    make([]ToolSpec, 0, len(catalog)),
		schemas:  make(map[string]*jsonschema.Schema, len(catalog)),
		ops:      make(map[string]OperationDefinition, len(catalog)),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, spec := range catalog {
		if spec.Name == "" {
			return nil, fmt.Errorf("catalog entry without a name")
		}
		if _, dup := d.schemas[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", spec.Name)
		}
		schema, err := jsonschema.CompileString(spec.Name+".schema.json", string(spec.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("compile input schema for %s: %w", spec.Name, err)
		}
		d.schemas[spec.Name] = schema
		d.specs = append(d.specs, spec)
	}
	return d, nil
}

// Register binds an operation to its catalog entry.
func (d *Dispatcher) Register(op OperationDefinition) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sealed {
		return fmt.Errorf("dispatcher is sealed; cannot register %q", op.ID)
	}
	if op.Handler == nil {
		return fmt.Errorf("operation %q has no handler", op.ID)
	}
	if _, ok := d.schemas[op.ID]; !ok {
		return fmt.Errorf("operation %q is not in the catalog", op.ID)
	}
	if _, dup := d.ops[op.ID]; dup {
		return fmt.Errorf("operation %q registered twice", op.ID)
	}
	d.ops[op.ID] = op
	return nil
}

// RegisterAll registers ops in order, stopping at the first error.
func (d *Dispatcher) RegisterAll(ops []OperationDefinition) error {
	for _, op := range ops {
		if err := d.Register(op); err != nil {
			return err
		}
	}
	return nil
}

// Seal freezes the registry. Every catalog entry must have a handler.
func (d *Dispatcher) Seal() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var missing []string
	for _, spec := range d.specs {
		if _, ok := d.ops[spec.Name]; !ok {
			missing = append(missing, spec.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("catalog entries without handlers: %s", strings.Join(missing, ", "))
	}
	d.sealed = true
	return nil
}

// Tools returns the catalog in listing order.
func (d *Dispatcher) Tools() []ToolSpec {
	out := make([]ToolSpec, len(d.specs))
	copy(out, d.specs)
	return out
}

// Has reports whether name has a registered handler.
func (d *Dispatcher) Has(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.ops[name]
	return ok
}

// Dispatch runs operation name. Unknown names and schema violations are
// returned as errors without invoking any handler; otherwise the handler's
// result and error are passed through untouched.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, call *Call) (*Result, error) {
	d.mu.RLock()
	op, ok := d.ops[name]
	schema := d.schemas[name]
	d.mu.RUnlock()
	if !ok {
		return nil, &OperationNotFoundError{Name: name}
	}
	if call == nil {
		call = &Call{}
	}

	args, err := normalizeArgs(call.Args)
	if err != nil {
		return nil, invalid(name, "", err.Error())
	}
	if err := schema.Validate(args); err != nil {
		return nil, schemaError(name, err)
	}
	c := *call
	c.Args = args

	start := time.Now()
	res, err := op.Handler(ctx, &c)
	if err == nil && res == nil {
		err = fmt.Errorf("operation %s returned no result", name)
	}
	outcome := OutcomeSuccess
	switch {
	case err != nil:
		outcome = OutcomeError
	case !res.Success:
		outcome = OutcomeFailure
	}
	d.observer.ObserveDispatch(name, outcome, time.Since(start))
	utils.DebugCtx(ctx, "dispatched operation", "operation", name, "outcome", outcome)
	return res, err
}

// normalizeArgs round-trips args through JSON so the validator and handlers
// only ever see JSON-shaped values (map[string]any, []any, float64 ...).
func normalizeArgs(args map[string]any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("arguments are not JSON-serialisable: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func schemaError(op string, err error) *ValidationError {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return invalid(op, "", err.Error())
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	field := strings.TrimPrefix(leaf.InstanceLocation, "/")
	return invalid(op, field, leaf.Message)
}
