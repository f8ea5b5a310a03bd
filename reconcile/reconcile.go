// Package reconcile drives a workflow's active flag to a desired value across
// n8n versions that differ in how, or whether, they expose a toggle endpoint.
//
// A call walks at most three states:
//
//	direct      POST /workflows/{id}/activate|deactivate
//	            404 -> fullUpdate, 400 -> checkCurrent, other errors are terminal
//	checkCurrent GET the workflow; already in the desired state is success,
//	            otherwise fullUpdate, whose failure reports the direct error
//	fullUpdate  GET (unless already fetched), set "active", PUT the whole document
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/awantoch/n8n-mcp/n8n"
)

// API is the part of the n8n client reconciliation needs.
type API interface {
	SetWorkflowActive(ctx context.Context, id string, active bool) (n8n.Workflow, error)
	GetWorkflow(ctx context.Context, id string) (n8n.Workflow, error)
	UpdateWorkflow(ctx context.Context, id string, wf n8n.Workflow) (n8n.Workflow, error)
}

// State names a step of the machine.
type State string

const (
	StateDirect       State = "direct"
	StateCheckCurrent State = "check_current"
	StateFullUpdate   State = "full_update"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
)

// Path is how a successful reconciliation got there.
type Path string

const (
	PathDirect         Path = "direct"
	PathFullUpdate     Path = "full_update"
	PathAlreadyInState Path = "already_in_state"
)

// Transition records one edge taken, with the upstream status that chose it.
type Transition struct {
	From   State `json:"from"`
	To     State `json:"to"`
	Status int   `json:"status,omitempty"`
}

// Outcome is the result of a successful reconciliation.
type Outcome struct {
	Workflow    n8n.Workflow `json:"workflow"`
	Path        Path         `json:"path"`
	Desired     bool         `json:"desired"`
	Transitions []Transition `json:"transitions"`
}

// Error is a failed reconciliation. Err is the upstream error reported to
// the caller, unchanged, so its status code survives.
type Error struct {
	Err         error
	Transitions []Transition
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// statusCoder is satisfied by *n8n.APIError and any other error exposing an
// HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

// StatusOf returns the HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}

type machine struct {
	api       API
	id        string
	desired   bool
	current   n8n.Workflow
	directErr error
	checked   bool
}

// step is what running one state produced.
type step struct {
	next     State
	status   int
	workflow n8n.Workflow
	path     Path
	err      error
}

// Reconcile sets workflow id's active flag to desired. It performs no
// retries; every upstream error either selects the next state or ends the call.
func Reconcile(ctx context.Context, api API, id string, desired bool) (*Outcome, error) {
	if id == "" {
		return nil, fmt.Errorf("reconcile: workflow id is required")
	}
	m := &machine{api: api, id: id, desired: desired}
	var trace []Transition
	state := StateDirect
	for {
		var s step
		switch state {
		case StateDirect:
			s = m.direct(ctx)
		case StateCheckCurrent:
			s = m.checkCurrent(ctx)
		case StateFullUpdate:
			s = m.fullUpdate(ctx)
		default:
			return nil, fmt.Errorf("reconcile: unknown state %q", state)
		}
		trace = append(trace, Transition{From: state, To: s.next, Status: s.status})
		switch s.next {
		case StateSucceeded:
			return &Outcome{Workflow: s.workflow, Path: s.path, Desired: desired, Transitions: trace}, nil
		case StateFailed:
			return nil, &Error{Err: s.err, Transitions: trace}
		}
		state = s.next
	}
}

func (m *machine) direct(ctx context.Context) step {
	wf, err := m.api.SetWorkflowActive(ctx, m.id, m.desired)
	if err == nil {
		return step{next: StateSucceeded, workflow: wf, path: PathDirect}
	}
	m.directErr = err
	status := StatusOf(err)
	switch status {
	case http.StatusNotFound:
		return step{next: StateFullUpdate, status: status}
	case http.StatusBadRequest:
		return step{next: StateCheckCurrent, status: status}
	default:
		return step{next: StateFailed, status: status, err: err}
	}
}

func (m *machine) checkCurrent(ctx context.Context) step {
	m.checked = true
	wf, err := m.api.GetWorkflow(ctx, m.id)
	if err != nil {
		return step{next: StateFailed, status: StatusOf(err), err: m.directErr}
	}
	if active, ok := wf.Active(); ok && active == m.desired {
		return step{next: StateSucceeded, workflow: wf, path: PathAlreadyInState}
	}
	m.current = wf
	return step{next: StateFullUpdate}
}

func (m *machine) fullUpdate(ctx context.Context) step {
	fail := func(err error) step {
		if m.checked {
			err = m.directErr
		}
		return step{next: StateFailed, status: StatusOf(err), err: err}
	}
	current := m.current
	if current == nil {
		wf, err := m.api.GetWorkflow(ctx, m.id)
		if err != nil {
			return fail(err)
		}
		current = wf
	}
	body := current.Clone()
	body["active"] = m.desired
	wf, err := m.api.UpdateWorkflow(ctx, m.id, body)
	if err != nil {
		return fail(err)
	}
	return step{next: StateSucceeded, workflow: wf, path: PathFullUpdate}
}
