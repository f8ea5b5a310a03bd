// Package selftest exercises every operation against the configured n8n
// instance, in dependency order, and removes whatever it created.
package selftest

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/awantoch/n8n-mcp/api"
	"github.com/awantoch/n8n-mcp/constants"
	"github.com/awantoch/n8n-mcp/n8n"
	"github.com/awantoch/n8n-mcp/utils"
)

// Status of one probe.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	StatusSkip Status = "SKIP"
)

// Record is the outcome of one probe. Records are appended once and never
// modified.
type Record struct {
	Name    string         `json:"name"`
	Status  Status         `json:"status"`
	Input   map[string]any `json:"input,omitempty"`
	Output  any            `json:"output,omitempty"`
	Message string         `json:"message"`
}

// ResourceKind selects the delete operation used during cleanup.
type ResourceKind string

const (
	KindWorkflow   ResourceKind = "workflow"
	KindCredential ResourceKind = "credential"
)

// Resource is an entry of the cleanup ledger.
type Resource struct {
	Kind ResourceKind `json:"kind"`
	ID   string       `json:"id"`
	Name string       `json:"name,omitempty"`
}

// CleanupResult reports the deletion attempt for one ledger entry.
type CleanupResult struct {
	Resource
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// Summary counts the records of a run.
type Summary struct {
	Total       int     `json:"total"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	Skipped     int     `json:"skipped"`
	SuccessRate float64 `json:"successRate"`
}

// Report is everything one run produced.
type Report struct {
	RunID            string          `json:"runId"`
	Summary          Summary         `json:"summary"`
	Tests            []Record        `json:"tests"`
	CreatedResources []Resource      `json:"createdResources"`
	Cleanup          []CleanupResult `json:"cleanup"`
}

// Success reports whether no probe failed.
func (r *Report) Success() bool { return r.Summary.Failed == 0 }

// Message is the one-line human summary.
func (r *Report) Message() string {
	return fmt.Sprintf(constants.MsgSelfTestCompleted, r.Summary.Passed, r.Summary.Total, r.Summary.SuccessRate)
}

// Dispatcher is the part of api.Dispatcher the runner drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, call *api.Call) (*api.Result, error)
}

// Runner executes self-test runs. Runs share nothing; each starts with an
// empty ledger.
type Runner struct {
	dispatcher Dispatcher
	newID      func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithIDGenerator replaces the run id source.
func WithIDGenerator(fn func() string) Option {
	return func(r *Runner) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// NewRunner creates a Runner on top of d.
func NewRunner(d Dispatcher, opts ...Option) *Runner {
	r := &Runner{dispatcher: d, newID: uuid.NewString}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Operation is the self_test entry for the dispatcher registry.
func (r *Runner) Operation() api.OperationDefinition {
	return api.OperationDefinition{ID: constants.ToolSelfTest, Group: constants.GroupSystem, Handler: r.handle}
}

func (r *Runner) handle(ctx context.Context, call *api.Call) (*api.Result, error) {
	report := r.Run(ctx, call)
	if report.Success() {
		return api.Succeed(report, report.Message()), nil
	}
	return &api.Result{
		Success: false,
		Data:    report,
		Message: report.Message(),
		Error:   fmt.Sprintf("%d of %d tests failed", report.Summary.Failed, report.Summary.Total),
	}, nil
}

// Run executes every probe in order, then the cleanup ledger. base supplies
// the credential context forwarded to every probe; it may be nil.
func (r *Runner) Run(ctx context.Context, base *api.Call) *Report {
	return r.execute(ctx, base).report()
}

func (r *Runner) execute(ctx context.Context, base *api.Call) *run {
	if base == nil {
		base = &api.Call{}
	}
	s := &run{
		dispatcher: r.dispatcher,
		base:       base,
		id:         r.newID(),
	}
	utils.InfoCtx(ctx, "self-test started", "run_id", s.id)

	func() {
		// Cleanup runs exactly once, however probing ends.
		defer s.cleanup(context.WithoutCancel(ctx))
		s.probes(ctx)
	}()

	utils.InfoCtx(ctx, "self-test finished", "run_id", s.id, "message", s.report().Message())
	return s
}

// run holds the state of one invocation.
type run struct {
	dispatcher Dispatcher
	base       *api.Call
	id         string

	records  []Record
	ledger   []Resource
	created  []Resource
	cleaned  []CleanupResult
	cleanups int
}

func (s *run) suffix() string {
	if len(s.id) > 8 {
		return s.id[:8]
	}
	return s.id
}

func (s *run) report() *Report {
	sum := Summary{Total: len(s.records)}
	for _, rec := range s.records {
		switch rec.Status {
		case StatusPass:
			sum.Passed++
		case StatusFail:
			sum.Failed++
		case StatusSkip:
			sum.Skipped++
		}
	}
	sum.SuccessRate = passRate(sum.Passed, sum.Total)
	return &Report{
		RunID:            s.id,
		Summary:          sum,
		Tests:            append([]Record{}, s.records...),
		CreatedResources: append([]Resource{}, s.created...),
		Cleanup:          append([]CleanupResult{}, s.cleaned...),
	}
}

// passRate is passed/total as a percentage with one decimal; zero when
// nothing ran.
func passRate(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(passed)/float64(total)*1000) / 10
}

// dispatch calls op with the run's credential context. A panic in a handler
// is reported as an error.
func (s *run) dispatch(ctx context.Context, op string, args map[string]any) (res *api.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("operation %s panicked: %v", op, p)
		}
	}()
	return s.dispatcher.Dispatch(ctx, op, &api.Call{Args: args, Headers: s.base.Headers, SessionID: s.base.SessionID})
}

// probe runs op and appends its record. The result is returned only when
// the operation succeeded.
func (s *run) probe(ctx context.Context, name, op string, args map[string]any) *api.Result {
	res, err := s.dispatch(ctx, op, args)
	rec := Record{Name: name, Input: args}
	switch {
	case err != nil:
		rec.Status = StatusFail
		rec.Message = err.Error()
		rec.Output = map[string]any{"error": err.Error(), "statusCode": api.StatusFor(err)}
	case !res.Success:
		rec.Status = StatusFail
		rec.Message = res.Message
		if res.Error != "" {
			rec.Message += ": " + res.Error
		}
		rec.Output = map[string]any{"error": res.Error, "statusCode": res.StatusCode}
	default:
		rec.Status = StatusPass
		rec.Message = res.Message
		rec.Output = res.Data
	}
	s.append(ctx, rec)
	if rec.Status != StatusPass {
		return nil
	}
	return res
}

func (s *run) skip(ctx context.Context, name, reason string) {
	s.append(ctx, Record{
		Name:    name,
		Status:  StatusSkip,
		Output:  map[string]any{"skipped": true, "reason": reason},
		Message: reason,
	})
}

func (s *run) append(ctx context.Context, rec Record) {
	s.records = append(s.records, rec)
	utils.InfoCtx(ctx, "self-test probe", "run_id", s.id, "probe", rec.Name, "status", string(rec.Status))
}

func (s *run) track(res Resource) {
	s.ledger = append(s.ledger, res)
	s.created = append(s.created, res)
}

func (s *run) untrack(id string, kind ResourceKind) {
	for i, res := range s.ledger {
		if res.ID == id && res.Kind == kind {
			s.ledger = append(s.ledger[:i], s.ledger[i+1:]...)
			return
		}
	}
}

// cleanup deletes every ledger entry. Failures are logged and recorded,
// never returned.
func (s *run) cleanup(ctx context.Context) {
	s.cleanups++
	for _, res := range s.ledger {
		op, arg := constants.ToolDeleteWorkflow, "workflowId"
		if res.Kind == KindCredential {
			op, arg = constants.ToolDeleteCredential, "credentialId"
		}
		out := CleanupResult{Resource: res}
		r, err := s.dispatch(ctx, op, map[string]any{arg: res.ID})
		switch {
		case err != nil:
			out.Error = err.Error()
		case !r.Success:
			out.Error = r.Message
			if r.Error != "" {
				out.Error += ": " + r.Error
			}
		default:
			out.Deleted = true
		}
		if !out.Deleted {
			utils.WarnCtx(ctx, "self-test cleanup failed", "run_id", s.id, "kind", string(res.Kind), "id", res.ID, "error", out.Error)
		}
		s.cleaned = append(s.cleaned, out)
	}
	s.ledger = nil
}

// resultID reads the id of the object a successful create returned.
func resultID(res *api.Result) string {
	switch data := res.Data.(type) {
	case n8n.Object:
		return data.ID()
	case map[string]any:
		return n8n.Object(data).ID()
	default:
		return ""
	}
}

// firstID returns the id of the first element of a list result.
func firstID(res *api.Result) string {
	if res == nil {
		return ""
	}
	switch data := res.Data.(type) {
	case []n8n.Object:
		if len(data) > 0 {
			return data[0].ID()
		}
	case []any:
		if len(data) > 0 {
			if m, ok := data[0].(map[string]any); ok {
				return n8n.Object(m).ID()
			}
		}
	}
	return ""
}
