package editor

import (
	"context"
	"sync"

	"github.com/releasekit/releasekit-go/pkg/backend"
)

// TestPlanEditor owns the client-side copy of one session's test plan.
// Same contract as the release-notes editor: local echo, ordered op batch
// on Save, wholesale replacement from the response.
type TestPlanEditor struct {
	api       *backend.Client
	sessionID string
	opts      options

	mu      sync.Mutex
	plan    *backend.TestPlan
	staged  []backend.PatchOp
	lastErr string
}

// NewTestPlanEditor builds an editor for one session.
func NewTestPlanEditor(api *backend.Client, sessionID string, opts ...Option) *TestPlanEditor {
	return &TestPlanEditor{api: api, sessionID: sessionID, opts: buildOptions(opts)}
}

// Load fetches the plan and replaces local state.
func (e *TestPlanEditor) Load(ctx context.Context) error {
	plan, err := e.api.GetTestPlan(ctx, e.sessionID)
	if err != nil {
		e.setErr(err)
		return err
	}
	e.mu.Lock()
	e.plan = plan
	e.lastErr = ""
	e.mu.Unlock()
	return nil
}

// Plan returns the current local copy, or nil before Load.
func (e *TestPlanEditor) Plan() *backend.TestPlan {
	e.mu.Lock()
	defer e.mu.Unlock()
	return clonePlan(e.plan)
}

// Err returns the last user-visible error string, empty when none.
func (e *TestPlanEditor) Err() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Dirty reports whether unsaved ops are staged.
func (e *TestPlanEditor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.staged) > 0
}

// UpdateText echoes an edit to a case's text locally and stages the op.
func (e *TestPlanEditor) UpdateText(caseID, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.plan == nil {
		return ErrNotLoaded
	}
	if tc := findCase(e.plan, caseID); tc != nil {
		tc.Text = text
	}
	e.stageLocked(backend.PatchOp{Op: backend.OpUpdateText, CaseID: caseID, Text: text})
	return nil
}

// SetChecked flips a case's checkbox locally and stages the op.
func (e *TestPlanEditor) SetChecked(caseID string, checked bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.plan == nil {
		return ErrNotLoaded
	}
	if tc := findCase(e.plan, caseID); tc != nil {
		tc.Checked = checked
	}
	c := checked
	e.stageLocked(backend.PatchOp{Op: backend.OpCheck, CaseID: caseID, Checked: &c})
	return nil
}

// ChangePriority updates a case's priority locally and stages the op.
func (e *TestPlanEditor) ChangePriority(caseID, priority string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.plan == nil {
		return ErrNotLoaded
	}
	if tc := findCase(e.plan, caseID); tc != nil {
		tc.Priority = priority
	}
	e.stageLocked(backend.PatchOp{Op: backend.OpChangePriority, CaseID: caseID, Priority: priority})
	return nil
}

// AddCase stages a new case under the given section.
func (e *TestPlanEditor) AddCase(section, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.plan == nil {
		return ErrNotLoaded
	}
	e.stageLocked(backend.PatchOp{Op: backend.OpAddCase, Section: section, Text: text})
	return nil
}

// DeleteCase removes a case locally and stages the op.
func (e *TestPlanEditor) DeleteCase(caseID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.plan == nil {
		return ErrNotLoaded
	}
	for si := range e.plan.Sections {
		cases := e.plan.Sections[si].Cases
		for ci := range cases {
			if cases[ci].ID == caseID {
				e.plan.Sections[si].Cases = append(cases[:ci:ci], cases[ci+1:]...)
				break
			}
		}
	}
	e.stageLocked(backend.PatchOp{Op: backend.OpDeleteCase, CaseID: caseID})
	return nil
}

func (e *TestPlanEditor) stageLocked(op backend.PatchOp) {
	if op.Op == backend.OpUpdateText && len(e.staged) > 0 {
		last := &e.staged[len(e.staged)-1]
		if last.Op == backend.OpUpdateText && last.CaseID == op.CaseID {
			last.Text = op.Text
			return
		}
	}
	e.staged = append(e.staged, op)
}

// Save flushes the staged batch; the response replaces the plan wholesale.
// Ops staged while the request is in flight stay pending for the next save.
func (e *TestPlanEditor) Save(ctx context.Context) error {
	e.mu.Lock()
	batch := e.staged
	e.staged = nil
	e.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	plan, err := e.api.PatchTestPlan(ctx, e.sessionID, batch)
	if err != nil {
		e.mu.Lock()
		e.staged = append(batch, e.staged...)
		e.mu.Unlock()
		e.setErr(err)
		return err
	}
	e.mu.Lock()
	e.plan = plan
	e.lastErr = ""
	e.mu.Unlock()
	return nil
}

// QueueChecklists asks the backend to generate checklists for the cases.
// Progress is observed through the session's jobs, not through this call.
func (e *TestPlanEditor) QueueChecklists(ctx context.Context, caseIDs []string) error {
	if err := e.api.QueueChecklists(ctx, e.sessionID, caseIDs); err != nil {
		e.setErr(err)
		return err
	}
	return nil
}

func (e *TestPlanEditor) setErr(err error) {
	e.mu.Lock()
	e.lastErr = err.Error()
	e.mu.Unlock()
}

func findCase(plan *backend.TestPlan, caseID string) *backend.TestCase {
	if plan == nil {
		return nil
	}
	for si := range plan.Sections {
		for ci := range plan.Sections[si].Cases {
			if plan.Sections[si].Cases[ci].ID == caseID {
				return &plan.Sections[si].Cases[ci]
			}
		}
	}
	return nil
}

func clonePlan(plan *backend.TestPlan) *backend.TestPlan {
	if plan == nil {
		return nil
	}
	clone := *plan
	clone.Sections = make([]backend.TestSection, len(plan.Sections))
	for i, sec := range plan.Sections {
		clone.Sections[i] = sec
		clone.Sections[i].Cases = append([]backend.TestCase(nil), sec.Cases...)
	}
	return &clone
}
