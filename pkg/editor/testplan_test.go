package editor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/releasekit/releasekit-go/pkg/backend"
	"github.com/releasekit/releasekit-go/pkg/transport"
)

type planServer struct {
	mu      sync.Mutex
	plan    backend.TestPlan
	batches [][]backend.PatchOp
	queued  [][]string
}

func (p *planServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		switch {
		case r.URL.Path == "/sessions/s1/artifacts/test-plan" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(p.plan)
		case r.URL.Path == "/sessions/s1/artifacts/test-plan" && r.Method == http.MethodPatch:
			var body struct {
				Operations []backend.PatchOp `json:"operations"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			p.batches = append(p.batches, body.Operations)
			for _, op := range body.Operations {
				for si := range p.plan.Sections {
					cases := p.plan.Sections[si].Cases
					for ci := range cases {
						if cases[ci].ID != op.CaseID {
							continue
						}
						switch op.Op {
						case backend.OpCheck:
							cases[ci].Checked = *op.Checked
						case backend.OpChangePriority:
							cases[ci].Priority = op.Priority
						case backend.OpDeleteCase:
							p.plan.Sections[si].Cases = append(cases[:ci:ci], cases[ci+1:]...)
						}
						break
					}
				}
			}
			_ = json.NewEncoder(w).Encode(p.plan)
		case r.URL.Path == "/sessions/s1/artifacts/test-plan/checklists/queue" && r.Method == http.MethodPost:
			var body struct {
				CaseIDs []string `json:"caseIds"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			p.queued = append(p.queued, body.CaseIDs)
			w.WriteHeader(http.StatusAccepted)
		default:
			http.NotFound(w, r)
		}
	})
}

func fixturePlan() backend.TestPlan {
	return backend.TestPlan{
		SessionID: "s1",
		Sections: []backend.TestSection{
			{Title: "Sync", Cases: []backend.TestCase{
				{ID: "c1", Text: "Resync after restart", Priority: "high"},
				{ID: "c2", Text: "Offline queueing", Priority: "medium"},
			}},
		},
	}
}

func newPlanEditor(t *testing.T, srv *planServer) *TestPlanEditor {
	t.Helper()
	hs := httptest.NewServer(srv.handler())
	t.Cleanup(hs.Close)
	tc, err := transport.New(hs.URL)
	require.NoError(t, err)
	e := NewTestPlanEditor(backend.New(tc), "s1")
	require.NoError(t, e.Load(context.Background()))
	return e
}

func TestPlanSaveSendsOrderedBatch(t *testing.T) {
	srv := &planServer{plan: fixturePlan()}
	e := newPlanEditor(t, srv)

	require.NoError(t, e.SetChecked("c1", true))
	require.NoError(t, e.ChangePriority("c2", "high"))
	require.NoError(t, e.DeleteCase("c2"))
	require.NoError(t, e.Save(context.Background()))

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Len(t, srv.batches, 1)
	batch := srv.batches[0]
	require.Len(t, batch, 3)
	assert.Equal(t, backend.OpCheck, batch[0].Op)
	assert.Equal(t, backend.OpChangePriority, batch[1].Op)
	assert.Equal(t, backend.OpDeleteCase, batch[2].Op)

	// And the editor adopted the canonical plan: c2 is gone, c1 checked.
	plan := e.Plan()
	require.Len(t, plan.Sections[0].Cases, 1)
	assert.True(t, plan.Sections[0].Cases[0].Checked)
}

func TestPlanLocalEchoBeforeSave(t *testing.T) {
	srv := &planServer{plan: fixturePlan()}
	e := newPlanEditor(t, srv)

	require.NoError(t, e.UpdateText("c1", "Resync after cold restart"))
	plan := e.Plan()
	assert.Equal(t, "Resync after cold restart", plan.Sections[0].Cases[0].Text)

	srv.mu.Lock()
	assert.Empty(t, srv.batches, "no network call per keystroke")
	srv.mu.Unlock()
}

func TestQueueChecklists(t *testing.T) {
	srv := &planServer{plan: fixturePlan()}
	e := newPlanEditor(t, srv)

	require.NoError(t, e.QueueChecklists(context.Background(), []string{"c1", "c2"}))
	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Len(t, srv.queued, 1)
	assert.Equal(t, []string{"c1", "c2"}, srv.queued[0])
}

func TestPlanMarkdownRendersChecklist(t *testing.T) {
	plan := fixturePlan()
	plan.Sections[0].Cases[0].Checked = true
	plan.Sections[0].Cases[0].Checklist = []string{"kill process", "restart", "verify"}
	md := PlanMarkdown(&plan)
	assert.Contains(t, md, "- [x] **high** Resync after restart")
	assert.Contains(t, md, "  - kill process")
	assert.Contains(t, md, "- [ ] **medium** Offline queueing")
}
