package editor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/releasekit/releasekit-go/pkg/backend"
	"github.com/releasekit/releasekit-go/pkg/transport"
)

// notesServer serves GET/PATCH for one release-notes artifact and records
// received op batches.
type notesServer struct {
	mu        sync.Mutex
	notes     backend.ReleaseNotes
	batches   [][]backend.PatchOp
	failPatch bool
	regens    int
	// patchGate, when set before the server starts, holds PATCH requests
	// until closed so tests can act while a save is in flight.
	patchGate chan struct{}
}

func newNotesServer(notes backend.ReleaseNotes) *notesServer {
	return &notesServer{notes: notes}
}

func (n *notesServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch && n.patchGate != nil {
			<-n.patchGate
		}
		n.mu.Lock()
		defer n.mu.Unlock()
		switch {
		case r.URL.Path == "/sessions/s1/artifacts/release-notes" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(n.notes)
		case r.URL.Path == "/sessions/s1/artifacts/release-notes" && r.Method == http.MethodPatch:
			if n.failPatch {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_ = json.NewEncoder(w).Encode(map[string]any{"status": 422, "message": "invalid op"})
				return
			}
			var body struct {
				Operations []backend.PatchOp `json:"operations"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			n.batches = append(n.batches, body.Operations)
			// Canonical response: the backend applies exclusions itself
			// and may normalize text.
			for _, op := range body.Operations {
				for si := range n.notes.Sections {
					for ii := range n.notes.Sections[si].Items {
						item := &n.notes.Sections[si].Items[ii]
						switch {
						case op.Op == backend.OpExclude && item.ID == op.ItemID:
							item.Excluded = true
						case op.Op == backend.OpUpdateText && item.ID == op.ItemID:
							item.Text = "server:" + op.Text
						}
					}
				}
			}
			_ = json.NewEncoder(w).Encode(n.notes)
		case r.URL.Path == "/sessions/s1/artifacts/release-notes/items/i1/regenerate":
			n.regens++
			w.WriteHeader(http.StatusAccepted)
		default:
			http.NotFound(w, r)
		}
	})
}

func fixtureNotes() backend.ReleaseNotes {
	return backend.ReleaseNotes{
		SessionID: "s1",
		Sections: []backend.NoteSection{
			{Title: "Features", Items: []backend.NoteItem{
				{ID: "i1", Text: "Add widgets", PRNumber: 12},
				{ID: "i2", Text: "Faster sync"},
			}},
			{Title: "Fixes", Items: []backend.NoteItem{
				{ID: "x", Text: "Fix crash", PRNumber: 9},
			}},
		},
	}
}

func newNotesEditor(t *testing.T, srv *notesServer, opts ...Option) *ReleaseNotesEditor {
	t.Helper()
	hs := httptest.NewServer(srv.handler())
	t.Cleanup(hs.Close)
	tc, err := transport.New(hs.URL)
	require.NoError(t, err)
	e := NewReleaseNotesEditor(backend.New(tc), "s1", opts...)
	require.NoError(t, e.Load(context.Background()))
	return e
}

func TestPatchReplacesWholesale(t *testing.T) {
	srv := newNotesServer(fixtureNotes())
	e := newNotesEditor(t, srv)

	require.NoError(t, e.SetExcluded("x", true))
	require.NoError(t, e.Save(context.Background()))

	// Local sections must equal exactly the response body's sections.
	srv.mu.Lock()
	want := srv.notes.Sections
	srv.mu.Unlock()
	assert.Equal(t, want, e.Notes().Sections)
	assert.False(t, e.Dirty())

	srv.mu.Lock()
	require.Len(t, srv.batches, 1)
	assert.Equal(t, []backend.PatchOp{{Op: backend.OpExclude, ItemID: "x"}}, srv.batches[0])
	srv.mu.Unlock()
}

func TestSaveFailureKeepsTypedText(t *testing.T) {
	srv := newNotesServer(fixtureNotes())
	e := newNotesEditor(t, srv)

	require.NoError(t, e.UpdateText("i2", "Much faster sync"))
	srv.mu.Lock()
	srv.failPatch = true
	srv.mu.Unlock()

	err := e.Save(context.Background())
	require.Error(t, err)
	assert.Contains(t, e.Err(), "invalid op")

	// The text the user typed remains visible for retry.
	notes := e.Notes()
	assert.Equal(t, "Much faster sync", notes.Sections[0].Items[1].Text)
	assert.True(t, e.Dirty())

	srv.mu.Lock()
	srv.failPatch = false
	srv.mu.Unlock()
	require.NoError(t, e.Save(context.Background()))
	assert.Empty(t, e.Err())
	assert.Equal(t, "server:Much faster sync", e.Notes().Sections[0].Items[1].Text)
}

func TestKeystrokesCoalesceIntoOneOp(t *testing.T) {
	srv := newNotesServer(fixtureNotes())
	e := newNotesEditor(t, srv)

	require.NoError(t, e.UpdateText("i2", "F"))
	require.NoError(t, e.UpdateText("i2", "Fa"))
	require.NoError(t, e.UpdateText("i2", "Fast"))
	require.NoError(t, e.Save(context.Background()))

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Len(t, srv.batches, 1)
	require.Len(t, srv.batches[0], 1)
	assert.Equal(t, "Fast", srv.batches[0][0].Text)
}

func TestEditsDuringSaveStayPending(t *testing.T) {
	srv := newNotesServer(fixtureNotes())
	srv.patchGate = make(chan struct{})
	e := newNotesEditor(t, srv)

	require.NoError(t, e.UpdateText("i2", "Much faster sync"))
	done := make(chan error, 1)
	go func() { done <- e.Save(context.Background()) }()

	// The batch is cut from the staged ops before the request goes out.
	require.Eventually(t, func() bool { return !e.Dirty() }, time.Second, 5*time.Millisecond)

	// Keep editing while the PATCH is held open.
	require.NoError(t, e.UpdateText("x", "Fix crash properly"))
	close(srv.patchGate)
	require.NoError(t, <-done)

	// The in-flight edit survived the save and goes out with the next one.
	assert.True(t, e.Dirty())
	require.NoError(t, e.Save(context.Background()))
	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Len(t, srv.batches, 2)
	require.Len(t, srv.batches[1], 1)
	assert.Equal(t, backend.PatchOp{Op: backend.OpUpdateText, ItemID: "x", Text: "Fix crash properly"}, srv.batches[1][0])
}

func TestSaveWithoutStagedOpsIsNoOp(t *testing.T) {
	srv := newNotesServer(fixtureNotes())
	e := newNotesEditor(t, srv)
	require.NoError(t, e.Save(context.Background()))
	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Empty(t, srv.batches)
}

func TestRegenerateCompletes(t *testing.T) {
	notes := fixtureNotes()
	notes.Sections[0].Items[0].Status = backend.ItemRegenerating
	srv := newNotesServer(notes)
	e := newNotesEditor(t, srv, WithRegenInterval(10*time.Millisecond), WithRegenTimeout(time.Second))

	go func() {
		time.Sleep(50 * time.Millisecond)
		srv.mu.Lock()
		srv.notes.Sections[0].Items[0].Status = backend.ItemReady
		srv.notes.Sections[0].Items[0].Text = "Regenerated widgets"
		srv.mu.Unlock()
	}()

	require.NoError(t, e.RegenerateItem(context.Background(), "i1"))
	got := e.Notes()
	assert.Equal(t, backend.ItemReady, got.Sections[0].Items[0].Status)
	assert.Equal(t, "Regenerated widgets", got.Sections[0].Items[0].Text)
	srv.mu.Lock()
	assert.Equal(t, 1, srv.regens)
	srv.mu.Unlock()
}

func TestRegenerateTimeoutLeavesRegenerating(t *testing.T) {
	notes := fixtureNotes()
	notes.Sections[0].Items[0].Status = backend.ItemRegenerating
	srv := newNotesServer(notes)
	e := newNotesEditor(t, srv, WithRegenInterval(10*time.Millisecond), WithRegenTimeout(80*time.Millisecond))

	start := time.Now()
	require.NoError(t, e.RegenerateItem(context.Background(), "i1"))
	require.Less(t, time.Since(start), time.Second, "polling must stop at the timeout")

	// The item stays visibly regenerating, not silently cleared.
	got := e.Notes()
	assert.Equal(t, backend.ItemRegenerating, got.Sections[0].Items[0].Status)
}

func TestNotesMarkdownSkipsExcluded(t *testing.T) {
	notes := fixtureNotes()
	notes.Sections[1].Items[0].Excluded = true
	md := NotesMarkdown(&notes)
	assert.Contains(t, md, "## Features")
	assert.Contains(t, md, "- Add widgets (#12)")
	assert.NotContains(t, md, "Fix crash")
	assert.NotContains(t, md, "## Fixes")
}
