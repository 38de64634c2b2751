package editor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/releasekit/releasekit-go/pkg/backend"
)

// ErrNotLoaded indicates an operation before the artifact was fetched.
var ErrNotLoaded = errors.New("editor: artifact not loaded")

// ReleaseNotesEditor owns the client-side copy of one session's
// release-notes artifact. Text edits mutate only the local copy and are
// staged as ordered ops; Save flushes the batch and adopts the backend's
// canonical response. A failed save keeps the typed text visible for retry.
type ReleaseNotesEditor struct {
	api       *backend.Client
	sessionID string
	opts      options

	mu      sync.Mutex
	notes   *backend.ReleaseNotes
	staged  []backend.PatchOp
	lastErr string
}

// NewReleaseNotesEditor builds an editor for one session.
func NewReleaseNotesEditor(api *backend.Client, sessionID string, opts ...Option) *ReleaseNotesEditor {
	return &ReleaseNotesEditor{api: api, sessionID: sessionID, opts: buildOptions(opts)}
}

// Load fetches the artifact and replaces local state. Staged but unsaved
// ops are kept: a refresh must not silently drop pending user intent.
func (e *ReleaseNotesEditor) Load(ctx context.Context) error {
	notes, err := e.api.GetReleaseNotes(ctx, e.sessionID)
	if err != nil {
		e.setErr(err)
		return err
	}
	e.mu.Lock()
	e.notes = notes
	e.lastErr = ""
	e.mu.Unlock()
	return nil
}

// Notes returns the current local copy, or nil before Load.
func (e *ReleaseNotesEditor) Notes() *backend.ReleaseNotes {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneNotes(e.notes)
}

// Err returns the last user-visible error string, empty when none.
func (e *ReleaseNotesEditor) Err() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Dirty reports whether unsaved ops are staged.
func (e *ReleaseNotesEditor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.staged) > 0
}

// UpdateText echoes a keystroke-level edit into the local copy and stages
// an updateText op. No network call happens here.
func (e *ReleaseNotesEditor) UpdateText(itemID, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.notes == nil {
		return ErrNotLoaded
	}
	if item := findNoteItem(e.notes, itemID); item != nil {
		item.Text = text
	}
	e.stageLocked(backend.PatchOp{Op: backend.OpUpdateText, ItemID: itemID, Text: text})
	return nil
}

// SetExcluded toggles an item in or out of the rendered notes.
func (e *ReleaseNotesEditor) SetExcluded(itemID string, excluded bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.notes == nil {
		return ErrNotLoaded
	}
	if item := findNoteItem(e.notes, itemID); item != nil {
		item.Excluded = excluded
	}
	op := backend.OpExclude
	if !excluded {
		op = backend.OpInclude
	}
	e.stageLocked(backend.PatchOp{Op: op, ItemID: itemID})
	return nil
}

// AddItem stages a new item under the given section.
func (e *ReleaseNotesEditor) AddItem(section, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.notes == nil {
		return ErrNotLoaded
	}
	e.stageLocked(backend.PatchOp{Op: backend.OpAddItem, Section: section, Text: text})
	return nil
}

// stageLocked coalesces consecutive updateText ops for the same item so a
// burst of keystrokes produces one op in the batch.
func (e *ReleaseNotesEditor) stageLocked(op backend.PatchOp) {
	if op.Op == backend.OpUpdateText && len(e.staged) > 0 {
		last := &e.staged[len(e.staged)-1]
		if last.Op == backend.OpUpdateText && last.ItemID == op.ItemID {
			last.Text = op.Text
			return
		}
	}
	e.staged = append(e.staged, op)
}

// Save sends the staged ops as a single ordered batch. On success the
// response replaces the whole local artifact; on failure the staged ops and
// local text survive so the user can retry.
func (e *ReleaseNotesEditor) Save(ctx context.Context) error {
	// Cut the batch out of the staged slice so edits made while the save
	// is in flight accumulate separately and stay pending.
	e.mu.Lock()
	batch := e.staged
	e.staged = nil
	e.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	notes, err := e.api.PatchReleaseNotes(ctx, e.sessionID, batch)
	if err != nil {
		e.mu.Lock()
		e.staged = append(batch, e.staged...)
		e.mu.Unlock()
		e.setErr(err)
		return err
	}
	e.mu.Lock()
	e.notes = notes
	e.lastErr = ""
	e.mu.Unlock()
	return nil
}

// RegenerateItem triggers a backend regeneration job for one item and polls
// the artifact until the item leaves the regenerating state or the absolute
// timeout elapses. On timeout polling just stops; the item keeps whatever
// state the last successful poll reported, which is still regenerating.
func (e *ReleaseNotesEditor) RegenerateItem(ctx context.Context, itemID string) error {
	if err := e.api.RegenerateNoteItem(ctx, e.sessionID, itemID); err != nil {
		e.setErr(err)
		return err
	}
	e.mu.Lock()
	if item := findNoteItem(e.notes, itemID); item != nil {
		item.Status = backend.ItemRegenerating
	}
	e.mu.Unlock()

	deadline := time.NewTimer(e.opts.regenTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(e.opts.regenInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			e.opts.logger.Debug().Str("item", itemID).Msg("regeneration poll timed out")
			return nil
		case <-ticker.C:
			notes, err := e.api.GetReleaseNotes(ctx, e.sessionID)
			if err != nil {
				// Best effort: keep polling until the deadline.
				e.opts.logger.Debug().Err(err).Msg("regeneration poll")
				continue
			}
			e.mu.Lock()
			e.notes = notes
			e.mu.Unlock()
			if item := findNoteItem(notes, itemID); item == nil || item.Status != backend.ItemRegenerating {
				return nil
			}
		}
	}
}

func (e *ReleaseNotesEditor) setErr(err error) {
	e.mu.Lock()
	e.lastErr = err.Error()
	e.mu.Unlock()
}

func findNoteItem(notes *backend.ReleaseNotes, itemID string) *backend.NoteItem {
	if notes == nil {
		return nil
	}
	for si := range notes.Sections {
		for ii := range notes.Sections[si].Items {
			if notes.Sections[si].Items[ii].ID == itemID {
				return &notes.Sections[si].Items[ii]
			}
		}
	}
	return nil
}

func cloneNotes(notes *backend.ReleaseNotes) *backend.ReleaseNotes {
	if notes == nil {
		return nil
	}
	clone := *notes
	clone.Sections = make([]backend.NoteSection, len(notes.Sections))
	for i, sec := range notes.Sections {
		clone.Sections[i] = sec
		clone.Sections[i].Items = append([]backend.NoteItem(nil), sec.Items...)
	}
	return &clone
}
