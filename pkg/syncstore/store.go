// Package syncstore keeps an in-memory view of release sessions and their
// nested jobs approximately fresh against the backend. The collection is
// replaced wholesale by each completed refresh; overlapping refreshes are
// allowed and the last one to complete wins.
package syncstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/releasekit/releasekit-go/pkg/backend"
	"github.com/releasekit/releasekit-go/pkg/telemetry"
)

// RunningJob pairs a running job with its owning session.
type RunningJob struct {
	Session backend.Session
	Job     backend.Job
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger routes store logging through the provided logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock injects the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithTelemetry records poll metrics through the manager.
func WithTelemetry(tm *telemetry.Manager) Option {
	return func(s *Store) { s.telemetry = tm }
}

// Store is an explicit, injected state container: constructed once per
// process and passed by reference to consumers. Mutation happens only
// through completed backend calls; subscribers are nudged after every
// change and read back through Sessions/RunningJobs.
type Store struct {
	api       *backend.Client
	logger    zerolog.Logger
	telemetry *telemetry.Manager
	now       func() time.Time

	mu       sync.RWMutex
	sessions []backend.Session
	nextSub  int
	subs     map[int]chan struct{}
}

// New builds an empty store over the backend client.
func New(api *backend.Client, opts ...Option) *Store {
	s := &Store{
		api:    api,
		logger: zerolog.Nop(),
		now:    time.Now,
		subs:   make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe returns a channel nudged after every collection change and a
// cancel function releasing the subscription. The channel carries no data;
// subscribers re-read through Sessions.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notifyLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Sessions returns a copy of the current collection.
func (s *Store) Sessions() []backend.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSessions(s.sessions)
}

// Get returns one session by id.
func (s *Store) Get(id string) (backend.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.ID == id {
			return cloneSession(sess), true
		}
	}
	return backend.Session{}, false
}

// RunningJobs is a read-only projection of every {session, job} pair whose
// job is currently running.
func (s *Store) RunningJobs() []RunningJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var running []RunningJob
	for _, sess := range s.sessions {
		for _, job := range sess.Jobs {
			if job.Status == backend.JobRunning {
				running = append(running, RunningJob{Session: cloneSession(sess), Job: job})
			}
		}
	}
	return running
}

// Refresh fetches the full session list plus every session's jobs and
// replaces the collection atomically, so readers never observe a partial
// list. Safe to call concurrently with itself; the last completed call
// wins.
func (s *Store) Refresh(ctx context.Context) error {
	sessions, err := s.api.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("syncstore: list sessions: %w", err)
	}

	var wg sync.WaitGroup
	jobErrs := make([]error, len(sessions))
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			jobs, jobErr := s.api.ListJobs(ctx, sessions[i].ID)
			if jobErr != nil {
				jobErrs[i] = jobErr
				return
			}
			sessions[i].Jobs = jobs
		}(i)
	}
	wg.Wait()
	for i, jobErr := range jobErrs {
		if jobErr != nil {
			return fmt.Errorf("syncstore: list jobs for %s: %w", sessions[i].ID, jobErr)
		}
	}

	s.mu.Lock()
	s.sessions = sessions
	s.notifyLocked()
	s.mu.Unlock()
	return nil
}

// CreateSession creates a session on the backend, fetches its job list, and
// prepends the result. Without a configured backend it falls back to a
// purely local synthetic session so the surrounding UI stays usable; the
// synthetic session is never persisted anywhere.
func (s *Store) CreateSession(ctx context.Context, req backend.CreateSessionRequest) (backend.Session, error) {
	if !s.api.Configured() {
		now := s.now()
		session := backend.Session{
			ID:           fmt.Sprintf("session-%d", now.UnixMilli()),
			RepoFullName: req.RepoFullName,
			Name:         req.Name,
			Status:       backend.SessionGenerating,
			BaseRef:      req.BaseRef,
			HeadRef:      req.HeadRef,
			CreatedAt:    now,
			UpdatedAt:    now,
			Jobs:         []backend.Job{},
		}
		s.prepend(session)
		return cloneSession(session), nil
	}

	created, err := s.api.CreateSession(ctx, req)
	if err != nil {
		return backend.Session{}, fmt.Errorf("syncstore: create session: %w", err)
	}
	jobs, err := s.api.ListJobs(ctx, created.ID)
	if err != nil {
		// The session exists server-side; surface it with whatever job
		// state it reported and let the next poll fill in the rest.
		s.logger.Warn().Err(err).Str("session", created.ID).Msg("fetch jobs after create")
	} else {
		created.Jobs = jobs
	}
	s.prepend(*created)
	return cloneSession(*created), nil
}

func (s *Store) prepend(session backend.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append([]backend.Session{session}, s.sessions...)
	s.notifyLocked()
}

// DeleteSession removes the session on the backend first; the local entry
// is dropped only when that call succeeds.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.api.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("syncstore: delete session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	s.sessions = kept
	s.notifyLocked()
	return nil
}

// generatingIDs snapshots the ids currently in generating status; only
// those are re-polled automatically.
func (s *Store) generatingIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, sess := range s.sessions {
		if sess.Status == backend.SessionGenerating {
			ids = append(ids, sess.ID)
		}
	}
	return ids
}

// pollOnce re-fetches jobs for every generating session in parallel and
// merges the results back by session id. Sessions absent from the result
// set are left untouched. Failures are best-effort: logged at debug level,
// never surfaced, never fatal to future ticks.
func (s *Store) pollOnce(ctx context.Context) {
	ids := s.generatingIDs()
	if len(ids) == 0 {
		return
	}

	type result struct {
		id      string
		jobs    []backend.Job
		session *backend.Session
	}
	results := make(chan result, len(ids))
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			jobs, err := s.api.ListJobs(ctx, id)
			if err != nil {
				s.logger.Debug().Err(err).Str("session", id).Msg("poll jobs")
				errs[i] = err
				return
			}
			// Job completion is how sessions leave generating, so pick up
			// the session's own status alongside its jobs.
			session, err := s.api.GetSession(ctx, id)
			if err != nil {
				s.logger.Debug().Err(err).Str("session", id).Msg("poll session")
			}
			results <- result{id: id, jobs: jobs, session: session}
		}(i, id)
	}
	wg.Wait()
	close(results)
	var pollErr error
	for _, err := range errs {
		if err != nil {
			pollErr = err
			break
		}
	}

	s.mu.Lock()
	changed := false
	for res := range results {
		for i := range s.sessions {
			if s.sessions[i].ID != res.id {
				continue
			}
			s.sessions[i].Jobs = res.jobs
			if res.session != nil {
				res.session.Jobs = res.jobs
				s.sessions[i] = *res.session
			}
			changed = true
		}
	}
	if changed {
		s.notifyLocked()
	}
	s.mu.Unlock()

	s.telemetry.RecordPoll(ctx, telemetry.PollData{Sessions: len(ids), Error: pollErr})
}

func cloneSessions(sessions []backend.Session) []backend.Session {
	out := make([]backend.Session, len(sessions))
	for i, sess := range sessions {
		out[i] = cloneSession(sess)
	}
	return out
}

func cloneSession(sess backend.Session) backend.Session {
	clone := sess
	clone.Jobs = append([]backend.Job(nil), sess.Jobs...)
	return clone
}

// SortByCreated orders sessions newest first; used by list views.
func SortByCreated(sessions []backend.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
}
