package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/releasekit/releasekit-go/pkg/backend"
)

// Status is the authentication state the manager settles into.
type Status string

const (
	// StatusChecking is the initial, transient state before Bootstrap
	// finishes.
	StatusChecking        Status = "checking"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// State is the manager's externally visible condition. Provisional marks an
// authenticated state derived from the cache that has not yet been
// confirmed by the identity endpoint; it is always overwritten by the
// verification outcome.
type State struct {
	Status      Status
	User        *backend.AuthUser
	Provisional bool
	Err         string
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock injects the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger routes manager logging through the provided logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithDisabledAccessProbe enables the no-token identity probe. Off by
// default so discovering "no token" costs no network call.
func WithDisabledAccessProbe(enabled bool) Option {
	return func(m *Manager) { m.probe = enabled }
}

// WithOnChange registers a callback fired after every state change.
func WithOnChange(fn func(State)) Option {
	return func(m *Manager) { m.onChange = fn }
}

// Manager resolves exactly one of three authentication states and keeps the
// stored token, the verification cache, and that state coherent.
type Manager struct {
	store  *TokenStore
	cache  *VerifyCache
	api    *backend.Client
	probe  bool
	now    func() time.Time
	logger zerolog.Logger

	mu       sync.Mutex
	state    State
	onChange func(State)
}

// NewManager wires the manager. The backend client must share the token
// store as its transport token source so verification exercises the same
// credential every other call will use.
func NewManager(store *TokenStore, cache *VerifyCache, api *backend.Client, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		cache:  cache,
		api:    api,
		now:    time.Now,
		logger: zerolog.Nop(),
		state:  State{Status: StatusChecking},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns a copy of the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) State {
	m.mu.Lock()
	m.state = s
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn(s)
	}
	return s
}

// Bootstrap runs the boot algorithm once per process start. redirect is the
// already-consumed OAuth fragment payload (zero value when none was
// present).
func (m *Manager) Bootstrap(ctx context.Context, redirect Redirect) State {
	// A missing base URL is a hard stop: no network calls anywhere in the
	// manager, every protected surface sees unauthenticated plus the
	// configuration error.
	if !m.api.Configured() {
		return m.setState(State{
			Status: StatusUnauthenticated,
			Err:    "backend API URL is not configured",
		})
	}

	var bootErr string
	if redirect.Token != "" {
		if err := m.store.Set(redirect.Token); err != nil {
			m.logger.Error().Err(err).Msg("persist redirect token")
			bootErr = err.Error()
		}
	} else if redirect.Err != "" {
		bootErr = redirect.Err
	}

	token := m.store.Token()
	if token == "" {
		if m.probe {
			if user, err := m.api.Me(ctx); err == nil && user.Source == backend.SourceAccessDisabled {
				return m.setState(State{Status: StatusAuthenticated, User: user})
			}
		}
		return m.setState(State{Status: StatusUnauthenticated, Err: bootErr})
	}

	// Optimistic fast path: show the cached identity while the real
	// verification is in flight. The verification outcome overwrites this
	// state unconditionally.
	if cached := m.cache.Read(token, m.now()); cached != nil {
		m.setState(State{Status: StatusAuthenticated, User: cached, Provisional: true})
	}

	return m.verify(ctx, token)
}

// verify settles the state from a live identity check of token.
func (m *Manager) verify(ctx context.Context, token string) State {
	user, err := m.api.Me(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("token verification failed")
		m.store.Clear()
		m.cache.Clear()
		return m.setState(State{Status: StatusUnauthenticated, Err: err.Error()})
	}
	if cacheErr := m.cache.Write(token, *user, m.now()); cacheErr != nil {
		m.logger.Warn().Err(cacheErr).Msg("persist verification cache")
	}
	return m.setState(State{Status: StatusAuthenticated, User: user})
}

// Recheck re-verifies the currently stored token, or demotes to
// unauthenticated when none is stored. Used by the credentials watcher.
func (m *Manager) Recheck(ctx context.Context) State {
	if !m.api.Configured() {
		return m.State()
	}
	token := m.store.Token()
	if token == "" {
		m.cache.Clear()
		return m.setState(State{Status: StatusUnauthenticated})
	}
	return m.verify(ctx, token)
}

// SignOut clears the stored token, the cache, and any error. No network.
func (m *Manager) SignOut() State {
	m.store.Clear()
	m.cache.Clear()
	return m.setState(State{Status: StatusUnauthenticated})
}

// SignInURL returns the backend's OAuth kickoff URL carrying returnTo.
func (m *Manager) SignInURL(returnTo string) (string, error) {
	return m.api.GitHubStartURL(returnTo)
}
