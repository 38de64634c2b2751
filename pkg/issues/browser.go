// Package issues holds the client-side state for the issue clustering and
// semantic-search surface: per-filter result caching with last-issued-wins
// supersession, a distinguished not-indexed state for issue detail, and a
// debounced search input.
package issues

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/releasekit/releasekit-go/pkg/backend"
	"github.com/releasekit/releasekit-go/pkg/config"
	"github.com/releasekit/releasekit-go/pkg/latest"
	"github.com/releasekit/releasekit-go/pkg/transport"
)

// MinQueryLength gates semantic search: trimmed inputs shorter than this
// (counted in runes) never issue a call.
const MinQueryLength = 3

// DefaultDebounce is how long search input must be stable before a call.
const DefaultDebounce = 300 * time.Millisecond

// DetailState is the outcome of one issue-detail fetch. NotFound is set
// only by a 404 (the issue is not indexed yet); every other failure sets
// Err and leaves NotFound false.
type DetailState struct {
	Detail   *backend.IssueDetail
	NotFound bool
	Err      string
}

// Option customizes a Browser.
type Option func(*Browser)

// WithLogger routes browser logging through the provided logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Browser) { b.logger = logger }
}

// WithDebounce overrides the search debounce window.
func WithDebounce(window time.Duration) Option {
	return func(b *Browser) { b.debounce = latest.NewDebouncer(window) }
}

// WithPrefsDir persists last-selected filters under dir.
func WithPrefsDir(dir string) Option {
	return func(b *Browser) { b.prefsDir = dir }
}

// Browser is the state container behind the issue views.
type Browser struct {
	api      *backend.Client
	logger   zerolog.Logger
	prefsDir string

	clusters *latest.Group[[]backend.Cluster]
	top      *latest.Group[[]backend.IssueSummary]
	searches *latest.Group[[]backend.SearchResult]
	debounce *latest.Debouncer

	mu     sync.Mutex
	filter backend.IssueFilter
}

// NewBrowser builds a browser; the initial filter is restored from prefs
// when a prefs directory is configured.
func NewBrowser(api *backend.Client, opts ...Option) *Browser {
	b := &Browser{
		api:      api,
		logger:   zerolog.Nop(),
		clusters: latest.NewGroup[[]backend.Cluster](),
		top:      latest.NewGroup[[]backend.IssueSummary](),
		searches: latest.NewGroup[[]backend.SearchResult](),
		debounce: latest.NewDebouncer(DefaultDebounce),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.prefsDir != "" {
		prefs := config.LoadPrefs(b.prefsDir)
		b.filter = backend.IssueFilter{Product: prefs.IssueProduct, Version: prefs.IssueVersion}
	}
	return b
}

// Filter returns the current product/version selection.
func (b *Browser) Filter() backend.IssueFilter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filter
}

// SetFilter selects a product/version pair and persists it as the sticky
// default for the next run.
func (b *Browser) SetFilter(filter backend.IssueFilter) {
	b.mu.Lock()
	b.filter = filter
	b.mu.Unlock()
	if b.prefsDir != "" {
		if err := config.SavePrefs(b.prefsDir, config.Prefs{
			IssueProduct: filter.Product,
			IssueVersion: filter.Version,
		}); err != nil {
			b.logger.Warn().Err(err).Msg("persist issue filter")
		}
	}
}

func filterKey(f backend.IssueFilter) string {
	return fmt.Sprintf("product=%s&version=%s", f.Product, f.Version)
}

// Clusters fetches clusters for the current filter. Overlapping calls for
// the same filter are resolved last-issued-wins: a superseded response is
// discarded and the newest committed result for the filter is returned
// instead.
func (b *Browser) Clusters(ctx context.Context) ([]backend.Cluster, error) {
	filter := b.Filter()
	key := filterKey(filter)
	ticket := b.clusters.Begin(key)

	clusters, err := b.api.Clusters(ctx, filter)
	if err != nil {
		// Keep last-known-good data: callers re-render the cached result
		// alongside the error.
		if cached, ok := b.clusters.Cached(key); ok {
			return cached, err
		}
		return nil, err
	}
	if !ticket.Commit(clusters) {
		cached, _ := b.clusters.Cached(key)
		return cached, nil
	}
	return clusters, nil
}

// TopIssues fetches the most-reacted issues for the current filter with the
// same supersession contract as Clusters.
func (b *Browser) TopIssues(ctx context.Context) ([]backend.IssueSummary, error) {
	filter := b.Filter()
	key := filterKey(filter)
	ticket := b.top.Begin(key)

	issues, err := b.api.TopIssuesByReactions(ctx, filter)
	if err != nil {
		if cached, ok := b.top.Cached(key); ok {
			return cached, err
		}
		return nil, err
	}
	if !ticket.Commit(issues) {
		cached, _ := b.top.Cached(key)
		return cached, nil
	}
	return issues, nil
}

// Detail fetches issue n. A 404 is not an error here: it means the issue is
// not indexed and the caller should offer running a sync.
func (b *Browser) Detail(ctx context.Context, n int) DetailState {
	detail, err := b.api.IssueDetail(ctx, n)
	switch {
	case err == nil:
		return DetailState{Detail: detail}
	case transport.IsNotFound(err):
		return DetailState{NotFound: true}
	default:
		return DetailState{Err: err.Error()}
	}
}

// Search debounces query and, once input has been stable for the window,
// runs a semantic search and hands the outcome to apply. Results for a
// query superseded by a newer keystroke are discarded silently. Queries
// shorter than MinQueryLength cancel any pending call and never hit the
// network.
func (b *Browser) Search(ctx context.Context, query string, apply func([]backend.SearchResult, error)) {
	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < MinQueryLength {
		b.debounce.Stop()
		return
	}
	filter := b.Filter()
	key := filterKey(filter)
	ticket := b.searches.Begin(key)
	b.debounce.Call(func() {
		results, err := b.api.SemanticSearch(ctx, trimmed, filter)
		if !ticket.Live() {
			return
		}
		if err == nil {
			ticket.Commit(results)
		}
		apply(results, err)
	})
}

// Close tears down the pending debounce timer.
func (b *Browser) Close() {
	b.debounce.Stop()
}

// StartSync kicks off a backend issue sync run.
func (b *Browser) StartSync(ctx context.Context) error { return b.api.StartIssueSync(ctx) }

// ResetSync clears backend sync state.
func (b *Browser) ResetSync(ctx context.Context) error { return b.api.ResetIssueSync(ctx) }

// Recluster recomputes clusters server-side.
func (b *Browser) Recluster(ctx context.Context) error { return b.api.Recluster(ctx) }

// SyncStatus reports sync pipeline progress.
func (b *Browser) SyncStatus(ctx context.Context) (*backend.SyncStatus, error) {
	return b.api.IssueSyncStatus(ctx)
}
