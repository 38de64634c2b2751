// Package editor holds the client-side state for mutable artifacts:
// immediate local echo of edits, explicit batched persistence, and bounded
// polling for single-item regeneration. The backend response to every save
// replaces local state wholesale; there is no client-side merge.
package editor

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultRegenInterval is how often a regenerating item is re-checked.
	DefaultRegenInterval = 3 * time.Second
	// DefaultRegenTimeout bounds regeneration polling absolutely; when it
	// elapses polling simply stops and the item keeps its last observed
	// state.
	DefaultRegenTimeout = 2 * time.Minute
)

// Option customizes an editor.
type Option func(*options)

type options struct {
	logger        zerolog.Logger
	regenInterval time.Duration
	regenTimeout  time.Duration
}

func buildOptions(opts []Option) options {
	o := options{
		logger:        zerolog.Nop(),
		regenInterval: DefaultRegenInterval,
		regenTimeout:  DefaultRegenTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger routes editor logging through the provided logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegenInterval overrides the regeneration poll interval.
func WithRegenInterval(d time.Duration) Option {
	return func(o *options) { o.regenInterval = d }
}

// WithRegenTimeout overrides the absolute regeneration poll bound.
func WithRegenTimeout(d time.Duration) Option {
	return func(o *options) { o.regenTimeout = d }
}
