package syncstore

import (
	"context"
	"time"
)

// DefaultPollInterval is how often generating sessions are re-polled.
const DefaultPollInterval = 5 * time.Second

// RunPoller re-polls jobs for in-progress sessions on a fixed interval
// until ctx is cancelled. The poller's lifetime is owned by the caller's
// context, so tearing down the owning component stops the loop and no timer
// can outlive the store it references. Tick failures are swallowed inside
// pollOnce and never stop future ticks.
func (s *Store) RunPoller(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}
