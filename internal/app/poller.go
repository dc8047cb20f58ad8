package app

import (
	"context"
	"time"
)

// Refresher is the store operation the poller repeats.
type Refresher interface {
	Refresh(ctx context.Context)
}

// StartPoller launches a background goroutine that refreshes the store at a
// fixed cadence until ctx is cancelled. It returns immediately; a
// non-positive interval starts nothing. Failures are recorded by the store
// itself and do not change the cadence.
func StartPoller(ctx context.Context, r Refresher, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Refresh(ctx)
			}
		}
	}()
}
