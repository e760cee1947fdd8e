// Package watch waits for local services to become ready.
package watch

import (
	"context"
	"fmt"
	"time"
)

// PollInterval is how often PollForPing retries.
const PollInterval = 200 * time.Millisecond

// PollForPing calls ping every 200ms until it succeeds, ctx is cancelled or
// timeout elapses. The last ping error is included in the timeout error.
func PollForPing(ctx context.Context, ping func(ctx context.Context) error, timeout time.Duration) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	var lastErr error
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timeoutCh:
			if lastErr == nil {
				lastErr = fmt.Errorf("no ping attempted")
			}
			return fmt.Errorf("timeout waiting for ping after %v: %w", timeout, lastErr)

		case <-ticker.C:
			if lastErr = ping(ctx); lastErr == nil {
				return nil
			}
		}
	}
}
