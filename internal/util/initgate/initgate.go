// Package initgate runs lazy one-time setup (creating a table, a bucket) that
// is retried on the next call when it fails.
package initgate

import (
	"context"
	"sync"
	"time"
)

const DefaultTimeout = 10 * time.Second

// Gate is safe for concurrent use. The zero value is ready and uses
// DefaultTimeout.
type Gate struct {
	// Timeout bounds a single attempt.
	Timeout time.Duration

	mu   sync.Mutex
	done bool
}

// Do runs fn unless an earlier call already succeeded. fn gets a context that
// keeps the caller's values but not its cancellation, so one caller going
// away does not fail setup for everyone else. Errors are returned and not
// remembered.
func (g *Gate) Do(ctx context.Context, fn func(context.Context) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return nil
	}
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := fn(ictx); err != nil {
		return err
	}
	g.done = true
	return nil
}

// Done reports whether setup has completed.
func (g *Gate) Done() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done
}
