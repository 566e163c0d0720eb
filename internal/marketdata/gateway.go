package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/anaysomani05/opti-invest/pkg/logger"
)

// Gateway enforces a sliding-window call budget for an external API:
// no more than Limit calls are issued within any trailing Window.
//
// Callers block in place until a slot frees up; the gateway lock is held
// through the wait, so calls are released in arrival order per instance.
// This delays the calling goroutine only, never the whole process.
type Gateway struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	calls  []time.Time

	now    func() time.Time
	logger *logger.Logger
}

// NewGateway creates a gateway with the given budget.
func NewGateway(limit int, window time.Duration, log *logger.Logger) *Gateway {
	return &Gateway{
		limit:  limit,
		window: window,
		now:    time.Now,
		logger: log,
	}
}

// Wait blocks until a call slot is available or the context is cancelled,
// then records the call.
func (g *Gateway) Wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		now := g.now()
		g.purge(now)

		if len(g.calls) < g.limit {
			g.calls = append(g.calls, now)
			return nil
		}

		// Wait until the oldest recorded call exits the window.
		wait := g.calls[0].Add(g.window).Sub(now)
		if wait <= 0 {
			continue
		}

		g.logger.WithFields(map[string]interface{}{
			"in_window": len(g.calls),
			"limit":     g.limit,
			"wait":      wait,
		}).Debug("Rate limit reached, waiting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// purge drops recorded calls older than the window. Caller holds the lock.
func (g *Gateway) purge(now time.Time) {
	cutoff := now.Add(-g.window)
	i := 0
	for i < len(g.calls) && !g.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		g.calls = append(g.calls[:0], g.calls[i:]...)
	}
}

// InWindow returns the number of calls recorded within the current window.
func (g *Gateway) InWindow() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.purge(g.now())
	return len(g.calls)
}
