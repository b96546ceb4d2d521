package crawler

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces the fixed politeness delay between fetches. The delay is a
// per-worker pacing contract; the reference engine runs one worker.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer with the given inter-fetch delay. A non-positive
// delay disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	if delay <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the next fetch is due or the context is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
