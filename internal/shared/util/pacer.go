package util

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer spaces out expensive events such as interpreter spawns. A nil Pacer,
// or one built with a non-positive rate, never delays.
type Pacer struct {
	limiter *rate.Limiter
}

func NewPacer(perSecond float64, burst int) *Pacer {
	if perSecond <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))}
}

// Acquire blocks until the next event may start or ctx is done.
func (p *Pacer) Acquire(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// TryAcquire takes a slot only if one is free right now.
func (p *Pacer) TryAcquire() bool {
	if p == nil || p.limiter == nil {
		return true
	}
	return p.limiter.Allow()
}
