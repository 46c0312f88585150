package client

import (
	"context"
	"time"

	"go.uber.org/ratelimit"
)

// Pacer is the admission control in front of every request.
type Pacer interface {
	Wait(ctx context.Context) error
}

type fixedDelay struct {
	delay time.Duration
}

// NewFixedDelay sleeps d before every request.
func NewFixedDelay(d time.Duration) Pacer {
	return fixedDelay{delay: d}
}

func (f fixedDelay) Wait(ctx context.Context) error {
	if f.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(f.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type limitedPacer struct {
	next Pacer
	rl   ratelimit.Limiter
}

// WithRateLimit caps p at rps requests per second. rps <= 0 returns p unchanged.
func WithRateLimit(p Pacer, rps int) Pacer {
	if rps <= 0 {
		return p
	}
	return limitedPacer{
		next: p,
		rl:   ratelimit.New(rps),
	}
}

func (l limitedPacer) Wait(ctx context.Context) error {
	if err := l.next.Wait(ctx); err != nil {
		return err
	}
	l.rl.Take()
	return ctx.Err()
}
