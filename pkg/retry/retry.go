// Package retry runs remote mutations with exponential backoff, full jitter and
// a wall-clock budget.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
)

var (
	ErrPermanent            = errors.New("permanent failure")
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")
	ErrCancelled            = errors.New("retry cancelled")
)

// Attempt describes a failed attempt that is about to be retried.
type Attempt struct {
	Operation string
	Count     int
	Delay     time.Duration
	Err       error
}

// Policy configures Do. The zero value retries every error with a 1s base delay for up to one minute.
// Without MaxDelay the backoff is capped at MaxElapsed.
type Policy struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxElapsed time.Duration
	// Classify reports whether err is worth another attempt.
	Classify func(error) bool
	// Jitter maps a backoff to the actual wait. Defaults to FullJitter.
	Jitter  func(time.Duration) time.Duration
	Clock   clockwork.Clock
	OnRetry func(Attempt)
}

// FullJitter returns a uniform duration in [0, d).
func FullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(d)))
}

func (p Policy) withDefaults() Policy {
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxElapsed <= 0 {
		p.MaxElapsed = time.Minute
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = p.MaxElapsed
	}
	if p.Classify == nil {
		p.Classify = func(error) bool { return true }
	}
	if p.Jitter == nil {
		p.Jitter = FullJitter
	}
	if p.Clock == nil {
		p.Clock = clockwork.NewRealClock()
	}
	return p
}

// Do calls fn until it succeeds, fails permanently, the budget runs out or ctx ends.
// Waits are clamped so that no attempt starts after MaxElapsed.
func (p Policy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	p = p.withDefaults()
	start := p.Clock.Now()
	backoff := p.BaseDelay

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrCancelled, err)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrCancelled, err)
		}
		if !p.Classify(err) {
			return fmt.Errorf("%s: %w: %w", op, ErrPermanent, err)
		}

		remaining := p.MaxElapsed - p.Clock.Since(start)
		if remaining <= 0 {
			return fmt.Errorf("%s after %d attempts: %w: %w", op, attempt, ErrRetryBudgetExhausted, err)
		}

		delay := p.Jitter(backoff)
		if delay > remaining {
			delay = remaining
		}
		if p.OnRetry != nil {
			p.OnRetry(Attempt{Operation: op, Count: attempt, Delay: delay, Err: err})
		}

		if err := p.wait(ctx, delay); err != nil {
			return fmt.Errorf("%s: %w: %w", op, ErrCancelled, err)
		}

		if backoff > p.MaxDelay/2 {
			backoff = p.MaxDelay
		} else {
			backoff *= 2
		}
	}
}

func (p Policy) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := p.Clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}
