package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/pkg/apierr"
)

// ErrFatal marks failures that must not be retried (not found, server error).
var ErrFatal = errors.New("fatal api error")

// ExhaustedError is returned once every attempt has failed.
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Op, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// RetryConfig configures a Retrier.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// MinAttempts is the attempt number from which rate-limited and timeout
	// responses are retried; earlier ones surface immediately.
	MinAttempts int
}

// Retrier retries outbound calls according to the apierr class of their error.
type Retrier struct {
	cfg   RetryConfig
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a Retrier with defaults for unset fields.
func NewRetrier(cfg RetryConfig) *Retrier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.MinAttempts <= 0 {
		cfg.MinAttempts = 1
	}
	return &Retrier{cfg: cfg, sleep: sleepCtx}
}

// Do runs fn until it succeeds, hits a non-retryable class, or runs out of attempts.
//
//	not found / server error  -> wrapped in ErrFatal, no retry
//	rate limited / timeout    -> retried once attempt >= MinAttempts
//	transient (no status)     -> retried
//	anything else             -> returned as is
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var last error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		last = err

		switch apierr.ClassOf(err) {
		case apierr.ClassNotFound, apierr.ClassServerError:
			return fmt.Errorf("%w: %s: %w", ErrFatal, op, err)
		case apierr.ClassRateLimited, apierr.ClassTimeout:
			if attempt < r.cfg.MinAttempts {
				return err
			}
		case apierr.ClassTransient:
		default:
			return err
		}

		if attempt == r.cfg.MaxAttempts {
			break
		}
		delay := r.backoff(attempt)
		log.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Outbound call failed, retrying")
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return &ExhaustedError{Op: op, Attempts: r.cfg.MaxAttempts, Last: last}
}

// backoff returns BaseDelay * 2^(attempt-1), capped to MaxDelay.
func (r *Retrier) backoff(attempt int) time.Duration {
	d := r.cfg.BaseDelay << (attempt - 1)
	if d <= 0 || d > r.cfg.MaxDelay {
		d = r.cfg.MaxDelay
	}
	return d
}

// Guard combines a Limiter and a Retrier: each attempt first waits for the
// limiter, so retries are throttled too. Either part may be nil.
type Guard struct {
	Limiter *Limiter
	Retrier *Retrier
}

// Call runs fn under the guard using id as the limiter identifier.
func (g *Guard) Call(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	if g == nil {
		return fn(ctx)
	}
	attempt := func(ctx context.Context) error {
		if g.Limiter != nil {
			if err := g.Limiter.Wait(ctx, id); err != nil {
				return err
			}
		}
		return fn(ctx)
	}
	if g.Retrier == nil {
		return attempt(ctx)
	}
	return g.Retrier.Do(ctx, id, attempt)
}
