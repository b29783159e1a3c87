package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Window names reported to OnWait.
const (
	WindowSecond = "second"
	WindowMinute = "minute"
)

// LimiterConfig configures a Limiter. A zero per-window limit disables that window.
type LimiterConfig struct {
	CallsPerSecond int
	CallsPerMinute int
	SecondSleep    time.Duration
	MinuteSleep    time.Duration
}

// Limiter throttles calls per identifier using two sliding windows kept as
// timestamp logs. Exceeding a window blocks the caller instead of rejecting it.
type Limiter struct {
	cfg   LimiterConfig
	mu    sync.Mutex
	calls map[string][]time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// OnWait is invoked (outside the lock) every time a caller is held back.
	OnWait func(id, window string)
}

// NewLimiter creates a Limiter.
func NewLimiter(cfg LimiterConfig) *Limiter {
	if cfg.SecondSleep <= 0 {
		cfg.SecondSleep = time.Second
	}
	if cfg.MinuteSleep <= 0 {
		cfg.MinuteSleep = time.Minute
	}
	return &Limiter{
		cfg:   cfg,
		calls: make(map[string][]time.Time),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Wait blocks until a call for id fits both windows, then records it.
func (l *Limiter) Wait(ctx context.Context, id string) error {
	for {
		window, pause := l.reserve(id)
		if pause == 0 {
			return nil
		}

		log.Debug().Str("limiter_id", id).Str("window", window).Dur("sleep", pause).Msg("Rate limit reached, backing off")
		if l.OnWait != nil {
			l.OnWait(id, window)
		}
		if err := l.sleep(ctx, pause); err != nil {
			return err
		}
	}
}

// reserve records the call and returns zero when it fits, otherwise the
// exceeded window and how long to sleep before checking again.
func (l *Limiter) reserve(id string) (string, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	stamps := prune(l.calls[id], now.Add(-time.Minute))
	l.calls[id] = stamps

	if l.cfg.CallsPerSecond > 0 {
		inSecond := 0
		secondAgo := now.Add(-time.Second)
		for _, ts := range stamps {
			if ts.After(secondAgo) {
				inSecond++
			}
		}
		if inSecond >= l.cfg.CallsPerSecond {
			return WindowSecond, l.cfg.SecondSleep
		}
	}
	if l.cfg.CallsPerMinute > 0 && len(stamps) >= l.cfg.CallsPerMinute {
		return WindowMinute, l.cfg.MinuteSleep
	}

	l.calls[id] = append(stamps, now)
	return "", 0
}

// prune drops timestamps at or before cutoff. The log is append-only in time
// order so the first kept entry marks the boundary.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
