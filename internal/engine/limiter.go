package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// LimiterConfig describes the limits for one upstream API.
// Zero values disable the corresponding limit.
type LimiterConfig struct {
	MaxConcurrent    int
	MinInterval      time.Duration // spacing between job starts
	RPS              float64       // token bucket, burst = ceil(RPS)
	Reservoir        int           // jobs per ReservoirRefresh window
	ReservoirRefresh time.Duration
}

// Limiter gates calls to one upstream. Callers block in Schedule until a
// concurrency slot, the interval spacing, the RPS bucket and the fixed-window
// reservoir all admit them.
type Limiter struct {
	name    string
	cfg     LimiterConfig
	sem     *semaphore.Weighted
	spacing *rate.Limiter
	rps     *rate.Limiter

	mu        sync.Mutex
	remaining int
	resetAt   time.Time

	inFlight atomic.Int64
	queued   atomic.Int64
	done     atomic.Int64
}

// LimiterStats is a point-in-time view of a limiter.
type LimiterStats struct {
	Name          string `json:"name"`
	InFlight      int64  `json:"in_flight"`
	Queued        int64  `json:"queued"`
	Done          int64  `json:"done"`
	ReservoirLeft int    `json:"reservoir_left"`
}

// NewLimiter builds a limiter from c.
func NewLimiter(name string, c LimiterConfig) *Limiter {
	l := &Limiter{name: name, cfg: c, remaining: c.Reservoir}
	if c.MaxConcurrent > 0 {
		l.sem = semaphore.NewWeighted(int64(c.MaxConcurrent))
	}
	if c.MinInterval > 0 {
		l.spacing = rate.NewLimiter(rate.Every(c.MinInterval), 1)
	}
	if c.RPS > 0 {
		burst := int(c.RPS)
		if float64(burst) < c.RPS || burst < 1 {
			burst++
		}
		l.rps = rate.NewLimiter(rate.Limit(c.RPS), burst)
	}
	return l
}

// acquire waits for admission and returns a release func for the concurrency slot.
func (l *Limiter) acquire(ctx context.Context) (func(), error) {
	l.queued.Add(1)
	defer l.queued.Add(-1)

	if l.sem != nil {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}
	release := func() {
		if l.sem != nil {
			l.sem.Release(1)
		}
	}

	if err := l.takeReservoir(ctx); err != nil {
		release()
		return nil, err
	}
	if l.spacing != nil {
		if err := l.spacing.Wait(ctx); err != nil {
			release()
			return nil, err
		}
	}
	if l.rps != nil {
		if err := l.rps.Wait(ctx); err != nil {
			release()
			return nil, err
		}
	}
	return release, nil
}

// takeReservoir consumes one unit of the fixed-window budget, sleeping until
// the next window when it is exhausted.
func (l *Limiter) takeReservoir(ctx context.Context) error {
	if l.cfg.Reservoir <= 0 || l.cfg.ReservoirRefresh <= 0 {
		return nil
	}
	for {
		l.mu.Lock()
		now := time.Now()
		if !now.Before(l.resetAt) {
			l.remaining = l.cfg.Reservoir
			l.resetAt = now.Add(l.cfg.ReservoirRefresh)
		}
		if l.remaining > 0 {
			l.remaining--
			l.mu.Unlock()
			return nil
		}
		wait := l.resetAt.Sub(now)
		l.mu.Unlock()

		slog.Debug("limiter: reservoir exhausted", slog.String("limiter", l.name), slog.Duration("wait", wait))
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Stats returns the current limiter counters.
func (l *Limiter) Stats() LimiterStats {
	l.mu.Lock()
	left := l.remaining
	if l.cfg.Reservoir > 0 && !time.Now().Before(l.resetAt) {
		left = l.cfg.Reservoir
	}
	l.mu.Unlock()
	return LimiterStats{
		Name:          l.name,
		InFlight:      l.inFlight.Load(),
		Queued:        l.queued.Load(),
		Done:          l.done.Load(),
		ReservoirLeft: left,
	}
}

// Schedule runs fn once l admits it. A nil limiter runs fn directly.
func Schedule[T any](ctx context.Context, l *Limiter, fn func(context.Context) (T, error)) (T, error) {
	if l == nil {
		return fn(ctx)
	}
	var zero T
	release, err := l.acquire(ctx)
	if err != nil {
		return zero, err
	}
	defer release()
	l.inFlight.Add(1)
	defer func() {
		l.inFlight.Add(-1)
		l.done.Add(1)
	}()
	return fn(ctx)
}

// Shared limiters per upstream, rebuilt by Init.
var (
	GeminiLimiter  *Limiter
	YouTubeLimiter *Limiter
	DriveLimiter   *Limiter
	SerpLimiter    *Limiter
)

func initLimiters(geminiRPS float64) {
	GeminiLimiter = NewLimiter("gemini", LimiterConfig{
		MaxConcurrent:    1,
		MinInterval:      time.Second,
		RPS:              geminiRPS,
		Reservoir:        60,
		ReservoirRefresh: time.Minute,
	})
	YouTubeLimiter = NewLimiter("youtube", LimiterConfig{
		MaxConcurrent:    3,
		MinInterval:      100 * time.Millisecond,
		Reservoir:        10000,
		ReservoirRefresh: 24 * time.Hour,
	})
	DriveLimiter = NewLimiter("drive", LimiterConfig{
		MaxConcurrent: 2,
		MinInterval:   200 * time.Millisecond,
	})
	SerpLimiter = NewLimiter("serp", LimiterConfig{
		MaxConcurrent: 1,
		MinInterval:   time.Second,
	})
}

// LimiterSnapshot returns stats for all shared limiters.
func LimiterSnapshot() []LimiterStats {
	var out []LimiterStats
	for _, l := range []*Limiter{GeminiLimiter, YouTubeLimiter, DriveLimiter, SerpLimiter} {
		if l != nil {
			out = append(out, l.Stats())
		}
	}
	return out
}
