package papersources

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/camrobjones/papernet/internal/domain"
)

// LimiterConfig holds the thresholds of the reactive limiter.
type LimiterConfig struct {
	// MaxRequestLength is the call duration above which the next call waits.
	MaxRequestLength time.Duration

	// AlertRequestLength is the call duration above which the alert hook fires.
	AlertRequestLength time.Duration

	// MinWait is the floor of the computed wait. Calls slower than MinWait
	// are also logged as slow when recorded.
	MinWait time.Duration
}

// DefaultLimiterConfig returns the standard thresholds.
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{
		MaxRequestLength:   4 * time.Second,
		AlertRequestLength: 8 * time.Second,
		MinWait:            2 * time.Second,
	}
}

func (c *LimiterConfig) applyDefaults() {
	d := DefaultLimiterConfig()
	if c.MaxRequestLength <= 0 {
		c.MaxRequestLength = d.MaxRequestLength
	}
	if c.AlertRequestLength <= 0 {
		c.AlertRequestLength = d.AlertRequestLength
	}
	if c.MinWait <= 0 {
		c.MinWait = d.MinWait
	}
}

// ReactiveLimiter backs off when the upstream slows down. It looks at the
// duration of the previous call only: a call slower than MaxRequestLength
// makes the next one wait twice that duration (at least MinWait), measured
// from the end of the slow call.
type ReactiveLimiter struct {
	config LimiterConfig
	alert  AlertHook
	logger zerolog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewReactiveLimiter creates a limiter. alert may be nil.
func NewReactiveLimiter(cfg LimiterConfig, alert AlertHook, logger zerolog.Logger) *ReactiveLimiter {
	cfg.applyDefaults()
	return &ReactiveLimiter{
		config: cfg,
		alert:  alert,
		logger: logger.With().Str("component", "reactive_limiter").Logger(),
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Config returns the effective thresholds.
func (l *ReactiveLimiter) Config() LimiterConfig {
	return l.config
}

// Wait blocks as required by last and returns the time actually slept.
// A nil last never waits.
func (l *ReactiveLimiter) Wait(ctx context.Context, last *domain.RequestLog) (time.Duration, error) {
	if last == nil {
		return 0, nil
	}

	if last.Elapsed > l.config.AlertRequestLength && l.alert != nil {
		l.alert.SlowCall(ctx, last)
	}

	if last.Elapsed <= l.config.MaxRequestLength {
		return 0, nil
	}

	wait := 2 * last.Elapsed
	if wait < l.config.MinWait {
		wait = l.config.MinWait
	}

	remaining := wait - l.now().Sub(last.EndTime)
	if remaining <= 0 {
		return 0, nil
	}

	l.logger.Info().
		Str("url", last.URL).
		Dur("last_elapsed", last.Elapsed).
		Dur("wait", remaining).
		Msg("upstream slow, delaying next request")

	if err := l.sleep(ctx, remaining); err != nil {
		return 0, err
	}
	return remaining, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
