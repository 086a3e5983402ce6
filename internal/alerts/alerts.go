// Package alerts delivers slow upstream call notifications raised by the
// reactive limiter.
package alerts

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/observability"
	"github.com/camrobjones/papernet/internal/papersources"
)

// SlowCallEvent is the payload published for a slow call.
type SlowCallEvent struct {
	URL            string            `json:"url"`
	Params         map[string]string `json:"params,omitempty"`
	StatusCode     int               `json:"status_code"`
	StartTime      time.Time         `json:"start_time"`
	EndTime        time.Time         `json:"end_time"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
}

// NewSlowCallEvent builds the event for a ledger entry.
func NewSlowCallEvent(entry *domain.RequestLog) SlowCallEvent {
	return SlowCallEvent{
		URL:            entry.URL,
		Params:         entry.Params,
		StatusCode:     entry.StatusCode,
		StartTime:      entry.StartTime,
		EndTime:        entry.EndTime,
		ElapsedSeconds: entry.Elapsed.Seconds(),
	}
}

// LogHook reports slow calls through the logger and metrics.
type LogHook struct {
	logger  zerolog.Logger
	metrics *observability.Metrics
}

var _ papersources.AlertHook = (*LogHook)(nil)

// NewLogHook creates a LogHook. metrics may be nil.
func NewLogHook(logger zerolog.Logger, metrics *observability.Metrics) *LogHook {
	return &LogHook{
		logger:  logger.With().Str("component", "slow_call_alert").Logger(),
		metrics: metrics,
	}
}

// SlowCall implements papersources.AlertHook.
func (h *LogHook) SlowCall(_ context.Context, entry *domain.RequestLog) {
	h.logger.Error().
		Str("url", entry.URL).
		Int("status", entry.StatusCode).
		Dur("elapsed", entry.Elapsed).
		Time("start_time", entry.StartTime).
		Msg("upstream request exceeded alert threshold")
	if h.metrics != nil {
		h.metrics.RecordSlowCall()
	}
}

// Multi fans an alert out to several hooks.
type Multi []papersources.AlertHook

// SlowCall implements papersources.AlertHook.
func (m Multi) SlowCall(ctx context.Context, entry *domain.RequestLog) {
	for _, h := range m {
		if h != nil {
			h.SlowCall(ctx, entry)
		}
	}
}
