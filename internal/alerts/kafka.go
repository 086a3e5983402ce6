package alerts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/papersources"
)

// KafkaConfig holds configuration for the Kafka alert publisher.
type KafkaConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic receives slow call events.
	Topic string
	// WriteTimeout bounds a single publish.
	WriteTimeout time.Duration
}

// messageWriter is the subset of *kafka.Writer used by KafkaHook.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaHook publishes slow call events to a Kafka topic so operators are
// notified outside the worker's own logs.
type KafkaHook struct {
	writer  messageWriter
	timeout time.Duration
	logger  zerolog.Logger
}

var _ papersources.AlertHook = (*KafkaHook)(nil)

// NewKafkaHook creates a hook writing to cfg.Topic.
func NewKafkaHook(cfg KafkaConfig, logger zerolog.Logger) *KafkaHook {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newKafkaHook(writer, cfg.WriteTimeout, logger)
}

func newKafkaHook(w messageWriter, timeout time.Duration, logger zerolog.Logger) *KafkaHook {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &KafkaHook{
		writer:  w,
		timeout: timeout,
		logger:  logger.With().Str("component", "kafka_alert").Logger(),
	}
}

// SlowCall implements papersources.AlertHook. Publish failures are logged
// and never reach the caller.
func (h *KafkaHook) SlowCall(ctx context.Context, entry *domain.RequestLog) {
	value, err := json.Marshal(NewSlowCallEvent(entry))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal slow call event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(entry.URL),
		Value: value,
		Time:  entry.EndTime,
	}
	if err := h.writer.WriteMessages(ctx, msg); err != nil {
		h.logger.Error().Err(err).Str("url", entry.URL).Msg("failed to publish slow call event")
	}
}

// Close flushes and closes the underlying writer.
func (h *KafkaHook) Close() error {
	return h.writer.Close()
}
