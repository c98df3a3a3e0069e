package eventpublisher

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/blockpay/internal/domain"
)

// ErrBufferFull is returned by Publish when the dispatcher cannot accept
// more events.
var ErrBufferFull = errors.New("event buffer full")

// Sink delivers events to an external system.
type Sink interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// Config for EventPublisher.
type Config struct {
	Sink   Sink
	Logger zerolog.Logger
	// Buffer is the number of events held while the worker is busy.
	Buffer int
	// SendTimeout bounds a single delivery.
	SendTimeout time.Duration
}

// EventPublisher hands events to a background worker so callers never
// wait on the sink. Delivery is best-effort: events that do not fit in
// the buffer or fail to send are logged and dropped.
type EventPublisher struct {
	sink        Sink
	logger      zerolog.Logger
	queue       chan *domain.Event
	sendTimeout time.Duration
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(cfg Config) *EventPublisher {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	return &EventPublisher{
		sink:        cfg.Sink,
		logger:      cfg.Logger.With().Str("component", "event_publisher").Logger(),
		queue:       make(chan *domain.Event, cfg.Buffer),
		sendTimeout: cfg.SendTimeout,
	}
}

// Publish enqueues event without blocking.
func (ep *EventPublisher) Publish(_ context.Context, event *domain.Event) error {
	select {
	case ep.queue <- event:
		return nil
	default:
		ep.logger.Warn().Str("event_id", event.ID).Str("event_type", event.Type).Msg("event dropped, buffer full")
		return ErrBufferFull
	}
}

// Start delivers queued events until ctx is cancelled, then flushes what
// is already queued.
func (ep *EventPublisher) Start(ctx context.Context) error {
	ep.logger.Info().Int("buffer", cap(ep.queue)).Msg("event publisher started")

	for {
		select {
		case <-ctx.Done():
			ep.drain()
			ep.logger.Info().Msg("event publisher shutting down")
			return ctx.Err()
		case event := <-ep.queue:
			ep.deliver(context.Background(), event)
		}
	}
}

func (ep *EventPublisher) drain() {
	for {
		select {
		case event := <-ep.queue:
			ep.deliver(context.Background(), event)
		default:
			return
		}
	}
}

func (ep *EventPublisher) deliver(ctx context.Context, event *domain.Event) {
	ctx, cancel := context.WithTimeout(ctx, ep.sendTimeout)
	defer cancel()

	if err := ep.sink.Publish(ctx, event); err != nil {
		ep.logger.Error().Err(err).
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Msg("failed to publish event")
		return
	}

	ep.logger.Debug().Str("event_id", event.ID).Str("event_type", event.Type).Msg("event published")
}

// LogSink writes events to the log. It is used when no broker is set.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a new LogSink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish logs the event.
func (s *LogSink) Publish(_ context.Context, event *domain.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Str("key", event.Key).
		RawJSON("payload", payload).
		Msg("event published")

	return nil
}
