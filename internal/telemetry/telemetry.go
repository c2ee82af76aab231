package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
)

// ErrPublishFailed is returned when an event cannot be added to the stream.
var ErrPublishFailed = errors.New("telemetry: failed to publish event")

const (
	// DefaultStream is the Redis stream mail events are appended to.
	DefaultStream = "mail:events"

	// MaxMessageLength caps failure messages in events.
	MaxMessageLength = 150

	defaultMaxLen = 100_000
)

// Sink receives delivery events.
type Sink interface {
	RecordSuccess(ctx context.Context, tenantKey, subject string) error
	RecordFailure(ctx context.Context, tenantKey, message string) error
}

type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Stream publishes events to a capped Redis stream for the analytics consumer.
type Stream struct {
	client streamClient
	stream string
	maxLen int64
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Stream.
type Option func(*Stream)

// WithStream sets the stream name.
func WithStream(name string) Option {
	return func(s *Stream) {
		if name != "" {
			s.stream = name
		}
	}
}

// WithMaxLen sets the approximate stream length cap.
func WithMaxLen(n int64) Option {
	return func(s *Stream) {
		if n > 0 {
			s.maxLen = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Stream) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStream creates a Redis stream sink.
func NewStream(client redis.UniversalClient, opts ...Option) *Stream {
	return newStream(client, opts...)
}

func newStream(client streamClient, opts ...Option) *Stream {
	s := &Stream{
		client: client,
		stream: DefaultStream,
		maxLen: defaultMaxLen,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordSuccess publishes a sent event.
func (s *Stream) RecordSuccess(ctx context.Context, tenantKey, subject string) error {
	return s.publish(ctx, map[string]any{
		"event":      "sent",
		"tenant_key": tenantKey,
		"subject":    subject,
	})
}

// RecordFailure publishes a failed event with the message truncated to
// MaxMessageLength characters.
func (s *Stream) RecordFailure(ctx context.Context, tenantKey, message string) error {
	return s.publish(ctx, map[string]any{
		"event":      "failed",
		"tenant_key": tenantKey,
		"message":    Truncate(message, MaxMessageLength),
	})
}

func (s *Stream) publish(ctx context.Context, values map[string]any) error {
	values["ts"] = s.now().UTC().Format(time.RFC3339)
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		s.logger.WarnContext(ctx, "telemetry event dropped", slog.String("error", err.Error()))
		return errors.Join(ErrPublishFailed, err)
	}
	return nil
}

// Truncate shortens s to at most n characters.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
