package events

import (
	"context"
	"log/slog"
	"sync"

	obsmw "geoproof/internal/observability/middleware"
)

// Sink receives events after the state change they describe has been committed.
// Emit must not block the caller for long and never fails the operation.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(context.Context, Event) {}

// LogSink writes events as structured log lines.
type LogSink struct {
	Logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{Logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, ev Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch v := ev.(type) {
	case MintFailed:
		level = slog.LevelError
	case TransferRejected:
		level = slog.LevelWarn
	case ValidationRecorded:
		if v.Reason != "" {
			level = slog.LevelWarn
		}
	}
	logger.Log(ctx, level, ev.EventName(),
		"event", ev,
		"request_id", obsmw.RequestIDFromContext(ctx),
		"trace_id", obsmw.TraceIDFromContext(ctx),
	)
}

// MemorySink keeps events in memory (tests and inspection).
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(_ context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of everything emitted so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Named returns the emitted events whose EventName is name.
func (s *MemorySink) Named(name string) []Event {
	var out []Event
	for _, ev := range s.Events() {
		if ev.EventName() == name {
			out = append(out, ev)
		}
	}
	return out
}

// Multi fans every event out to all sinks in order.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}
