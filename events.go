package warden

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// LoginStatusType marks a login outcome on a [LoginEvent].
type LoginStatusType string

const (
	// LoginSuccess marks a completed authentication.
	LoginSuccess LoginStatusType = "success"
	// LoginPasswordError marks a password mismatch.
	LoginPasswordError LoginStatusType = "password_error"
)

// LoginEvent is published once per login outcome. Consumers (audit loggers,
// the login-log recorder) read events from a sink; the engine never waits on
// them.
type LoginEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	Status    LoginStatusType `json:"status"`
	UserID    int64           `json:"user_id,omitempty"`
	Account   string          `json:"account,omitempty"`
	IP        string          `json:"ip,omitempty"`
	UA        string          `json:"ua,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// EventSink receives published login events.
type EventSink interface {
	Emit(ctx context.Context, event LoginEvent)
}

// NoOpSink drops login events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, LoginEvent) {}

// ChannelSink writes login events into a buffered channel for independent
// consumers.
type ChannelSink struct {
	events chan LoginEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan LoginEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event LoginEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan LoginEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event LoginEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
