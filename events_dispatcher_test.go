package warden

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// gateSink blocks inside Emit until released, so tests can hold the worker
// busy and fill the buffer deterministically.
type gateSink struct {
	started chan struct{}
	release chan struct{}
	seen    atomic.Int64
}

func newGateSink() *gateSink {
	return &gateSink{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (s *gateSink) Emit(_ context.Context, _ LoginEvent) {
	select {
	case s.started <- struct{}{}:
	default:
	}
	<-s.release
	s.seen.Add(1)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := newGateSink()
	d := newEventDispatcher(EventsConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	ctx := context.Background()

	// First event occupies the worker; wait for it to be in flight.
	d.Emit(ctx, LoginEvent{Status: LoginSuccess})
	select {
	case <-sink.started:
	case <-time.After(time.Second):
		t.Fatal("worker never picked up the first event")
	}

	d.Emit(ctx, LoginEvent{Status: LoginSuccess}) // fills the buffer
	d.Emit(ctx, LoginEvent{Status: LoginSuccess}) // dropped

	if got := d.Dropped(); got != 1 {
		t.Fatalf("dropped = %d, want 1", got)
	}

	close(sink.release)
	d.Close()

	if got := sink.seen.Load(); got != 2 {
		t.Fatalf("delivered = %d, want 2", got)
	}
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := newEventDispatcher(EventsConfig{Enabled: true, BufferSize: 8, DropIfFull: false}, sink)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		d.Emit(ctx, LoginEvent{Status: LoginPasswordError, Account: "alice"})
	}
	d.Close()

	var delivered int
	for {
		select {
		case <-sink.Events():
			delivered++
		default:
			if delivered != 5 {
				t.Fatalf("delivered = %d, want 5", delivered)
			}
			return
		}
	}
}

func TestDispatcherDisabled(t *testing.T) {
	d := newEventDispatcher(EventsConfig{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("disabled dispatcher must be nil")
	}

	// Nil receivers are safe for the engine's call sites.
	d.Emit(context.Background(), LoginEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher has no drops")
	}
}

func TestDispatcherEmitAfterClose(t *testing.T) {
	sink := NewChannelSink(4)
	d := newEventDispatcher(EventsConfig{Enabled: true, BufferSize: 4, DropIfFull: true}, sink)
	d.Close()
	d.Close() // idempotent

	d.Emit(context.Background(), LoginEvent{Status: LoginSuccess})

	select {
	case event := <-sink.Events():
		t.Fatalf("unexpected delivery after close: %+v", event)
	default:
	}
}

func TestEmitStampsTimestamp(t *testing.T) {
	sink := NewChannelSink(4)
	d := newEventDispatcher(EventsConfig{Enabled: true, BufferSize: 4, DropIfFull: false}, sink)

	d.Emit(context.Background(), LoginEvent{Status: LoginSuccess})
	d.Close()

	event := <-sink.Events()
	if event.Timestamp.IsZero() {
		t.Fatal("timestamp not stamped")
	}
}
