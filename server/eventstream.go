package server

import (
	"context"
	"sync"

	"github.com/a2a-go/runtime/server/otel"
	"github.com/a2a-go/runtime/types"
)

// taskStream is one task's event queue: a single producer pushes ordered
// events, and sequential readers (the original stream call, then reconnects
// via tasks/subscribe) replay it from the beginning. Only one reader is
// expected to be attached at a time; callers are responsible for not racing
// two concurrent readers against the same taskStream.
type taskStream struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []types.A2AEvent
	closed bool
}

func newTaskStream() *taskStream {
	s := &taskStream{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// push enqueues event. If final is true, no further events may be pushed
// and readers complete once they've drained the queue.
func (s *taskStream) push(event types.A2AEvent, final bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, event)
	if final {
		s.closed = true
	}
	s.cond.Broadcast()
}

// events returns a channel yielding every event pushed to s, starting from
// the beginning of the queue, in order, closing once the final event has
// been delivered or ctx is canceled. Cancellation is honored at the next
// wait point or yield point.
func (s *taskStream) events(ctx context.Context) <-chan types.A2AEvent {
	out := make(chan types.A2AEvent)

	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})

	go func() {
		defer close(out)
		defer stop()

		idx := 0
		for {
			s.mu.Lock()
			for idx >= len(s.queue) && !s.closed && ctx.Err() == nil {
				s.cond.Wait()
			}
			if ctx.Err() != nil {
				s.mu.Unlock()
				return
			}
			if idx >= len(s.queue) {
				s.mu.Unlock()
				return
			}
			event := s.queue[idx]
			idx++
			s.mu.Unlock()

			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// EventStreamRegistry tracks the one active taskStream per task.
// Registration is idempotent per call site; de-registration happens when a
// final event is published.
type EventStreamRegistry struct {
	mu        sync.RWMutex
	streams   map[string]*taskStream
	telemetry otel.OpenTelemetry
}

// NewEventStreamRegistry creates an empty registry, recording active-stream
// gauge changes through telemetry (pass otel.NoOp{} to disable).
func NewEventStreamRegistry(telemetry otel.OpenTelemetry) *EventStreamRegistry {
	if telemetry == nil {
		telemetry = otel.NoOp{}
	}
	return &EventStreamRegistry{streams: make(map[string]*taskStream), telemetry: telemetry}
}

// register creates (or returns the existing) stream slot for taskID.
func (r *EventStreamRegistry) register(taskID string) *taskStream {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.streams[taskID]; ok {
		return s
	}
	s := newTaskStream()
	r.streams[taskID] = s
	r.telemetry.StreamOpened(context.Background(), taskID)
	return s
}

// lookup returns the registered stream for taskID, or (nil, false) if none
// is active. Unlike register, it never creates one.
func (r *EventStreamRegistry) lookup(taskID string) (*taskStream, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.streams[taskID]
	return s, ok
}

// publish pushes event to taskID's stream if one is registered, releasing
// the registration once a final event is delivered. Publishing to a task
// with no registered stream is a silent no-op: the agent may update task
// status outside of any active subscriber.
func (r *EventStreamRegistry) publish(taskID string, event types.A2AEvent, final bool) {
	r.mu.RLock()
	s, ok := r.streams[taskID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	s.push(event, final)

	if final {
		r.mu.Lock()
		delete(r.streams, taskID)
		r.mu.Unlock()
		r.telemetry.StreamClosed(context.Background(), taskID)
	}
}
