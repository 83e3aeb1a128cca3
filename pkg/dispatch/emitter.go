package dispatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/enjoys-in/pinglet-sub002/metrics"
	"github.com/enjoys-in/pinglet-sub002/pkg/types"
)

// Emitter is the fire-and-forget side channel for lifecycle analytics. The
// request path and the widget call Emit and never wait on the broker: events
// land in a bounded in-memory buffer that a background goroutine flushes to
// the per-kind queues. A full buffer drops the oldest event; enqueue failures
// are logged, never propagated.
type Emitter struct {
	reg  *Registry
	log  *zap.Logger
	buf  chan types.LifecycleEvent
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewEmitter starts the flusher. size bounds the buffer; 256 is plenty for a
// bursty widget session.
func NewEmitter(reg *Registry, size int, log *zap.Logger) *Emitter {
	if size <= 0 {
		size = 256
	}
	e := &Emitter{
		reg:  reg,
		log:  log,
		buf:  make(chan types.LifecycleEvent, size),
		done: make(chan struct{}),
	}
	go e.flush()
	return e
}

// Emit buffers one event. Never blocks: when the buffer is full the oldest
// buffered event is discarded to make room. Events arriving after Close are
// dropped; requests can still be in flight when shutdown starts.
func (e *Emitter) Emit(ev types.LifecycleEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		metrics.EmitterDroppedTotal.Inc()
		return
	}
	select {
	case e.buf <- ev:
		return
	default:
	}

	select {
	case old := <-e.buf:
		metrics.EmitterDroppedTotal.Inc()
		e.log.Warn("analytics buffer full, dropped oldest event",
			zap.String("dropped", old.DedupKey()),
		)
	default:
	}
	select {
	case e.buf <- ev:
	default:
		metrics.EmitterDroppedTotal.Inc()
	}
}

// Close stops accepting events and gives the flusher a moment to drain.
// Safe to call with producers still running, and idempotent.
func (e *Emitter) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.buf)
	e.mu.Unlock()
	select {
	case <-e.done:
	case <-time.After(5 * time.Second):
		e.log.Warn("emitter close timed out with events in flight")
	}
}

func (e *Emitter) flush() {
	defer close(e.done)
	for ev := range e.buf {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		q := e.reg.Queue(ev.Kind.Topic())
		if err := q.Enqueue(ctx, ev); err != nil {
			e.log.Warn("analytics enqueue failed",
				zap.String("event", ev.DedupKey()),
				zap.Error(err),
			)
		}
		cancel()
	}
}
