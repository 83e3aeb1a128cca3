package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/enjoys-in/pinglet-sub002/metrics"
	"github.com/enjoys-in/pinglet-sub002/pkg/types"
)

const maxAttempts = 3

var baseBackoff = time.Second

// Message is one claimed-but-unacknowledged record from the broker.
type Message struct {
	Key   []byte
	Value []byte
}

// Consumer is the broker-facing read half. Claim-and-ack: a message is only
// acknowledged via Commit, so a worker that dies mid-processing leaves it
// re-deliverable (at-least-once).
type Consumer interface {
	Fetch(ctx context.Context) (Message, error)
	Commit(ctx context.Context, m Message) error
	Close() error
}

// Handler processes one lifecycle event. Delivery is at-least-once, so
// handlers must be idempotent, keyed by the event's DedupKey.
type Handler func(ctx context.Context, ev types.LifecycleEvent) error

// RunWorker consumes a queue until ctx is cancelled. Per message: a payload
// that does not deserialize is dead-lettered and acknowledged; a handler
// failure is retried with exponential backoff and jitter, then dead-lettered
// after maxAttempts. Acknowledgement always happens last.
func RunWorker(ctx context.Context, c Consumer, q *Queue, h Handler, log *zap.Logger) {
	log.Info("worker started", zap.String("queue", q.Name()))
	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down", zap.String("queue", q.Name()))
			return
		default:
		}

		m, err := c.Fetch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("fetch failed", zap.String("queue", q.Name()), zap.Error(err))
			continue
		}

		var ev types.LifecycleEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			log.Error("malformed event payload, dead-lettering",
				zap.String("queue", q.Name()),
				zap.ByteString("raw", m.Value),
				zap.Error(err),
			)
			q.DeadLetter(ctx, m.Key, m.Value, "malformed")
			commit(ctx, c, m, q, log)
			continue
		}

		if err := processWithRetry(ctx, q, h, ev, log); err != nil {
			q.DeadLetter(ctx, m.Key, m.Value, "handler_failure")
		}
		commit(ctx, c, m, q, log)
	}
}

func processWithRetry(ctx context.Context, q *Queue, h Handler, ev types.LifecycleEvent, log *zap.Logger) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		timer := time.Now()
		err = h(ctx, ev)
		metrics.EventProcessDuration.WithLabelValues(q.Name()).Observe(time.Since(timer).Seconds())
		if err == nil {
			metrics.EventsProcessedTotal.WithLabelValues(q.Name(), "success").Inc()
			return nil
		}
		metrics.EventsProcessedTotal.WithLabelValues(q.Name(), "failed").Inc()

		if attempt == maxAttempts {
			break
		}
		backoff := baseBackoff * time.Duration(1<<(attempt-1))
		jitter := time.Duration(rand.Int63n(int64(baseBackoff / 2)))
		wait := backoff + jitter
		metrics.EventRetriesTotal.WithLabelValues(q.Name()).Inc()
		log.Warn("event handler failed, will retry",
			zap.String("queue", q.Name()),
			zap.String("event", ev.DedupKey()),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	log.Error("permanent event handler failure",
		zap.String("queue", q.Name()),
		zap.String("event", ev.DedupKey()),
		zap.Error(err),
	)
	return err
}

func commit(ctx context.Context, c Consumer, m Message, q *Queue, log *zap.Logger) {
	if err := c.Commit(ctx, m); err != nil {
		// The message will be redelivered; handlers are idempotent.
		log.Warn("commit failed", zap.String("queue", q.Name()), zap.Error(err))
	}
}
