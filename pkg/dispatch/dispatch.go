package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/enjoys-in/pinglet-sub002/metrics"
	"github.com/enjoys-in/pinglet-sub002/pkg/types"
)

var (
	// ErrQueueUnavailable wraps broker publish failures. Producers treat it
	// as non-fatal: log and move on, never block the request or the widget.
	ErrQueueUnavailable = errors.New("dispatch: queue unavailable")
)

// Publisher is the broker-facing write half. *kafka.Producer satisfies it;
// tests use an in-memory fake.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Registry owns every named queue in the process. It is constructed once at
// the composition root and injected into producers and consumers; there is
// no package-level queue state.
type Registry struct {
	mu     sync.Mutex
	pub    Publisher
	log    *zap.Logger
	queues map[string]*Queue
}

func NewRegistry(pub Publisher, log *zap.Logger) *Registry {
	return &Registry{
		pub:    pub,
		log:    log,
		queues: make(map[string]*Queue),
	}
}

// Queue returns the handle for name, creating it on first use. Idempotent:
// the same name always returns the same handle.
func (r *Registry) Queue(name string) *Queue {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.queues[name]; ok {
		return q
	}
	q := &Queue{name: name, pub: r.pub, log: r.log}
	r.queues[name] = q
	return q
}

// Queue is a named durable topic handle.
type Queue struct {
	name string
	pub  Publisher
	log  *zap.Logger
}

func (q *Queue) Name() string { return q.name }

// Enqueue publishes one lifecycle event, keyed by notification ID so one
// notification's events land on one partition. Broker failures come back as
// ErrQueueUnavailable.
func (q *Queue) Enqueue(ctx context.Context, ev types.LifecycleEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("dispatch: marshal event: %w", err)
	}
	key := []byte(ev.NotificationID.String())
	if err := q.pub.Publish(ctx, q.name, key, value); err != nil {
		metrics.QueuePublishFailureTotal.WithLabelValues(q.name).Inc()
		return fmt.Errorf("%w: %s: %v", ErrQueueUnavailable, q.name, err)
	}
	metrics.QueuePublishSuccessTotal.WithLabelValues(q.name).Inc()
	return nil
}

// DeadLetter moves a payload that cannot be processed onto the queue's DLQ
// topic instead of retrying it forever.
func (q *Queue) DeadLetter(ctx context.Context, key, raw []byte, reason string) {
	metrics.QueueDLQTotal.WithLabelValues(q.name, reason).Inc()
	if err := q.pub.Publish(ctx, q.name+".dlq", key, raw); err != nil {
		q.log.Error("dead-letter publish failed",
			zap.String("queue", q.name),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}
