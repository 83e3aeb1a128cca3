package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/enjoys-in/pinglet-sub002/pkg/types"
)

type fakePublisher struct {
	mu     sync.Mutex
	topics map[string][][]byte
	err    error
	gate   chan struct{} // when non-nil, Publish blocks until the gate closes
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{topics: make(map[string][][]byte)}
}

func (f *fakePublisher) Publish(_ context.Context, topic string, _, value []byte) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.topics[topic] = append(f.topics[topic], value)
	return nil
}

func (f *fakePublisher) count(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.topics[topic])
}

type fakeConsumer struct {
	msgs    chan Message
	mu      sync.Mutex
	commits int
}

func (f *fakeConsumer) Fetch(ctx context.Context) (Message, error) {
	select {
	case m := <-f.msgs:
		return m, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (f *fakeConsumer) Commit(context.Context, Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

func (f *fakeConsumer) committed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits
}

func testEvent(kind types.EventKind) types.LifecycleEvent {
	return types.LifecycleEvent{
		Kind:           kind,
		Timestamp:      time.Now().UTC(),
		ProjectID:      uuid.New(),
		NotificationID: uuid.New(),
	}
}

func TestRegistryQueueIdempotent(t *testing.T) {
	reg := NewRegistry(newFakePublisher(), zap.NewNop())

	q1 := reg.Queue("analytics.notification.sent")
	q2 := reg.Queue("analytics.notification.sent")
	if q1 != q2 {
		t.Error("same queue name returned different handles")
	}
	if q3 := reg.Queue("analytics.notification.failed"); q3 == q1 {
		t.Error("different queue names shared a handle")
	}
}

func TestEnqueueQueueUnavailable(t *testing.T) {
	pub := newFakePublisher()
	pub.err = errors.New("broker down")
	reg := NewRegistry(pub, zap.NewNop())

	err := reg.Queue("analytics.notification.sent").Enqueue(context.Background(), testEvent(types.EventSent))
	if !errors.Is(err, ErrQueueUnavailable) {
		t.Errorf("expected ErrQueueUnavailable, got %v", err)
	}
}

func TestEmitterFlushesToPerKindTopics(t *testing.T) {
	pub := newFakePublisher()
	reg := NewRegistry(pub, zap.NewNop())
	em := NewEmitter(reg, 64, zap.NewNop())

	em.Emit(testEvent(types.EventSent))
	em.Emit(testEvent(types.EventSent))
	em.Emit(testEvent(types.EventClicked))
	em.Close()

	if got := pub.count("analytics.notification.sent"); got != 2 {
		t.Errorf("sent topic got %d events, want 2", got)
	}
	if got := pub.count("analytics.notification.clicked"); got != 1 {
		t.Errorf("clicked topic got %d events, want 1", got)
	}
}

func TestEmitNeverBlocks(t *testing.T) {
	pub := newFakePublisher()
	pub.gate = make(chan struct{})
	defer close(pub.gate)

	reg := NewRegistry(pub, zap.NewNop())
	em := NewEmitter(reg, 4, zap.NewNop())

	done := make(chan struct{})
	go func() {
		// far more events than the buffer holds, against a stuck broker
		for i := 0; i < 100; i++ {
			em.Emit(testEvent(types.EventClosed))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a stuck broker")
	}
}

func TestEmitDuringCloseDoesNotPanic(t *testing.T) {
	pub := newFakePublisher()
	reg := NewRegistry(pub, zap.NewNop())
	em := NewEmitter(reg, 8, zap.NewNop())

	// request handlers keep emitting while shutdown runs
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			em.Emit(testEvent(types.EventSent))
		}
		close(done)
	}()

	em.Close()
	<-done

	// late stragglers after Close are dropped, not a panic
	em.Emit(testEvent(types.EventSent))
	em.Close() // idempotent
}

func TestWorkerEffectivelyOnceUnderRetries(t *testing.T) {
	old := baseBackoff
	baseBackoff = 2 * time.Millisecond
	defer func() { baseBackoff = old }()

	pub := newFakePublisher()
	reg := NewRegistry(pub, zap.NewNop())
	q := reg.Queue("analytics.notification.sent")

	c := &fakeConsumer{msgs: make(chan Message, 100)}
	events := make(map[string]bool, 100)
	for i := 0; i < 100; i++ {
		ev := testEvent(types.EventSent)
		events[ev.DedupKey()] = true
		raw, err := json.Marshal(ev)
		if err != nil {
			t.Fatal(err)
		}
		c.msgs <- Message{Key: []byte(ev.NotificationID.String()), Value: raw}
	}

	var mu sync.Mutex
	attempts := make(map[string]int)
	acked := make(map[string]bool)
	handler := func(_ context.Context, ev types.LifecycleEvent) error {
		mu.Lock()
		defer mu.Unlock()
		key := ev.DedupKey()
		attempts[key]++
		// every tenth event fails its first attempt
		if attempts[key] == 1 && len(attempts)%10 == 0 {
			return errors.New("transient failure")
		}
		acked[key] = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		RunWorker(ctx, c, q, handler, zap.NewNop())
		close(workerDone)
	}()

	deadline := time.After(5 * time.Second)
	for {
		mu.Lock()
		n := len(acked)
		mu.Unlock()
		if n == 100 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("only %d/100 events acknowledged", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-workerDone

	for key := range events {
		if !acked[key] {
			t.Errorf("event %s lost", key)
		}
	}
	if c.committed() != 100 {
		t.Errorf("committed %d messages, want 100", c.committed())
	}
	if pub.count("analytics.notification.sent.dlq") != 0 {
		t.Error("transient failures must not reach the DLQ")
	}
}

func TestWorkerDeadLettersMalformedPayload(t *testing.T) {
	pub := newFakePublisher()
	reg := NewRegistry(pub, zap.NewNop())
	q := reg.Queue("analytics.notification.sent")

	c := &fakeConsumer{msgs: make(chan Message, 1)}
	c.msgs <- Message{Key: []byte("k"), Value: []byte("not json at all")}

	handler := func(context.Context, types.LifecycleEvent) error {
		t.Error("handler must not run for a malformed payload")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		RunWorker(ctx, c, q, handler, zap.NewNop())
		close(workerDone)
	}()

	deadline := time.After(2 * time.Second)
	for pub.count("analytics.notification.sent.dlq") == 0 {
		select {
		case <-deadline:
			t.Fatal("malformed payload never dead-lettered")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-workerDone

	if c.committed() != 1 {
		t.Errorf("dead-lettered message not acknowledged: commits = %d", c.committed())
	}
}

func TestWorkerDeadLettersAfterPermanentFailure(t *testing.T) {
	old := baseBackoff
	baseBackoff = 2 * time.Millisecond
	defer func() { baseBackoff = old }()

	pub := newFakePublisher()
	reg := NewRegistry(pub, zap.NewNop())
	q := reg.Queue("analytics.notification.failed")

	ev := testEvent(types.EventFailed)
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	c := &fakeConsumer{msgs: make(chan Message, 1)}
	c.msgs <- Message{Key: []byte("k"), Value: raw}

	handler := func(context.Context, types.LifecycleEvent) error {
		return errors.New("always failing")
	}

	ctx, cancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		RunWorker(ctx, c, q, handler, zap.NewNop())
		close(workerDone)
	}()

	deadline := time.After(2 * time.Second)
	for pub.count("analytics.notification.failed.dlq") == 0 {
		select {
		case <-deadline:
			t.Fatal("permanently failing event never dead-lettered")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-workerDone
}
