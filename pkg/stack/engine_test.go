package stack

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/enjoys-in/pinglet-sub002/pkg/rendering"
	"github.com/enjoys-in/pinglet-sub002/pkg/types"
)

type fakeTimer struct {
	deadline time.Time
	f        func()
	fired    bool
	stopped  bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return !t.fired
}

// fakeClock drives the engine's expiry timers deterministically. Advance
// fires due timers in deadline order with the clock's own lock released, the
// way time.AfterFunc callbacks run off the engine's lock.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{deadline: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.deadline.After(target) {
				continue
			}
			if next == nil || t.deadline.Before(next.deadline) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.deadline
		next.fired = true
		c.mu.Unlock()
		next.f()
	}
}

type renderCall struct {
	op    string // "show" or "remove"
	id    uuid.UUID
	final State
}

type fakeRenderer struct {
	calls []renderCall
}

func (r *fakeRenderer) Show(e *Entry) {
	r.calls = append(r.calls, renderCall{op: "show", id: e.ID})
}

func (r *fakeRenderer) Remove(e *Entry, final State) {
	r.calls = append(r.calls, renderCall{op: "remove", id: e.ID, final: final})
}

func (r *fakeRenderer) removals(id uuid.UUID) []State {
	var out []State
	for _, c := range r.calls {
		if c.op == "remove" && c.id == id {
			out = append(out, c.final)
		}
	}
	return out
}

type recordedEvent struct {
	kind types.EventKind
	id   uuid.UUID
}

type eventRecorder struct {
	events []recordedEvent
}

func (r *eventRecorder) record(kind types.EventKind, e *Entry) {
	r.events = append(r.events, recordedEvent{kind: kind, id: e.ID})
}

func (r *eventRecorder) kinds() []types.EventKind {
	out := make([]types.EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.kind
	}
	return out
}

func newTestEngine(cfg Config) (*Engine, *fakeRenderer, *eventRecorder, *fakeClock) {
	r := &fakeRenderer{}
	rec := &eventRecorder{}
	clk := newFakeClock()
	return New(cfg, r, rec.record, WithClock(clk)), r, rec, clk
}

func content(title string) rendering.Rendered {
	return rendering.Rendered{Title: title}
}

func visibleIDs(e *Engine) []uuid.UUID {
	var out []uuid.UUID
	for _, v := range e.Visible() {
		out = append(out, v.ID)
	}
	return out
}

func TestInsertAdmitsUpToMaxVisible(t *testing.T) {
	eng, _, _, _ := newTestEngine(Config{MaxVisible: 3, Order: NewestLast})
	proj := uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		id := uuid.New()
		ids = append(ids, id)
		eng.Insert(id, proj, "", content("n"))
	}

	vis, queued := eng.Visible(), eng.Queued()
	if len(vis) != 3 || len(queued) != 2 {
		t.Fatalf("got %d visible, %d queued; want 3 and 2", len(vis), len(queued))
	}
	// arrival order is preserved on both sides
	for i, v := range vis {
		if v.ID != ids[i] {
			t.Errorf("visible[%d] = %s, want %s", i, v.ID, ids[i])
		}
	}
	for i, q := range queued {
		if q.ID != ids[3+i] {
			t.Errorf("queued[%d] = %s, want %s", i, q.ID, ids[3+i])
		}
		if q.State() != StateQueued {
			t.Errorf("queued[%d] state = %s, want queued", i, q.State())
		}
	}
}

func TestNewestFirstOrdering(t *testing.T) {
	eng, _, _, _ := newTestEngine(Config{MaxVisible: 3, Order: NewestFirst})
	proj := uuid.New()

	a := eng.Insert(uuid.New(), proj, "", content("a"))
	b := eng.Insert(uuid.New(), proj, "", content("b"))
	c := eng.Insert(uuid.New(), proj, "", content("c"))

	got := visibleIDs(eng)
	want := []uuid.UUID{c.ID, b.ID, a.ID}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("visible = %v, want newest first %v", got, want)
		}
	}
}

func TestTagReplacesVisibleInPlace(t *testing.T) {
	eng, r, rec, _ := newTestEngine(Config{MaxVisible: 3, Order: NewestLast})
	proj := uuid.New()

	a := eng.Insert(uuid.New(), proj, "", content("a"))
	old := eng.Insert(uuid.New(), proj, "progress", content("10%"))
	c := eng.Insert(uuid.New(), proj, "", content("c"))

	repl := eng.Insert(uuid.New(), proj, "progress", content("90%"))

	got := visibleIDs(eng)
	want := []uuid.UUID{a.ID, repl.ID, c.ID}
	if len(got) != 3 {
		t.Fatalf("got %d visible, want 3", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("replacement moved: visible = %v, want %v", got, want)
		}
	}
	if old.State() != StateReplaced {
		t.Errorf("old entry state = %s, want replaced", old.State())
	}
	if fin := r.removals(old.ID); len(fin) != 1 || fin[0] != StateReplaced {
		t.Errorf("old entry removals = %v, want one replaced removal", fin)
	}
	// replacement is not a user action: no clicked/closed events
	if len(rec.events) != 0 {
		t.Errorf("unexpected lifecycle events %v", rec.kinds())
	}
}

func TestTagReplacesQueuedInPlace(t *testing.T) {
	eng, _, _, _ := newTestEngine(Config{MaxVisible: 1, Order: NewestLast})
	proj := uuid.New()

	eng.Insert(uuid.New(), proj, "", content("visible"))
	old := eng.Insert(uuid.New(), proj, "progress", content("10%"))
	repl := eng.Insert(uuid.New(), proj, "progress", content("90%"))

	queued := eng.Queued()
	if len(queued) != 1 || queued[0].ID != repl.ID {
		t.Fatalf("queued = %d entries, want just the replacement", len(queued))
	}
	if old.State() != StateReplaced {
		t.Errorf("old queued entry state = %s, want replaced", old.State())
	}
}

func TestDismissPromotesOldestQueued(t *testing.T) {
	eng, _, rec, _ := newTestEngine(Config{MaxVisible: 3, Order: NewestLast})
	proj := uuid.New()

	a := eng.Insert(uuid.New(), proj, "", content("a"))
	b := eng.Insert(uuid.New(), proj, "", content("b"))
	c := eng.Insert(uuid.New(), proj, "", content("c"))
	d := eng.Insert(uuid.New(), proj, "", content("d"))

	eng.Dismiss(a.ID)

	got := visibleIDs(eng)
	want := []uuid.UUID{b.ID, c.ID, d.ID}
	if len(got) != 3 {
		t.Fatalf("got %d visible, want 3", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("visible after dismiss = %v, want %v", got, want)
		}
	}
	if len(eng.Queued()) != 0 {
		t.Error("promoted entry still queued")
	}
	if d.State() != StateVisible {
		t.Errorf("promoted entry state = %s, want visible", d.State())
	}
	if kinds := rec.kinds(); len(kinds) != 1 || kinds[0] != types.EventClosed {
		t.Errorf("events = %v, want one closed", kinds)
	}
}

func TestClickEmitsClickedBeforeClosed(t *testing.T) {
	eng, _, rec, _ := newTestEngine(Config{MaxVisible: 3})
	proj := uuid.New()

	e := eng.Insert(uuid.New(), proj, "", content("n"))
	eng.Click(e.ID)

	kinds := rec.kinds()
	if len(kinds) != 2 || kinds[0] != types.EventClicked || kinds[1] != types.EventClosed {
		t.Fatalf("events = %v, want [clicked closed]", kinds)
	}
	if e.State() != StateDismissed {
		t.Errorf("state = %s, want dismissed", e.State())
	}
}

func TestAutoDismissExpiresAndPromotes(t *testing.T) {
	eng, r, _, clk := newTestEngine(Config{
		MaxVisible:  1,
		AutoDismiss: true,
		Duration:    5 * time.Second,
	})
	proj := uuid.New()

	a := eng.Insert(uuid.New(), proj, "", content("a"))
	b := eng.Insert(uuid.New(), proj, "", content("b"))

	clk.Advance(4 * time.Second)
	if a.State() != StateVisible {
		t.Fatal("entry expired before its duration elapsed")
	}

	clk.Advance(time.Second)
	if a.State() != StateExpired {
		t.Fatalf("state = %s, want expired", a.State())
	}
	if fin := r.removals(a.ID); len(fin) != 1 || fin[0] != StateExpired {
		t.Errorf("removals = %v, want one expired removal", fin)
	}
	if got := visibleIDs(eng); len(got) != 1 || got[0] != b.ID {
		t.Error("queued entry not promoted after expiry")
	}
}

func TestPauseExtendsDeadlineByPausedTime(t *testing.T) {
	eng, _, _, clk := newTestEngine(Config{
		MaxVisible:  3,
		AutoDismiss: true,
		Duration:    5 * time.Second,
	})
	proj := uuid.New()

	e := eng.Insert(uuid.New(), proj, "", content("n"))
	deadline := e.Deadline()

	clk.Advance(2 * time.Second)
	eng.Pause(e.ID)
	clk.Advance(3 * time.Second) // past the original deadline while paused
	if e.State() != StateVisible {
		t.Fatal("paused entry expired")
	}
	eng.Resume(e.ID)

	if want := deadline.Add(3 * time.Second); !e.Deadline().Equal(want) {
		t.Fatalf("deadline = %v, want %v (extended by pause)", e.Deadline(), want)
	}

	clk.Advance(2 * time.Second)
	if e.State() != StateVisible {
		t.Fatal("entry expired before its remaining time elapsed")
	}
	clk.Advance(time.Second)
	if e.State() != StateExpired {
		t.Fatalf("state = %s, want expired after remaining time", e.State())
	}
}

func TestStaleTimerIsNoOpAfterDismiss(t *testing.T) {
	eng, r, _, clk := newTestEngine(Config{
		MaxVisible:  3,
		AutoDismiss: true,
		Duration:    5 * time.Second,
	})
	proj := uuid.New()

	e := eng.Insert(uuid.New(), proj, "", content("n"))
	eng.Dismiss(e.ID)
	clk.Advance(10 * time.Second)

	if e.State() != StateDismissed {
		t.Fatalf("state = %s, want dismissed to stick", e.State())
	}
	if fin := r.removals(e.ID); len(fin) != 1 || fin[0] != StateDismissed {
		t.Errorf("removals = %v, want a single dismissed removal", fin)
	}
}

func TestBacklogOverflowDropsWithEvent(t *testing.T) {
	eng, _, rec, _ := newTestEngine(Config{MaxVisible: 1, MaxBacklog: 1})
	proj := uuid.New()

	eng.Insert(uuid.New(), proj, "", content("visible"))
	eng.Insert(uuid.New(), proj, "", content("queued"))
	dropped := eng.Insert(uuid.New(), proj, "", content("over"))

	if dropped.State() != StateDropped {
		t.Fatalf("state = %s, want dropped", dropped.State())
	}
	kinds := rec.kinds()
	if len(kinds) != 1 || kinds[0] != types.EventDropped {
		t.Fatalf("events = %v, want one dropped", kinds)
	}
	if len(eng.Queued()) != 1 {
		t.Error("dropped entry leaked into the backlog")
	}
}

func TestCloseRejectsNewInserts(t *testing.T) {
	eng, r, _, _ := newTestEngine(Config{MaxVisible: 3})
	proj := uuid.New()

	eng.Insert(uuid.New(), proj, "", content("before"))
	eng.Close()
	if e := eng.Insert(uuid.New(), proj, "", content("after")); e != nil {
		t.Error("insert after close returned an entry")
	}
	if n := len(r.calls); n != 1 {
		t.Errorf("renderer saw %d calls after close, want just the first show", n)
	}
}
