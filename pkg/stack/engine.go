package stack

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/enjoys-in/pinglet-sub002/pkg/rendering"
	"github.com/enjoys-in/pinglet-sub002/pkg/types"
)

// State is an entry's position in its lifecycle. Expired, Dismissed,
// Replaced and Dropped are terminal.
type State int

const (
	StateQueued State = iota
	StateVisible
	StateExpired
	StateDismissed
	StateReplaced
	StateDropped
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateVisible:
		return "visible"
	case StateExpired:
		return "expired"
	case StateDismissed:
		return "dismissed"
	case StateReplaced:
		return "replaced"
	case StateDropped:
		return "dropped"
	}
	return "unknown"
}

// Order controls where a newly admitted toast lands in the visible stack.
type Order int

const (
	NewestFirst Order = iota
	NewestLast
)

// Config is the per-project widget policy.
type Config struct {
	MaxVisible  int
	Order       Order
	AutoDismiss bool
	Duration    time.Duration
	// MaxBacklog bounds the queued (not yet visible) entries. Zero means
	// queue without bound; above the bound new arrivals are dropped with a
	// "dropped" lifecycle event.
	MaxBacklog int
}

// Entry is one toast tracked by the engine.
type Entry struct {
	ID         uuid.UUID
	ProjectID  uuid.UUID
	Tag        string
	Content    rendering.Rendered
	InsertedAt time.Time

	state    State
	deadline time.Time // zero when auto-dismiss is off
	paused   bool
	pausedAt time.Time
	timer    Timer
	gen      uint64 // bumps on every (re)schedule; stale timer fires no-op
}

func (e *Entry) State() State { return e.state }
func (e *Entry) Paused() bool { return e.paused }

// Deadline reports when the entry will auto-expire; zero when auto-dismiss
// is disabled.
func (e *Entry) Deadline() time.Time { return e.deadline }

// Renderer is the single DOM-facing adapter the engine calls into. The
// engine owns all ordering and lifecycle decisions; the renderer only draws.
type Renderer interface {
	Show(e *Entry)
	Remove(e *Entry, final State)
}

// EventFunc receives lifecycle facts (clicked, closed, dropped) the widget
// forwards to the dispatcher. Never called with the engine's lock released
// out of order with the transition that produced the fact.
type EventFunc func(kind types.EventKind, e *Entry)

// Engine is the bounded visible stack. All transitions are serialized under
// one mutex, the Go analogue of the widget's single cooperative thread;
// timer callbacks re-check entry state and generation before acting, so a
// timer firing after a manual dismiss is a no-op.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	clock   Clock
	render  Renderer
	onEvent EventFunc

	visible []*Entry // display order
	queued  []*Entry // arrival order
	closed  bool
}

type Option func(*Engine)

// WithClock substitutes the engine's time source, used by tests.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func New(cfg Config, r Renderer, onEvent EventFunc, opts ...Option) *Engine {
	if cfg.MaxVisible <= 0 {
		cfg.MaxVisible = 3
	}
	if onEvent == nil {
		onEvent = func(types.EventKind, *Entry) {}
	}
	e := &Engine{
		cfg:     cfg,
		clock:   realClock{},
		render:  r,
		onEvent: onEvent,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Insert admits a new notification. An existing entry with the same tag is
// replaced in place rather than stacked; otherwise the entry becomes visible
// if the stack has room, queues in arrival order if not, and is dropped with
// a "dropped" event when the backlog bound is exceeded.
func (s *Engine) Insert(id, projectID uuid.UUID, tag string, content rendering.Rendered) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	entry := &Entry{
		ID:         id,
		ProjectID:  projectID,
		Tag:        tag,
		Content:    content,
		InsertedAt: s.clock.Now(),
	}

	if tag != "" {
		if i, old := s.findVisibleByTag(tag); old != nil {
			s.stopTimer(old)
			old.state = StateReplaced
			s.render.Remove(old, StateReplaced)
			entry.state = StateVisible
			s.visible[i] = entry
			s.scheduleExpiry(entry)
			s.render.Show(entry)
			return entry
		}
		if i, old := s.findQueuedByTag(tag); old != nil {
			old.state = StateReplaced
			entry.state = StateQueued
			s.queued[i] = entry
			return entry
		}
	}

	if len(s.visible) < s.cfg.MaxVisible {
		s.admit(entry)
		return entry
	}

	if s.cfg.MaxBacklog > 0 && len(s.queued) >= s.cfg.MaxBacklog {
		entry.state = StateDropped
		s.onEvent(types.EventDropped, entry)
		return entry
	}

	entry.state = StateQueued
	s.queued = append(s.queued, entry)
	return entry
}

// Dismiss is a user dismissal: Visible -> Dismissed, always emitting a
// "closed" event, then promoting the oldest queued entry.
func (s *Engine) Dismiss(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dismissLocked(id)
}

// Click records a user click, which emits "clicked" before any dismiss
// transition runs.
func (s *Engine) Click(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.findVisible(id)
	if e == nil {
		return
	}
	s.onEvent(types.EventClicked, e)
	s.dismissLocked(id)
}

// Pause suspends an entry's countdown (pointer entered the toast). The
// remaining time is captured so Resume continues the countdown instead of
// restarting it.
func (s *Engine) Pause(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.findVisible(id)
	if e == nil || e.paused {
		return
	}
	e.paused = true
	e.pausedAt = s.clock.Now()
	s.stopTimer(e)
}

// Resume recomputes the deadline from the time spent paused and reschedules
// the expiry timer for exactly the remaining duration.
func (s *Engine) Resume(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.findVisible(id)
	if e == nil || !e.paused {
		return
	}
	e.paused = false
	if !e.deadline.IsZero() {
		pausedFor := s.clock.Now().Sub(e.pausedAt)
		e.deadline = e.deadline.Add(pausedFor)
		remaining := e.deadline.Sub(s.clock.Now())
		s.startTimer(e, remaining)
	}
}

// Visible returns the entries currently on screen, in display order.
func (s *Engine) Visible() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, len(s.visible))
	copy(out, s.visible)
	return out
}

// Queued returns the entries awaiting admission, in arrival order.
func (s *Engine) Queued() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, len(s.queued))
	copy(out, s.queued)
	return out
}

// Close cancels every pending timer. Queued entries are abandoned; their
// dismissal events are not guaranteed to be observed.
func (s *Engine) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, e := range s.visible {
		s.stopTimer(e)
	}
}

func (s *Engine) dismissLocked(id uuid.UUID) {
	i, e := -1, (*Entry)(nil)
	for j, v := range s.visible {
		if v.ID == id {
			i, e = j, v
			break
		}
	}
	if e == nil || e.state != StateVisible {
		return
	}
	s.stopTimer(e)
	e.state = StateDismissed
	s.visible = append(s.visible[:i], s.visible[i+1:]...)
	s.render.Remove(e, StateDismissed)
	s.onEvent(types.EventClosed, e)
	s.promote()
}

func (s *Engine) admit(e *Entry) {
	e.state = StateVisible
	if s.cfg.Order == NewestFirst {
		s.visible = append([]*Entry{e}, s.visible...)
	} else {
		s.visible = append(s.visible, e)
	}
	s.scheduleExpiry(e)
	s.render.Show(e)
}

// promote moves the oldest queued entry into the freed visible slot.
func (s *Engine) promote() {
	if len(s.queued) == 0 || len(s.visible) >= s.cfg.MaxVisible {
		return
	}
	next := s.queued[0]
	s.queued = s.queued[1:]
	s.admit(next)
}

func (s *Engine) scheduleExpiry(e *Entry) {
	if !s.cfg.AutoDismiss || s.cfg.Duration <= 0 {
		return
	}
	e.deadline = s.clock.Now().Add(s.cfg.Duration)
	s.startTimer(e, s.cfg.Duration)
}

func (s *Engine) startTimer(e *Entry, d time.Duration) {
	e.gen++
	gen := e.gen
	id := e.ID
	e.timer = s.clock.AfterFunc(d, func() {
		s.expire(id, gen)
	})
}

func (s *Engine) stopTimer(e *Entry) {
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// expire is the auto-dismiss timer callback. It re-checks state and
// generation: a fire racing a manual dismiss, replace, or pause no-ops.
func (s *Engine) expire(id uuid.UUID, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, e := -1, (*Entry)(nil)
	for j, v := range s.visible {
		if v.ID == id {
			i, e = j, v
			break
		}
	}
	if e == nil || e.state != StateVisible || e.gen != gen || e.paused {
		return
	}
	e.state = StateExpired
	e.timer = nil
	s.visible = append(s.visible[:i], s.visible[i+1:]...)
	s.render.Remove(e, StateExpired)
	s.promote()
}

func (s *Engine) findVisible(id uuid.UUID) *Entry {
	for _, e := range s.visible {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (s *Engine) findVisibleByTag(tag string) (int, *Entry) {
	for i, e := range s.visible {
		if e.Tag == tag {
			return i, e
		}
	}
	return -1, nil
}

func (s *Engine) findQueuedByTag(tag string) (int, *Entry) {
	for i, e := range s.queued {
		if e.Tag == tag {
			return i, e
		}
	}
	return -1, nil
}
