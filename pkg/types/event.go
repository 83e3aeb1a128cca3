package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind enumerates the notification lifecycle facts published to the
// dispatcher. Events are immutable once enqueued.
type EventKind string

const (
	EventRequest EventKind = "request"
	EventSent    EventKind = "sent"
	EventFailed  EventKind = "failed"
	EventClicked EventKind = "clicked"
	EventClosed  EventKind = "closed"
	EventDropped EventKind = "dropped"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventRequest, EventSent, EventFailed, EventClicked, EventClosed, EventDropped:
		return true
	}
	return false
}

// Topic returns the queue name carrying this kind of event, in the
// "analytics.notification.<kind>" convention shared with collaborators.
func (k EventKind) Topic() string {
	return "analytics.notification." + string(k)
}

// LifecycleEvent is one fact about one notification, produced by either the
// request path or the widget.
type LifecycleEvent struct {
	Kind           EventKind         `json:"kind"`
	Timestamp      time.Time         `json:"timestamp"`
	ProjectID      uuid.UUID         `json:"project_id"`
	NotificationID uuid.UUID         `json:"notification_id"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// DedupKey identifies an event for consumer-side idempotency. Delivery is
// at-least-once, so consumers key their work on this.
func (e LifecycleEvent) DedupKey() string {
	return fmt.Sprintf("%s:%s:%s", e.ProjectID, e.NotificationID, e.Kind)
}
