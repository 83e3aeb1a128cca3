package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/enjoys-in/pinglet-sub002/pkg/dispatch"
	"github.com/enjoys-in/pinglet-sub002/pkg/types"
)

type widgetEvent struct {
	Kind           string            `json:"kind" binding:"required"`
	NotificationID uuid.UUID         `json:"notification_id" binding:"required"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// IngestEvent accepts lifecycle facts reported by the widget (clicked,
// closed, dropped). The enqueue is best-effort: the widget gets 202 whether
// or not the broker is reachable.
func IngestEvent(emitter *dispatch.Emitter) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.MustGet("project_id").(uuid.UUID)

		var req widgetEvent
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
			return
		}

		kind := types.EventKind(req.Kind)
		switch kind {
		case types.EventClicked, types.EventClosed, types.EventDropped, types.EventFailed:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
			return
		}

		emitter.Emit(types.LifecycleEvent{
			Kind:           kind,
			ProjectID:      projectID,
			NotificationID: req.NotificationID,
			Metadata:       req.Metadata,
		})

		c.JSON(http.StatusAccepted, gin.H{"message": "accepted"})
	}
}
