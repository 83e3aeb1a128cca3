package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/enjoys-in/pinglet-sub002/cmd/notify_api/app/internal/services"
	"github.com/enjoys-in/pinglet-sub002/pkg/dispatch"
	"github.com/enjoys-in/pinglet-sub002/pkg/models"
	"github.com/enjoys-in/pinglet-sub002/pkg/types"
)

type NotifyHandler struct {
	service *services.NotificationService
}

func NewNotifyHandler(db *gorm.DB) *NotifyHandler {
	return &NotifyHandler{service: services.NewNotificationService(db)}
}

// Notify encrypts one notification for the calling project and answers with
// the wire envelope. The validation gate has already run; the project is on
// the context.
func (h *NotifyHandler) Notify(emitter *dispatch.Emitter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		project := c.MustGet("project").(*models.Project)

		var req services.NotifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		id, wire, err := h.service.Prepare(project, &req)
		if err != nil {
			log.Error("notification prepare failed",
				zap.String("project_id", project.ID.String()),
				zap.Error(err),
			)
			if id != uuid.Nil {
				emitter.Emit(types.LifecycleEvent{
					Kind:           types.EventFailed,
					ProjectID:      project.ID,
					NotificationID: id,
				})
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not prepare notification"})
			return
		}

		emitter.Emit(types.LifecycleEvent{
			Kind:           types.EventSent,
			ProjectID:      project.ID,
			NotificationID: id,
		})

		c.JSON(http.StatusOK, wire)
	}
}

func (h *NotifyHandler) GetNotification(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
			return
		}
		notification, err := h.service.Get(id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusOK, notification)
	}
}
