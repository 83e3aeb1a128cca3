package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/enjoys-in/pinglet-sub002/cmd/notify_api/app/internal/handler"
	"github.com/enjoys-in/pinglet-sub002/middlewares"
	"github.com/enjoys-in/pinglet-sub002/pkg/dispatch"
)

// Notify wires the widget-facing surface. Everything here sits behind the
// validation gate.
func Notify(router *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, emitter *dispatch.Emitter, log *zap.Logger) {
	notifyHandler := handler.NewNotifyHandler(db)
	gate := middlewares.ValidateRequest(&middlewares.ValidatorConfig{
		RedisClient: redisClient,
		DB:          db,
		Emitter:     emitter,
		Log:         log,
	})

	router.POST("/", gate, notifyHandler.Notify(emitter, log))
	router.GET("/:id", gate, notifyHandler.GetNotification(log))
}

func Events(router *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, emitter *dispatch.Emitter, log *zap.Logger) {
	gate := middlewares.ValidateRequest(&middlewares.ValidatorConfig{
		RedisClient: redisClient,
		DB:          db,
		Emitter:     emitter,
		Log:         log,
	})
	router.POST("/", gate, handler.IngestEvent(emitter))
}

func Projects(r *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, log *zap.Logger) {
	projectHandler := handler.NewProjectHandler(db, redisClient)
	r.POST("/", projectHandler.CreateProject)
	r.GET("/:id", projectHandler.GetProject)
	r.POST("/:id/rotate", projectHandler.RotateBundle)
	r.DELETE("/:id", projectHandler.DeleteProject)
}

func Webhooks(r *gin.RouterGroup, db *gorm.DB, log *zap.Logger) {
	webhookHandler := handler.NewWebhookHandler(db)
	r.POST("/", webhookHandler.CreateWebhook)
	r.GET("/:id", webhookHandler.GetWebhook)
	r.DELETE("/:id", webhookHandler.DeleteWebhook)
}

func Templates(r *gin.RouterGroup, db *gorm.DB, log *zap.Logger) {
	templateHandler := handler.NewTemplateHandler(db)
	r.POST("/", templateHandler.CreateTemplate)
	r.GET("/:id", templateHandler.GetTemplateByID)
	r.PUT("/:id", templateHandler.UpdateTemplate)
	r.DELETE("/:id", templateHandler.DeleteTemplate)
}
