package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/enjoys-in/pinglet-sub002/cmd/notify_api/app/routes"
	"github.com/enjoys-in/pinglet-sub002/logger"
	"github.com/enjoys-in/pinglet-sub002/metrics"
	"github.com/enjoys-in/pinglet-sub002/middlewares"
	"github.com/enjoys-in/pinglet-sub002/pkg/database"
	"github.com/enjoys-in/pinglet-sub002/pkg/dispatch"
	"github.com/enjoys-in/pinglet-sub002/pkg/kafka"
	"github.com/enjoys-in/pinglet-sub002/pkg/models"
	"github.com/enjoys-in/pinglet-sub002/pkg/utils"
	"github.com/enjoys-in/pinglet-sub002/tracing"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	logr, err := logger.InitLogger()
	if err != nil {
		panic("Failed to initialize zap logger: " + err.Error())
	}
	logr.Info("Logger initialized")

	dsn := os.Getenv("DATABASE_URL")
	db, err := database.InitDB(dsn)
	if err != nil {
		panic("DB not init  " + err.Error())
	}
	if err := database.MigrateDB(db, logr,
		&models.Project{},
		&models.Template{},
		&models.Notification{},
		&models.Webhook{},
		&models.WebhookDelivery{},
	); err != nil {
		logr.Fatal("migration failed", zap.Error(err))
	}

	shutdownTracer := tracing.InitTracer("notify_api", logr)
	defer shutdownTracer()

	metrics.InitAPIMetrics()
	metrics.InitQueueMetrics()

	redisClient := database.InitRedis(utils.GetEnvDefault("REDIS_ADDR", "localhost:6379"))

	producer := kafka.NewProducerFromEnv()
	registry := dispatch.NewRegistry(producer, logr)
	emitter := dispatch.NewEmitter(registry, 256, logr)
	logr.Info("Event dispatcher initialized", zap.String("broker", utils.GetEnv("KAFKA_BROKER")))

	router := gin.Default()
	router.Use(middlewares.GinMetricsMiddleware())

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middlewares.NewRateLimiter(rate.Limit(20), 40)

	v1 := router.Group("/api")
	v1.Use(limiter.Middleware())
	routes.Notify(v1.Group("/notify"), db, redisClient, emitter, logr)
	routes.Events(v1.Group("/events"), db, redisClient, emitter, logr)
	routes.Projects(v1.Group("/projects"), db, redisClient, logr)
	routes.Webhooks(v1.Group("/webhooks"), db, logr)
	routes.Templates(v1.Group("/templates"), db, logr)

	go handleShutdown(producer, emitter, logr)
	if err := router.Run(":3000"); err != nil {
		logr.Fatal("Failed to start server", zap.Error(err))
	}
}

func handleShutdown(producer *kafka.Producer, emitter *dispatch.Emitter, log *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Shutdown signal received", zap.String("signal", sig.String()))

	emitter.Close()
	if err := producer.Close(); err != nil {
		log.Error("Error closing Kafka producer", zap.Error(err))
	} else {
		log.Info("Kafka producer closed cleanly")
	}

	os.Exit(0)
}
