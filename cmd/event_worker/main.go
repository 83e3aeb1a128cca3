package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/enjoys-in/pinglet-sub002/cmd/event_worker/handler"
	"github.com/enjoys-in/pinglet-sub002/logger"
	"github.com/enjoys-in/pinglet-sub002/metrics"
	"github.com/enjoys-in/pinglet-sub002/middlewares"
	"github.com/enjoys-in/pinglet-sub002/pkg/config"
	"github.com/enjoys-in/pinglet-sub002/pkg/database"
	"github.com/enjoys-in/pinglet-sub002/pkg/dispatch"
	"github.com/enjoys-in/pinglet-sub002/pkg/kafka"
	"github.com/enjoys-in/pinglet-sub002/pkg/models"
	"github.com/enjoys-in/pinglet-sub002/pkg/utils"
	"github.com/enjoys-in/pinglet-sub002/pkg/webhook"
	"github.com/enjoys-in/pinglet-sub002/tracing"
)

func main() {
	_ = godotenv.Load()

	logr, err := logger.InitLogger()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	defer logr.Sync()

	dsn := os.Getenv("DATABASE_URL")
	db, err := database.InitDB(dsn)
	if err != nil {
		panic("failed to initialize Database: " + err.Error())
	}
	if err := database.MigrateDB(db, logr,
		&models.AnalyticsRollup{},
		&models.ProcessedEvent{},
		&models.WebhookDelivery{},
	); err != nil {
		logr.Fatal("migration failed", zap.Error(err))
	}

	logr.Info("Starting event worker service")

	shutdownTracer := tracing.InitTracer("event_worker", logr)
	defer shutdownTracer()
	tracer := otel.Tracer("event_worker")

	metrics.InitWorkerMetrics()
	metrics.InitQueueMetrics()

	cfg, err := config.LoadConfig("./config.yaml")
	if err != nil {
		logr.Fatal(err.Error(), zap.Error(err))
	}
	alertMailer, err := config.BuildMailer(cfg)
	if err != nil {
		logr.Fatal(err.Error(), zap.Error(err))
	}
	logr.Info("Mail service initialized")

	rdb := database.InitRedis(utils.GetEnvDefault("REDIS_ADDR", "localhost:6379"))
	producer := kafka.NewProducerFromEnv()
	registry := dispatch.NewRegistry(producer, logr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := webhook.NewSender(cfg.Webhooks.Timeout)
	handler.RunAnalytics(ctx, registry, db, logr)
	handler.RunWebhooks(ctx, registry, db, sender, logr, tracer)
	handler.RunAlerts(ctx, registry, rdb, db, alertMailer, &cfg.Alerts, utils.GetEnv("ALERT_EMAIL"), logr)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	wrappedMux := middlewares.MetricsMiddleware(mux)
	if err := http.ListenAndServe(":3001", wrappedMux); err != nil {
		logr.Fatal("metrics server failed", zap.Error(err))
	}
}
