package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/enjoys-in/pinglet-sub002/pkg/config"
	"github.com/enjoys-in/pinglet-sub002/pkg/dispatch"
	"github.com/enjoys-in/pinglet-sub002/pkg/kafka"
	"github.com/enjoys-in/pinglet-sub002/pkg/mailer"
	"github.com/enjoys-in/pinglet-sub002/pkg/models"
	"github.com/enjoys-in/pinglet-sub002/pkg/repositories"
	"github.com/enjoys-in/pinglet-sub002/pkg/types"
	"github.com/enjoys-in/pinglet-sub002/pkg/webhook"
)

var lifecycleKinds = []types.EventKind{
	types.EventRequest,
	types.EventSent,
	types.EventFailed,
	types.EventClicked,
	types.EventClosed,
	types.EventDropped,
}

// RunAnalytics consumes every lifecycle topic into daily per-project
// rollups. Redeliveries are absorbed by the processed-event dedup table, so
// a retried or duplicated event never counts twice.
func RunAnalytics(ctx context.Context, registry *dispatch.Registry, db *gorm.DB, logr *zap.Logger) {
	repo := repositories.NewAnalyticsRepository(db)
	for _, kind := range lifecycleKinds {
		topic := kind.Topic()
		c := kafka.NewConsumerFromEnv(topic, "analytics")
		q := registry.Queue(topic)
		go func() {
			defer c.Close()
			dispatch.RunWorker(ctx, c, q, analyticsHandler(repo), logr)
		}()
	}
}

func analyticsHandler(repo *repositories.AnalyticsRepository) dispatch.Handler {
	return func(ctx context.Context, ev types.LifecycleEvent) error {
		fresh, err := repo.MarkProcessed("analytics:" + ev.DedupKey())
		if err != nil {
			return fmt.Errorf("dedup check: %w", err)
		}
		if !fresh {
			return nil
		}
		day := ev.Timestamp.UTC().Format("2006-01-02")
		return repo.IncrementRollup(ev.ProjectID, day, string(ev.Kind))
	}
}

// RunWebhooks fans lifecycle events out to every enabled webhook subscribed
// to the event's kind. A handler error makes the dispatcher retry the whole
// event; receivers dedup on the event's notification ID and kind.
func RunWebhooks(ctx context.Context, registry *dispatch.Registry, db *gorm.DB, sender *webhook.Sender, logr *zap.Logger, tracer trace.Tracer) {
	hooks := repositories.NewWebhookRepository(db)
	for _, kind := range lifecycleKinds {
		topic := kind.Topic()
		c := kafka.NewConsumerFromEnv(topic, "webhooks")
		q := registry.Queue(topic)
		go func() {
			defer c.Close()
			dispatch.RunWorker(ctx, c, q, webhookHandler(hooks, sender, logr, tracer), logr)
		}()
	}
}

func webhookHandler(hooks *repositories.WebhookRepository, sender *webhook.Sender, logr *zap.Logger, tracer trace.Tracer) dispatch.Handler {
	return func(ctx context.Context, ev types.LifecycleEvent) error {
		hookCtx, span := tracer.Start(ctx, "fan-out-webhooks")
		defer span.End()

		subscribed, err := hooks.ListEnabled(ev.ProjectID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "webhook lookup failed")
			return err
		}

		var firstErr error
		for i := range subscribed {
			hook := &subscribed[i]
			if !webhook.Wants(hook, ev.Kind) {
				continue
			}

			start := time.Now()
			_, err := sender.Deliver(hookCtx, hook, ev)
			latency := time.Since(start).Milliseconds()

			delivery := &models.WebhookDelivery{
				WebhookID:      hook.ID,
				NotificationID: ev.NotificationID,
				Status:         "delivered",
				Try:            1,
				LatencyMs:      latency,
			}
			if err != nil {
				span.RecordError(err)
				delivery.Status = "failed"
				delivery.Error = err.Error()
				if payload, mErr := json.Marshal(ev); mErr == nil {
					delivery.Payload = payload
				}
				if firstErr == nil {
					firstErr = err
				}
				logr.Warn("webhook delivery failed",
					zap.String("url", hook.URL),
					zap.String("event", ev.DedupKey()),
					zap.Error(err),
				)
			}
			if err := hooks.CreateDelivery(delivery); err != nil {
				logr.Error("could not record webhook delivery", zap.Error(err))
			}
		}
		return firstErr
	}
}

// processedMarker is the consumer-side dedup table. *AnalyticsRepository
// satisfies it.
type processedMarker interface {
	MarkProcessed(key string) (bool, error)
}

// alertLedger tracks per-project daily failure counts and whether the day's
// digest mail has gone out. Backed by redis; keys expire with the day, so the
// alert re-arms every 24h.
type alertLedger interface {
	Bump(ctx context.Context, projectID uuid.UUID, day string) (int64, error)
	Count(ctx context.Context, projectID uuid.UUID, day string) (int64, error)
	Arm(ctx context.Context, projectID uuid.UUID, day string) (bool, error)
	Disarm(ctx context.Context, projectID uuid.UUID, day string)
}

type redisAlertLedger struct {
	rdb *redis.Client
}

func (l redisAlertLedger) key(projectID uuid.UUID, day string) string {
	return fmt.Sprintf("alerts:%s:%s", projectID, day)
}

func (l redisAlertLedger) Bump(ctx context.Context, projectID uuid.UUID, day string) (int64, error) {
	key := l.key(projectID, day)
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		l.rdb.Expire(ctx, key, 24*time.Hour)
	}
	return count, nil
}

func (l redisAlertLedger) Count(ctx context.Context, projectID uuid.UUID, day string) (int64, error) {
	count, err := l.rdb.Get(ctx, l.key(projectID, day)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}

func (l redisAlertLedger) Arm(ctx context.Context, projectID uuid.UUID, day string) (bool, error) {
	return l.rdb.SetNX(ctx, l.key(projectID, day)+":sent", 1, 24*time.Hour).Result()
}

func (l redisAlertLedger) Disarm(ctx context.Context, projectID uuid.UUID, day string) {
	l.rdb.Del(ctx, l.key(projectID, day)+":sent")
}

// RunAlerts watches the failed topic and mails the operator once a project
// crosses the configured daily failure threshold.
func RunAlerts(ctx context.Context, registry *dispatch.Registry, rdb *redis.Client, db *gorm.DB, m mailer.Mailer, cfg *config.AlertsConfig, to string, logr *zap.Logger) {
	topic := types.EventFailed.Topic()
	c := kafka.NewConsumerFromEnv(topic, "alerts")
	q := registry.Queue(topic)
	repo := repositories.NewAnalyticsRepository(db)
	go func() {
		defer c.Close()
		dispatch.RunWorker(ctx, c, q, alertHandler(repo, redisAlertLedger{rdb: rdb}, m, cfg, to, logr), logr)
	}()
}

// alertHandler counts each failed event once, whatever the delivery count:
// redeliveries and handler retries hit the dedup table and fall through to a
// re-read of the counter. The digest goes out when the count crosses the
// threshold, at most once per project per day; a failed send disarms the
// sent flag so the dispatcher's retry can mail again.
func alertHandler(marker processedMarker, ledger alertLedger, m mailer.Mailer, cfg *config.AlertsConfig, to string, logr *zap.Logger) dispatch.Handler {
	return func(ctx context.Context, ev types.LifecycleEvent) error {
		day := time.Now().UTC().Format("20060102")

		fresh, err := marker.MarkProcessed("alerts:" + ev.DedupKey())
		if err != nil {
			return fmt.Errorf("dedup check: %w", err)
		}
		var count int64
		if fresh {
			count, err = ledger.Bump(ctx, ev.ProjectID, day)
		} else {
			count, err = ledger.Count(ctx, ev.ProjectID, day)
		}
		if err != nil {
			return err
		}
		if count < int64(cfg.Threshold) {
			return nil
		}

		armed, err := ledger.Arm(ctx, ev.ProjectID, day)
		if err != nil {
			return err
		}
		if !armed {
			return nil
		}

		email := mailer.NewEmail(
			cfg.From,
			[]string{to},
			mailer.WithSubject(fmt.Sprintf("Pinglet: project %s hit %d failed notifications today", ev.ProjectID, count)),
			mailer.WithText(fmt.Sprintf(
				"Project %s has reached %d failed notification deliveries on %s. Check the bundle digest pin and widget deployment.",
				ev.ProjectID, count, day,
			)),
		)
		if err := m.Send(email); err != nil {
			ledger.Disarm(ctx, ev.ProjectID, day)
			logr.Error("alert mail failed", zap.Error(err))
			return err
		}
		logr.Info("failure alert mailed", zap.String("project_id", ev.ProjectID.String()))
		return nil
	}
}
