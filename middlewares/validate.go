package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/enjoys-in/pinglet-sub002/metrics"
	"github.com/enjoys-in/pinglet-sub002/pkg/auth"
	"github.com/enjoys-in/pinglet-sub002/pkg/database"
	"github.com/enjoys-in/pinglet-sub002/pkg/dispatch"
	"github.com/enjoys-in/pinglet-sub002/pkg/models"
	"github.com/enjoys-in/pinglet-sub002/pkg/types"
)

// ValidationContext is built from request headers and discarded after the
// gate decision. It is never persisted.
type ValidationContext struct {
	ProjectID   string
	Timestamp   string
	Signature   string
	Checksum    string
	Version     string
	Fingerprint string
}

type ValidatorConfig struct {
	RedisClient *redis.Client
	DB          *gorm.DB
	Emitter     *dispatch.Emitter
	Log         *zap.Logger
	// SkewWindow bounds |now - timestamp|; zero means auth.DefaultSkewWindow.
	SkewWindow time.Duration
	// Lookup overrides the redis/postgres project lookup, used by tests.
	Lookup func(projectID uuid.UUID) (*models.Project, error)
}

// reject answers every validation failure identically, whatever check
// failed, so the response carries no oracle about the gate's internals.
func reject(c *gin.Context, reason string) {
	metrics.ValidationRejectionsTotal.WithLabelValues(reason).Inc()
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// ValidateRequest is the admission gate for widget traffic. It runs before
// any business logic: a request missing project identity, freshness, or a
// verifiable signature never reaches a handler.
func ValidateRequest(cfg *ValidatorConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		vc := ValidationContext{
			ProjectID:   c.GetHeader("X-Project-ID"),
			Timestamp:   c.GetHeader("X-Timestamp"),
			Signature:   c.GetHeader("X-Pinglet-Signature"),
			Checksum:    c.GetHeader("X-Pinglet-Checksum"),
			Version:     c.GetHeader("X-Pinglet-Version"),
			Fingerprint: c.GetHeader("X-Fingerprint"),
		}

		if vc.ProjectID == "" || vc.Timestamp == "" || vc.Signature == "" {
			reject(c, "missing_headers")
			return
		}

		projectID, err := uuid.Parse(vc.ProjectID)
		if err != nil {
			reject(c, "bad_project_id")
			return
		}

		lookup := cfg.Lookup
		if lookup == nil {
			lookup = func(id uuid.UUID) (*models.Project, error) {
				return lookupProject(c, cfg, id)
			}
		}
		project, err := lookup(projectID)
		if err != nil {
			reject(c, "unknown_project")
			return
		}

		if project.Secret != "" {
			err := auth.VerifyRequest([]byte(project.Secret), vc.ProjectID, vc.Timestamp, vc.Signature, time.Now(), cfg.SkewWindow)
			if err != nil {
				reject(c, rejectionReason(err))
				return
			}

			if cfg.RedisClient != nil {
				// A signature seen twice inside the skew window is a replay.
				replayKey := fmt.Sprintf("replay:%s:%s", vc.ProjectID, vc.Signature)
				window := cfg.SkewWindow
				if window <= 0 {
					window = auth.DefaultSkewWindow
				}
				fresh, err := cfg.RedisClient.SetNX(ctx, replayKey, 1, 2*window).Result()
				if err == nil && !fresh {
					reject(c, "replay")
					return
				}
			}
		}

		c.Set("project", project)
		c.Set("project_id", projectID)
		c.Set("validation", vc)

		// Best-effort analytics; a full buffer or a down broker never fails
		// the request.
		if cfg.Emitter != nil {
			cfg.Emitter.Emit(types.LifecycleEvent{
				Kind:      types.EventRequest,
				ProjectID: projectID,
				Metadata: map[string]string{
					"version":     vc.Version,
					"fingerprint": vc.Fingerprint,
				},
			})
		}

		c.Next()
	}
}

func rejectionReason(err error) string {
	switch err {
	case auth.ErrSignatureMismatch:
		return "signature_mismatch"
	case auth.ErrStaleTimestamp:
		return "stale_timestamp"
	case auth.ErrBadTimestamp:
		return "bad_timestamp"
	}
	return "invalid"
}

// lookupProject reads the project through a short-lived redis cache to keep
// the hot path off postgres.
func lookupProject(c *gin.Context, cfg *ValidatorConfig, projectID uuid.UUID) (*models.Project, error) {
	ctx := c.Request.Context()
	cacheKey := database.ProjectCacheKey(projectID)

	val, err := cfg.RedisClient.HGetAll(ctx, cacheKey).Result()
	if err == nil && len(val) > 0 {
		maxVisible := 0
		durationMs := 0
		fmt.Sscanf(val["max_visible"], "%d", &maxVisible)
		fmt.Sscanf(val["duration_ms"], "%d", &durationMs)
		return &models.Project{
			ID:           projectID,
			Secret:       val["secret"],
			BundleDigest: val["bundle_digest"],
			MaxVisible:   maxVisible,
			StackOrder:   val["stack_order"],
			DurationMs:   durationMs,
		}, nil
	}

	var project models.Project
	if err := cfg.DB.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, err
	}

	cfg.RedisClient.HSet(ctx, cacheKey, map[string]interface{}{
		"secret":        project.Secret,
		"bundle_digest": project.BundleDigest,
		"max_visible":   project.MaxVisible,
		"stack_order":   project.StackOrder,
		"duration_ms":   project.DurationMs,
	})
	cfg.RedisClient.Expire(ctx, cacheKey, 10*time.Minute)

	return &project, nil
}
