package database

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func InitRedis(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

// ProjectCacheKey names the redis hash holding a project's gate-relevant
// fields (secret, bundle digest, widget policy). The validation middleware
// reads through it; every project mutation must invalidate it, or the gate
// keeps admitting and sealing against stale material.
func ProjectCacheKey(projectID uuid.UUID) string {
	return fmt.Sprintf("project:%s", projectID)
}
