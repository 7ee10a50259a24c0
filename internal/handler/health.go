package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health pings both backing stores. Devices hit this before a sync
// cycle to tell an unreachable server apart from a dead local network,
// so it stays unauthenticated and cheap.
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		postgres := "up"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			postgres = "down"
		}

		queue := "up"
		if rdb.Ping(ctx).Err() != nil {
			queue = "down"
		}

		ok := postgres == "up" && queue == "up"
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":       ok,
			"postgres": postgres,
			"redis":    queue,
		})
	}
}
