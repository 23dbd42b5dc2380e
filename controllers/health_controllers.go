package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewHealthController(db *gorm.DB, rdb *redis.Client) *HealthController {
	return &HealthController{DB: db, Redis: rdb}
}

// Health reports liveness of the service and its dependencies.
func (hc *HealthController) Health(c *gin.Context) {
	status := http.StatusOK
	dbState := "up"
	if sqlDB, err := hc.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbState = "down"
		status = http.StatusServiceUnavailable
	}

	redisState := "disabled"
	if hc.Redis != nil {
		redisState = "up"
		if err := hc.Redis.Ping(c.Request.Context()).Err(); err != nil {
			// Cache/backplane outage degrades, it does not take the service down
			redisState = "down"
		}
	}

	c.JSON(status, gin.H{
		"service": "notification-service",
		"db":      dbState,
		"redis":   redisState,
	})
}
