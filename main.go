package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/smartcommerce/notification-service/config"
	"github.com/smartcommerce/notification-service/database"
	"github.com/smartcommerce/notification-service/middlewares"
	"github.com/smartcommerce/notification-service/realtime"
	"github.com/smartcommerce/notification-service/router"
	"github.com/smartcommerce/notification-service/services"
	"github.com/smartcommerce/notification-service/utils"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	utils.InfoLogger = logrus.New()
	utils.ErrorLogger = logrus.New()

	utils.InfoLogger.SetOutput(os.Stdout)
	utils.ErrorLogger.SetOutput(os.Stderr)

	utils.InfoLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
	utils.ErrorLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
}

// envDuration -> parsed duration from env, 0 when unset or invalid
func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Warning: ignoring invalid %s %q: %v", key, v, err)
		return 0
	}
	return d
}

func main() {
	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	rdb, err := config.InitRedis()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to redis: %v", err)
	}
	if rdb == nil {
		utils.InfoLogger.Println("REDIS_ADDR not set; running without cache and cross-instance broadcast")
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate schema: %v", err)
	}

	// Persistence and policy
	store := services.NewNotificationStore(db)
	gate := services.NewPreferenceGate(store)

	// Unread-count cache, nil backend degrades to direct store counts
	var kv services.KVCache
	if rdb != nil {
		kv = &services.RedisKV{Client: rdb}
	}
	cache := services.NewUnreadCountCache(store, kv)

	// Live channel: Redis backplane when available, local loopback otherwise
	var backplane realtime.Backplane
	if rdb != nil {
		backplane = realtime.NewRedisBackplane(rdb)
	} else {
		backplane = realtime.NewLoopbackBackplane()
	}
	hub := realtime.NewHub(backplane, realtime.DenyAllOrders{})
	defer backplane.Close()

	// Channel fan-out
	orchestrator := services.NewDeliveryOrchestrator(
		store,
		gate,
		services.NewSMTPEmailSenderFromEnv(),
		services.NewGatewaySmsSenderFromEnv(),
		services.NewGatewayPushSenderFromEnv(),
		services.NewHTTPUserDirectoryFromEnv(),
	)

	// Background sweeps, cadences overridable per deployment
	scheduler := services.NewRetryScheduler(store, orchestrator, rdb)
	if d := envDuration("SCHEDULER_DISPATCH_INTERVAL"); d > 0 {
		scheduler.DispatchEvery = d
	}
	if d := envDuration("SCHEDULER_RETRY_INTERVAL"); d > 0 {
		scheduler.RetryEvery = d
	}
	if d := envDuration("SCHEDULER_CLEANUP_INTERVAL"); d > 0 {
		scheduler.CleanupEvery = d
	}
	scheduler.Start()
	defer scheduler.Stop()

	r := router.SetupRouter(router.Deps{
		DB:           db,
		Redis:        rdb,
		Store:        store,
		Cache:        cache,
		Hub:          hub,
		Orchestrator: orchestrator,
	})

	rateLimiter := middlewares.NewRateLimiter(50, 1)
	r.Use(rateLimiter.RateLimit())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}
