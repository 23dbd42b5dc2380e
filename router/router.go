package router

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/smartcommerce/notification-service/controllers"
	"github.com/smartcommerce/notification-service/middlewares"
	"github.com/smartcommerce/notification-service/realtime"
	"github.com/smartcommerce/notification-service/services"
	"gorm.io/gorm"
)

// Deps carries the shared components the routes need.
type Deps struct {
	DB           *gorm.DB
	Redis        *redis.Client
	Store        *services.NotificationStore
	Cache        *services.UnreadCountCache
	Hub          *realtime.Hub
	Orchestrator *services.DeliveryOrchestrator
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	notifCtrl := controllers.NewNotificationController(deps.Store, deps.Cache, deps.Hub, deps.Orchestrator)
	prefCtrl := controllers.NewPreferenceController(deps.Store)
	subCtrl := controllers.NewSubscriptionController(deps.Store)
	tmplCtrl := controllers.NewTemplateController(deps.Store)
	wsCtrl := controllers.NewWSController(deps.Hub)
	authCtrl := controllers.NewAuthController()
	healthCtrl := controllers.NewHealthController(deps.DB, deps.Redis)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/health", healthCtrl.Health)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	api := r.Group("/api/v1")
	api.Use(middlewares.AuthMiddleware())

	// SESSION
	api.POST("/auth/logout", authCtrl.Logout)

	// NOTIFICATIONS (user-facing)
	api.GET("/notifications", notifCtrl.ListNotifications)
	api.GET("/notifications/unread-count", notifCtrl.GetUnreadCount)
	api.GET("/notifications/:notif_id", notifCtrl.GetNotificationByID)
	api.PATCH("/notifications/:notif_id/read", notifCtrl.MarkRead)
	api.PATCH("/notifications/read", notifCtrl.MarkManyRead)
	api.PATCH("/notifications/read-all", notifCtrl.MarkAllRead)
	api.DELETE("/notifications/:notif_id", notifCtrl.DeleteNotification)
	api.DELETE("/notifications", notifCtrl.DeleteNotifications)

	// PREFERENCES
	api.GET("/preferences", prefCtrl.ListPreferences)
	api.GET("/preferences/:type", prefCtrl.GetPreference)
	api.PUT("/preferences", prefCtrl.UpsertPreference)

	// PUSH SUBSCRIPTIONS
	api.GET("/subscriptions", subCtrl.ListSubscriptions)
	api.POST("/subscriptions", subCtrl.RegisterSubscription)
	api.DELETE("/subscriptions/:sub_id", subCtrl.DeactivateSubscription)

	// PRODUCER ROUTES (peer services create notifications)
	producer := api.Group("/")
	producer.Use(middlewares.RequireRole("service"))
	{
		producer.POST("/notifications", notifCtrl.CreateNotification)
		producer.POST("/notifications/from-template", notifCtrl.CreateFromTemplate)
	}
	bulk := api.Group("/")
	bulk.Use(middlewares.RequireRole("service"), middlewares.NewStrictRateLimiter())
	{
		bulk.POST("/notifications/bulk", notifCtrl.CreateBulkNotifications)
	}

	// ADMIN ROUTES
	admin := api.Group("/admin")
	admin.Use(middlewares.RequireRole(realtime.RoleAdmin))
	{
		admin.GET("/templates", tmplCtrl.ListTemplates)
		admin.POST("/templates", tmplCtrl.CreateTemplate)
		admin.PATCH("/templates/:template_id", tmplCtrl.UpdateTemplate)
		admin.DELETE("/templates/:template_id", tmplCtrl.DeleteTemplate)
		admin.POST("/notifications/:notif_id/resend", notifCtrl.ResendNotification)
	}

	// Live channel (token via query param, browsers cannot set headers here)
	ws := r.Group("/ws")
	ws.Use(middlewares.WebSocketAuthMiddleware())
	{
		ws.GET("", wsCtrl.Connect)
	}

	return r
}
