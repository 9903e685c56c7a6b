package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wastereminder/internal/handler"
	"wastereminder/pkg/otel"
	"wastereminder/pkg/rbac"
)

// ReadinessCheck 依赖探活
type ReadinessCheck func(ctx context.Context) error

type Router struct {
	Engine *gin.Engine
}

type Handlers struct {
	Reminder     *handler.ReminderHandler
	Notification *handler.NotificationHandler
	Area         *handler.AreaHandler
}

func NewRouter(h Handlers, jwtSecret string, checks map[string]ReadinessCheck) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), otel.GinMiddleware())

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Admin
	admin := r.Group("/admin")
	admin.Use(AuthMiddleware(jwtSecret), RequirePermission(rbac.PermissionTriggerReminder))
	{
		admin.POST("/reminders/run", h.Reminder.TriggerRun)
		admin.GET("/reminders/stats", h.Reminder.GetStats)
	}

	// Protected
	api := r.Group("/api")
	api.Use(AuthMiddleware(jwtSecret))
	{
		read := RequirePermission(rbac.PermissionReadNotification)
		update := RequirePermission(rbac.PermissionUpdateNotification)

		api.GET("/notifications", read, h.Notification.GetNotifications)
		api.GET("/notifications/unread-count", read, h.Notification.GetUnreadCount)
		api.PUT("/notifications/read-all", update, h.Notification.MarkAllRead)
		api.PUT("/notifications/:id/read", update, h.Notification.MarkRead)
		api.DELETE("/notifications/:id", update, h.Notification.DeleteNotification)

		api.GET("/areas/nearest", h.Area.GetNearestArea)
		api.GET("/areas/:id/schedules", h.Area.GetAreaSchedules)
	}

	return &Router{Engine: r}
}
