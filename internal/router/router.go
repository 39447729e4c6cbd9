package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/itsdone-dev/itsdone/internal/handlers"
	"github.com/itsdone-dev/itsdone/internal/logger"
	"github.com/itsdone-dev/itsdone/internal/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Options struct {
	Origins            []string
	UploadDir          string
	Redis              *redis.Client
	RateLimitPerMinute int64
	Log                *zap.Logger
}

func NewRouter(h *handlers.Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if opts.Log != nil {
		r.Use(logger.GinMiddleware(opts.Log))
	}

	r.MaxMultipartMemory = 8 << 20

	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.Origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}

	authenticated := middleware.AuthMiddleware()

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/ws", authenticated, h.WebSocket)

		auth := api.Group("/auth")
		{
			limited := middleware.RateLimiter(opts.Redis, "auth", opts.RateLimitPerMinute)

			auth.POST("/register", limited, h.Register)
			auth.POST("/login", limited, h.Login)
			auth.POST("/logout", h.Logout)
			auth.GET("/me", authenticated, h.Me)
			auth.PATCH("/me", authenticated, h.UpdateMe)
			auth.DELETE("/me", authenticated, h.DeleteMe)
		}

		clients := api.Group("/clients", authenticated)
		{
			clients.POST("", h.CreateClient)
			clients.GET("", h.ListClients)
			clients.GET("/:client_id", h.GetClient)
			clients.PUT("/:client_id", h.UpdateClient)
			clients.PATCH("/:client_id", h.PatchClient)
			clients.DELETE("/:client_id", h.DeleteClient)
			clients.GET("/:client_id/stats", h.ClientStats)

			clients.POST("/:client_id/projects", h.CreateProject)
			clients.GET("/:client_id/projects", h.ListProjects)
		}

		projects := api.Group("/projects", authenticated)
		{
			projects.GET("", h.ListProjects)
			projects.GET("/:project_id", h.GetProject)
			projects.PUT("/:project_id", h.UpdateProject)
			projects.PATCH("/:project_id", h.PatchProject)
			projects.DELETE("/:project_id", h.DeleteProject)
		}

		workHours := api.Group("/work-hours", authenticated)
		{
			workHours.POST("", h.CreateWorkHour)
			workHours.GET("", h.ListWorkHours)
			workHours.GET("/summary", h.WorkHourSummary)
			workHours.GET("/:work_hour_id", h.GetWorkHour)
			workHours.PATCH("/:work_hour_id", h.UpdateWorkHour)
			workHours.DELETE("/:work_hour_id", h.DeleteWorkHour)
		}

		invoices := api.Group("/invoices", authenticated)
		{
			invoices.POST("", h.CreateInvoice)
			invoices.GET("", h.ListInvoices)
			invoices.GET("/:invoice_id", h.GetInvoice)
			invoices.PATCH("/:invoice_id", h.UpdateInvoice)
			invoices.POST("/:invoice_id/status", h.SetInvoiceStatus)
			invoices.DELETE("/:invoice_id", h.DeleteInvoice)
			invoices.POST("/:invoice_id/document", h.UploadInvoiceDocument)
		}

		settings := api.Group("/settings", authenticated)
		{
			settings.GET("", h.GetSettings)
			settings.PUT("", h.UpdateSettings)
		}

		notifications := api.Group("/notifications", authenticated)
		{
			notifications.GET("", h.ListNotifications)
			notifications.GET("/unread-count", h.UnreadNotificationCount)
			notifications.GET("/logs", h.NotificationLogs)
			notifications.POST("/read-all", h.MarkAllNotificationsRead)
			notifications.POST("/check-thresholds", h.CheckThresholds)
			notifications.POST("/:notification_id/read", h.MarkNotificationRead)
			notifications.DELETE("/:notification_id", h.DeleteNotification)
		}

		api.POST("/uploads", authenticated, h.Upload)
		api.GET("/dashboard", authenticated, h.GetDashboard)
	}

	return r
}
