package routes

import (
	"net/http"

	"task-marketplace-api/internal/auth"
	"task-marketplace-api/internal/handlers"
	"task-marketplace-api/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options wires the router's collaborators. Observer and Gatherer may be nil.
type Options struct {
	Handler  *handlers.Handler
	Tokens   *auth.Manager
	Observer middleware.HTTPObserver
	Gatherer prometheus.Gatherer
}

func SetupRoutes(opts Options) *gin.Engine {
	h := opts.Handler

	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery(), middleware.RequestLogger(opts.Observer))

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Task Marketplace API is running",
		})
	})

	if opts.Gatherer != nil {
		ginRouter.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware(opts.Tokens))
	{
		// Tasks
		protectedRoutes.GET("/tasks", h.ListTasks)
		protectedRoutes.POST("/tasks", h.CreateTask)
		protectedRoutes.GET("/tasks/:id", h.GetTaskByID)
		protectedRoutes.POST("/tasks/:id/cancel", h.CancelTask)
		protectedRoutes.POST("/tasks/:id/start", h.StartWork)
		protectedRoutes.GET("/tasks/:id/applications", h.ListApplications)
		protectedRoutes.POST("/tasks/:id/applications", h.Apply)
		protectedRoutes.POST("/tasks/:id/submission", h.SubmitWork)
		protectedRoutes.POST("/tasks/:id/submission/under-review", h.MarkUnderReview)
		protectedRoutes.POST("/tasks/:id/review", h.ReviewSubmission)
		protectedRoutes.GET("/tasks/:id/activity", h.GetActivity)

		// Applications
		protectedRoutes.POST("/applications/:id/accept", h.AcceptApplication)
		protectedRoutes.POST("/applications/:id/reject", h.RejectApplication)
		protectedRoutes.POST("/applications/:id/withdraw", h.WithdrawApplication)

		// Users and points
		protectedRoutes.GET("/users", h.GetAllUsers)
		protectedRoutes.GET("/me", h.GetMe)
		protectedRoutes.GET("/stats/:userid", h.GetStatsByUser)
		protectedRoutes.GET("/leaderboard", h.GetLeaderboard)

		// Notifications
		protectedRoutes.GET("/notifications", h.GetNotifications)
		protectedRoutes.POST("/notifications/read-all", h.MarkAllNotificationsRead)
		protectedRoutes.POST("/notifications/:id/read", h.MarkNotificationRead)
		protectedRoutes.GET("/ws", h.WebSocket)
	}

	return ginRouter
}
