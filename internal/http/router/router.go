package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/escrow-backend/internal/config"
	"github.com/ignatzorin/escrow-backend/internal/http/handlers"
	"github.com/ignatzorin/escrow-backend/internal/http/middleware"
	"github.com/ignatzorin/escrow-backend/internal/service"
)

// SetupRouter собирает маршруты приложения.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	projectHandler *handlers.ProjectHandler,
	deliverableHandler *handlers.DeliverableHandler,
	paymentHandler *handlers.PaymentHandler,
	withdrawalHandler *handlers.WithdrawalHandler,
	reviewHandler *handlers.ReviewHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Публичные маршруты
	api.GET("/ws", wsHandler.Handle)
	api.GET("/projects", projectHandler.ListProjects)
	api.GET("/projects/:id", middleware.UUIDValidator("id"), projectHandler.GetProject)
	api.GET("/projects/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.ListProjectReviews)
	api.GET("/users/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.ListUserReviews)
	api.GET("/users/:id/rating", middleware.UUIDValidator("id"), reviewHandler.GetUserRating)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/auth/me", authHandler.GetMe)

		protected.POST("/projects", projectHandler.CreateProject)
		protected.GET("/projects/my", projectHandler.ListMyProjects)
		protected.POST("/projects/:id/proposals", middleware.UUIDValidator("id"), projectHandler.SubmitProposal)
		protected.GET("/projects/:id/proposals", middleware.UUIDValidator("id"), projectHandler.ListProposals)
		protected.GET("/projects/:id/my-proposal", middleware.UUIDValidator("id"), projectHandler.GetMyProposal)
		protected.POST("/projects/:id/proposals/:proposalId/accept",
			middleware.UUIDValidator("id"), middleware.UUIDValidator("proposalId"), projectHandler.AcceptProposal)
		protected.POST("/projects/:id/cancel", middleware.UUIDValidator("id"), projectHandler.CancelProject)

		protected.POST("/projects/:id/deliverables", middleware.UUIDValidator("id"), deliverableHandler.Submit)
		protected.GET("/projects/:id/deliverables", middleware.UUIDValidator("id"), deliverableHandler.ListByProject)
		protected.GET("/deliverables/:id", middleware.UUIDValidator("id"), deliverableHandler.Get)
		protected.POST("/deliverables/:id/approve", middleware.UUIDValidator("id"), deliverableHandler.Approve)
		protected.POST("/deliverables/:id/request-revision", middleware.UUIDValidator("id"), deliverableHandler.RequestRevision)
		protected.GET("/deliverables/:id/files/:fileId",
			middleware.UUIDValidator("id"), middleware.UUIDValidator("fileId"), deliverableHandler.DownloadFile)

		protected.GET("/projects/:id/escrow", middleware.UUIDValidator("id"), paymentHandler.GetProjectEscrow)
		protected.GET("/projects/:id/release/check", middleware.UUIDValidator("id"), paymentHandler.CanRelease)
		protected.POST("/projects/:id/release", middleware.UUIDValidator("id"), paymentHandler.Release)

		protected.GET("/payments/wallet", paymentHandler.GetWallet)
		protected.POST("/payments/deposit", paymentHandler.Deposit)
		protected.GET("/payments/transactions", paymentHandler.ListTransactions)

		protected.POST("/withdrawals", withdrawalHandler.Create)
		protected.GET("/withdrawals", withdrawalHandler.List)
		protected.GET("/withdrawals/:id", middleware.UUIDValidator("id"), withdrawalHandler.Get)

		protected.POST("/projects/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.Create)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.DELETE("/notifications/:id", middleware.UUIDValidator("id"), notificationHandler.Delete)
	}

	return r
}
