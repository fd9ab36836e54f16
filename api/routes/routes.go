package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/promoloop/campaigns-backend/internal/config"
	"github.com/promoloop/campaigns-backend/internal/handlers"
	"github.com/promoloop/campaigns-backend/internal/middleware"
)

// HandlerDependencies carries the wired handlers into router setup
type HandlerDependencies struct {
	Auth        *handlers.AuthHandler
	Subscriber  *handlers.SubscriberHandler
	Definition  *handlers.DefinitionHandler
	Campaign    *handlers.CampaignHandler
	Participant *handlers.ParticipantHandler
	Scheduler   *handlers.SchedulerHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, logger *slog.Logger, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(logger))

	// Public routes: health, operator login and the channel-side surface
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		auth := public.Group("/auth")
		{
			auth.POST("/login", deps.Auth.Login)
		}

		public.POST("/subscribers", deps.Subscriber.Register)
		public.POST("/subscribers/:chatRef/unsubscribe", deps.Subscriber.Unsubscribe)

		public.POST("/campaigns/:kind/:instanceKey/engage", deps.Participant.Engage)
		public.POST("/campaigns/:kind/:instanceKey/answer", deps.Participant.Answer)
		public.POST("/campaigns/:kind/:instanceKey/guess", deps.Participant.Guess)
	}

	// Protected routes: the operator surface
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg))
	{
		definitions := protected.Group("/definitions")
		{
			definitions.GET("", deps.Definition.List)
			definitions.GET("/:kind/:instanceKey", deps.Definition.Get)
			definitions.POST("", deps.Definition.Upsert)
			definitions.PUT("", deps.Definition.Upsert)
		}

		campaigns := protected.Group("/campaigns")
		{
			campaigns.GET("", deps.Campaign.List)
			campaigns.POST("/:kind/:instanceKey/stop", deps.Campaign.Stop)
			campaigns.POST("/:kind/:instanceKey/reopen", deps.Campaign.Reopen)
			campaigns.POST("/:kind/:instanceKey/run/:jobKind", deps.Campaign.RunJob)
			campaigns.GET("/:kind/:instanceKey/outstanding", deps.Campaign.Outstanding)
			campaigns.GET("/:kind/:instanceKey/stats", deps.Campaign.Stats)
		}

		participants := protected.Group("/participants")
		{
			participants.POST("/:id/approve", deps.Participant.Approve)
			participants.POST("/:id/deny", deps.Participant.Deny)
			participants.DELETE("/:id/ticket", deps.Participant.RemoveTicket)
		}

		protected.GET("/subscribers/count", deps.Subscriber.Count)
		protected.GET("/scheduler/jobs", deps.Scheduler.Jobs)
		protected.POST("/tickets/audit", deps.Scheduler.AuditTickets)
	}

	return router
}
