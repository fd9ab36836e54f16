package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/promoloop/campaigns-backend/api/routes"
	"github.com/promoloop/campaigns-backend/internal/clock"
	"github.com/promoloop/campaigns-backend/internal/config"
	"github.com/promoloop/campaigns-backend/internal/delivery"
	"github.com/promoloop/campaigns-backend/internal/handlers"
	repoimpl "github.com/promoloop/campaigns-backend/internal/repositories/mongodb"
	"github.com/promoloop/campaigns-backend/internal/services"
	"github.com/promoloop/campaigns-backend/pkg/mongodb"
)

func main() {
	// .env is optional; container environments inject variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if !config.GetEnvAsBool("GIN_DEBUG", false) {
		gin.SetMode(gin.ReleaseMode)
	}

	client, err := mongodb.NewClient(cfg.MongoDB.URI)
	if err != nil {
		logger.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	db := client.Database(cfg.MongoDB.Database)
	logger.Info("connected to MongoDB", "database", cfg.MongoDB.Database)

	campaignRepo := repoimpl.NewCampaignRepository(db)
	participantRepo := repoimpl.NewParticipantRepository(db)
	subscriberRepo := repoimpl.NewSubscriberRepository(db)
	definitionRepo := repoimpl.NewDefinitionRepository(db)
	adminUserRepo := repoimpl.NewAdminUserRepository(db)
	deliveryLogRepo := repoimpl.NewDeliveryLogRepository(db)

	clk, err := clock.NewResolver(cfg.Campaigns.Timezone)
	if err != nil {
		logger.Error("invalid campaign timezone", "timezone", cfg.Campaigns.Timezone, "error", err)
		os.Exit(1)
	}

	var adapter delivery.Adapter
	if cfg.Delivery.Mock {
		logger.Warn("delivery gateway is mocked, no real messages will be sent")
		adapter = delivery.NewMockAdapter(logger)
	} else {
		adapter = delivery.NewPushGateway(cfg.Delivery.BaseURL, cfg.Delivery.APISecret)
	}
	courier := delivery.NewCourier(adapter,
		cfg.Delivery.MaxAttempts, cfg.Delivery.RetryDelay,
		cfg.Delivery.MaxRetryDelay, cfg.Delivery.PacingDelay, logger)

	notifier := services.NewOperatorNotifier(courier, cfg.Campaigns.OperatorChatRefs, logger)
	ticketService := services.NewTicketService(participantRepo, cfg.Campaigns.Sequence, notifier, logger)
	timeouts := services.NewTimeoutSupervisor()
	participationService := services.NewParticipationService(
		campaignRepo, participantRepo, subscriberRepo, definitionRepo,
		deliveryLogRepo, courier, ticketService, timeouts, clk, &cfg.Campaigns, logger)
	drawGameService := services.NewDrawGameService(participationService, cfg.Campaigns.DrawGameSettle, logger)
	schedulerService := services.NewSchedulerService(definitionRepo, participationService, clk, &cfg.Campaigns, logger)
	subscriberService := services.NewSubscriberService(subscriberRepo, logger)
	authService := services.NewAuthService(adminUserRepo, cfg, logger)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	bootstrapOperator(startCtx, authService, logger)
	if err := schedulerService.RematerializeAll(startCtx); err != nil {
		logger.Error("failed to materialize scheduled jobs", "error", err)
		cancelStart()
		os.Exit(1)
	}
	if err := participationService.RecoverDeadlines(startCtx); err != nil {
		logger.Error("failed to recover answer deadlines", "error", err)
	}
	if _, err := ticketService.AuditDuplicates(startCtx); err != nil {
		logger.Error("ticket audit failed at startup", "error", err)
	}
	cancelStart()

	deps := routes.HandlerDependencies{
		Auth:        handlers.NewAuthHandler(authService),
		Subscriber:  handlers.NewSubscriberHandler(subscriberService),
		Definition:  handlers.NewDefinitionHandler(definitionRepo, schedulerService, clk),
		Campaign:    handlers.NewCampaignHandler(participationService, schedulerService),
		Participant: handlers.NewParticipantHandler(participationService, drawGameService),
		Scheduler:   handlers.NewSchedulerHandler(schedulerService, ticketService),
	}
	router := routes.SetupRouter(cfg, logger, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}

	schedulerService.Stop()
	timeouts.StopAll()

	if err := client.Disconnect(shutdownCtx); err != nil {
		logger.Error("failed to disconnect from MongoDB", "error", err)
	}
	logger.Info("server stopped")
}

// bootstrapOperator seeds the first operator account from the environment so
// a fresh deployment has a usable login
func bootstrapOperator(ctx context.Context, authService *services.AuthService, logger *slog.Logger) {
	email := config.GetEnv("ADMIN_EMAIL", "")
	password := config.GetEnv("ADMIN_PASSWORD", "")
	if email == "" || password == "" {
		return
	}
	if _, err := authService.CreateAdmin(ctx, email, password, "admin"); err != nil {
		logger.Info("operator bootstrap skipped", "email", email, "reason", err)
		return
	}
	logger.Info("operator account bootstrapped", "email", email)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
