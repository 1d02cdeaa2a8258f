package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sacco-backend/internal/adapters/http/middleware"
	"sacco-backend/internal/adapters/http/routes"
	"sacco-backend/internal/adapters/messaging/rabbitmq"
	"sacco-backend/internal/config"
	"sacco-backend/internal/core/services"
	"sacco-backend/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	_ "sacco-backend/docs" // Swagger docs
)

// @title SACCO API
// @version 1.0
// @description Savings and credit cooperative backend: members, savings ledger, transactions and loans.

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// publisher is satisfied by both the AMQP producer and the log fallback
type publisher interface {
	services.EventPublisher
	Close()
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.AppMode, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	store, err := config.OpenStore(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to open store", zap.Error(err))
	}
	defer config.CloseDatabase()

	events := newPublisher(cfg, zlog)
	defer events.Close()

	// Services
	ledger := services.NewLedgerService(store, zlog)
	memberService := services.NewMemberService(store, ledger, events, zlog)
	authService := services.NewAuthService(store, cfg, zlog)
	txService := services.NewTransactionService(store, ledger, events, zlog)
	loanService := services.NewLoanService(store, events, cfg.Loan.DefaultInterestRate, zlog)
	notifier := services.NewNotificationService(cfg.Notify, cfg.OTP.TTL, events, zlog)
	resetService := services.NewPasswordResetService(store, notifier, cfg.OTP.TTL, cfg.OTP.ResendWindow, cfg.OTP.MaxAttempts, zlog)
	dashboardService := services.NewDashboardService(store)

	if !notifier.IsSMSEnabled() {
		zlog.Warn("SMS_GATEWAY_URL not set, reset codes are only published as events")
	}

	if cfg.IsDev() {
		if err := config.NewSeeder(store, zlog).Run(context.Background()); err != nil {
			zlog.Warn("seeding failed", zap.Error(err))
		}
	}

	// Periodic cleanup of expired reset codes and refresh tokens
	cronService := services.NewCronService(store, resetService, cfg.CleanupCron, zlog)
	if err := cronService.Start(); err != nil {
		zlog.Fatal("failed to start cron", zap.Error(err))
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "SACCO API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg, zlog)

	routes.Setup(app, &routes.Deps{
		Config:        cfg,
		Store:         store,
		Log:           zlog,
		Auth:          authService,
		Members:       memberService,
		Ledger:        ledger,
		Transactions:  txService,
		Loans:         loanService,
		PasswordReset: resetService,
		Dashboard:     dashboardService,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go gracefulShutdown(app, cronService, zlog, done)

	zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("mode", cfg.AppMode))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
	<-done
}

func newPublisher(cfg *config.Config, zlog *zap.Logger) publisher {
	if cfg.Notify.AMQPURL == "" {
		zlog.Info("AMQP_URL not set, events are logged only")
		return rabbitmq.NewLogPublisher(zlog)
	}

	producer, err := rabbitmq.NewProducer(cfg.Notify.AMQPURL, cfg.Notify.AMQPExchange, zlog)
	if err != nil {
		zlog.Warn("broker unreachable, events are logged only", zap.Error(err))
		return rabbitmq.NewLogPublisher(zlog)
	}
	zlog.Info("event producer connected", zap.String("exchange", cfg.Notify.AMQPExchange))
	return producer
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, cronService *services.CronService, zlog *zap.Logger, done chan<- struct{}) {
	defer close(done)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		zlog.Error("error during shutdown", zap.Error(err))
	}
	cronService.Stop()
	zlog.Info("server stopped gracefully")
}
