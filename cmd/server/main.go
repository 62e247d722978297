package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kalam-backend/internal/audit"
	"kalam-backend/internal/config"
	"kalam-backend/internal/gateway"
	"kalam-backend/internal/handlers"
	"kalam-backend/internal/metrics"
	"kalam-backend/internal/notify"
	"kalam-backend/internal/repositories"
	"kalam-backend/internal/services"
	"kalam-backend/internal/session"
	"kalam-backend/internal/tokens"
	"kalam-backend/pkg/database"
	"kalam-backend/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.NewConfigFromEnv()
	if err != nil {
		logger.Init("info", "")
		logrus.Fatalf("Config error: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.Env)
	if envErr != nil {
		logrus.WithError(envErr).Debug(".env file not loaded")
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		logrus.Fatalf("Database connection error: %v", err)
	}
	if err := repositories.AutoMigrate(db); err != nil {
		logrus.Fatalf("Migration error: %v", err)
	}
	repo := repositories.NewRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Callback audit log (optional)
	var recorder audit.Recorder = audit.Nop{}
	if cfg.MongoURI != "" {
		store, err := audit.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			logrus.Fatalf("Audit store error: %v", err)
		}
		defer func() {
			closeCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = store.Close(closeCtx)
		}()
		recorder = store
	} else {
		logrus.Warn("MONGO_URI not set, payment callbacks are not audited")
	}

	// Notifications: queue through RabbitMQ when configured, otherwise send inline.
	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(cfg)
	}
	var publisher notify.Publisher = notify.DirectPublisher{Mailer: mailer}
	var reader *notify.Reader
	if cfg.AMQPURL != "" {
		rabbit, err := notify.NewRabbit(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			logrus.Fatalf("RabbitMQ error: %v", err)
		}
		defer rabbit.Close()
		publisher = rabbit

		reader = notify.NewReader(rabbit, mailer)
		if err := reader.Start(ctx); err != nil {
			logrus.Fatalf("Notification reader error: %v", err)
		}
	}

	issuer := tokens.NewIssuer(cfg)
	sessions, err := session.NewManager(cfg)
	if err != nil {
		logrus.Fatalf("Session manager error: %v", err)
	}

	// Initialize services
	eventSvc := services.NewEventService(repo, cfg)
	orderSvc := services.NewOrderService(repo, cfg, publisher)
	paymentSvc := services.NewPaymentService(repo, cfg, gateway.NewPayU(cfg), orderSvc, recorder)
	handler := handlers.NewHandler(handlers.Services{
		Auth:          services.NewAuthService(repo, cfg, issuer, publisher),
		Events:        eventSvc,
		Cart:          services.NewCartService(repo, cfg),
		Orders:        orderSvc,
		Payments:      paymentSvc,
		Teams:         services.NewTeamService(repo, cfg),
		Registrations: services.NewRegistrationService(repo, cfg),
		Admin:         services.NewAdminService(repo, cfg, eventSvc, orderSvc, paymentSvc, recorder),
	}, issuer, sessions, cfg)

	app := fiber.New(fiber.Config{
		AppName:      "Kalam API",
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    4 << 20,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: cfg.AllowOrigins != "*",
	}))
	app.Use(metrics.Middleware())

	for _, dir := range []string{cfg.QRDir, cfg.PosterDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logrus.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	// Static file serving
	app.Static(services.QRRoute, cfg.QRDir)
	app.Static(handlers.PosterRoute, cfg.PosterDir)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())

	handler.RegisterRoutes(app.Group("/api/v1"))

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logrus.WithField("addr", addr).Info("server starting")
		if err := app.Listen(addr); err != nil {
			logrus.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down server")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logrus.WithError(err).Error("server shutdown error")
	}
	if reader != nil {
		reader.Stop()
	}
	logrus.Info("server stopped")
}
