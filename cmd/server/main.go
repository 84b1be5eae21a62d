package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/certlab/analysis-service/internal/config"
	"github.com/certlab/analysis-service/internal/events"
	"github.com/certlab/analysis-service/internal/handlers"
	"github.com/certlab/analysis-service/internal/ledger"
	"github.com/certlab/analysis-service/internal/models"
	"github.com/certlab/analysis-service/internal/repositories/postgres"
	"github.com/certlab/analysis-service/internal/services"
	"github.com/certlab/analysis-service/internal/utils"
	"github.com/certlab/analysis-service/pkg"
	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := utils.NewValidator().ValidateStruct(cfg.Analysis); err != nil {
		logger.Error("Invalid analysis configuration", "error", err)
		os.Exit(1)
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.Question{},
		&models.QuizAttempt{},
		&models.QuestionAttempt{},
		&models.AnalysisReport{},
		&models.AnalysisRun{},
	); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	ctx := context.Background()

	genaiClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		logger.Error("Failed to create Gemini client", "error", err)
		os.Exit(1)
	}
	defer genaiClient.Close()
	generator := services.NewGeminiGenerator(genaiClient.GenerativeModel(cfg.GeminiModel))

	var publisher events.EventPublisher
	if cfg.Events.Enabled {
		publisher, err = events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: cfg.Events.GetKafkaBrokers(),
			TopicName:    cfg.Events.ReportTopic,
			Logger:       logger,
		})
		if err != nil {
			logger.Error("Failed to create event publisher", "error", err)
			os.Exit(1)
		}
	} else {
		publisher = events.NewMockEventPublisher(logger)
	}
	defer publisher.Close()

	var notifier services.NotificationService
	if cfg.SendgridAPIKey != "" {
		notifier = services.NewSendgridNotificationService(cfg.SendgridAPIKey, cfg.AppName, cfg.FromEmail, logger)
	} else {
		notifier = services.NewNoopNotificationService(logger)
	}

	userRepo := postgres.NewUserPostgreSQL(db)
	attemptRepo := postgres.NewAttemptPostgreSQL(db)
	reportRepo := postgres.NewReportPostgreSQL(db)
	runRepo := postgres.NewRunPostgreSQL(db)
	processedLedger := ledger.NewRedisLedger(redisClient, logger)

	refreshService := services.NewRefreshService(
		userRepo,
		attemptRepo,
		reportRepo,
		runRepo,
		processedLedger,
		services.NewAggregatorService(),
		services.NewSynthesizerService(generator, logger),
		notifier,
		publisher,
		cfg.Analysis,
		logger,
	)
	exportService := services.NewExportService(runRepo, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	httpLogger := utils.NewSlogLogger(logger)
	router.Use(utils.LoggerMiddleware(httpLogger))

	handlerManager := handlers.NewHandlerManager(refreshService, exportService, cfg.CronSecret, httpLogger)
	handlerManager.SetupRoutes(router)

	logger.Info("Starting analysis service", "port", cfg.Port, "environment", cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
