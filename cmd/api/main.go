package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/minlab-go-api/internal/config"
	"github.com/noah-isme/minlab-go-api/internal/database"
	"github.com/noah-isme/minlab-go-api/internal/handler"
	"github.com/noah-isme/minlab-go-api/internal/middleware"
	"github.com/noah-isme/minlab-go-api/internal/models"
	"github.com/noah-isme/minlab-go-api/internal/repository"
	"github.com/noah-isme/minlab-go-api/internal/router"
	"github.com/noah-isme/minlab-go-api/internal/service"
	"github.com/noah-isme/minlab-go-api/internal/store"
	"github.com/noah-isme/minlab-go-api/pkg/ai"
	"github.com/noah-isme/minlab-go-api/pkg/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.EquipmentItem{}, &models.Mineral{}, &models.SafetyOption{}, &models.LabRecord{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	provider := buildProvider(cfg, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	referenceRepo := repository.NewReferenceRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	sessionStore := store.NewSessionStore(redisClient, cfg.SessionTTL, logger)

	referenceService := service.NewReferenceService(referenceRepo, logger)
	if err := referenceService.Seed(context.Background()); err != nil {
		log.Fatalf("failed to seed reference catalog: %v", err)
	}

	truth := service.GroundTruth{
		Mass:          cfg.LabMass,
		InitialVolume: cfg.LabInitialVolume,
		FinalVolume:   cfg.LabFinalVolume,
		Tolerance:     cfg.DensityTolerance,
	}
	activityService := service.NewActivityService(referenceRepo, recordRepo, sessionStore, provider, validate, truth, logger)

	sessionHandler := handler.NewSessionHandler(activityService, report.NewExporter(), logger)
	referenceHandler := handler.NewReferenceHandler(referenceService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SessionHandler:   sessionHandler,
		ReferenceHandler: referenceHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildProvider(cfg config.Config, logger zerolog.Logger) ai.FeedbackProvider {
	if cfg.AIProvider == "openai" && cfg.OpenAIAPIKey != "" {
		provider, err := ai.NewOpenAIProvider(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
		if err == nil {
			return provider
		}
		logger.Warn().Err(err).Msg("falling back to the static feedback provider")
	}

	return ai.NewStaticProvider()
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
