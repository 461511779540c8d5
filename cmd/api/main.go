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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/makerlabExp/pickupConnect/internal/config"
	"github.com/makerlabExp/pickupConnect/internal/database"
	"github.com/makerlabExp/pickupConnect/internal/feed"
	"github.com/makerlabExp/pickupConnect/internal/handler"
	"github.com/makerlabExp/pickupConnect/internal/middleware"
	"github.com/makerlabExp/pickupConnect/internal/models"
	"github.com/makerlabExp/pickupConnect/internal/observability"
	"github.com/makerlabExp/pickupConnect/internal/repository"
	"github.com/makerlabExp/pickupConnect/internal/router"
	"github.com/makerlabExp/pickupConnect/internal/service"
	"github.com/makerlabExp/pickupConnect/internal/store"
	"github.com/makerlabExp/pickupConnect/pkg/media"
	"github.com/makerlabExp/pickupConnect/pkg/tts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	observability.RegisterMetrics()

	db := connectDatabase(cfg, logger)
	if err := db.AutoMigrate(&models.Student{}, &models.Parent{}, &models.PickupRequest{}, &models.Session{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	studentRepo := repository.NewStudentRepository(db)
	parentRepo := repository.NewParentRepository(db)
	pickupRepo := repository.NewPickupRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	state := store.New()
	broker := feed.NewBroker(redisClient, cfg.ChannelBase, natsConn, logger)
	broker.SetApplier(state.Apply)

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()
	broker.Start(appCtx)

	hydrateStore(appCtx, state, studentRepo, parentRepo, pickupRepo, sessionRepo, logger)

	var speech tts.Generator
	if cfg.SpeechAPIKey != "" {
		client, err := tts.New(tts.Config{
			APIKey: cfg.SpeechAPIKey,
			Model:  cfg.SpeechModel,
			Voice:  cfg.SpeechVoice,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("failed to create speech client: %v", err)
		}
		speech = client
	} else {
		logger.Warn().Msg("speech api key not set, announcements will chime only")
	}

	var mediaService *media.Service
	if cfg.CloudinaryCloudName != "" {
		mediaService, err = media.New(media.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create media client: %v", err)
		}
	}

	authService := service.NewAuthService(state, cfg.JWTSecret, cfg.TokenTTL, cfg.AdminPassword, cfg.InstructorPassword, validate, logger)
	pickupService := service.NewPickupService(state, pickupRepo, broker, validate, logger)
	sessionService := service.NewSessionService(state, sessionRepo, broker, validate, logger)
	adminService := service.NewAdminService(state, studentRepo, parentRepo, pickupRepo, sessionRepo, broker, validate, logger)
	uploadService := service.NewUploadService(mediaService, cfg.UploadMaxSizeMB, logger)
	setupService := service.NewSetupService(validate, logger)

	announcer := service.NewAnnouncer(state, pickupService, broker, speech, cfg.AnnounceDelay, logger)
	announcer.Start(appCtx)

	if cfg.DemoMode() {
		if err := adminService.Seed(appCtx); err != nil {
			log.Fatalf("failed to seed demo data: %v", err)
		}
		logger.Info().Msg("demo mode active with sample roster")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:    handler.NewAuthHandler(authService, logger),
		PickupHandler:  handler.NewPickupHandler(pickupService, announcer, logger),
		FeedHandler:    handler.NewFeedHandler(broker, state, cfg.SSEKeepAlive, logger),
		SessionHandler: handler.NewSessionHandler(sessionService, logger),
		AdminHandler:   handler.NewAdminHandler(adminService, logger),
		UploadHandler:  handler.NewUploadHandler(uploadService, logger),
		SetupHandler:   handler.NewSetupHandler(setupService, logger),
		JWTMiddleware:  middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopApp)
}

func connectDatabase(cfg config.Config, logger zerolog.Logger) *gorm.DB {
	if cfg.DemoMode() {
		logger.Info().Msg("no database configured, using in-memory demo store")
		db, err := database.ConnectDemo()
		if err != nil {
			log.Fatalf("failed to open demo database: %v", err)
		}
		return db
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return db
}

func hydrateStore(ctx context.Context, state *store.Store, students repository.StudentRepository, parents repository.ParentRepository, pickups repository.PickupRepository, sessions repository.SessionRepository, logger zerolog.Logger) {
	loadedStudents, err := students.List(ctx)
	if err != nil {
		log.Fatalf("failed to load students: %v", err)
	}
	loadedParents, err := parents.List(ctx)
	if err != nil {
		log.Fatalf("failed to load parents: %v", err)
	}
	loadedPickups, err := pickups.List(ctx)
	if err != nil {
		log.Fatalf("failed to load pickups: %v", err)
	}
	loadedSessions, err := sessions.List(ctx)
	if err != nil {
		log.Fatalf("failed to load sessions: %v", err)
	}

	state.LoadStudents(loadedStudents)
	state.LoadParents(loadedParents)
	state.LoadPickups(loadedPickups)
	state.LoadSessions(loadedSessions)

	logger.Info().
		Int("students", len(loadedStudents)).
		Int("parents", len(loadedParents)).
		Int("pickups", len(loadedPickups)).
		Int("sessions", len(loadedSessions)).
		Msg("state hydrated")
}

func waitForShutdown(app *fiber.App, stopApp context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopApp()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
