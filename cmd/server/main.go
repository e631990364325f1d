package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/leaflens/leaflens-host/internal/auth"
	"github.com/leaflens/leaflens-host/internal/cache"
	"github.com/leaflens/leaflens-host/internal/chat"
	"github.com/leaflens/leaflens-host/internal/config"
	"github.com/leaflens/leaflens-host/internal/handlers"
	"github.com/leaflens/leaflens-host/internal/mailer"
	"github.com/leaflens/leaflens-host/internal/middleware"
	"github.com/leaflens/leaflens-host/internal/migration"
	"github.com/leaflens/leaflens-host/internal/plant"
	"github.com/leaflens/leaflens-host/internal/repository"
	"github.com/leaflens/leaflens-host/internal/routes"
	"github.com/leaflens/leaflens-host/internal/session"
	"github.com/leaflens/leaflens-host/internal/storage"
	"github.com/leaflens/leaflens-host/internal/temporal"
	"github.com/leaflens/leaflens-host/internal/temporal/activities"
	"github.com/leaflens/leaflens-host/internal/temporal/workflows"
	"github.com/leaflens/leaflens-host/internal/weather"

	_ "github.com/lib/pq" // PostgreSQL driver
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

type application struct {
	config         *config.Config
	db             *sql.DB
	cache          cache.Store
	historyFeed    *repository.HistoryFeed
	images         plant.ImageStore
	identifier     plant.Identifier
	temporalClient tc.Client
	sessions       *session.Manager
	logger         zerolog.Logger
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	if err := migration.RunMigrations(db, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	historyFeed, err := repository.NewHistoryFeed(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to listen for weather history")
	}
	defer historyFeed.Close()

	localCache, err := openCache(ctx, cfg.Cache)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Cache.Driver).Msg("Failed to open local cache")
	}
	defer localCache.Close()

	images, err := openImageStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to open image storage")
	}

	app := &application{
		config:      cfg,
		db:          db,
		cache:       localCache,
		historyFeed: historyFeed,
		images:      images,
		identifier:  plant.NewMockIdentifier(cfg.Scan.IdentifyLatency),
		logger:      logger,
	}

	// Initialize Temporal client and worker when scans run as workflows.
	var temporalWorker worker.Worker
	if cfg.Temporal.Enabled {
		temporalClient, err := tc.Dial(tc.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    temporal.NewTemporalAdapter(logger),
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Unable to create Temporal client")
		}
		defer temporalClient.Close()
		app.temporalClient = temporalClient
		temporalWorker = app.startTemporalWorker(logger)
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, temporalWorker, logger)

	logger.Info().Msg("Application terminated.")
}

func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	if cfg.Driver == "redis" {
		return cache.NewRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix)
	}
	return cache.NewSQLiteStore(cfg.SQLitePath)
}

func openImageStore(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (plant.ImageStore, error) {
	if cfg.Driver != "minio" {
		return storage.NewInlineStore(), nil
	}
	return storage.NewMinIOStore(ctx, storage.MinIOConfig{
		Endpoint:       cfg.Endpoint,
		PublicEndpoint: cfg.PublicEndpoint,
		AccessKey:      cfg.AccessKey,
		SecretKey:      cfg.SecretKey,
		Bucket:         cfg.Bucket,
		UseSSL:         cfg.UseSSL,
		PublicUseSSL:   cfg.PublicUseSSL,
	}, logger)
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	cfg := app.config

	// Repositories
	userRepo := repository.NewUserRepository(app.db)
	resetRepo := repository.NewPasswordResetRepository(app.db)
	favoriteRepo := repository.NewFavoriteRepository(app.db)
	pushTokenRepo := repository.NewPushTokenRepository(app.db)
	historyRepo := repository.NewWeatherHistoryRepository(app.db, app.historyFeed, logger)

	// Mailer for password resets
	resetMailer, err := mailer.New(cfg.Email, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure password reset mailer")
	}

	provider := weather.NewOpenWeatherMap(cfg.Weather.APIKey, cfg.Weather.BaseURL, cfg.Weather.RequestTimeout)
	if cfg.Weather.APIKey == "" {
		logger.Warn().Msg("weather API key not configured, weather updates will fail")
	}

	app.sessions = session.NewManager(app.cache, provider, historyRepo, pushTokenRepo, session.Config{
		VAPIDKey:       cfg.Push.VAPIDKey,
		LocationMaxAge: cfg.Weather.LocationMaxAge,
		Poller: weather.PollerConfig{
			Interval:      cfg.Weather.Interval,
			LocateTimeout: cfg.Weather.LocateTimeout,
		},
	}, logger)

	authService := auth.NewService(
		userRepo,
		resetRepo,
		resetMailer,
		auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		auth.NewGoogleVerifier(cfg.Google.ClientID, cfg.Google.TokenInfoURL),
		auth.ServiceConfig{ResetTTL: cfg.PasswordResetTTL, ResetURLTemplate: cfg.Email.ResetURLTemplate},
		logger,
	)

	gateway := chat.NewGateway(chat.Config{
		APIKey:  cfg.Chat.APIKey,
		BaseURL: cfg.Chat.BaseURL,
		Model:   cfg.Chat.Model,
		Referer: cfg.PublicURL,
		Timeout: cfg.Chat.Timeout,
	})

	var scanner plant.Scanner = plant.NewInlineScanner(app.images, app.identifier, logger)
	if app.temporalClient != nil {
		scanner = temporal.NewWorkflowScanner(app.temporalClient)
	}

	// Handlers
	return routes.NewRouter(routes.Handlers{
		Health:        handlers.HealthCheck(app.db),
		Auth:          handlers.NewAuthHandler(authService, app.sessions, logger),
		Favorites:     handlers.NewFavoriteHandler(favoriteRepo, app.sessions, logger),
		Notifications: handlers.NewNotificationHandler(app.sessions, logger),
		Weather:       handlers.NewWeatherHandler(app.sessions, logger),
		Chat:          handlers.NewChatHandler(gateway, app.sessions, logger),
		Scan:          handlers.NewScanHandler(scanner, logger),
		Push:          handlers.NewPushHandler(app.sessions, cfg.Push.VAPIDKey, logger),
	})
}

func (app *application) startTemporalWorker(logger zerolog.Logger) worker.Worker {
	activityImpl := &activities.Activities{
		Images:     app.images,
		Identifier: app.identifier,
	}

	w := worker.New(app.temporalClient, temporal.TaskQueueName, worker.Options{})

	w.RegisterWorkflowWithOptions(workflows.ScanWorkflow, workflow.RegisterOptions{Name: temporal.ScanWorkflowName})
	w.RegisterActivity(activityImpl)

	// Start the worker in a goroutine so it doesn't block.
	go func() {
		logger.Info().Msg("Starting Temporal worker...")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}()

	return w
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, temporalWorker worker.Worker, logger zerolog.Logger) {
	server := &http.Server{
		Addr:              ":" + app.config.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server. Event streams are closed by the
	// shutdown deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop pollers and push bridges of every open session.
	app.sessions.CloseAll()
	logger.Info().Msg("Sessions closed.")

	if temporalWorker != nil {
		logger.Info().Msg("Stopping Temporal worker...")
		temporalWorker.Stop()
		logger.Info().Msg("Temporal worker stopped.")
	}
}
