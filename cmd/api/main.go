package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"studio/internal/entitlement"
	"studio/internal/generation"
	"studio/internal/http/handlers"
	"studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/infra/credentials"
	"studio/internal/infra/geoip"
	"studio/internal/middleware"
	"studio/internal/providers/genai"
	"studio/internal/reference"
	"studio/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		bootLogger := infra.NewLogger("development")
		bootLogger.Fatal().Err(err).Msg("config load failed")
	}

	logger := infra.NewLogger(cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := infra.NewDBPool(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	sqlRunner := infra.NewSQLRunner(pool, logger)

	apiKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if apiKey == "" {
		store := credentials.NewStore(sqlRunner)
		keyCtx, keyCancel := context.WithTimeout(context.Background(), 5*time.Second)
		stored, err := store.GeminiAPIKey(keyCtx)
		keyCancel()
		if err != nil {
			logger.Warn().Err(err).Msg("stored gemini key lookup failed")
		} else {
			apiKey = stored
		}
	}
	if apiKey == "" {
		logger.Warn().Msg("no gemini api key configured, generation will return placeholder responses")
	}

	client, err := genai.NewClient(genai.Options{
		APIKey:             apiKey,
		BaseURL:            cfg.GeminiBaseURL,
		FallbackImageModel: cfg.FallbackImageModel,
		Timeout:            cfg.DispatchTimeout,
		Logger:             &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("genai client init failed")
	}

	fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("file store init failed")
	}

	var sink storage.BlobStore = fileStore
	var blobs handlers.BlobReader = fileStore
	if cfg.S3Configured() {
		s3Store, err := storage.NewS3Store(storage.S3Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("s3 store init failed")
		}
		sink = s3Store
		blobs = nil
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("using s3 blob sink")
	}

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable")
	} else if resolver != nil {
		if closer, ok := resolver.(interface{ Close() error }); ok {
			defer func() { _ = closer.Close() }()
		}
		lookup = resolver.CountryCode
	}

	ledger := entitlement.NewLedger(pool, logger)
	svc := generation.NewService(client, reference.NewResolver(nil, logger), sink, sqlRunner, cfg.GeminiModel, logger)

	app := handlers.NewApp(sqlRunner, cfg, logger, ledger, svc, blobs)
	router := httpapi.NewRouter(app, logger, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("api listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("api stopped")
}
