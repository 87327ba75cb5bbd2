package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/warbler/internal/repositories"
	"github.com/anonto42/warbler/internal/router"
	"github.com/anonto42/warbler/pkg/config"
	"github.com/anonto42/warbler/pkg/firebase"
	"github.com/anonto42/warbler/pkg/objectstore"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Info("Application is starting")

	// Initialize database connections
	db, err := config.InitDB(cfg, logger)
	if err != nil {
		sugar.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	if err := repositories.Migrate(db.SQL); err != nil {
		sugar.Fatalf("Failed to auto migrate models: %v", err)
	}
	sugar.Info("Auto-migrations completed.")

	ctx := context.Background()
	deps := router.Dependencies{
		Config: cfg,
		Logger: logger,
		DB:     db.SQL,
	}

	if db.Mongo != nil {
		activityRepo := repositories.NewMongoActivityRepository(db.Mongo.Database(cfg.MongoDatabase))
		if err := activityRepo.EnsureIndexes(ctx); err != nil {
			sugar.Fatalf("Failed to create activity indexes: %v", err)
		}
		deps.Activities = activityRepo
		sugar.Info("Activity is stored in MongoDB.")
	}

	if db.Redis != nil {
		deps.LoginAttempts = repositories.NewRedisLoginAttemptRepository(db.Redis)
		sugar.Info("Login attempts are tracked in Redis.")
	}

	if cfg.FirebaseEnabled() {
		verifier, err := firebase.NewVerifier(ctx, cfg.FirebaseCredentialsPath, sugar)
		if err != nil {
			sugar.Fatalf("Failed to initialize Firebase: %v", err)
		}
		deps.Firebase = verifier
	}

	if cfg.MinioEnabled() {
		store, err := objectstore.NewMinioStore(ctx, objectstore.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			sugar.Fatalf("Failed to initialize object storage: %v", err)
		}
		deps.Images = store
		sugar.Infof("Profile images are uploaded to bucket %s.", cfg.MinioBucket)
	}

	e, err := router.New(deps)
	if err != nil {
		sugar.Fatalf("Failed to build router: %v", err)
	}

	// Start server
	go func() {
		sugar.Infof("Starting HTTP server on :%s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("HTTP server failed: %v", err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	sugar.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("e.Shutdown: %v", err)
	}
	sugar.Info("HTTP server is stopped")
}
