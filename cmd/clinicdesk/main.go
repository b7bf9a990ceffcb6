package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinicdesk/internal/cache"
	"clinicdesk/internal/config"
	"clinicdesk/internal/constants"
	"clinicdesk/internal/database"
	"clinicdesk/internal/retry"
	"clinicdesk/internal/service"
	"clinicdesk/internal/tracing"
	"clinicdesk/pkg/directory"
	"clinicdesk/pkg/media"
	"clinicdesk/pkg/storage"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("ClinicDesk %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting ClinicDesk ingestion service")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
	} else if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
		logger.SetLevel(logrus.InfoLevel)
	}

	tracingManager := tracing.NewManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Initialize the database with exponential backoff retry; on a fresh
	// deployment the data volume may not be mounted yet.
	var db *database.Database
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
		Jitter:       true,
	})
	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer db.Close()

	directoryClient := directory.NewClient(directory.ClientConfig{
		BaseURL:  cfg.Directory.BaseURL,
		Instance: cfg.Directory.Instance,
		APIKey:   cfg.Directory.APIKey,
		Timeout:  time.Duration(cfg.Directory.TimeoutSec) * time.Second,
	}, constants.DirectoryMaxAttempts)

	if !directoryClient.HasCredentials() {
		logger.Warn("Directory credentials not configured; masked addresses will not be resolved and profile pictures will not be fetched")
	}

	storageClient := storage.NewClient(storage.ClientConfig{
		BaseURL:    cfg.Storage.BaseURL,
		Bucket:     cfg.Storage.Bucket,
		PathPrefix: cfg.Storage.PathPrefix,
		APIKey:     cfg.Storage.APIKey,
	})

	if !storageClient.HasCredentials() {
		logger.Warn("Storage credentials not configured; media will be persisted without durable URLs")
	}

	acquirer := media.NewAcquirer(directoryClient, storageClient, logger)
	resolutionCache := cache.NewMemoryResolutionCache()

	pipeline := service.NewPipeline(logger,
		service.NewIdentityResolver(directoryClient, resolutionCache, logger, cfg.Resolver),
		service.NewNormalizer(acquirer, logger),
		service.NewSessionManager(db, directoryClient, logger),
		service.NewMessageWriter(db, logger),
	)

	cleaner := service.NewRetentionCleaner(db, cfg.RetentionDays, logger)
	go cleaner.Start(ctx)

	server := NewServer(cfg, pipeline, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}
