package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/CleanCSV/internal/config"
	"github.com/JonMunkholm/CleanCSV/internal/core"
	"github.com/JonMunkholm/CleanCSV/internal/logging"
	"github.com/JonMunkholm/CleanCSV/internal/payment"
	"github.com/JonMunkholm/CleanCSV/internal/repair"
	"github.com/JonMunkholm/CleanCSV/internal/store"
	"github.com/JonMunkholm/CleanCSV/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"storage_backend", cfg.Storage.Backend,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"payments_enabled", cfg.Payment.Enabled(),
		"retention_ttl", cfg.Retention.TTL.String(),
	)

	ctx := context.Background()

	jobs, closeJobs, err := openJobStore(ctx, &cfg.Database)
	if err != nil {
		slog.Error("failed to open job store", "error", err)
		os.Exit(1)
	}
	defer closeJobs()

	blobs, err := openBlobStore(&cfg.Storage)
	if err != nil {
		slog.Error("failed to open blob store", "error", err)
		os.Exit(1)
	}

	service := core.NewService(jobs, blobs, newGateway(cfg), core.Options{
		Repair: repair.Options{
			MaxRows:             cfg.Repair.MaxRows,
			MaxCols:             cfg.Repair.MaxCols,
			MaxPreambleDepth:    cfg.Repair.MaxPreambleDepth,
			HeaderConfidenceGap: cfg.Repair.HeaderConfidenceGap,
		},
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
		Timeout:       cfg.Upload.Timeout,
	})

	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	sweeper, err := service.StartRetentionScheduler(jobCtx, core.RetentionConfig{
		TTL:      cfg.Retention.TTL,
		Schedule: cfg.Retention.SweepSchedule,
	})
	if err != nil {
		slog.Error("failed to start retention scheduler", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs; Stop waits for a running sweep.
		cancelJobs()
		<-sweeper.Stop().Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active uploads to complete (with timeout)
		uploadStatus := service.UploadLimiterStatus()
		if uploadStatus.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", uploadStatus.Active)
			if err := service.WaitForUploads(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openJobStore connects to PostgreSQL and applies migrations, or falls back
// to an in-memory store when no database URL is configured.
func openJobStore(ctx context.Context, cfg *config.DatabaseConfig) (store.JobStore, func(), error) {
	if cfg.URL == "" {
		slog.Warn("DATABASE_URL not set, keeping jobs in memory")
		return store.NewMemoryJobStore(), func() {}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	if err := store.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store.NewPostgresJobStore(pool), pool.Close, nil
}

// openBlobStore opens the configured file storage backend.
func openBlobStore(cfg *config.StorageConfig) (store.BlobStore, error) {
	switch cfg.Backend {
	case "s3":
		slog.Info("using S3 blob storage", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
		return store.NewS3BlobStore(store.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Prefix:          cfg.S3Prefix,
		}), nil
	case "", "local":
		slog.Info("using local blob storage", "dir", cfg.Dir)
		return store.NewLocalBlobStore(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// newGateway returns the Stripe gateway when payments are configured.
func newGateway(cfg *config.Config) payment.Gateway {
	if !cfg.Payment.Enabled() {
		slog.Info("payments disabled, downloads are free")
		return payment.Disabled{}
	}
	return payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:     cfg.Payment.StripeSecretKey,
		PriceID:       cfg.Payment.StripePriceID,
		WebhookSecret: cfg.Payment.StripeWebhookSecret,
		BaseURL:       cfg.Server.BaseURL,
	})
}
