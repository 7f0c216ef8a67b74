// Package bootstrap provides dependency initialization for the frame extractor.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/maauso/frame-extractor/internal/batch"
	"github.com/maauso/frame-extractor/internal/config"
	"github.com/maauso/frame-extractor/internal/extract"
	"github.com/maauso/frame-extractor/internal/job"
	"github.com/maauso/frame-extractor/internal/media"
	"github.com/maauso/frame-extractor/internal/metrics"
	"github.com/maauso/frame-extractor/internal/storage"
	"github.com/maauso/frame-extractor/internal/tracing"
)

// Dependencies holds all initialized dependencies for a run.
type Dependencies struct {
	Driver     *batch.Driver
	Repository job.Repository
	Registry   *prometheus.Registry

	pushgatewayURL string
	tracer         *sdktrace.TracerProvider
	logger         *slog.Logger
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rate, err := cfg.TargetRate()
	if err != nil {
		logger.Warn("invalid desired frame rate, defaulting",
			slog.Int("rate", rate),
			slog.String("error", err.Error()),
		)
	}

	// Initialize storage
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize decoder and encoder
	format, err := media.ParseImageFormat(cfg.ImageFormat)
	if err != nil {
		return nil, fmt.Errorf("parse image format: %w", err)
	}
	encoder, err := media.NewImageEncoder(format,
		media.WithJPEGQuality(cfg.JPEGQuality),
		media.WithMaxWidth(cfg.MaxFrameWidth),
	)
	if err != nil {
		return nil, fmt.Errorf("create image encoder: %w", err)
	}
	decoder := media.NewVidioDecoder()

	extractor := extract.New(decoder, encoder, store, extract.WithLogger(logger))

	// Initialize job repository and metrics
	repo := job.NewMemoryRepository()
	registry := prometheus.NewRegistry()

	opts := []batch.Option{
		batch.WithLogger(logger),
		batch.WithRepository(repo),
		batch.WithMetrics(metrics.New(registry)),
	}
	if cfg.S3Enabled() {
		opts = append(opts, batch.WithMirror(store))
	}
	if cfg.GenerateSample {
		opts = append(opts, batch.WithSampleGenerator(
			media.NewSampleGenerator(cfg.FFmpegPath, media.DefaultSampleSpec()),
		))
	}

	driver := batch.New(batch.Options{
		SourceDir:  cfg.SourceDir,
		OutputDir:  cfg.OutputDir,
		TargetRate: rate,
		S3Prefix:   cfg.S3Prefix,
	}, extractor, opts...)

	deps := &Dependencies{
		Driver:         driver,
		Repository:     repo,
		Registry:       registry,
		pushgatewayURL: cfg.PushgatewayURL,
		logger:         logger,
	}

	// Initialize tracing
	if cfg.TracesEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, cfg.TracesEndpoint)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		deps.tracer = tp
		logger.Info("tracing configured", slog.String("endpoint", cfg.TracesEndpoint))
	}

	return deps, nil
}

// PushMetrics pushes the run's metrics when a Pushgateway is configured.
func (d *Dependencies) PushMetrics(ctx context.Context, runID string) error {
	if d.pushgatewayURL == "" {
		return nil
	}
	if err := metrics.Push(ctx, d.pushgatewayURL, runID, d.Registry); err != nil {
		return err
	}
	d.logger.Info("metrics pushed", slog.String("pushgateway", d.pushgatewayURL))
	return nil
}

// Shutdown flushes pending spans.
func (d *Dependencies) Shutdown(ctx context.Context) error {
	if d.tracer == nil {
		return nil
	}
	if err := d.tracer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown tracer: %w", err)
	}
	return nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Concurrency:     cfg.S3UploadConcurrency,
		}
		s3Store, err := storage.NewS3Storage(ctx, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 mirror configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("prefix", cfg.S3Prefix),
		)
		return s3Store, nil
	}

	logger.Debug("local storage configured")
	return storage.NewLocalStorage(), nil
}
