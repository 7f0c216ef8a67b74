// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"

	"github.com/maauso/frame-extractor/internal/media"
)

// DefaultTargetRate is used when DESIRED_FRAME_RATE is absent or unusable.
const DefaultTargetRate = 1

// Static errors for configuration validation.
var (
	// ErrSourceDirRequired is returned when VIDEO_SOURCE_DIR is not set.
	ErrSourceDirRequired = errors.New("config: VIDEO_SOURCE_DIR is required")
	// ErrOutputDirRequired is returned when OUTPUT_BASE_DIR is not set.
	ErrOutputDirRequired = errors.New("config: OUTPUT_BASE_DIR is required")
	// ErrInvalidTargetRate is returned when DESIRED_FRAME_RATE is not a positive integer.
	ErrInvalidTargetRate = errors.New("config: DESIRED_FRAME_RATE must be a positive integer")
)

// Config holds all configuration for the application.
type Config struct {
	// Batch settings
	SourceDir        string `env:"VIDEO_SOURCE_DIR" json:"source_dir"`
	OutputDir        string `env:"OUTPUT_BASE_DIR" json:"output_dir"`
	DesiredFrameRate string `env:"DESIRED_FRAME_RATE" json:"desired_frame_rate"` // parsed leniently by TargetRate
	GenerateSample   bool   `env:"GENERATE_SAMPLE, default=false" json:"generate_sample"`

	// Frame output settings
	ImageFormat   string `env:"IMAGE_FORMAT, default=jpg" json:"image_format" validate:"image_format"`
	JPEGQuality   int    `env:"JPEG_QUALITY, default=95" json:"jpeg_quality" validate:"min=1,max=100"`
	MaxFrameWidth int    `env:"MAX_FRAME_WIDTH, default=0" json:"max_frame_width" validate:"min=0"`

	// Sample video generation
	FFmpegPath string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`

	// Optional S3 mirror settings
	S3Bucket            string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region            string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint          string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	S3Prefix            string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	S3UploadConcurrency int    `env:"S3_UPLOAD_CONCURRENCY, default=4" json:"s3_upload_concurrency" validate:"min=1,max=64"`
	AWSAccessKeyID      string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey  string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Observability settings
	PushgatewayURL string `env:"PUSHGATEWAY_URL" json:"pushgateway_url,omitempty" validate:"omitempty,url"`
	TracesEndpoint string `env:"OTEL_TRACES_ENDPOINT" json:"traces_endpoint,omitempty" validate:"omitempty,url"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
// Required values are not enforced here because CLI flags may still supply
// them; call Validate once all sources have been applied.
func Load() (*Config, error) {
	return load(envconfig.OsLookuper())
}

func load(lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and that the
// optional values are within range.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SourceDir) == "" {
		return ErrSourceDirRequired
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return ErrOutputDirRequired
	}
	if err := newValidator().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// newValidator returns a validator that also understands the image_format
// tag, which accepts every spelling media.ParseImageFormat does.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("image_format", func(fl validator.FieldLevel) bool {
		_, err := media.ParseImageFormat(fl.Field().String())
		return err == nil
	})
	return v
}

// TargetRate returns the desired number of saved frames per second of source
// video. An empty value yields DefaultTargetRate. A value that is not an
// integer, or is not positive, also yields DefaultTargetRate together with
// ErrInvalidTargetRate so the caller can warn about it.
func (c *Config) TargetRate() (int, error) {
	raw := strings.TrimSpace(c.DesiredFrameRate)
	if raw == "" {
		return DefaultTargetRate, nil
	}
	rate, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultTargetRate, fmt.Errorf("%w: got %q", ErrInvalidTargetRate, raw)
	}
	if rate <= 0 {
		return DefaultTargetRate, fmt.Errorf("%w: got %d", ErrInvalidTargetRate, rate)
	}
	return rate, nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for log shipping.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{SourceDir: %s, OutputDir: %s, DesiredFrameRate: %s, ImageFormat: %s, JPEGQuality: %d, MaxFrameWidth: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.SourceDir,
		c.OutputDir,
		c.DesiredFrameRate,
		c.ImageFormat,
		c.JPEGQuality,
		c.MaxFrameWidth,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
