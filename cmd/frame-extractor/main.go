// Package main provides the entry point for the frame extractor CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/maauso/frame-extractor/internal/bootstrap"
	"github.com/maauso/frame-extractor/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newCommand().Run(ctx, os.Args)
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "frame-extractor",
		Usage: "Extract still frames from every video in a directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"i"},
				Usage:   "Directory containing source videos (overrides VIDEO_SOURCE_DIR)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory where per-video frame folders are written (overrides OUTPUT_BASE_DIR)",
			},
			&cli.IntFlag{
				Name:    "rate",
				Aliases: []string{"r"},
				Usage:   "Frames to save per second of video (overrides DESIRED_FRAME_RATE)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output image format: jpg, png, bmp or tiff (overrides IMAGE_FORMAT)",
			},
			&cli.BoolFlag{
				Name:  "generate-sample",
				Usage: "Create a sample video in the source directory if it is missing (overrides GENERATE_SAMPLE)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			applyFlags(cmd, cfg)
			return extractAll(ctx, cfg)
		},
	}
}

// applyFlags overlays explicitly set flags on the environment configuration.
func applyFlags(cmd *cli.Command, cfg *config.Config) {
	if cmd.IsSet("source") {
		cfg.SourceDir = cmd.String("source")
	}
	if cmd.IsSet("output") {
		cfg.OutputDir = cmd.String("output")
	}
	if cmd.IsSet("rate") {
		cfg.DesiredFrameRate = strconv.FormatInt(cmd.Int("rate"), 10)
	}
	if cmd.IsSet("format") {
		cfg.ImageFormat = cmd.String("format")
	}
	if cmd.IsSet("generate-sample") {
		cfg.GenerateSample = cmd.Bool("generate-sample")
	}
}

func extractAll(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting frame extractor",
		slog.String("config", cfg.String()),
		slog.Bool("generate_sample", cfg.GenerateSample),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := deps.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}()

	summary, runErr := deps.Driver.Run(ctx)
	if summary != nil {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := deps.PushMetrics(pushCtx, summary.RunID); err != nil {
			logger.Warn("failed to push metrics", slog.String("error", err.Error()))
		}
	}
	return runErr
}
