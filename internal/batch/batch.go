// Package batch scans a source directory for videos and runs frame extraction
// on each of them in turn, aggregating a run summary.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/maauso/frame-extractor/internal/extract"
	"github.com/maauso/frame-extractor/internal/job"
	"github.com/maauso/frame-extractor/internal/job/id"
	"github.com/maauso/frame-extractor/internal/media"
	"github.com/maauso/frame-extractor/internal/metrics"
)

// Sentinel errors for fatal run failures.
var (
	// ErrSourceDirRequired is returned when no source directory is configured.
	ErrSourceDirRequired = errors.New("video source directory is required")
	// ErrOutputDirRequired is returned when no output directory is configured.
	ErrOutputDirRequired = errors.New("output base directory is required")
	// ErrSourceDirInvalid is returned when the source directory does not exist or is not a directory.
	ErrSourceDirInvalid = errors.New("video source directory does not exist or is not a directory")
)

const outputDirPerm = 0750

// VideoExtensions lists the recognized video file extensions, lower case.
var VideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv", ".flv", ".webm"}

// IsVideoFile reports whether name ends in a recognized video extension,
// ignoring case.
func IsVideoFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range VideoExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Options is the explicit configuration of a run.
type Options struct {
	SourceDir  string
	OutputDir  string
	TargetRate int
	// S3Prefix is prepended to mirrored object keys.
	S3Prefix string
}

// Extractor extracts frames from a single video.
type Extractor interface {
	Extract(ctx context.Context, videoPath, outputFolder string, targetRate float64) extract.Result
}

// SampleGenerator writes a demonstration video to path.
type SampleGenerator interface {
	Generate(ctx context.Context, path string) error
}

// Mirror copies a finished output folder to remote storage.
type Mirror interface {
	UploadDir(ctx context.Context, dir, keyPrefix string) (int, error)
}

// Driver runs extraction over every video in a source directory.
type Driver struct {
	opts      Options
	extractor Extractor
	repo      job.Repository
	logger    *slog.Logger
	metrics   *metrics.Metrics
	sample    SampleGenerator
	mirror    Mirror
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRepository sets the job repository. Defaults to an in-memory one.
func WithRepository(repo job.Repository) Option {
	return func(d *Driver) {
		if repo != nil {
			d.repo = repo
		}
	}
}

// WithMetrics sets the collectors updated per video.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}

// WithSampleGenerator enables creation of a sample video in the source
// directory when it is missing.
func WithSampleGenerator(g SampleGenerator) Option {
	return func(d *Driver) {
		d.sample = g
	}
}

// WithMirror enables uploading each successfully extracted folder.
func WithMirror(m Mirror) Option {
	return func(d *Driver) {
		d.mirror = m
	}
}

// New creates a Driver.
func New(opts Options, extractor Extractor, options ...Option) *Driver {
	d := &Driver{
		opts:      opts,
		extractor: extractor,
		repo:      job.NewMemoryRepository(),
		logger:    slog.Default(),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Run validates the options, then extracts every video found directly inside
// the source directory. Per-video failures are counted as skipped; only
// configuration problems and cancellation return an error.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	runID := id.Generate(id.PrefixRun)

	ctx, span := otel.Tracer("batch").Start(ctx, "batch.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.String("run.source_dir", d.opts.SourceDir),
		attribute.String("run.output_dir", d.opts.OutputDir),
		attribute.Int("run.target_rate", d.opts.TargetRate),
	)

	summary, err := d.run(ctx, runID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
	}
	if summary != nil {
		span.SetAttributes(
			attribute.Int("run.processed", summary.Processed),
			attribute.Int("run.skipped", summary.Skipped),
		)
	}
	return summary, err
}

func (d *Driver) run(ctx context.Context, runID string) (*Summary, error) {
	log := d.logger.With(slog.String("run_id", runID))

	if strings.TrimSpace(d.opts.SourceDir) == "" {
		return nil, ErrSourceDirRequired
	}
	if strings.TrimSpace(d.opts.OutputDir) == "" {
		return nil, ErrOutputDirRequired
	}

	info, err := os.Stat(d.opts.SourceDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSourceDirInvalid, d.opts.SourceDir)
	}

	if err := d.ensureOutputDir(log); err != nil {
		return nil, err
	}

	d.generateSample(ctx, log)

	entries, err := os.ReadDir(d.opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}

	absOutput, err := filepath.Abs(d.opts.OutputDir)
	if err != nil {
		absOutput = d.opts.OutputDir
	}

	summary := &Summary{RunID: runID, OutputDir: absOutput}

	log.Info("scanning videos", slog.String("source_dir", d.opts.SourceDir))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return d.finish(ctx, log, summary, fmt.Errorf("run interrupted: %w", err))
		}

		name := entry.Name()
		if !IsVideoFile(name) {
			log.Info("skipping non-video file", slog.String("file", name))
			summary.NonVideo++
			d.metrics.ObserveNonVideo()
			continue
		}

		log.Info("found video", slog.String("file", name))

		res, err := d.processVideo(ctx, log, runID, name)
		if err != nil {
			return d.finish(ctx, log, summary, err)
		}
		if res.Outcome == extract.OutcomeCancelled {
			summary.Skipped++
			return d.finish(ctx, log, summary, fmt.Errorf("run interrupted: %w", res.Err))
		}
		if res.OK() {
			summary.Processed++
		} else {
			summary.Skipped++
		}
	}

	return d.finish(ctx, log, summary, nil)
}

func (d *Driver) ensureOutputDir(log *slog.Logger) error {
	if _, err := os.Stat(d.opts.OutputDir); err == nil {
		return nil
	}
	if err := os.MkdirAll(d.opts.OutputDir, outputDirPerm); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	log.Info("created base output directory", slog.String("output_dir", d.opts.OutputDir))
	return nil
}

// generateSample writes the demonstration video when enabled and absent.
// Failures are logged and never abort the run.
func (d *Driver) generateSample(ctx context.Context, log *slog.Logger) {
	if d.sample == nil {
		return
	}

	samplePath := filepath.Join(d.opts.SourceDir, media.SampleFileName)
	if _, err := os.Stat(samplePath); err == nil {
		return
	}

	log.Info("creating sample video", slog.String("path", samplePath))
	if err := d.sample.Generate(ctx, samplePath); err != nil {
		log.Warn("could not create sample video", slog.String("path", samplePath), slog.String("error", err.Error()))
		return
	}
	log.Info("sample video created", slog.String("path", samplePath))
}

func (d *Driver) processVideo(ctx context.Context, log *slog.Logger, runID, name string) (extract.Result, error) {
	videoPath := filepath.Join(d.opts.SourceDir, name)
	videoName := videoBaseName(name)
	outputFolder := filepath.Join(d.opts.OutputDir, videoName)

	j := job.New(runID, videoPath, outputFolder, float64(d.opts.TargetRate))
	if err := d.repo.Save(ctx, j); err != nil {
		return extract.Result{}, fmt.Errorf("save job: %w", err)
	}
	if err := j.Start(); err != nil {
		return extract.Result{}, fmt.Errorf("start job: %w", err)
	}
	if err := d.repo.Save(ctx, j); err != nil {
		return extract.Result{}, fmt.Errorf("save job: %w", err)
	}

	res := d.extractor.Extract(ctx, videoPath, outputFolder, float64(d.opts.TargetRate))

	stats := job.Stats{
		SkipInterval: res.SkipInterval,
		FramesRead:   res.FramesRead,
		FramesSaved:  res.FramesSaved,
	}

	if res.OK() {
		if err := j.Complete(stats); err != nil {
			log.Warn("could not complete job", slog.String("job_id", j.ID), slog.String("error", err.Error()))
		}
		d.mirrorFolder(ctx, log, j, videoName)
	} else {
		msg := string(res.Outcome)
		if res.Err != nil {
			msg = fmt.Sprintf("%s: %v", res.Outcome, res.Err)
		}
		if err := j.Fail(stats, msg); err != nil {
			log.Warn("could not fail job", slog.String("job_id", j.ID), slog.String("error", err.Error()))
		}
	}

	d.metrics.ObserveVideo(string(res.Outcome), res.FramesRead, res.FramesSaved, j.Duration().Seconds())
	log.Debug("job finished",
		slog.String("job_id", j.ID),
		slog.String("status", string(j.GetStatus())),
		slog.Duration("duration", j.Duration()),
	)

	if err := d.repo.Save(ctx, j); err != nil {
		return res, fmt.Errorf("save job: %w", err)
	}
	return res, nil
}

// videoBaseName strips the extension from a file name. Leading dots belong
// to the name, so ".mp4" keeps its full name and never maps to the base
// output directory.
func videoBaseName(name string) string {
	dot := strings.LastIndexByte(name, '.')
	if dot <= 0 || strings.TrimLeft(name[:dot], ".") == "" {
		return name
	}
	return name[:dot]
}

func (d *Driver) mirrorFolder(ctx context.Context, log *slog.Logger, j *job.Job, videoName string) {
	if d.mirror == nil {
		return
	}

	prefix := path.Join(d.opts.S3Prefix, videoName)
	n, err := d.mirror.UploadDir(ctx, j.OutputFolder, prefix)
	j.SetUploaded(n)
	if err != nil {
		log.Warn("failed to mirror frames",
			slog.String("folder", j.OutputFolder),
			slog.Int("uploaded", n),
			slog.String("error", err.Error()),
		)
		return
	}
	log.Info("mirrored frames", slog.String("prefix", prefix), slog.Int("uploaded", n))
}

func (d *Driver) finish(ctx context.Context, log *slog.Logger, summary *Summary, runErr error) (*Summary, error) {
	// Records are read back with a fresh context so an interrupted run still
	// reports what it did.
	jobs, err := d.repo.ListByRun(context.WithoutCancel(ctx), summary.RunID)
	if err == nil {
		summary.Jobs = jobs
	}

	log.Info("summary",
		slog.Int("processed", summary.Processed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("non_video", summary.NonVideo),
		slog.String("output_dir", summary.OutputDir),
	)
	return summary, runErr
}
