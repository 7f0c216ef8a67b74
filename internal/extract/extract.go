// Package extract decodes a single video and writes every n-th frame to an
// output folder as numbered image files.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/maauso/frame-extractor/internal/media"
)

// Outcome classifies how an extraction ended.
type Outcome string

const (
	// OutcomeExtracted means the video was decoded to end of stream.
	OutcomeExtracted Outcome = "extracted"
	// OutcomeOpenFailed means the video could not be opened for decoding.
	OutcomeOpenFailed Outcome = "open_failed"
	// OutcomeWriteFailed means the output folder or a frame file could not be written.
	OutcomeWriteFailed Outcome = "write_failed"
	// OutcomeCancelled means the context was cancelled before end of stream.
	OutcomeCancelled Outcome = "cancelled"
)

// FrameEncoder serializes a decoded frame.
type FrameEncoder interface {
	Encode(w io.Writer, img image.Image) error
	Extension() string
}

// FrameWriter persists encoded frames.
type FrameWriter interface {
	EnsureDir(ctx context.Context, dir string) error
	WriteFile(ctx context.Context, path string, data io.Reader) error
}

// Result reports what happened to one video.
type Result struct {
	Outcome      Outcome
	Err          error
	VideoPath    string
	OutputFolder string
	Info         media.VideoInfo
	SkipInterval int
	FramesRead   int
	FramesSaved  int
}

// OK reports whether the video counts as processed.
func (r Result) OK() bool {
	return r.Outcome == OutcomeExtracted
}

// Extractor writes sampled frames of a video to disk.
type Extractor struct {
	decoder media.Decoder
	encoder FrameEncoder
	writer  FrameWriter
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for per-video progress lines.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Extractor.
func New(decoder media.Decoder, encoder FrameEncoder, writer FrameWriter, opts ...Option) *Extractor {
	e := &Extractor{
		decoder: decoder,
		encoder: encoder,
		writer:  writer,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SkipInterval returns how many source frames make up one saved frame:
// native/target rounded half to even, never below 1. A non-positive target
// saves every frame.
func SkipInterval(nativeRate, targetRate float64) int {
	if targetRate <= 0 {
		return 1
	}
	n := math.RoundToEven(nativeRate / targetRate)
	if math.IsNaN(n) || n < 1 {
		return 1
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// FrameName returns the file name of the index-th saved frame.
func FrameName(index int, ext string) string {
	return fmt.Sprintf("frame_%06d.%s", index, ext)
}

// Extract decodes videoPath sequentially and writes one frame out of every
// SkipInterval frames into outputFolder as frame_NNNNNN.<ext>, numbering
// saved frames from zero.
func (e *Extractor) Extract(ctx context.Context, videoPath, outputFolder string, targetRate float64) Result {
	ctx, span := otel.Tracer("extract").Start(ctx, "extract.Video")
	defer span.End()

	span.SetAttributes(
		attribute.String("video.path", videoPath),
		attribute.String("video.output_folder", outputFolder),
		attribute.Float64("video.target_rate", targetRate),
	)

	res := e.extract(ctx, videoPath, outputFolder, targetRate)

	span.SetAttributes(
		attribute.String("extract.outcome", string(res.Outcome)),
		attribute.Int("extract.skip_interval", res.SkipInterval),
		attribute.Int("extract.frames_read", res.FramesRead),
		attribute.Int("extract.frames_saved", res.FramesSaved),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, string(res.Outcome))
	}

	return res
}

func (e *Extractor) extract(ctx context.Context, videoPath, outputFolder string, targetRate float64) Result {
	name := filepath.Base(videoPath)
	log := e.logger.With(slog.String("file", name))

	res := Result{
		VideoPath:    videoPath,
		OutputFolder: outputFolder,
	}

	if err := e.writer.EnsureDir(ctx, outputFolder); err != nil {
		log.Error("failed to create output folder", slog.String("folder", outputFolder), slog.String("error", err.Error()))
		res.Outcome, res.Err = OutcomeWriteFailed, err
		return res
	}

	stream, err := e.decoder.Open(ctx, videoPath)
	if err != nil {
		log.Error("could not open video, skipping", slog.String("path", videoPath), slog.String("error", err.Error()))
		res.Outcome, res.Err = OutcomeOpenFailed, err
		return res
	}
	defer func() { _ = stream.Close() }()

	res.Info = stream.Info()
	res.SkipInterval = SkipInterval(res.Info.FrameRate, targetRate)

	log.Info("processing video",
		slog.String("resolution", fmt.Sprintf("%dx%d", res.Info.Width, res.Info.Height)),
		slog.String("fps", fmt.Sprintf("%.2f", res.Info.FrameRate)),
		slog.Int("total_frames", res.Info.TotalFrames),
	)
	log.Info("extracting frames",
		slog.Float64("target_rate", targetRate),
		slog.Int("skipping", res.SkipInterval-1),
	)

	var buf bytes.Buffer
	ext := e.encoder.Extension()

	for {
		if err := ctx.Err(); err != nil {
			res.Outcome, res.Err = OutcomeCancelled, err
			return res
		}

		frame, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				res.Outcome, res.Err = OutcomeCancelled, ctxErr
				return res
			}
			// Decoder failures mid-stream end the video like end of stream does.
			log.Warn("decoder stopped early", slog.Int("frames_read", res.FramesRead), slog.String("error", err.Error()))
			break
		}

		if res.FramesRead%res.SkipInterval == 0 {
			path := filepath.Join(outputFolder, FrameName(res.FramesSaved, ext))
			if err := e.writeFrame(ctx, &buf, path, frame); err != nil {
				log.Error("failed to write frame, aborting video", slog.String("frame", path), slog.String("error", err.Error()))
				res.Outcome, res.Err = OutcomeWriteFailed, err
				return res
			}
			res.FramesSaved++
		}
		res.FramesRead++
	}

	log.Info("finished processing video",
		slog.Int("frames_read", res.FramesRead),
		slog.Int("frames_saved", res.FramesSaved),
	)

	res.Outcome = OutcomeExtracted
	return res
}

func (e *Extractor) writeFrame(ctx context.Context, buf *bytes.Buffer, path string, frame image.Image) error {
	buf.Reset()
	if err := e.encoder.Encode(buf, frame); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := e.writer.WriteFile(ctx, path, buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
