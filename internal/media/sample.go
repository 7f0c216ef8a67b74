package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// SampleFileName is the name of the demonstration clip written into an
// otherwise empty source directory.
const SampleFileName = "dummy_input_video.mp4"

// ErrInvalidDuration is returned when a sample segment duration is not positive.
var ErrInvalidDuration = errors.New("invalid duration: must be positive")

// SampleSpec describes a synthetic clip made of solid color segments.
type SampleSpec struct {
	Width           int
	Height          int
	FPS             int
	SegmentDuration float64
	Colors          []string
}

// DefaultSampleSpec is a 3 second 640x480 clip at 24 fps: one second each of
// red, green and blue.
func DefaultSampleSpec() SampleSpec {
	return SampleSpec{
		Width:           640,
		Height:          480,
		FPS:             24,
		SegmentDuration: 1,
		Colors:          []string{"red", "green", "blue"},
	}
}

// SampleGenerator synthesizes placeholder videos with ffmpeg's lavfi source.
type SampleGenerator struct {
	ffmpegPath string
	spec       SampleSpec
}

// NewSampleGenerator creates a new SampleGenerator.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewSampleGenerator(ffmpegPath string, spec SampleSpec) *SampleGenerator {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &SampleGenerator{ffmpegPath: ffmpegPath, spec: spec}
}

// Generate writes the sample clip to path, overwriting any existing file.
func (g *SampleGenerator) Generate(ctx context.Context, path string) error {
	args, err := g.args(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create sample directory: %w", err)
	}
	return runFFmpeg(ctx, g.ffmpegPath, args)
}

// args builds the ffmpeg command line that concatenates one color segment
// per entry in the spec.
func (g *SampleGenerator) args(path string) ([]string, error) {
	s := g.spec
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, s.Width, s.Height)
	}
	if s.SegmentDuration <= 0 {
		return nil, fmt.Errorf("%w: got %.2f", ErrInvalidDuration, s.SegmentDuration)
	}
	if s.FPS <= 0 || len(s.Colors) == 0 {
		return nil, errors.New("sample spec needs a positive fps and at least one color")
	}

	segments := make([]*ffmpeg.Stream, 0, len(s.Colors))
	for _, color := range s.Colors {
		source := fmt.Sprintf("color=c=%s:s=%dx%d:r=%d:d=%g", color, s.Width, s.Height, s.FPS, s.SegmentDuration)
		segments = append(segments, ffmpeg.Input(source, ffmpeg.KwArgs{"f": "lavfi"}))
	}

	stream := ffmpeg.Concat(segments).
		Output(path, ffmpeg.KwArgs{
			"r":       s.FPS,
			"c:v":     "mpeg4",
			"pix_fmt": "yuv420p",
		}).
		OverWriteOutput()

	return stream.GetArgs(), nil
}
