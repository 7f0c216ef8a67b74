package media

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleGenerator_Args(t *testing.T) {
	g := NewSampleGenerator("", DefaultSampleSpec())
	assert.Equal(t, "ffmpeg", g.ffmpegPath)

	args, err := g.args("/videos/dummy_input_video.mp4")
	require.NoError(t, err)

	joined := strings.Join(args, " ")
	assert.Equal(t, 3, strings.Count(joined, "-f lavfi"))
	assert.Contains(t, joined, "color=c=red:s=640x480:r=24:d=1")
	assert.Contains(t, joined, "color=c=blue:s=640x480:r=24:d=1")
	assert.Contains(t, joined, "concat")
	assert.Contains(t, args, "-y")
	assert.Contains(t, args, "/videos/dummy_input_video.mp4")
}

func TestSampleGenerator_InvalidSpec(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SampleSpec)
		want   error
	}{
		{"zero width", func(s *SampleSpec) { s.Width = 0 }, ErrInvalidDimensions},
		{"negative height", func(s *SampleSpec) { s.Height = -1 }, ErrInvalidDimensions},
		{"zero duration", func(s *SampleSpec) { s.SegmentDuration = 0 }, ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := DefaultSampleSpec()
			tt.mutate(&spec)

			err := NewSampleGenerator("", spec).Generate(context.Background(), filepath.Join(t.TempDir(), "x.mp4"))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("no colors", func(t *testing.T) {
		spec := DefaultSampleSpec()
		spec.Colors = nil
		_, err := NewSampleGenerator("", spec).args("x.mp4")
		assert.Error(t, err)
	})
}

func TestSampleGenerator_Generate(t *testing.T) {
	skipIfNoFFmpeg(t)

	spec := DefaultSampleSpec()
	spec.Width, spec.Height = 64, 48

	path := filepath.Join(t.TempDir(), "nested", SampleFileName)
	ctx := context.Background()

	require.NoError(t, NewSampleGenerator("", spec).Generate(ctx, path))

	stream, err := NewVidioDecoder().Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	assert.Equal(t, 64, stream.Info().Width)
	assert.InDelta(t, 24.0, stream.Info().FrameRate, 0.01)

	count := 0
	for {
		_, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 72, count)
}
