package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/frame-extractor/internal/media"
	"github.com/maauso/frame-extractor/internal/storage"
)

// fakeDecoder serves synthetic streams of a fixed length.
type fakeDecoder struct {
	info    media.VideoInfo
	frames  int
	failAt  int // Next returns an error at this index when > 0
	openErr error
	streams []*fakeStream
}

func (d *fakeDecoder) Open(_ context.Context, _ string) (media.Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := &fakeStream{info: d.info, frames: d.frames, failAt: d.failAt}
	d.streams = append(d.streams, s)
	return s, nil
}

type fakeStream struct {
	info   media.VideoInfo
	frames int
	failAt int
	pos    int
	closed bool
}

func (s *fakeStream) Info() media.VideoInfo { return s.info }

func (s *fakeStream) Next() (image.Image, error) {
	if s.failAt > 0 && s.pos == s.failAt {
		return nil, errors.New("corrupt packet")
	}
	if s.pos >= s.frames {
		return nil, io.EOF
	}
	s.pos++
	return image.NewRGBA(image.Rect(0, 0, 4, 2)), nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// mockWriter is a mock implementation of FrameWriter.
type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) EnsureDir(ctx context.Context, dir string) error {
	args := m.Called(ctx, dir)
	return args.Error(0)
}

func (m *mockWriter) WriteFile(ctx context.Context, path string, data io.Reader) error {
	args := m.Called(ctx, path, data)
	return args.Error(0)
}

func newPNGEncoder(t *testing.T) *media.ImageEncoder {
	t.Helper()
	enc, err := media.NewImageEncoder(media.FormatPNG)
	require.NoError(t, err)
	return enc
}

func listFrames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestSkipInterval(t *testing.T) {
	tests := []struct {
		name   string
		native float64
		target float64
		want   int
	}{
		{"one per second at 30fps", 30, 1, 30},
		{"two per second at 30fps", 30, 2, 15},
		{"target above native", 30, 60, 1},
		{"every frame", 24, 24, 1},
		{"zero target", 30, 0, 1},
		{"negative target", 30, -5, 1},
		{"unknown native rate", 0, 1, 1},
		{"NTSC", 29.97, 1, 30},
		{"half rounds to even down", 25, 10, 2},
		{"half rounds to even up", 35, 10, 4},
		{"fractional target", 24, 0.5, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SkipInterval(tt.native, tt.target))
		})
	}
}

func TestFrameName(t *testing.T) {
	assert.Equal(t, "frame_000000.jpg", FrameName(0, "jpg"))
	assert.Equal(t, "frame_000042.png", FrameName(42, "png"))
	assert.Equal(t, "frame_1234567.jpg", FrameName(1234567, "jpg"))
}

func TestExtractor_Extract(t *testing.T) {
	tests := []struct {
		name      string
		fps       float64
		frames    int
		target    float64
		wantSkip  int
		wantSaved int
	}{
		{"30fps 90 frames at 1/s", 30, 90, 1, 30, 3},
		{"30fps 91 frames at 1/s", 30, 91, 1, 30, 4},
		{"24fps 72 frames at 2/s", 24, 72, 2, 12, 6},
		{"every frame when target is zero", 25, 7, 0, 1, 7},
		{"empty video", 30, 0, 1, 30, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := &fakeDecoder{
				info:   media.VideoInfo{Width: 4, Height: 2, FrameRate: tt.fps, TotalFrames: tt.frames},
				frames: tt.frames,
			}
			out := filepath.Join(t.TempDir(), "clip")
			e := New(dec, newPNGEncoder(t), storage.NewLocalStorage())

			res := e.Extract(context.Background(), "/videos/clip.mp4", out, tt.target)

			require.True(t, res.OK(), "unexpected outcome %s: %v", res.Outcome, res.Err)
			assert.Equal(t, tt.wantSkip, res.SkipInterval)
			assert.Equal(t, tt.frames, res.FramesRead)
			assert.Equal(t, tt.wantSaved, res.FramesSaved)
			assert.Equal(t, out, res.OutputFolder)

			names := listFrames(t, out)
			require.Len(t, names, tt.wantSaved)
			for i, n := range names {
				assert.Equal(t, FrameName(i, "png"), n)
			}

			require.Len(t, dec.streams, 1)
			assert.True(t, dec.streams[0].closed, "stream must be released")
		})
	}
}

func TestExtractor_Extract_Repeatable(t *testing.T) {
	dec := &fakeDecoder{
		info:   media.VideoInfo{Width: 4, Height: 2, FrameRate: 30, TotalFrames: 95},
		frames: 95,
	}
	e := New(dec, newPNGEncoder(t), storage.NewLocalStorage())
	root := t.TempDir()

	first := e.Extract(context.Background(), "/videos/clip.mp4", filepath.Join(root, "first"), 1)
	second := e.Extract(context.Background(), "/videos/clip.mp4", filepath.Join(root, "second"), 1)

	require.True(t, first.OK())
	require.True(t, second.OK())
	assert.Equal(t, first.FramesSaved, second.FramesSaved)
	assert.Equal(t, first.FramesRead, second.FramesRead)
	assert.Equal(t, 4, second.FramesSaved)
	assert.Equal(t, listFrames(t, filepath.Join(root, "first")), listFrames(t, filepath.Join(root, "second")))
}

func TestExtractor_OpenFailure(t *testing.T) {
	openErr := errors.New("no such codec")
	dec := &fakeDecoder{openErr: openErr}
	out := filepath.Join(t.TempDir(), "broken")

	res := New(dec, newPNGEncoder(t), storage.NewLocalStorage()).
		Extract(context.Background(), "/videos/broken.mp4", out, 1)

	assert.Equal(t, OutcomeOpenFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, openErr)
	assert.False(t, res.OK())

	// The folder is created before opening and stays empty.
	assert.DirExists(t, out)
	assert.Empty(t, listFrames(t, out))
}

func TestExtractor_WriteFailure(t *testing.T) {
	dec := &fakeDecoder{
		info:   media.VideoInfo{Width: 4, Height: 2, FrameRate: 10},
		frames: 10,
	}

	w := new(mockWriter)
	w.On("EnsureDir", mock.Anything, "out/clip").Return(nil)
	w.On("WriteFile", mock.Anything, filepath.Join("out/clip", "frame_000000.png"), mock.Anything).Return(nil).Once()
	w.On("WriteFile", mock.Anything, filepath.Join("out/clip", "frame_000001.png"), mock.Anything).Return(errors.New("disk full")).Once()

	res := New(dec, newPNGEncoder(t), w).Extract(context.Background(), "clip.mp4", "out/clip", 10)

	assert.Equal(t, OutcomeWriteFailed, res.Outcome)
	assert.ErrorContains(t, res.Err, "disk full")
	assert.Equal(t, 1, res.FramesSaved)
	assert.Equal(t, 1, res.FramesRead)
	assert.True(t, dec.streams[0].closed)
	w.AssertExpectations(t)
}

func TestExtractor_EnsureDirFailure(t *testing.T) {
	dec := &fakeDecoder{frames: 3}

	w := new(mockWriter)
	w.On("EnsureDir", mock.Anything, "out").Return(errors.New("permission denied"))

	res := New(dec, newPNGEncoder(t), w).Extract(context.Background(), "clip.mp4", "out", 1)

	assert.Equal(t, OutcomeWriteFailed, res.Outcome)
	assert.Empty(t, dec.streams, "decoder must not be opened")
	w.AssertNotCalled(t, "WriteFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestExtractor_DecoderErrorEndsVideo(t *testing.T) {
	dec := &fakeDecoder{
		info:   media.VideoInfo{FrameRate: 2},
		frames: 10,
		failAt: 5,
	}
	out := t.TempDir()

	res := New(dec, newPNGEncoder(t), storage.NewLocalStorage()).Extract(context.Background(), "clip.mp4", out, 1)

	assert.True(t, res.OK())
	assert.Equal(t, 5, res.FramesRead)
	assert.Equal(t, 3, res.FramesSaved)
}

func TestExtractor_Cancelled(t *testing.T) {
	dec := &fakeDecoder{info: media.VideoInfo{FrameRate: 1}, frames: 100}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := new(mockWriter)
	w.On("EnsureDir", mock.Anything, mock.Anything).Return(nil)

	res := New(dec, newPNGEncoder(t), w).Extract(ctx, "clip.mp4", "out", 1)

	assert.Equal(t, OutcomeCancelled, res.Outcome)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 0, res.FramesRead)
	w.AssertNotCalled(t, "WriteFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestExtractor_FFmpeg(t *testing.T) {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH, skipping test", bin)
		}
	}

	dir := t.TempDir()
	video := filepath.Join(dir, "a.mp4")
	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "testsrc=size=64x48:rate=30",
		"-frames:v", "90", "-c:v", "mpeg4", "-pix_fmt", "yuv420p", video)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}

	enc, err := media.NewImageEncoder(media.FormatJPEG)
	require.NoError(t, err)

	out := filepath.Join(dir, "out", "a")
	e := New(media.NewVidioDecoder(), enc, storage.NewLocalStorage())

	res := e.Extract(context.Background(), video, out, 1)

	require.True(t, res.OK(), "outcome %s: %v", res.Outcome, res.Err)
	assert.Equal(t, 30, res.SkipInterval)
	assert.Equal(t, 90, res.FramesRead)
	assert.Equal(t, 3, res.FramesSaved)

	var want []string
	for i := 0; i < 3; i++ {
		want = append(want, fmt.Sprintf("frame_%06d.jpg", i))
	}
	assert.Equal(t, want, listFrames(t, out))
}
