package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	vidio "github.com/AlexEidt/Vidio"
)

// ErrOpenVideo is returned when a file cannot be opened as a video.
var ErrOpenVideo = errors.New("open video")

// Verify interface implementation at compile time.
var _ Decoder = (*VidioDecoder)(nil)

// VidioDecoder implements Decoder with Vidio, which drives the ffprobe and
// ffmpeg binaries found in PATH.
type VidioDecoder struct{}

// NewVidioDecoder creates a new VidioDecoder.
func NewVidioDecoder() *VidioDecoder {
	return &VidioDecoder{}
}

// Open reads the stream metadata and prepares sequential decoding.
// The returned Stream owns the ffmpeg process until Close.
func (d *VidioDecoder) Open(ctx context.Context, path string) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpenVideo, path, err)
	}

	video, err := vidio.NewVideo(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpenVideo, path, err)
	}

	info := videoInfo(video)
	if info.Width <= 0 || info.Height <= 0 {
		video.Close()
		return nil, fmt.Errorf("%w %s: %w: width=%d, height=%d", ErrOpenVideo, path, ErrInvalidDimensions, info.Width, info.Height)
	}

	frame := image.NewRGBA(image.Rect(0, 0, info.Width, info.Height))
	if err := video.SetFrameBuffer(frame.Pix); err != nil {
		video.Close()
		return nil, fmt.Errorf("%w %s: %w", ErrOpenVideo, path, err)
	}

	return &vidioStream{ctx: ctx, info: info, video: video, frame: frame}, nil
}

func videoInfo(video *vidio.Video) VideoInfo {
	info := VideoInfo{
		Width:       video.Width(),
		Height:      video.Height(),
		FrameRate:   video.FPS(),
		TotalFrames: video.Frames(),
		Duration:    video.Duration(),
		Codec:       video.Codec(),
	}
	// Some containers carry no frame count.
	if info.TotalFrames <= 0 && info.Duration > 0 && info.FrameRate > 0 {
		info.TotalFrames = int(math.Round(info.Duration * info.FrameRate))
	}
	return info
}

// vidioStream decodes into a single RGBA frame owned by the stream.
type vidioStream struct {
	ctx   context.Context
	info  VideoInfo
	video *vidio.Video
	frame *image.RGBA

	done bool
}

func (s *vidioStream) Info() VideoInfo {
	return s.info
}

// Next decodes the next frame into the stream's buffer. The returned image
// is overwritten by the following call.
func (s *vidioStream) Next() (image.Image, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := s.ctx.Err(); err != nil {
		return nil, fmt.Errorf("decode cancelled: %w", err)
	}
	if !s.video.Read() {
		s.done = true
		return nil, io.EOF
	}
	return s.frame, nil
}

// Close stops ffmpeg if it is still running.
func (s *vidioStream) Close() error {
	if s.video == nil {
		return nil
	}
	s.done = true
	s.video.Close()
	s.video = nil
	return nil
}
