// Package media provides video decoding and frame image encoding capabilities.
package media

import (
	"context"
	"image"
)

// VideoInfo describes the decoder-reported properties of a video stream.
type VideoInfo struct {
	// Width is the frame width in pixels.
	Width int
	// Height is the frame height in pixels.
	Height int
	// FrameRate is the native frame rate in frames per second.
	FrameRate float64
	// TotalFrames is the frame count reported by the container. Some
	// containers do not store it, in which case it is estimated from the
	// duration and may be approximate.
	TotalFrames int
	// Duration is the stream duration in seconds, when known.
	Duration float64
	// Codec is the codec name of the video stream.
	Codec string
}

// Decoder opens videos for sequential frame decoding.
// Implementations should delegate to ffmpeg or a similar library.
type Decoder interface {
	// Open prepares the video at path for sequential decoding. An error means
	// the file is unreadable, corrupt or uses an unsupported codec.
	Open(ctx context.Context, path string) (Stream, error)
}

// Stream is an opened video. Frames are produced strictly in source order.
type Stream interface {
	// Info returns the metadata read when the stream was opened.
	Info() VideoInfo

	// Next decodes the next frame. It returns io.EOF once the source is
	// exhausted, which is the normal termination condition.
	Next() (image.Image, error)

	// Close releases the decoder. It is safe to call more than once and
	// must be called on every exit path.
	Close() error
}
