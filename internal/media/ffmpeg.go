package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrInvalidDimensions is returned when a frame size is not positive.
var ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func runFFmpeg(ctx context.Context, ffmpegPath string, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr
// output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
