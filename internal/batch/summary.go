package batch

import (
	"github.com/maauso/frame-extractor/internal/job"
)

// Summary aggregates the outcome of a run.
type Summary struct {
	RunID string
	// Processed counts videos decoded to end of stream.
	Processed int
	// Skipped counts videos that could not be opened or written.
	Skipped int
	// NonVideo counts directory entries without a video extension. They are
	// not part of Skipped.
	NonVideo int
	// OutputDir is the absolute output base directory.
	OutputDir string
	// Jobs holds one record per video in processing order.
	Jobs []*job.Job
}

// FramesSaved returns the number of frames written across all videos.
func (s *Summary) FramesSaved() int {
	total := 0
	for _, j := range s.Jobs {
		total += j.Stats.FramesSaved
	}
	return total
}
