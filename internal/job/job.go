// Package job provides the Job aggregate recording the extraction of a single
// video within a batch run, with its state machine and repository port.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/frame-extractor/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusPending indicates the video was found but extraction has not started.
	StatusPending Status = "PENDING"
	// StatusRunning indicates frames are being extracted.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the video was decoded to end of stream.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the video could not be opened or a frame could not be written.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusRunning, StatusFailed},
	StatusRunning:   {StatusCompleted, StatusFailed},
	StatusCompleted: {},
	StatusFailed:    {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Stats holds the per-video extraction counters.
type Stats struct {
	SkipInterval int
	FramesRead   int
	FramesSaved  int
}

// Job records the extraction of one video file.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// RunID identifies the batch run this job belongs to.
	RunID string
	// Status is the current job state.
	Status Status
	// VideoPath is the source video file.
	VideoPath string
	// OutputFolder is where frames are written.
	OutputFolder string
	// TargetRate is the requested number of frames per second of video.
	TargetRate float64
	// Stats are the extraction counters, final once the job is terminal.
	Stats Stats
	// Uploaded is the number of frames mirrored to S3.
	Uploaded int
	// Error contains the failure cause if the job failed.
	Error string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// New creates a PENDING job for videoPath with a generated ID.
func New(runID, videoPath, outputFolder string, targetRate float64) *Job {
	return NewWithID(id.Generate(id.PrefixJob), runID, videoPath, outputFolder, targetRate)
}

// NewWithID creates a PENDING job with the specified ID.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(jobID, runID, videoPath, outputFolder string, targetRate float64) *Job {
	now := time.Now()
	return &Job{
		ID:           jobID,
		RunID:        runID,
		Status:       StatusPending,
		VideoPath:    videoPath,
		OutputFolder: outputFolder,
		TargetRate:   targetRate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(status)
}

func (j *Job) transitionLocked(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from PENDING to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete records the final counters and transitions the job to COMPLETED.
func (j *Job) Complete(stats Stats) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusCompleted); err != nil {
		return err
	}
	j.Stats = stats
	return nil
}

// Fail records the counters reached so far and the cause, then transitions
// the job to FAILED.
func (j *Job) Fail(stats Stats, errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusFailed); err != nil {
		return err
	}
	j.Stats = stats
	j.Error = errMsg
	return nil
}

// SetUploaded records how many frames were mirrored to object storage.
func (j *Job) SetUploaded(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Uploaded = n
	j.UpdatedAt = time.Now()
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Duration returns how long extraction ran, or zero if it has not finished.
func (j *Job) Duration() time.Duration {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.StartedAt.IsZero() || j.CompletedAt.IsZero() {
		return 0
	}
	return j.CompletedAt.Sub(j.StartedAt)
}

// Clone creates a copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:           j.ID,
		RunID:        j.RunID,
		Status:       j.Status,
		VideoPath:    j.VideoPath,
		OutputFolder: j.OutputFolder,
		TargetRate:   j.TargetRate,
		Stats:        j.Stats,
		Uploaded:     j.Uploaded,
		Error:        j.Error,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
}
