// Package metrics exposes the run counters of the frame extractor as
// Prometheus collectors and pushes them to a Pushgateway at the end of a run.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJobName is the Pushgateway job label used for every run.
const PushJobName = "frame_extractor"

// Metrics holds the collectors updated during a run.
type Metrics struct {
	VideosTotal        *prometheus.CounterVec
	FramesReadTotal    prometheus.Counter
	FramesSavedTotal   prometheus.Counter
	NonVideoFilesTotal prometheus.Counter
	VideoDuration      prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		VideosTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "frame_extractor_videos_total",
			Help: "Total number of videos handled, by outcome",
		}, []string{"outcome"}),

		FramesReadTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "frame_extractor_frames_read_total",
			Help: "Total number of frames decoded across all videos",
		}),

		FramesSavedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "frame_extractor_frames_saved_total",
			Help: "Total number of frames written across all videos",
		}),

		NonVideoFilesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "frame_extractor_non_video_files_total",
			Help: "Total number of source entries skipped for not being videos",
		}),

		VideoDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "frame_extractor_video_duration_seconds",
			Help:    "Wall time spent extracting a single video",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}),
	}
}

// ObserveVideo records the result of one extraction.
func (m *Metrics) ObserveVideo(outcome string, framesRead, framesSaved int, seconds float64) {
	if m == nil {
		return
	}
	m.VideosTotal.WithLabelValues(outcome).Inc()
	m.FramesReadTotal.Add(float64(framesRead))
	m.FramesSavedTotal.Add(float64(framesSaved))
	m.VideoDuration.Observe(seconds)
}

// ObserveNonVideo counts a source entry that was not a video.
func (m *Metrics) ObserveNonVideo() {
	if m == nil {
		return
	}
	m.NonVideoFilesTotal.Inc()
}

// Push sends everything gathered by g to the Pushgateway at url, grouped by
// runID. It replaces any metrics previously pushed for the same group.
func Push(ctx context.Context, url, runID string, g prometheus.Gatherer) error {
	err := push.New(url, PushJobName).
		Gatherer(g).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
