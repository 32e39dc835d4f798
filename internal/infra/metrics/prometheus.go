package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VideosProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videoproc_videos_processed_total",
		Help: "Total number of videos processed, by outcome",
	}, []string{"outcome"})

	PipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "videoproc_pipeline_duration_seconds",
		Help:    "Duration of the frame extraction pipeline",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videoproc_frames_extracted_total",
		Help: "Total number of frames extracted across all videos",
	})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videoproc_active_jobs",
		Help: "Number of videos currently being processed",
	})

	MessagesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videoproc_messages_dropped_total",
		Help: "Queue messages acknowledged without processing, by reason",
	}, []string{"reason"})

	WorkerErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videoproc_worker_errors_total",
		Help: "Worker loop iterations that left a message for redelivery",
	})
)
