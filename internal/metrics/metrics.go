// Package metrics holds the prometheus collectors for playback and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/abelbrown/emograph/internal/anim"
)

var (
	// TicksTotal counts merged frames.
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emograph_ticks_total",
		Help: "Total number of frames merged into the accumulator",
	})

	// EpochsTotal counts accumulator clears at frame 0.
	EpochsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emograph_epochs_total",
		Help: "Total number of accumulation epochs started",
	})

	// Links is the size of the last emitted link set.
	Links = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "emograph_links",
		Help: "Number of accumulated links in the last snapshot",
	})

	// CurrentLinks is the number of links touched by the last merged frame.
	CurrentLinks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "emograph_current_links",
		Help: "Number of links present in the last merged frame",
	})

	// FrameIndex is the frame merged by the last tick, -1 after a reset.
	FrameIndex = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "emograph_frame_index",
		Help: "Index of the last merged frame",
	})

	// Playing is 1 while playback is running.
	Playing = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "emograph_playing",
		Help: "1 while playback is running, 0 when paused",
	})

	// DatasetLoads counts dataset loads by type and result.
	DatasetLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emograph_dataset_loads_total",
			Help: "Total number of dataset loads",
		},
		[]string{"type", "result"},
	)

	// DatasetLoadDuration measures fetch plus decode time.
	DatasetLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "emograph_dataset_load_duration_seconds",
		Help:    "Duration of dataset loads in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
	})

	// HTTPRequestsTotal counts API requests by route pattern.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emograph_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures API response time.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "emograph_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// RecordSnapshot updates the playback collectors from one emission.
// Merging frame 0 starts a new epoch.
func RecordSnapshot(s anim.Snapshot) {
	Links.Set(float64(len(s.Links)))
	FrameIndex.Set(float64(s.Index))
	current := 0
	for _, l := range s.Links {
		if l.IsCurrent {
			current++
		}
	}
	CurrentLinks.Set(float64(current))
	if s.Index < 0 {
		return
	}
	TicksTotal.Inc()
	if s.Index == 0 {
		EpochsTotal.Inc()
	}
}

// RecordLoad records one dataset load attempt.
func RecordLoad(dataType string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	DatasetLoads.WithLabelValues(dataType, result).Inc()
	DatasetLoadDuration.Observe(d.Seconds())
}

// SetPlaying mirrors the player state.
func SetPlaying(playing bool) {
	if playing {
		Playing.Set(1)
		return
	}
	Playing.Set(0)
}
