// Package metrics provides Prometheus metrics for the render loop and audio capture.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the visualizer exports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	FramesRendered   prometheus.Counter
	FrameOverruns    prometheus.Counter
	FrameDuration    prometheus.Histogram
	PCMFrames        prometheus.Counter
	PCMChunks        prometheus.Counter
	DeviceSwitches   *prometheus.CounterVec
	CaptureErrors    *prometheus.CounterVec
	EventsDispatched prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		FramesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_frames_rendered_total",
			Help: "Total number of frames rendered and presented",
		}),
		FrameOverruns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_frame_overruns_total",
			Help: "Frames whose work exceeded the frame budget",
		}),
		FrameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "audioviz_frame_work_seconds",
			Help:    "Time spent per frame before sleeping",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10),
		}),
		PCMFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_pcm_frames_forwarded_total",
			Help: "PCM frames handed to the rendering engine",
		}),
		PCMChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_pcm_chunks_forwarded_total",
			Help: "PCM ingestion calls made to the rendering engine",
		}),
		DeviceSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audioviz_device_switches_total",
			Help: "Capture device switch attempts by result",
		}, []string{"result"}),
		CaptureErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audioviz_capture_errors_total",
			Help: "Soft capture failures by kind",
		}, []string{"kind"}),
		EventsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audioviz_events_dispatched_total",
			Help: "Window events handled by the render loop",
		}),
	}

	collectors := []prometheus.Collector{
		m.FramesRendered, m.FrameOverruns, m.FrameDuration,
		m.PCMFrames, m.PCMChunks, m.DeviceSwitches, m.CaptureErrors,
		m.EventsDispatched,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

// FrameDone records one presented frame and the work it took.
func (m *Metrics) FrameDone(work time.Duration, overrun bool) {
	if m == nil {
		return
	}
	m.FramesRendered.Inc()
	m.FrameDuration.Observe(work.Seconds())
	if overrun {
		m.FrameOverruns.Inc()
	}
}

// PCMForwarded records one ingestion call.
func (m *Metrics) PCMForwarded(frames int) {
	if m == nil {
		return
	}
	m.PCMFrames.Add(float64(frames))
	m.PCMChunks.Inc()
}

// DeviceSwitched records a switch attempt.
func (m *Metrics) DeviceSwitched(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.DeviceSwitches.WithLabelValues(result).Inc()
}

// CaptureError records a soft capture failure.
func (m *Metrics) CaptureError(kind string) {
	if m == nil {
		return
	}
	m.CaptureErrors.WithLabelValues(kind).Inc()
}

// EventHandled records a dispatched window event.
func (m *Metrics) EventHandled() {
	if m == nil {
		return
	}
	m.EventsDispatched.Inc()
}
