// Package relay moves captured PCM into the rendering engine once per frame.
package relay

// Source is the pollable capture side. Counts are frames.
type Source interface {
	Channels() int
	Available() int
	Read(dst []float32) int
}

// Sink is the engine's PCM ingestion surface. PCMMaxSamples is the largest
// block, in frames, the engine accepts per call.
type Sink interface {
	PCMMaxSamples() int
	PCMAddFloat(samples []float32, channels int)
}

// Recorder receives per-chunk statistics.
type Recorder interface {
	PCMForwarded(frames int)
}

// Relay drains a Source into a Sink without ever waiting for audio.
type Relay struct {
	src     Source
	sink    Sink
	metrics Recorder
	scratch []float32
}

// New creates a Relay. metrics may be nil.
func New(src Source, sink Sink, metrics Recorder) *Relay {
	return &Relay{src: src, sink: sink, metrics: metrics}
}

// Drain forwards everything the source holds right now, in chunks no larger
// than the sink's current limit, and returns the number of frames forwarded.
// An idle or silent source is not an error.
func (r *Relay) Drain() int {
	channels := r.src.Channels()
	if channels <= 0 {
		return 0
	}

	total := 0
	for {
		// the limit belongs to the engine's ring buffer and may change between calls
		limit := r.sink.PCMMaxSamples()
		if limit <= 0 {
			return total
		}
		available := r.src.Available()
		if available <= 0 {
			return total
		}

		want := min(available, limit) * channels
		if cap(r.scratch) < want {
			r.scratch = make([]float32, want)
		}
		block := r.scratch[:want]

		frames := r.src.Read(block)
		if frames <= 0 {
			return total
		}
		frames = min(frames, limit)

		r.sink.PCMAddFloat(block[:frames*channels], channels)
		total += frames
		if r.metrics != nil {
			r.metrics.PCMForwarded(frames)
		}
	}
}
