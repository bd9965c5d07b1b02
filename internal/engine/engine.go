// Package engine holds the rendering engine contract and a terminal level-meter
// implementation of it.
package engine

// Engine consumes PCM and renders frames. All methods are called from the
// render thread only.
type Engine interface {
	RenderFrame()
	// PCMAddFloat ingests interleaved samples; len(samples)/channels frames.
	PCMAddFloat(samples []float32, channels int)
	// PCMMaxSamples is the largest block, in frames, one PCMAddFloat accepts.
	PCMMaxSamples() int
	SetWindowSize(width, height int)
	LoadPreset(name string)
}
