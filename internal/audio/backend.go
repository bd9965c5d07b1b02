package audio

import (
	"fmt"

	"github.com/rs/zerolog"
)

// BackendConfig selects and sizes a capture backend.
type BackendConfig struct {
	Name            string
	FramesPerBuffer int
	BufferFrames    int
}

// New creates the backend named in cfg.
func New(cfg BackendConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Name {
	case "", "portaudio":
		return NewPortAudio(cfg.FramesPerBuffer, cfg.BufferFrames)
	case "malgo":
		return NewMalgo(cfg.FramesPerBuffer, cfg.BufferFrames, log)
	case "synthetic":
		return NewSynthetic(cfg.BufferFrames), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Name)
	}
}
