package audio

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// synthetic devices, in enumeration order
var syntheticDevices = []Device{
	{ID: "synthetic:tone", Name: "Synthetic Tone", Default: true},
	{ID: "synthetic:noise", Name: "Synthetic Noise"},
}

type syntheticBackend struct {
	maxPending int
	now        func() time.Time
}

// NewSynthetic creates a backend that needs no audio hardware. Its streams
// produce a generated signal at the real sample rate, paced by the wall clock.
func NewSynthetic(bufferFrames int) Backend {
	if bufferFrames <= 0 {
		bufferFrames = 4096
	}
	return &syntheticBackend{maxPending: bufferFrames, now: time.Now}
}

func (b *syntheticBackend) Name() string {
	return "synthetic"
}

func (b *syntheticBackend) Devices() ([]Device, error) {
	return append([]Device(nil), syntheticDevices...), nil
}

func (b *syntheticBackend) DefaultDevice() (Device, error) {
	return syntheticDevices[0], nil
}

func (b *syntheticBackend) Open(dev Device, format Format) (Stream, error) {
	for _, d := range syntheticDevices {
		if d.ID == dev.ID {
			return &syntheticStream{
				noise:      d.ID == "synthetic:noise",
				format:     format,
				maxPending: b.maxPending,
				now:        b.now,
				rng:        rand.New(rand.NewSource(1)),
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, dev.ID)
}

func (b *syntheticBackend) Close() error {
	return nil
}

type syntheticStream struct {
	noise      bool
	format     Format
	maxPending int
	now        func() time.Time
	rng        *rand.Rand

	started  time.Time
	produced int64
	pending  int
	phase    float64
	running  bool
	closed   bool
}

func (s *syntheticStream) Start() error {
	if s.closed {
		return ErrStreamClosed
	}
	s.started = s.now()
	s.produced = 0
	s.pending = 0
	s.running = true
	return nil
}

func (s *syntheticStream) Available() (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}
	if !s.running {
		return 0, nil
	}
	due := int64(s.now().Sub(s.started).Seconds() * float64(s.format.SampleRate))
	if fresh := due - s.produced; fresh > 0 {
		s.produced = due
		s.pending = min(s.pending+int(fresh), s.maxPending)
	}
	return s.pending, nil
}

func (s *syntheticStream) Read(dst []float32) (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}
	ch := s.format.Channels
	frames := min(len(dst)/ch, s.pending)
	step := 2 * math.Pi * 220 / float64(s.format.SampleRate)
	for f := 0; f < frames; f++ {
		var v float32
		if s.noise {
			v = float32(s.rng.Float64()*2-1) * 0.5
		} else {
			v = float32(math.Sin(s.phase)) * 0.5
			s.phase = math.Mod(s.phase+step, 2*math.Pi)
		}
		for c := 0; c < ch; c++ {
			dst[f*ch+c] = v
		}
	}
	s.pending -= frames
	return frames, nil
}

func (s *syntheticStream) Stop() error {
	s.running = false
	return nil
}

func (s *syntheticStream) Close() error {
	s.running = false
	s.closed = true
	return nil
}
