// Package audiotest provides an in-memory audio backend for tests.
package audiotest

import (
	"errors"
	"sync"

	"github.com/petems/audioviz/internal/audio"
)

// ErrOpen is the default error returned for devices listed in Backend.FailOpen.
var ErrOpen = errors.New("audiotest: open failed")

// Backend is a scriptable audio.Backend. Fields may be changed between calls
// to simulate devices appearing and disappearing.
type Backend struct {
	mu sync.Mutex

	Devs       []audio.Device
	ListErr    error
	DefaultErr error
	// FailOpen lists devices whose Open fails.
	FailOpen map[audio.DeviceID]bool
	// FailStart lists devices whose Stream.Start fails.
	FailStart map[audio.DeviceID]bool
	// Frames is the backlog each new stream starts with.
	Frames int

	Opened  []audio.DeviceID
	Streams []*Stream
	Closed  bool
}

// NewBackend returns a Backend listing devs.
func NewBackend(devs ...audio.Device) *Backend {
	return &Backend{
		Devs:      devs,
		FailOpen:  map[audio.DeviceID]bool{},
		FailStart: map[audio.DeviceID]bool{},
	}
}

func (b *Backend) Name() string {
	return "audiotest"
}

func (b *Backend) Devices() ([]audio.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ListErr != nil {
		return nil, b.ListErr
	}
	return append([]audio.Device(nil), b.Devs...), nil
}

func (b *Backend) DefaultDevice() (audio.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.DefaultErr != nil {
		return audio.Device{}, b.DefaultErr
	}
	for _, d := range b.Devs {
		if d.Default {
			return d, nil
		}
	}
	if len(b.Devs) == 0 {
		return audio.Device{}, audio.ErrNoDeviceAvailable
	}
	return b.Devs[0], nil
}

func (b *Backend) Open(dev audio.Device, format audio.Format) (audio.Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Opened = append(b.Opened, dev.ID)
	if b.FailOpen[dev.ID] {
		return nil, ErrOpen
	}
	s := &Stream{
		Device:    dev,
		Channels:  format.Channels,
		Avail:     b.Frames,
		failStart: b.FailStart[dev.ID],
	}
	b.Streams = append(b.Streams, s)
	return s, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Closed = true
	return nil
}

// Last returns the most recently opened stream, or nil.
func (b *Backend) Last() *Stream {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Streams) == 0 {
		return nil
	}
	return b.Streams[len(b.Streams)-1]
}

// Stream is an audio.Stream holding a fixed backlog of frames. Every sample
// read has the value Value.
type Stream struct {
	Device   audio.Device
	Channels int
	Avail    int
	Value    float32
	AvailErr error
	ReadErr  error

	Started    bool
	StopCalls  int
	CloseCalls int
	Reads      []int

	failStart bool
}

func (s *Stream) Start() error {
	if s.failStart {
		return errors.New("audiotest: start failed")
	}
	s.Started = true
	return nil
}

func (s *Stream) Available() (int, error) {
	if s.CloseCalls > 0 {
		return 0, audio.ErrStreamClosed
	}
	if s.AvailErr != nil {
		return 0, s.AvailErr
	}
	return s.Avail, nil
}

func (s *Stream) Read(dst []float32) (int, error) {
	if s.ReadErr != nil {
		return 0, s.ReadErr
	}
	frames := min(len(dst)/s.Channels, s.Avail)
	for i := 0; i < frames*s.Channels; i++ {
		dst[i] = s.Value
	}
	s.Avail -= frames
	s.Reads = append(s.Reads, frames)
	return frames, nil
}

func (s *Stream) Stop() error {
	s.StopCalls++
	return nil
}

func (s *Stream) Close() error {
	s.CloseCalls++
	return nil
}
