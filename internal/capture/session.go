// Package capture owns the single live audio input stream of the process.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/petems/audioviz/internal/audio"
	"github.com/rs/zerolog"
)

// State is the lifecycle position of a Session.
type State int

const (
	Closed State = iota
	Opening
	Capturing
	Stopping
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Opening:
		return "opening"
	case Capturing:
		return "capturing"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrDeviceOpenFailed matches every error returned by Session.Start.
	ErrDeviceOpenFailed = errors.New("failed to open capture device")
	// ErrStreamReadFailed marks a failed poll of a capturing stream.
	ErrStreamReadFailed = errors.New("failed to read capture stream")
)

// OpenError describes a failed Start. It matches both ErrDeviceOpenFailed
// and the underlying cause.
type OpenError struct {
	ID  audio.DeviceID
	Err error
}

func (e *OpenError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("open default capture device: %v", e.Err)
	}
	return fmt.Sprintf("open capture device %s: %v", e.ID, e.Err)
}

func (e *OpenError) Unwrap() []error {
	return []error{ErrDeviceOpenFailed, e.Err}
}

// Session is a state machine around one capture stream:
// Closed -> Opening -> Capturing -> Stopping -> Closed. Opening and Stopping
// complete before Start and Stop return. The stream is non-nil exactly while
// the state is Capturing.
type Session struct {
	backend audio.Backend
	dir     *audio.Directory
	format  audio.Format
	log     zerolog.Logger
	warn    zerolog.Logger
	errs    audio.ErrorRecorder

	mu     sync.Mutex
	state  State
	device audio.Device
	stream audio.Stream
}

// NewSession creates a closed session. errs may be nil.
func NewSession(backend audio.Backend, dir *audio.Directory, log zerolog.Logger, errs audio.ErrorRecorder) *Session {
	log = log.With().Str("component", "capture").Logger()
	return &Session{
		backend: backend,
		dir:     dir,
		format:  audio.DefaultFormat,
		log:     log,
		// read failures repeat every frame while a device is gone
		warn: log.Sample(&zerolog.BurstSampler{Burst: 1, Period: 5 * time.Second}),
		errs: errs,
	}
}

// Start opens id, or the default device when id is empty, and begins
// capturing. A running capture is stopped first. On failure the session is
// left Closed.
func (s *Session) Start(id audio.DeviceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Capturing {
		s.stopLocked()
	}

	s.state = Opening
	dev, err := s.resolve(id)
	if err != nil {
		s.state = Closed
		if !errors.Is(err, audio.ErrNoDeviceAvailable) {
			s.record("open")
		}
		return &OpenError{ID: id, Err: err}
	}

	stream, err := s.backend.Open(dev, s.format)
	if err != nil {
		s.state = Closed
		s.record("open")
		return &OpenError{ID: dev.ID, Err: err}
	}

	if err := stream.Start(); err != nil {
		if cerr := stream.Close(); cerr != nil {
			s.log.Warn().Err(cerr).Msg("Failed to close stream after start failure")
		}
		s.state = Closed
		s.record("open")
		return &OpenError{ID: dev.ID, Err: err}
	}

	s.stream = stream
	s.device = dev
	s.state = Capturing

	s.log.Info().
		Str("device", dev.Name).
		Str("id", string(dev.ID)).
		Int("sample_rate", s.format.SampleRate).
		Int("channels", s.format.Channels).
		Msg("Capture started")
	return nil
}

// Stop ends capture and releases the stream. It is a no-op when Closed.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Close stops capture for shutdown.
func (s *Session) Close() error {
	s.Stop()
	return nil
}

func (s *Session) stopLocked() {
	if s.state == Closed {
		return
	}
	s.state = Stopping

	if s.stream != nil {
		if err := s.stream.Stop(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to stop capture stream")
		}
		if err := s.stream.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to close capture stream")
		}
		s.log.Info().Str("device", s.device.Name).Msg("Capture stopped")
	}

	s.stream = nil
	s.device = audio.Device{}
	s.state = Closed
}

// CurrentDevice returns the device being captured, if any.
func (s *Session) CurrentDevice() (audio.Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Capturing {
		return audio.Device{}, false
	}
	return s.device, true
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Channels is the interleave width of frames returned by Read.
func (s *Session) Channels() int {
	return s.format.Channels
}

// Available reports how many frames can be read right now. A failing stream
// reads as silence.
func (s *Session) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Capturing {
		return 0
	}
	n, err := s.stream.Available()
	if err != nil {
		s.readFailed(err)
		return 0
	}
	return n
}

// Read copies up to len(dst)/Channels() frames into dst without blocking and
// returns the number of frames copied.
func (s *Session) Read(dst []float32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Capturing {
		return 0
	}
	n, err := s.stream.Read(dst)
	if err != nil {
		s.readFailed(err)
		return 0
	}
	return n
}

func (s *Session) resolve(id audio.DeviceID) (audio.Device, error) {
	if id == "" {
		return s.dir.Default()
	}
	return s.dir.Lookup(id)
}

func (s *Session) readFailed(err error) {
	s.record("read")
	s.warn.Warn().
		Err(fmt.Errorf("%w: %w", ErrStreamReadFailed, err)).
		Str("device", s.device.Name).
		Msg("Treating capture as silent")
}

func (s *Session) record(kind string) {
	if s.errs != nil {
		s.errs.CaptureError(kind)
	}
}
