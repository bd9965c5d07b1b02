package audio

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
	"github.com/smallnest/ringbuffer"
)

const bytesPerSample = 4

// errDeviceStopped is reported when miniaudio stops a device on its own, which
// is how an unplugged microphone shows up.
var errDeviceStopped = errors.New("capture device stopped unexpectedly")

type malgoBackend struct {
	ctx          *malgo.AllocatedContext
	periodFrames int
	bufferFrames int
	log          zerolog.Logger
}

// NewMalgo creates a miniaudio-based capture backend. miniaudio pushes audio
// from its own thread; the callback only copies bytes into a ring buffer that
// the render thread drains.
func NewMalgo(periodFrames, bufferFrames int, log zerolog.Logger) (Backend, error) {
	log = log.With().Str("backend", "malgo").Logger()
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debug().Msg(strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio context: %w", err)
	}
	if periodFrames <= 0 {
		periodFrames = 512
	}
	if bufferFrames < periodFrames {
		bufferFrames = periodFrames * 4
	}
	return &malgoBackend{
		ctx:          ctx,
		periodFrames: periodFrames,
		bufferFrames: bufferFrames,
		log:          log,
	}, nil
}

func (m *malgoBackend) Name() string {
	return "malgo"
}

func (m *malgoBackend) Devices() ([]Device, error) {
	infos, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]Device, 0, len(infos))
	seen := make(map[DeviceID]struct{}, len(infos))
	for _, info := range infos {
		id := DeviceID(info.ID.String())
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		result = append(result, Device{
			ID:      id,
			Name:    info.Name(),
			Default: info.IsDefault == 1,
		})
	}
	return result, nil
}

func (m *malgoBackend) DefaultDevice() (Device, error) {
	devices, err := m.Devices()
	if err != nil {
		return Device{}, err
	}
	if len(devices) == 0 {
		return Device{}, ErrNoDeviceAvailable
	}
	for _, dev := range devices {
		if dev.Default {
			return dev, nil
		}
	}
	return devices[0], nil
}

func (m *malgoBackend) Open(dev Device, format Format) (Stream, error) {
	raw, err := hex.DecodeString(string(dev.ID))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed id %q", ErrDeviceNotFound, dev.ID)
	}

	s := &malgoStream{
		channels: format.Channels,
		buffer:   ringbuffer.New(m.bufferFrames * format.Channels * bytesPerSample),
		log:      m.log,
	}
	copy(s.id[:], raw)
	s.idPtr = s.id.Pointer()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(format.Channels)
	deviceConfig.Capture.DeviceID = s.idPtr
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(m.periodFrames)
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(m.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: s.onData,
		Stop: s.onStop,
	})
	if err != nil {
		s.freeID()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}
	s.device = device
	return s, nil
}

func (m *malgoBackend) Close() error {
	if err := m.ctx.Uninit(); err != nil {
		return err
	}
	m.ctx.Free()
	return nil
}

type malgoStream struct {
	id       malgo.DeviceID
	idPtr    unsafe.Pointer // C copy of id, owned until Close
	device   *malgo.Device
	channels int
	buffer   *ringbuffer.RingBuffer
	raw      []byte
	log      zerolog.Logger

	// written by the miniaudio thread
	dropped atomic.Int64
	stopped atomic.Bool
	running atomic.Bool
	closed  bool
}

// onData runs on miniaudio's thread. Only whole frames are queued; whatever
// does not fit is dropped and counted.
func (s *malgoStream) onData(_, input []byte, _ uint32) {
	frameBytes := s.channels * bytesPerSample
	input = input[:len(input)/frameBytes*frameBytes]
	free := s.buffer.Free() / frameBytes * frameBytes
	if len(input) > free {
		s.dropped.Add(int64((len(input) - free) / frameBytes))
		input = input[:free]
	}
	if len(input) == 0 {
		return
	}
	_, _ = s.buffer.Write(input)
}

func (s *malgoStream) onStop() {
	if s.running.Load() {
		s.stopped.Store(true)
	}
}

func (s *malgoStream) Start() error {
	if s.closed {
		return ErrStreamClosed
	}
	s.stopped.Store(false)
	s.running.Store(true)
	if err := s.device.Start(); err != nil {
		s.running.Store(false)
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (s *malgoStream) Available() (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}
	if n := s.dropped.Swap(0); n > 0 {
		s.log.Debug().Int64("frames", n).Msg("Capture ring buffer full, dropped frames")
	}
	frames := s.buffer.Length() / (s.channels * bytesPerSample)
	if frames == 0 && s.stopped.Load() {
		return 0, errDeviceStopped
	}
	return frames, nil
}

func (s *malgoStream) Read(dst []float32) (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}
	frameBytes := s.channels * bytesPerSample
	want := min(len(dst)/s.channels, s.buffer.Length()/frameBytes) * frameBytes
	if want == 0 {
		return 0, nil
	}
	if cap(s.raw) < want {
		s.raw = make([]byte, want)
	}
	raw := s.raw[:want]

	n, err := s.buffer.Read(raw)
	if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
		return 0, fmt.Errorf("failed to read capture buffer: %w", err)
	}
	float32FromLE(dst, raw[:n])
	return n / frameBytes, nil
}

func (s *malgoStream) Stop() error {
	if s.closed || !s.running.Swap(false) {
		return nil
	}
	return s.device.Stop()
}

func (s *malgoStream) Close() error {
	if s.closed {
		return nil
	}
	s.running.Store(false)
	s.closed = true
	if s.device != nil {
		s.device.Uninit()
	}
	s.freeID()
	s.buffer.Reset()
	return nil
}

func (s *malgoStream) freeID() {
	freeC(s.idPtr)
	s.idPtr = nil
}
