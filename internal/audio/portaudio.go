package audio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gordonklaus/portaudio"
)

const portAudioIDPrefix = "pa:"

type portAudioBackend struct {
	framesPerBuffer int
	maxPending      int
}

// NewPortAudio creates a PortAudio-based capture backend. Streams use
// PortAudio's blocking I/O API and are read only when a full buffer is ready,
// so the render thread never waits on the device.
func NewPortAudio(framesPerBuffer, bufferFrames int) (Backend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	if framesPerBuffer <= 0 {
		framesPerBuffer = 512
	}
	if bufferFrames < framesPerBuffer {
		bufferFrames = framesPerBuffer * 4
	}
	return &portAudioBackend{framesPerBuffer: framesPerBuffer, maxPending: bufferFrames}, nil
}

func (p *portAudioBackend) Name() string {
	return "portaudio"
}

func (p *portAudioBackend) Devices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	defaultDevice, _ := portaudio.DefaultInputDevice()

	result := make([]Device, 0, len(devices))
	for i, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, Device{
				ID:      portAudioID(i),
				Name:    d.Name,
				Default: defaultDevice != nil && sameDevice(d, defaultDevice),
			})
		}
	}

	return result, nil
}

func (p *portAudioBackend) DefaultDevice() (Device, error) {
	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		return Device{}, fmt.Errorf("failed to get default input device: %w", err)
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return Device{}, fmt.Errorf("failed to list devices: %w", err)
	}
	for i, d := range devices {
		if sameDevice(d, info) {
			return Device{ID: portAudioID(i), Name: d.Name, Default: true}, nil
		}
	}
	return Device{}, ErrNoDeviceAvailable
}

func (p *portAudioBackend) Open(dev Device, format Format) (Stream, error) {
	info, err := p.resolve(dev)
	if err != nil {
		return nil, err
	}

	channels := format.Channels
	if info.MaxInputChannels < channels {
		channels = info.MaxInputChannels
	}

	buffer := make([]float32, p.framesPerBuffer*channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: channels,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      float64(format.SampleRate),
		FramesPerBuffer: p.framesPerBuffer,
	}, buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	return &portAudioStream{
		stream:          stream,
		buffer:          buffer,
		framesPerBuffer: p.framesPerBuffer,
		inChannels:      channels,
		outChannels:     format.Channels,
		pending:         make([]float32, 0, p.maxPending*format.Channels),
		maxPending:      p.maxPending,
	}, nil
}

func (p *portAudioBackend) Close() error {
	return portaudio.Terminate()
}

// resolve maps dev back to PortAudio's device info. The index in the ID is
// only trusted when the name still matches.
func (p *portAudioBackend) resolve(dev Device) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	if idx, ok := parsePortAudioID(dev.ID); ok && idx < len(devices) {
		if d := devices[idx]; d.Name == dev.Name && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	for _, d := range devices {
		if d.Name == dev.Name && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, dev.Name)
}

func portAudioID(index int) DeviceID {
	return DeviceID(portAudioIDPrefix + strconv.Itoa(index))
}

func parsePortAudioID(id DeviceID) (int, bool) {
	s, ok := strings.CutPrefix(string(id), portAudioIDPrefix)
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(s)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

func sameDevice(a, b *portaudio.DeviceInfo) bool {
	if a.Name != b.Name {
		return false
	}
	if a.HostApi == nil || b.HostApi == nil {
		return a.HostApi == b.HostApi
	}
	return a.HostApi.Name == b.HostApi.Name
}

type portAudioStream struct {
	stream          *portaudio.Stream
	buffer          []float32
	framesPerBuffer int
	inChannels      int
	outChannels     int

	// pending holds frames already pulled from PortAudio, in the output layout.
	pending    []float32
	maxPending int
	closed     bool
}

func (s *portAudioStream) Start() error {
	if s.closed {
		return ErrStreamClosed
	}
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	return nil
}

// Available pulls every complete buffer PortAudio already holds. Read on a
// blocking stream only waits when less than one buffer is queued, which the
// AvailableToRead check rules out.
func (s *portAudioStream) Available() (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}
	for {
		ready, err := s.stream.AvailableToRead()
		if err != nil {
			return s.pendingFrames(), fmt.Errorf("failed to query audio stream: %w", err)
		}
		if ready < s.framesPerBuffer {
			break
		}
		// An overflow still fills the buffer; the lost frames are gone either way.
		if err := s.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			return s.pendingFrames(), fmt.Errorf("failed to read audio stream: %w", err)
		}
		s.pending = appendRemixed(s.pending, s.buffer, s.inChannels, s.outChannels)
		if over := s.pendingFrames() - s.maxPending; over > 0 {
			s.consume(over)
		}
	}
	return s.pendingFrames(), nil
}

func (s *portAudioStream) Read(dst []float32) (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}
	frames := min(len(dst)/s.outChannels, s.pendingFrames())
	copy(dst, s.pending[:frames*s.outChannels])
	s.consume(frames)
	return frames, nil
}

func (s *portAudioStream) Stop() error {
	if s.closed {
		return nil
	}
	return s.stream.Stop()
}

func (s *portAudioStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.pending = nil
	return s.stream.Close()
}

func (s *portAudioStream) pendingFrames() int {
	return len(s.pending) / s.outChannels
}

// consume drops the oldest n frames from pending.
func (s *portAudioStream) consume(n int) {
	rest := copy(s.pending, s.pending[n*s.outChannels:])
	s.pending = s.pending[:rest]
}
