package audio

import "errors"

// DeviceID identifies a capture device within one enumeration snapshot.
// Backends may hand out a different ID for the same hardware after a
// re-enumeration, so callers fall back to matching by Name.
type DeviceID string

// Device represents an audio input device
type Device struct {
	ID      DeviceID
	Name    string
	Default bool
}

// Format is the PCM layout a capture stream delivers. Samples are always
// interleaved float32.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat is the only format the visualizer opens devices with.
var DefaultFormat = Format{SampleRate: 44100, Channels: 2}

var (
	// ErrNoDeviceAvailable is returned when the platform has no usable input device.
	ErrNoDeviceAvailable = errors.New("no audio input device available")
	// ErrDeviceNotFound is returned when a device ID is not in the current snapshot.
	ErrDeviceNotFound = errors.New("audio device not found")
	// ErrStreamClosed is returned by Stream methods after Close.
	ErrStreamClosed = errors.New("audio stream closed")
)

// Backend is a platform audio subsystem able to enumerate and open input devices.
type Backend interface {
	Name() string
	Devices() ([]Device, error)
	DefaultDevice() (Device, error)
	Open(dev Device, format Format) (Stream, error)
	Close() error
}

// Stream is one open capture stream. It is pollable: Available and Read never
// block waiting for audio, whatever mechanism the backend uses to receive it.
// Counts are in frames (one sample per channel).
type Stream interface {
	Start() error
	// Available reports how many frames can be read without blocking.
	Available() (int, error)
	// Read copies up to len(dst)/channels frames of interleaved samples into dst
	// and returns the number of frames copied.
	Read(dst []float32) (int, error)
	Stop() error
	Close() error
}
