package audio

import (
	"fmt"

	"github.com/rs/zerolog"
)

// ErrorRecorder receives soft capture failures, keyed by kind.
type ErrorRecorder interface {
	CaptureError(kind string)
}

// Directory enumerates capture devices. Nothing is cached: every call asks the
// backend again because devices come and go.
type Directory struct {
	backend Backend
	log     zerolog.Logger
	errs    ErrorRecorder
}

// NewDirectory creates a Directory over backend. errs may be nil.
func NewDirectory(backend Backend, log zerolog.Logger, errs ErrorRecorder) *Directory {
	return &Directory{
		backend: backend,
		log:     log.With().Str("component", "directory").Logger(),
		errs:    errs,
	}
}

// List returns the currently connected input devices. An enumeration failure
// is logged and reported as an empty list.
func (d *Directory) List() []Device {
	devices, err := d.backend.Devices()
	if err != nil {
		d.log.Warn().Err(err).Str("backend", d.backend.Name()).Msg("Failed to enumerate audio devices")
		d.record("enumeration")
		return []Device{}
	}
	return devices
}

// Default returns the platform default input device.
func (d *Directory) Default() (Device, error) {
	dev, err := d.backend.DefaultDevice()
	if err != nil {
		d.record("no_device")
		return Device{}, fmt.Errorf("%w: %v", ErrNoDeviceAvailable, err)
	}
	return dev, nil
}

// Lookup finds id in a fresh snapshot.
func (d *Directory) Lookup(id DeviceID) (Device, error) {
	for _, dev := range d.List() {
		if dev.ID == id {
			return dev, nil
		}
	}
	return Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
}

func (d *Directory) record(kind string) {
	if d.errs != nil {
		d.errs.CaptureError(kind)
	}
}
