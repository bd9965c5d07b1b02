// Package switcher changes the active capture device at runtime.
package switcher

import (
	"fmt"

	"github.com/petems/audioviz/internal/audio"
	"github.com/rs/zerolog"
)

// Lister returns a fresh snapshot of capture devices.
type Lister interface {
	List() []audio.Device
}

// Session is the capture side the coordinator drives.
type Session interface {
	Start(id audio.DeviceID) error
	CurrentDevice() (audio.Device, bool)
}

// Recorder counts switches.
type Recorder interface {
	DeviceSwitched(ok bool)
}

// Coordinator cycles and selects capture devices. It never owns a stream.
type Coordinator struct {
	devices Lister
	session Session
	metrics Recorder
	log     zerolog.Logger

	// last device a switch tried, kept so a failed open still advances the cycle
	attempted *audio.Device
}

// New creates a Coordinator. metrics may be nil.
func New(devices Lister, session Session, metrics Recorder, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		devices: devices,
		session: session,
		metrics: metrics,
		log:     log.With().Str("component", "switcher").Logger(),
	}
}

// SwitchToNext starts capture on the device after the current one, wrapping
// around. A current device that vanished restarts the cycle at the first
// device. With no devices it does nothing and returns audio.ErrNoDeviceAvailable.
func (c *Coordinator) SwitchToNext() error {
	devices := c.devices.List()
	if len(devices) == 0 {
		c.log.Warn().Msg("No capture devices to switch to")
		return audio.ErrNoDeviceAvailable
	}

	next := 0
	if cur, ok := c.reference(); ok {
		if idx := indexOf(devices, cur); idx >= 0 {
			next = (idx + 1) % len(devices)
		}
	}
	return c.start(devices[next])
}

// SwitchTo starts capture on id from a fresh snapshot.
func (c *Coordinator) SwitchTo(id audio.DeviceID) error {
	return c.SwitchToDevice(audio.Device{ID: id})
}

// SwitchToDevice starts capture on dev, looked up in a fresh snapshot by ID
// and then by name. A device picked from an older listing still resolves
// after its ID changed.
func (c *Coordinator) SwitchToDevice(dev audio.Device) error {
	devices := c.devices.List()
	if idx := indexOf(devices, dev); idx >= 0 {
		return c.start(devices[idx])
	}
	c.record(false)
	if dev.Name != "" {
		return fmt.Errorf("%w: %s", audio.ErrDeviceNotFound, dev.Name)
	}
	return fmt.Errorf("%w: %s", audio.ErrDeviceNotFound, dev.ID)
}

func (c *Coordinator) start(dev audio.Device) error {
	c.attempted = &dev
	if err := c.session.Start(dev.ID); err != nil {
		c.record(false)
		return err
	}
	c.record(true)
	c.log.Info().Str("device", dev.Name).Str("id", string(dev.ID)).Msg("Switched capture device")
	return nil
}

// reference is the device the cycle advances from: the live one, or the last
// one tried when that open failed.
func (c *Coordinator) reference() (audio.Device, bool) {
	if cur, ok := c.session.CurrentDevice(); ok {
		return cur, true
	}
	if c.attempted != nil {
		return *c.attempted, true
	}
	return audio.Device{}, false
}

func (c *Coordinator) record(ok bool) {
	if c.metrics != nil {
		c.metrics.DeviceSwitched(ok)
	}
}

// indexOf matches by ID first; IDs may not survive a re-enumeration, so the
// name is tried next.
func indexOf(devices []audio.Device, dev audio.Device) int {
	for i, d := range devices {
		if d.ID == dev.ID {
			return i
		}
	}
	if dev.Name == "" {
		return -1
	}
	for i, d := range devices {
		if d.Name == dev.Name {
			return i
		}
	}
	return -1
}
