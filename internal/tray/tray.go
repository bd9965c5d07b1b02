package tray

import (
	"fmt"
	"slices"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/petems/audioviz/internal/audio"
	"github.com/petems/audioviz/internal/window"
	"github.com/rs/zerolog"
)

// Lister returns the current capture devices.
type Lister interface {
	List() []audio.Device
}

// Poster delivers tray actions to the render loop.
type Poster interface {
	Post(ev window.Event)
}

// UI is the system tray device menu. Menu clicks never touch the capture
// session directly; they post events for the render loop to act on.
type UI struct {
	devices Lister
	events  Poster
	version string
	commit  string
	log     zerolog.Logger

	mu      sync.Mutex
	ready   bool
	current audio.Device
	active  bool

	// Menu items
	mStatus  *systray.MenuItem
	mDevices *systray.MenuItem
	mEmpty   *systray.MenuItem
	items    map[audio.DeviceID]*systray.MenuItem
	shown    map[audio.DeviceID]bool
}

func New(devices Lister, events Poster, version, commit string, log zerolog.Logger) *UI {
	return &UI{
		devices: devices,
		events:  events,
		version: version,
		commit:  commit,
		log:     log.With().Str("component", "tray").Logger(),
		items:   make(map[audio.DeviceID]*systray.MenuItem),
		shown:   make(map[audio.DeviceID]bool),
	}
}

// Run blocks on the tray event loop. It must be called from the main
// goroutine; onReady is invoked once the tray exists.
func (u *UI) Run(onReady func()) {
	systray.Run(func() {
		u.onReady()
		if onReady != nil {
			onReady()
		}
	}, u.onExit)
}

// Quit tears the tray down and makes Run return.
func (u *UI) Quit() {
	systray.Quit()
}

// Status update methods for the app to call

func (u *UI) SetDevice(dev audio.Device) {
	u.mu.Lock()
	u.current, u.active = dev, true
	u.mu.Unlock()
	u.refresh()
}

func (u *UI) SetIdle() {
	u.mu.Lock()
	u.active = false
	u.mu.Unlock()
	u.refresh()
}

func (u *UI) onReady() {
	systray.SetTooltip(fmt.Sprintf("audioviz %s", u.version))

	u.mStatus = systray.AddMenuItem(statusLine(audio.Device{}, false), "Current capture device")
	u.mStatus.Disable()
	systray.AddSeparator()

	u.mDevices = systray.AddMenuItem("Input Device", "Select audio device")
	u.mEmpty = u.mDevices.AddSubMenuItem("No devices found", "")
	u.mEmpty.Disable()
	mNext := systray.AddMenuItem("Next Device", "Switch to the next input device")
	mCopy := systray.AddMenuItem("Copy Device Name", "Copy the current device name")

	systray.AddSeparator()
	mAbout := systray.AddMenuItem("About", "About audioviz")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.mu.Lock()
	u.ready = true
	u.mu.Unlock()
	u.refresh()

	// Event loop
	go u.handleEvents(mNext, mCopy, mAbout, mQuit)
}

func (u *UI) handleEvents(mNext, mCopy, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-mNext.ClickedCh:
			u.events.Post(window.Event{Type: window.NextDevice})
		case <-mCopy.ClickedCh:
			u.copyDeviceName()
		case <-mAbout.ClickedCh:
			u.log.Info().Str("version", u.version).Str("commit", u.commit).Msg("audioviz")
		case <-mQuit.ClickedCh:
			u.events.Post(window.Event{Type: window.Quit})
			return
		}
	}
}

// syncDevices brings the device submenu in line with devices. systray
// cannot remove items, so unplugged devices are hidden and shown again
// when they return. Callers hold u.mu.
func (u *UI) syncDevices(devices []audio.Device) {
	add, show, hide := menuChanges(u.shown, devices)
	for _, id := range hide {
		u.items[id].Hide()
		u.shown[id] = false
	}
	for _, id := range show {
		u.items[id].Show()
		u.shown[id] = true
	}
	for _, dev := range add {
		item := u.mDevices.AddSubMenuItem(deviceLabel(dev), string(dev.ID))
		u.items[dev.ID] = item
		u.shown[dev.ID] = true

		go func(dev audio.Device, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				u.log.Info().Str("device", dev.Name).Msg("Device selected from tray")
				u.events.Post(window.Event{Type: window.SelectDevice, DeviceID: dev.ID, DeviceName: dev.Name})
			}
		}(dev, item)
	}

	if len(devices) == 0 {
		u.mEmpty.Show()
	} else {
		u.mEmpty.Hide()
	}
}

// refresh re-lists devices and syncs the menu, status line and check marks
// with the capture state.
func (u *UI) refresh() {
	u.mu.Lock()
	ready := u.ready
	u.mu.Unlock()
	if !ready {
		return
	}
	devices := u.devices.List()

	u.mu.Lock()
	defer u.mu.Unlock()
	u.syncDevices(devices)

	systray.SetTitle(titleFor(u.active))
	u.mStatus.SetTitle(statusLine(u.current, u.active))
	for id, item := range u.items {
		if u.active && id == u.current.ID {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

func (u *UI) copyDeviceName() {
	u.mu.Lock()
	dev, active := u.current, u.active
	u.mu.Unlock()

	if !active {
		u.log.Warn().Msg("No capture device to copy")
		return
	}
	if err := clipboard.WriteAll(dev.Name); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy device name")
		return
	}
	u.log.Info().Str("device", dev.Name).Msg("Copied device name")
}

func (u *UI) onExit() {
	// Cleanup
}

// menuChanges compares the submenu with a fresh listing. shown maps every
// device item ever added to whether it is visible.
func menuChanges(shown map[audio.DeviceID]bool, devices []audio.Device) (add []audio.Device, show, hide []audio.DeviceID) {
	present := make(map[audio.DeviceID]bool, len(devices))
	for _, dev := range devices {
		if present[dev.ID] {
			continue
		}
		present[dev.ID] = true
		visible, known := shown[dev.ID]
		switch {
		case !known:
			add = append(add, dev)
		case !visible:
			show = append(show, dev.ID)
		}
	}
	for id, visible := range shown {
		if visible && !present[id] {
			hide = append(hide, id)
		}
	}
	slices.Sort(hide)
	return add, show, hide
}

func deviceLabel(dev audio.Device) string {
	if dev.Default {
		return dev.Name + " (default)"
	}
	return dev.Name
}

func statusLine(dev audio.Device, active bool) string {
	if !active {
		return "Capture off"
	}
	return "Capturing: " + dev.Name
}

// titleFor returns the tray title with a capture status indicator
func titleFor(active bool) string {
	if active {
		return "🎵 🟢" // Green - capturing
	}
	return "🎵 ⚪️" // White - silent
}
