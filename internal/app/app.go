package app

import (
	"context"
	"errors"
	"time"

	"github.com/petems/audioviz/internal/audio"
	"github.com/petems/audioviz/internal/hotkey"
	"github.com/petems/audioviz/internal/playlist"
	"github.com/petems/audioviz/internal/window"
	"github.com/rs/zerolog"
)

// Window is the presentation surface and event source.
type Window interface {
	PollEvents() []window.Event
	SwapBuffers() error
	SetFullscreen(on bool) error
	Fullscreen() bool
	Size() (width, height int)
}

// Engine is what the loop needs from the renderer.
type Engine interface {
	RenderFrame()
	SetWindowSize(width, height int)
}

type Playlist interface {
	PlayNext() error
	PlayPrev() error
	PlayRandom() error
}

// Relay moves captured PCM into the engine.
type Relay interface {
	Drain() int
}

type Switcher interface {
	SwitchToNext() error
	SwitchToDevice(dev audio.Device) error
}

// Clock is swapped out in tests.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type Recorder interface {
	FrameDone(work time.Duration, overrun bool)
	EventHandled()
}

// StatusUpdater is an interface for reporting the capture device (e.g., tray menu)
type StatusUpdater interface {
	SetDevice(dev audio.Device)
	SetIdle()
}

// DeviceReporter exposes the device currently capturing.
type DeviceReporter interface {
	CurrentDevice() (audio.Device, bool)
}

type Config struct {
	Window   Window
	Engine   Engine
	Playlist Playlist
	Relay    Relay
	Switcher Switcher
	Keymap   *hotkey.Keymap

	// FrameRate is the target frames per second; 0 renders unbounded.
	FrameRate int
	Logger    zerolog.Logger

	Clock         Clock          // Optional - defaults to wall clock
	Metrics       Recorder       // Optional - can be nil
	StatusUpdater StatusUpdater  // Optional - can be nil
	Devices       DeviceReporter // Required when StatusUpdater is set
}

// App is the frame pacer. Everything it touches runs on the goroutine
// calling Run.
type App struct {
	win      Window
	engine   Engine
	playlist Playlist
	relay    Relay
	switcher Switcher
	keys     *hotkey.Keymap
	fps      int
	clock    Clock
	metrics  Recorder
	status   StatusUpdater
	devices  DeviceReporter
	log      zerolog.Logger
}

func New(cfg Config) *App {
	keys := cfg.Keymap
	if keys == nil {
		keys = hotkey.Defaults()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = wallClock{}
	}
	return &App{
		win:      cfg.Window,
		engine:   cfg.Engine,
		playlist: cfg.Playlist,
		relay:    cfg.Relay,
		switcher: cfg.Switcher,
		keys:     keys,
		fps:      cfg.FrameRate,
		clock:    clock,
		metrics:  cfg.Metrics,
		status:   cfg.StatusUpdater,
		devices:  cfg.Devices,
		log:      cfg.Logger.With().Str("component", "app").Logger(),
	}
}

// Run renders frames until a Quit event arrives or ctx is cancelled. A
// cancelled context is only noticed between frames.
func (a *App) Run(ctx context.Context) error {
	a.pushWindowSize()
	a.reportDevice()
	a.log.Info().Int("fps", a.fps).Msg("Render loop started")

	for {
		if err := ctx.Err(); err != nil {
			a.log.Info().Msg("Context done, leaving render loop")
			return nil
		}
		if !a.step() {
			a.log.Info().Msg("Quit requested, leaving render loop")
			return nil
		}
	}
}

// step runs one frame and reports whether the loop should continue.
func (a *App) step() bool {
	budget := FrameBudget{TargetFPS: a.fps, Start: a.clock.Now()}

	quit := false
	for _, ev := range a.win.PollEvents() {
		if a.handle(ev) {
			quit = true
		}
	}
	if quit {
		return false
	}

	a.relay.Drain()
	a.engine.RenderFrame()
	if err := a.win.SwapBuffers(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to present frame")
	}

	budget.Elapsed = a.clock.Now().Sub(budget.Start)
	if a.metrics != nil {
		a.metrics.FrameDone(budget.Elapsed, budget.Overrun())
	}
	if d := budget.Remaining(); d > 0 {
		a.clock.Sleep(d)
	}
	return true
}

func (a *App) handle(ev window.Event) (quit bool) {
	if a.metrics != nil {
		a.metrics.EventHandled()
	}

	switch ev.Type {
	case window.Quit:
		return true
	case window.Resize:
		a.engine.SetWindowSize(ev.Width, ev.Height)
	case window.SelectDevice:
		a.switchDevice(func() error { return a.switcher.SwitchToDevice(audio.Device{ID: ev.DeviceID, Name: ev.DeviceName}) })
	case window.NextDevice:
		a.switchDevice(a.switcher.SwitchToNext)
	case window.KeyDown, window.KeyUp:
		if action, ok := a.keys.Lookup(ev); ok {
			return a.perform(action)
		}
	}
	return false
}

func (a *App) perform(action hotkey.Action) (quit bool) {
	a.log.Debug().Str("action", string(action)).Msg("Hotkey")

	switch action {
	case hotkey.Quit:
		return true
	case hotkey.NextPreset:
		a.presetResult(a.playlist.PlayNext())
	case hotkey.PrevPreset:
		a.presetResult(a.playlist.PlayPrev())
	case hotkey.RandomPreset:
		a.presetResult(a.playlist.PlayRandom())
	case hotkey.ToggleFullscreen:
		if err := a.win.SetFullscreen(!a.win.Fullscreen()); err != nil {
			a.log.Warn().Err(err).Msg("Failed to toggle fullscreen")
		}
		a.pushWindowSize()
	case hotkey.NextDevice:
		a.switchDevice(a.switcher.SwitchToNext)
	}
	return false
}

func (a *App) switchDevice(fn func() error) {
	if err := fn(); err != nil {
		a.log.Warn().Err(err).Msg("Device switch failed, capture is off")
	}
	a.reportDevice()
}

func (a *App) presetResult(err error) {
	switch {
	case err == nil:
	case errors.Is(err, playlist.ErrEmpty):
		a.log.Debug().Msg("No presets loaded")
	default:
		a.log.Warn().Err(err).Msg("Preset change failed")
	}
}

func (a *App) pushWindowSize() {
	w, h := a.win.Size()
	a.engine.SetWindowSize(w, h)
}

func (a *App) reportDevice() {
	if a.status == nil || a.devices == nil {
		return
	}
	if dev, ok := a.devices.CurrentDevice(); ok {
		a.status.SetDevice(dev)
	} else {
		a.status.SetIdle()
	}
}

type wallClock struct{}

func (wallClock) Now() time.Time        { return time.Now() }
func (wallClock) Sleep(d time.Duration) { time.Sleep(d) }
