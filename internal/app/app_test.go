package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/petems/audioviz/internal/audio"
	"github.com/petems/audioviz/internal/hotkey"
	"github.com/petems/audioviz/internal/playlist"
	"github.com/petems/audioviz/internal/window"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Mock implementations for testing
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

type mockWindow struct {
	frames     [][]window.Event
	swaps      int
	fullscreen bool
	width      int
	height     int
	swapErr    error
}

func (w *mockWindow) PollEvents() []window.Event {
	if len(w.frames) == 0 {
		return nil
	}
	evs := w.frames[0]
	w.frames = w.frames[1:]
	return evs
}

func (w *mockWindow) SwapBuffers() error {
	w.swaps++
	return w.swapErr
}

func (w *mockWindow) SetFullscreen(on bool) error {
	w.fullscreen = on
	if on {
		w.width, w.height = 200, 60
	} else {
		w.width, w.height = 80, 24
	}
	return nil
}

func (w *mockWindow) Fullscreen() bool          { return w.fullscreen }
func (w *mockWindow) Size() (width, height int) { return w.width, w.height }

type mockEngine struct {
	clock   *fakeClock
	cost    time.Duration
	renders int
	sizes   [][2]int
}

func (e *mockEngine) RenderFrame() {
	e.renders++
	e.clock.now = e.clock.now.Add(e.cost)
}

func (e *mockEngine) SetWindowSize(width, height int) {
	e.sizes = append(e.sizes, [2]int{width, height})
}

type mockPlaylist struct {
	calls []string
	err   error
}

func (p *mockPlaylist) PlayNext() error   { p.calls = append(p.calls, "next"); return p.err }
func (p *mockPlaylist) PlayPrev() error   { p.calls = append(p.calls, "prev"); return p.err }
func (p *mockPlaylist) PlayRandom() error { p.calls = append(p.calls, "random"); return p.err }

type mockRelay struct {
	drains int
}

func (r *mockRelay) Drain() int {
	r.drains++
	return 0
}

type mockSwitcher struct {
	next     int
	selected []audio.Device
	err      error
	current  *audio.Device
}

func (s *mockSwitcher) SwitchToNext() error {
	s.next++
	if s.err != nil {
		s.current = nil
		return s.err
	}
	s.current = &audio.Device{ID: "mic-b", Name: "Mic B"}
	return nil
}

func (s *mockSwitcher) SwitchToDevice(dev audio.Device) error {
	s.selected = append(s.selected, dev)
	return s.err
}

func (s *mockSwitcher) CurrentDevice() (audio.Device, bool) {
	if s.current == nil {
		return audio.Device{}, false
	}
	return *s.current, true
}

type mockStatus struct {
	devices []string
	idle    int
}

func (s *mockStatus) SetDevice(dev audio.Device) { s.devices = append(s.devices, dev.Name) }
func (s *mockStatus) SetIdle()                   { s.idle++ }

type mockRecorder struct {
	frames   int
	overruns int
	events   int
}

func (r *mockRecorder) FrameDone(_ time.Duration, overrun bool) {
	r.frames++
	if overrun {
		r.overruns++
	}
}

func (r *mockRecorder) EventHandled() { r.events++ }

type harness struct {
	app      *App
	clock    *fakeClock
	win      *mockWindow
	engine   *mockEngine
	playlist *mockPlaylist
	relay    *mockRelay
	switcher *mockSwitcher
	status   *mockStatus
	metrics  *mockRecorder
}

func newHarness(fps int, frames ...[]window.Event) *harness {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	h := &harness{
		clock:    clock,
		win:      &mockWindow{frames: frames, width: 80, height: 24},
		engine:   &mockEngine{clock: clock},
		playlist: &mockPlaylist{},
		relay:    &mockRelay{},
		switcher: &mockSwitcher{},
		status:   &mockStatus{},
		metrics:  &mockRecorder{},
	}
	h.app = New(Config{
		Window:        h.win,
		Engine:        h.engine,
		Playlist:      h.playlist,
		Relay:         h.relay,
		Switcher:      h.switcher,
		FrameRate:     fps,
		Logger:        zerolog.Nop(),
		Clock:         clock,
		Metrics:       h.metrics,
		StatusUpdater: h.status,
		Devices:       h.switcher,
	})
	return h
}

func TestFrameSleepsRemainderOfBudget(t *testing.T) {
	h := newHarness(60)

	require.True(t, h.app.step())
	require.Len(t, h.clock.sleeps, 1)
	assert.InDelta(t, 16*time.Millisecond, h.clock.sleeps[0], float64(time.Millisecond))
	assert.Equal(t, time.Second/60, h.clock.sleeps[0])
}

func TestFrameSleepsPartOfBudget(t *testing.T) {
	h := newHarness(60)
	h.engine.cost = 10 * time.Millisecond

	require.True(t, h.app.step())
	require.Len(t, h.clock.sleeps, 1)
	assert.Equal(t, time.Second/60-10*time.Millisecond, h.clock.sleeps[0])
}

func TestFrameOverrunDoesNotSleepOrCatchUp(t *testing.T) {
	h := newHarness(60)
	h.engine.cost = 20 * time.Millisecond

	require.True(t, h.app.step())
	assert.Empty(t, h.clock.sleeps)
	assert.Equal(t, 1, h.metrics.overruns)

	// a cheap frame after an overrun still gets exactly one budget
	h.engine.cost = 0
	require.True(t, h.app.step())
	require.Len(t, h.clock.sleeps, 1)
	assert.Equal(t, time.Second/60, h.clock.sleeps[0])
}

func TestUnboundedFrameRateNeverSleeps(t *testing.T) {
	h := newHarness(0)
	for i := 0; i < 5; i++ {
		require.True(t, h.app.step())
	}
	assert.Empty(t, h.clock.sleeps)
	assert.Zero(t, h.metrics.overruns)
}

func TestFrameOrder(t *testing.T) {
	h := newHarness(60)
	require.True(t, h.app.step())

	assert.Equal(t, 1, h.relay.drains)
	assert.Equal(t, 1, h.engine.renders)
	assert.Equal(t, 1, h.win.swaps)
	assert.Equal(t, 1, h.metrics.frames)
}

func TestSwapErrorKeepsRunning(t *testing.T) {
	h := newHarness(60)
	h.win.swapErr = errors.New("broken pipe")
	assert.True(t, h.app.step())
	assert.True(t, h.app.step())
}

func TestRunExitsOnQuit(t *testing.T) {
	h := newHarness(60, nil, nil, []window.Event{{Type: window.KeyUp, Key: "n"}, {Type: window.Quit}})

	require.NoError(t, h.app.Run(context.Background()))
	assert.Equal(t, 2, h.engine.renders)
	// events in the quitting frame are still dispatched
	assert.Equal(t, []string{"next"}, h.playlist.calls)
	assert.Equal(t, [][2]int{{80, 24}}, h.engine.sizes)
}

func TestRunExitsOnEscape(t *testing.T) {
	h := newHarness(60, []window.Event{{Type: window.KeyDown, Key: "escape"}})
	require.NoError(t, h.app.Run(context.Background()))
	assert.Zero(t, h.engine.renders)
}

func TestRunExitsOnCancelledContext(t *testing.T) {
	h := newHarness(60)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.app.Run(ctx))
	assert.Zero(t, h.engine.renders)
}

func TestPresetHotkeys(t *testing.T) {
	h := newHarness(60, []window.Event{
		{Type: window.KeyUp, Key: "n"},
		{Type: window.KeyUp, Key: "right"},
		{Type: window.KeyUp, Key: "p"},
		{Type: window.KeyUp, Key: "left"},
		{Type: window.KeyUp, Key: "r"},
		{Type: window.KeyUp, Key: "x"},
	})
	require.True(t, h.app.step())

	assert.Equal(t, []string{"next", "next", "prev", "prev", "random"}, h.playlist.calls)
	assert.Equal(t, 6, h.metrics.events)
}

func TestEmptyPlaylistIsNotFatal(t *testing.T) {
	h := newHarness(60, []window.Event{{Type: window.KeyUp, Key: "n"}})
	h.playlist.err = playlist.ErrEmpty
	assert.True(t, h.app.step())
}

func TestFullscreenTogglePushesSize(t *testing.T) {
	h := newHarness(60,
		[]window.Event{{Type: window.KeyUp, Key: "f"}},
		[]window.Event{{Type: window.KeyUp, Key: "f"}},
	)
	require.True(t, h.app.step())
	assert.True(t, h.win.fullscreen)
	require.True(t, h.app.step())
	assert.False(t, h.win.fullscreen)

	assert.Equal(t, [][2]int{{200, 60}, {80, 24}}, h.engine.sizes)
}

func TestResizePushesSize(t *testing.T) {
	h := newHarness(60, []window.Event{{Type: window.Resize, Width: 120, Height: 40}})
	require.True(t, h.app.step())
	assert.Equal(t, [][2]int{{120, 40}}, h.engine.sizes)
}

func TestDeviceHotkeyAndEvents(t *testing.T) {
	h := newHarness(60, []window.Event{
		{Type: window.KeyUp, Key: "i", Mods: window.ModCtrl},
		{Type: window.KeyUp, Key: "i", Mods: window.ModCmd},
		{Type: window.NextDevice},
		{Type: window.SelectDevice, DeviceID: "mic-c", DeviceName: "Mic C"},
		{Type: window.KeyUp, Key: "i"},
	})
	require.True(t, h.app.step())

	assert.Equal(t, 3, h.switcher.next)
	assert.Equal(t, []audio.Device{{ID: "mic-c", Name: "Mic C"}}, h.switcher.selected)
	assert.Equal(t, []string{"Mic B", "Mic B", "Mic B", "Mic B"}, h.status.devices)
}

func TestDeviceSwitchFailureKeepsRendering(t *testing.T) {
	h := newHarness(60, []window.Event{{Type: window.NextDevice}})
	h.switcher.err = audio.ErrNoDeviceAvailable

	require.True(t, h.app.step())
	assert.Equal(t, 1, h.engine.renders)
	assert.Equal(t, 1, h.status.idle)
}

func TestFrameBudget(t *testing.T) {
	b := FrameBudget{TargetFPS: 50, Elapsed: 5 * time.Millisecond}
	assert.Equal(t, 20*time.Millisecond, b.Interval())
	assert.Equal(t, 15*time.Millisecond, b.Remaining())
	assert.False(t, b.Overrun())

	b.Elapsed = 25 * time.Millisecond
	assert.Zero(t, b.Remaining())
	assert.True(t, b.Overrun())

	b = FrameBudget{Elapsed: time.Hour}
	assert.Zero(t, b.Interval())
	assert.Zero(t, b.Remaining())
	assert.False(t, b.Overrun())
}

func TestNewWithoutKeymapUsesDefaults(t *testing.T) {
	a := New(Config{Logger: zerolog.Nop()})
	require.NotNil(t, a.keys)

	action, ok := a.keys.Lookup(window.Event{Type: window.KeyDown, Key: "escape"})
	assert.True(t, ok)
	assert.Equal(t, hotkey.Quit, action)
}
