package window

import (
	"bufio"
	"io"
	"os"
	"sync"
	"unicode"

	"github.com/eiannone/keyboard"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const (
	escAltScreenOn  = "\x1b[?1049h"
	escAltScreenOff = "\x1b[?1049l"
	escHideCursor   = "\x1b[?25l"
	escShowCursor   = "\x1b[?25h"
	escClear        = "\x1b[2J\x1b[H"
)

// Terminal presents frames on a text terminal. The engine draws into
// Writer(); SwapBuffers flushes the frame in one write. Keys are read on a
// background goroutine and only ever posted to the queue.
type Terminal struct {
	out   *os.File
	buf   *bufio.Writer
	queue Queue
	log   zerolog.Logger

	fullscreen bool
	width      int
	height     int
	keys       bool
	closeOnce  sync.Once
}

// OpenTerminal wraps out. Keyboard input is enabled when out is a TTY; if it
// cannot be opened the window still works and only Post delivers events.
func OpenTerminal(out *os.File, log zerolog.Logger) *Terminal {
	t := &Terminal{
		out:    out,
		buf:    bufio.NewWriterSize(out, 64*1024),
		log:    log.With().Str("component", "window").Logger(),
		width:  80,
		height: 24,
	}
	t.width, t.height = t.querySize()

	if !term.IsTerminal(int(out.Fd())) {
		t.log.Warn().Msg("Output is not a terminal, keyboard input disabled")
		return t
	}
	if err := keyboard.Open(); err != nil {
		t.log.Warn().Err(err).Msg("Keyboard input disabled")
		return t
	}
	t.keys = true
	go t.readKeys()

	t.buf.WriteString(escHideCursor)
	return t
}

func (t *Terminal) readKeys() {
	for {
		char, key, err := keyboard.GetKey()
		if err != nil {
			return
		}
		if ev, ok := translateKey(char, key); ok {
			t.queue.Post(ev)
		}
	}
}

// Post queues ev as if it came from the keyboard. Safe for concurrent use.
func (t *Terminal) Post(ev Event) {
	t.queue.Post(ev)
}

// PollEvents drains every pending event. A size change since the last poll
// is reported as a Resize event first.
func (t *Terminal) PollEvents() []Event {
	var events []Event
	if w, h := t.querySize(); w != t.width || h != t.height {
		t.width, t.height = w, h
		events = append(events, Event{Type: Resize, Width: w, Height: h})
	}
	return append(events, t.queue.Drain()...)
}

// Writer is the back buffer for the next frame.
func (t *Terminal) Writer() io.Writer {
	return t.buf
}

func (t *Terminal) SwapBuffers() error {
	return t.buf.Flush()
}

// SetFullscreen switches the terminal's alternate screen on or off.
func (t *Terminal) SetFullscreen(on bool) error {
	if on == t.fullscreen {
		return nil
	}
	t.fullscreen = on
	if on {
		t.buf.WriteString(escAltScreenOn)
	} else {
		t.buf.WriteString(escAltScreenOff)
	}
	t.buf.WriteString(escClear)
	return t.buf.Flush()
}

func (t *Terminal) Fullscreen() bool {
	return t.fullscreen
}

func (t *Terminal) Size() (int, int) {
	return t.width, t.height
}

// Close restores the terminal and stops keyboard input.
func (t *Terminal) Close() error {
	var err error
	t.closeOnce.Do(func() {
		if t.keys {
			if kerr := keyboard.Close(); kerr != nil {
				t.log.Warn().Err(kerr).Msg("Failed to release keyboard")
			}
		}
		if t.fullscreen {
			t.buf.WriteString(escAltScreenOff)
		}
		t.buf.WriteString(escShowCursor + "\n")
		err = t.buf.Flush()
	})
	return err
}

func (t *Terminal) querySize() (int, int) {
	w, h, err := term.GetSize(int(t.out.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return t.width, t.height
	}
	return w, h
}

// translateKey maps a terminal key press to an Event. Terminals report no
// key releases, so ordinary keys become KeyUp events and Escape a KeyDown.
func translateKey(char rune, key keyboard.Key) (Event, bool) {
	switch key {
	case keyboard.KeyEsc:
		return Event{Type: KeyDown, Key: "escape"}, true
	case keyboard.KeyCtrlC:
		return Event{Type: Quit}, true
	case keyboard.KeyArrowRight:
		return Event{Type: KeyUp, Key: "right"}, true
	case keyboard.KeyArrowLeft:
		return Event{Type: KeyUp, Key: "left"}, true
	case keyboard.KeyArrowUp:
		return Event{Type: KeyUp, Key: "up"}, true
	case keyboard.KeyArrowDown:
		return Event{Type: KeyUp, Key: "down"}, true
	case keyboard.KeySpace:
		return Event{Type: KeyUp, Key: "space"}, true
	case keyboard.KeyCtrlI:
		return Event{Type: KeyUp, Key: "i", Mods: ModCtrl}, true
	}

	if key != 0 || char == 0 {
		return Event{}, false
	}
	ev := Event{Type: KeyUp, Key: string(unicode.ToLower(char))}
	if unicode.IsUpper(char) {
		ev.Mods = ModShift
	}
	return ev, true
}
