// Package window is the event and presentation layer the render loop talks to.
package window

import (
	"strings"
	"sync"

	"github.com/petems/audioviz/internal/audio"
)

// EventType distinguishes window events.
type EventType int

const (
	Quit EventType = iota
	KeyDown
	KeyUp
	Resize
	// SelectDevice asks for capture on Event.DeviceID, or on the device
	// named Event.DeviceName when the ID no longer exists.
	SelectDevice
	// NextDevice asks for capture on the next device in the list.
	NextDevice
)

// Mod is a set of keyboard modifiers.
type Mod uint8

const (
	ModShift Mod = 1 << iota
	ModCtrl
	ModAlt
	ModCmd
)

// Has reports whether every modifier in o is set in m.
func (m Mod) Has(o Mod) bool {
	return m&o == o
}

func (m Mod) String() string {
	var parts []string
	for _, p := range []struct {
		mod  Mod
		name string
	}{{ModCtrl, "Ctrl"}, {ModAlt, "Alt"}, {ModShift, "Shift"}, {ModCmd, "Cmd"}} {
		if m.Has(p.mod) {
			parts = append(parts, p.name)
		}
	}
	return strings.Join(parts, "+")
}

// Event is one input or control event. Key names are lower case ("n",
// "escape", "right").
type Event struct {
	Type       EventType
	Key        string
	Mods       Mod
	Width      int
	Height     int
	DeviceID   audio.DeviceID
	DeviceName string
}

// Queue collects events from any goroutine for the render thread to drain.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// Post appends ev. Safe for concurrent use.
func (q *Queue) Post(ev Event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

// Drain removes and returns every pending event in arrival order.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	events := q.events
	q.events = nil
	return events
}
