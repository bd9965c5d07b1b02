// Package hotkey maps keyboard accelerators such as "Ctrl+I" to render loop actions.
package hotkey

import (
	"fmt"
	"sort"
	"strings"

	"github.com/petems/audioviz/internal/window"
)

// Action is something a key can trigger.
type Action string

const (
	Quit             Action = "quit"
	NextPreset       Action = "next_preset"
	PrevPreset       Action = "prev_preset"
	RandomPreset     Action = "random_preset"
	ToggleFullscreen Action = "toggle_fullscreen"
	NextDevice       Action = "next_device"
)

// Actions lists every bindable action.
var Actions = []Action{Quit, NextPreset, PrevPreset, RandomPreset, ToggleFullscreen, NextDevice}

// DefaultBindings is the stock keymap.
var DefaultBindings = map[Action][]string{
	Quit:             {"Escape"},
	NextPreset:       {"N", "Right"},
	PrevPreset:       {"P", "Left"},
	RandomPreset:     {"R"},
	ToggleFullscreen: {"F"},
	NextDevice:       {"Ctrl+I", "Cmd+I"},
}

// Binding is a parsed accelerator.
type Binding struct {
	Key  string
	Mods window.Mod
}

func (b Binding) String() string {
	if b.Mods == 0 {
		return b.Key
	}
	return b.Mods.String() + "+" + b.Key
}

var modNames = map[string]window.Mod{
	"ctrl":    window.ModCtrl,
	"control": window.ModCtrl,
	"alt":     window.ModAlt,
	"option":  window.ModAlt,
	"shift":   window.ModShift,
	"cmd":     window.ModCmd,
	"super":   window.ModCmd,
	"gui":     window.ModCmd,
}

var keyAliases = map[string]string{
	"esc":        "escape",
	"arrowright": "right",
	"arrowleft":  "left",
}

// ParseAccel parses strings like "Ctrl+I", "Right" or "Cmd+Shift+N".
// Matching is case-insensitive.
func ParseAccel(accel string) (Binding, error) {
	parts := strings.Split(accel, "+")
	var b Binding
	for i, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			return Binding{}, fmt.Errorf("invalid accelerator %q", accel)
		}
		if i == len(parts)-1 {
			if alias, ok := keyAliases[p]; ok {
				p = alias
			}
			if _, isMod := modNames[p]; isMod {
				return Binding{}, fmt.Errorf("accelerator %q has no key", accel)
			}
			b.Key = p
			continue
		}
		mod, ok := modNames[p]
		if !ok {
			return Binding{}, fmt.Errorf("unknown modifier %q in %q", p, accel)
		}
		b.Mods |= mod
	}
	return b, nil
}

// Keymap resolves key events to actions.
type Keymap struct {
	bindings map[Action][]Binding
}

// NewKeymap returns an empty keymap.
func NewKeymap() *Keymap {
	return &Keymap{bindings: make(map[Action][]Binding)}
}

// FromConfig builds a keymap from accelerator lists per action. Actions
// missing from cfg keep their default bindings.
func FromConfig(cfg map[string][]string) (*Keymap, error) {
	km := NewKeymap()
	for _, action := range Actions {
		accels, ok := cfg[string(action)]
		if !ok {
			accels = DefaultBindings[action]
		}
		for _, accel := range accels {
			if err := km.Register(accel, action); err != nil {
				return nil, err
			}
		}
	}
	for name := range cfg {
		if !knownAction(Action(name)) {
			return nil, fmt.Errorf("unknown action %q", name)
		}
	}
	return km, nil
}

// Defaults returns a keymap holding DefaultBindings. It panics if a default
// accelerator does not parse.
func Defaults() *Keymap {
	km, err := FromConfig(nil)
	if err != nil {
		panic(fmt.Sprintf("hotkey: bad default binding: %v", err))
	}
	return km
}

// Register binds accel to action.
func (k *Keymap) Register(accel string, action Action) error {
	b, err := ParseAccel(accel)
	if err != nil {
		return err
	}
	k.bindings[action] = append(k.bindings[action], b)
	return nil
}

// Lookup returns the action bound to ev. A binding matches when the key is
// equal and every modifier it names is held; extra modifiers are ignored.
// Key presses only ever trigger Quit; everything else fires on release.
func (k *Keymap) Lookup(ev window.Event) (Action, bool) {
	if ev.Type != window.KeyUp && ev.Type != window.KeyDown {
		return "", false
	}

	var best Action
	bestMods := -1
	for _, action := range Actions {
		if ev.Type == window.KeyDown && action != Quit {
			continue
		}
		for _, b := range k.bindings[action] {
			if b.Key != ev.Key || !ev.Mods.Has(b.Mods) {
				continue
			}
			// prefer the most specific binding
			if n := bitCount(b.Mods); n > bestMods {
				best, bestMods = action, n
			}
		}
	}
	return best, bestMods >= 0
}

// Describe lists bindings per action for help output.
func (k *Keymap) Describe() []string {
	lines := make([]string, 0, len(k.bindings))
	for _, action := range Actions {
		bs := k.bindings[action]
		if len(bs) == 0 {
			continue
		}
		names := make([]string, len(bs))
		for i, b := range bs {
			names[i] = b.String()
		}
		sort.Strings(names)
		lines = append(lines, fmt.Sprintf("%-18s %s", action, strings.Join(names, ", ")))
	}
	return lines
}

func knownAction(a Action) bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

func bitCount(m window.Mod) int {
	n := 0
	for ; m != 0; m &= m - 1 {
		n++
	}
	return n
}
