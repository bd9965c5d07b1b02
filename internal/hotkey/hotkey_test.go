package hotkey

import (
	"testing"

	"github.com/petems/audioviz/internal/window"
)

func TestParseAccel(t *testing.T) {
	tests := []struct {
		accel string
		want  Binding
	}{
		{"N", Binding{Key: "n"}},
		{"Right", Binding{Key: "right"}},
		{"Esc", Binding{Key: "escape"}},
		{"Ctrl+I", Binding{Key: "i", Mods: window.ModCtrl}},
		{"cmd + i", Binding{Key: "i", Mods: window.ModCmd}},
		{"Ctrl+Shift+N", Binding{Key: "n", Mods: window.ModCtrl | window.ModShift}},
	}

	for _, tt := range tests {
		t.Run(tt.accel, func(t *testing.T) {
			got, err := ParseAccel(tt.accel)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParseAccelErrors(t *testing.T) {
	for _, accel := range []string{"", "Ctrl+", "Hyper+I", "Ctrl+Shift"} {
		if _, err := ParseAccel(accel); err == nil {
			t.Errorf("expected error for %q", accel)
		}
	}
}

func TestDefaultKeymap(t *testing.T) {
	km, err := FromConfig(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		event window.Event
		want  Action
		ok    bool
	}{
		{"escape press quits", window.Event{Type: window.KeyDown, Key: "escape"}, Quit, true},
		{"escape release quits", window.Event{Type: window.KeyUp, Key: "escape"}, Quit, true},
		{"n", window.Event{Type: window.KeyUp, Key: "n"}, NextPreset, true},
		{"right", window.Event{Type: window.KeyUp, Key: "right"}, NextPreset, true},
		{"p", window.Event{Type: window.KeyUp, Key: "p"}, PrevPreset, true},
		{"left", window.Event{Type: window.KeyUp, Key: "left"}, PrevPreset, true},
		{"r", window.Event{Type: window.KeyUp, Key: "r"}, RandomPreset, true},
		{"f", window.Event{Type: window.KeyUp, Key: "f"}, ToggleFullscreen, true},
		{"ctrl+i", window.Event{Type: window.KeyUp, Key: "i", Mods: window.ModCtrl}, NextDevice, true},
		{"cmd+i", window.Event{Type: window.KeyUp, Key: "i", Mods: window.ModCmd}, NextDevice, true},
		{"plain i", window.Event{Type: window.KeyUp, Key: "i"}, "", false},
		{"n press ignored", window.Event{Type: window.KeyDown, Key: "n"}, "", false},
		{"shift+n still next", window.Event{Type: window.KeyUp, Key: "n", Mods: window.ModShift}, NextPreset, true},
		{"resize", window.Event{Type: window.Resize}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := km.Lookup(tt.event)
			if ok != tt.ok || got != tt.want {
				t.Errorf("expected (%q, %v), got (%q, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestDefaultBindingsParse(t *testing.T) {
	for action, accels := range DefaultBindings {
		for _, accel := range accels {
			if _, err := ParseAccel(accel); err != nil {
				t.Errorf("default %s binding %q: %v", action, accel, err)
			}
		}
	}

	km := Defaults()
	if got, ok := km.Lookup(window.Event{Type: window.KeyDown, Key: "escape"}); !ok || got != Quit {
		t.Errorf("expected escape to quit, got (%q, %v)", got, ok)
	}
}

func TestFromConfigOverrides(t *testing.T) {
	km, err := FromConfig(map[string][]string{
		"next_preset": {"Space"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := km.Lookup(window.Event{Type: window.KeyUp, Key: "n"}); ok {
		t.Error("expected N to be unbound after override")
	}
	if got, _ := km.Lookup(window.Event{Type: window.KeyUp, Key: "space"}); got != NextPreset {
		t.Errorf("expected space to trigger next_preset, got %q", got)
	}
	if got, _ := km.Lookup(window.Event{Type: window.KeyUp, Key: "f"}); got != ToggleFullscreen {
		t.Errorf("expected defaults for other actions, got %q", got)
	}
}

func TestFromConfigRejectsUnknownAction(t *testing.T) {
	if _, err := FromConfig(map[string][]string{"explode": {"X"}}); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestMostSpecificBindingWins(t *testing.T) {
	km := NewKeymap()
	if err := km.Register("N", NextPreset); err != nil {
		t.Fatal(err)
	}
	if err := km.Register("Ctrl+N", RandomPreset); err != nil {
		t.Fatal(err)
	}

	got, _ := km.Lookup(window.Event{Type: window.KeyUp, Key: "n", Mods: window.ModCtrl})
	if got != RandomPreset {
		t.Errorf("expected random_preset, got %q", got)
	}
}

func TestDescribe(t *testing.T) {
	km, _ := FromConfig(nil)
	if lines := km.Describe(); len(lines) != len(Actions) {
		t.Errorf("expected %d lines, got %d", len(Actions), len(lines))
	}
}
