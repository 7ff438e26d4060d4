package shortcut

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Chord
	}{
		{"Ctrl+U", Chord{ModPrimary, "u"}},
		{"cmd+enter", Chord{ModPrimary, "enter"}},
		{"Ctrl+Return", Chord{ModPrimary, "enter"}},
		{"Ctrl+Shift+C", Chord{ModPrimary | ModShift, "c"}},
		{"Esc", Chord{0, "escape"}},
		{"super + s", Chord{ModPrimary, "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "Ctrl+", "Ctrl+Shift", "u+Ctrl"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := MustParse("ctrl+shift+c").Format("Cmd"); got != "Cmd+Shift+C" {
		t.Errorf("Format = %q", got)
	}
	if got := MustParse("escape").String(); got != "Escape" {
		t.Errorf("String = %q", got)
	}
}

func TestDispatch(t *testing.T) {
	ready := State{HasImage: true}
	tests := []struct {
		name  string
		chord string
		state State
		want  Outcome
	}{
		{"upload always fires", "Ctrl+U", State{}, Outcome{ActionOpenPicker, true, true}},
		{"generate with image", "Ctrl+Enter", ready, Outcome{ActionGenerate, true, true}},
		{"generate without image is swallowed", "Ctrl+Enter", State{}, Outcome{ActionGenerate, false, true}},
		{"generate while in flight is swallowed", "Ctrl+Enter", State{HasImage: true, InFlight: true}, Outcome{ActionGenerate, false, true}},
		{"speak with caption", "Ctrl+S", State{HasCaption: true}, Outcome{ActionSpeak, true, true}},
		{"speak without caption is swallowed", "Ctrl+S", State{}, Outcome{ActionSpeak, false, true}},
		{"copy with caption", "Ctrl+Shift+C", State{HasCaption: true}, Outcome{ActionCopy, true, true}},
		{"escape while speaking", "Escape", State{Speaking: true}, Outcome{ActionStop, true, true}},
		{"escape while silent passes through", "Escape", State{}, Outcome{ActionStop, false, false}},
		{"unmatched chord", "Ctrl+Q", ready, Outcome{}},
		{"plain letter", "u", ready, Outcome{}},
	}

	d := NewDispatcher(DefaultBindings(), zerolog.Nop())
	d.Mount()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Dispatch(MustParse(tt.chord), tt.state); got != tt.want {
				t.Errorf("Dispatch(%s) = %+v, want %+v", tt.chord, got, tt.want)
			}
		})
	}
}

func TestDispatchInactiveWhenUnmounted(t *testing.T) {
	d := NewDispatcher(DefaultBindings(), zerolog.Nop())
	if got := d.Dispatch(MustParse("Ctrl+U"), State{}); got != (Outcome{}) {
		t.Errorf("unmounted Dispatch = %+v", got)
	}
	d.Mount()
	d.Unmount()
	if got := d.Dispatch(MustParse("Ctrl+U"), State{}); got != (Outcome{}) {
		t.Errorf("Dispatch after Unmount = %+v", got)
	}
}

func TestKeyboardChords(t *testing.T) {
	kb := newKeyboard()

	if _, ok := kb.press("ctrl"); ok {
		t.Fatal("modifier alone should not fire")
	}
	c, ok := kb.press("enter")
	if !ok || c != (Chord{ModPrimary, "enter"}) {
		t.Fatalf("press enter = %+v, %v", c, ok)
	}
	if _, ok := kb.press("enter"); ok {
		t.Error("auto-repeat should not fire again")
	}
	kb.release("enter")
	kb.release("ctrl")

	c, ok = kb.press("escape")
	if !ok || c != (Chord{0, "escape"}) {
		t.Errorf("press escape = %+v, %v", c, ok)
	}
}

func TestRawcodeRoundTrip(t *testing.T) {
	for _, name := range []string{"ctrl", "shift", "enter", "escape", "u", "s", "c", "5"} {
		codes := keyNameToRawcodes(name)
		if len(codes) == 0 {
			t.Errorf("keyNameToRawcodes(%q) is empty", name)
			continue
		}
		for _, rc := range codes {
			if got, ok := rawcodeToKey(rc); !ok || got != name {
				t.Errorf("rawcodeToKey(%d) = %q, %v; want %q", rc, got, ok, name)
			}
		}
	}
	if keyNameToRawcodes("unknown") != nil {
		t.Error("unknown key should map to nil")
	}
}
