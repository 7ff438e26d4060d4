package shortcut

import (
	"sync"

	"github.com/rs/zerolog"
)

type Action int

const (
	ActionNone Action = iota
	ActionOpenPicker
	ActionGenerate
	ActionSpeak
	ActionStop
	ActionCopy
)

func (a Action) String() string {
	switch a {
	case ActionOpenPicker:
		return "open-picker"
	case ActionGenerate:
		return "generate"
	case ActionSpeak:
		return "speak"
	case ActionStop:
		return "stop"
	case ActionCopy:
		return "copy"
	}
	return "none"
}

// State is the slice of application state the guards read.
type State struct {
	HasImage   bool
	InFlight   bool
	HasCaption bool
	Speaking   bool
}

type Binding struct {
	Chord       Chord
	Action      Action
	Description string
	// Guard gates the action; nil always allows it.
	Guard func(State) bool
	// Swallow consumes the chord even when Guard rejects it.
	Swallow bool
}

// DefaultBindings is the application's shortcut table.
func DefaultBindings() []Binding {
	return []Binding{
		{
			Chord:       MustParse("Ctrl+U"),
			Action:      ActionOpenPicker,
			Description: "Upload image",
			Swallow:     true,
		},
		{
			Chord:       MustParse("Ctrl+Enter"),
			Action:      ActionGenerate,
			Description: "Generate caption",
			Guard:       func(s State) bool { return s.HasImage && !s.InFlight },
			Swallow:     true,
		},
		{
			Chord:       MustParse("Ctrl+S"),
			Action:      ActionSpeak,
			Description: "Speak caption",
			Guard:       func(s State) bool { return s.HasCaption },
			Swallow:     true,
		},
		{
			Chord:       MustParse("Ctrl+Shift+C"),
			Action:      ActionCopy,
			Description: "Copy caption",
			Guard:       func(s State) bool { return s.HasCaption },
			Swallow:     true,
		},
		{
			Chord:       MustParse("Escape"),
			Action:      ActionStop,
			Description: "Stop speaking",
			Guard:       func(s State) bool { return s.Speaking },
		},
	}
}

// Outcome is the result of dispatching one chord.
type Outcome struct {
	Action Action
	// Fire is true when the guard passed and Action should run.
	Fire bool
	// Handled is true when the chord's default handling must be suppressed.
	Handled bool
}

// Dispatcher resolves chords against bindings. It only acts while mounted.
type Dispatcher struct {
	bindings []Binding
	log      zerolog.Logger

	mu      sync.Mutex
	mounted bool
}

func NewDispatcher(bindings []Binding, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		bindings: bindings,
		log:      log.With().Str("component", "shortcut").Logger(),
	}
}

func (d *Dispatcher) Mount() {
	d.mu.Lock()
	d.mounted = true
	d.mu.Unlock()
}

func (d *Dispatcher) Unmount() {
	d.mu.Lock()
	d.mounted = false
	d.mu.Unlock()
}

func (d *Dispatcher) Mounted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mounted
}

func (d *Dispatcher) Bindings() []Binding { return d.bindings }

// Dispatch looks c up. Unmatched chords, and every chord while unmounted,
// pass through untouched.
func (d *Dispatcher) Dispatch(c Chord, st State) Outcome {
	if !d.Mounted() {
		return Outcome{}
	}
	for _, b := range d.bindings {
		if b.Chord != c {
			continue
		}
		fire := b.Guard == nil || b.Guard(st)
		d.log.Debug().Str("chord", c.String()).Str("action", b.Action.String()).Bool("fire", fire).Msg("chord matched")
		return Outcome{Action: b.Action, Fire: fire, Handled: fire || b.Swallow}
	}
	return Outcome{}
}
