package shortcut

import (
	"sync"

	gohook "github.com/robotn/gohook"
	"github.com/rs/zerolog"
)

// keyboard tracks held keys from raw hook events and reports a chord each
// time a non-modifier key goes down.
type keyboard struct {
	held  map[string]bool
	fired map[string]bool
}

func newKeyboard() *keyboard {
	return &keyboard{held: map[string]bool{}, fired: map[string]bool{}}
}

// press returns the chord completed by name, if any. Repeats of a key that
// is still held do not fire again.
func (k *keyboard) press(name string) (Chord, bool) {
	k.held[name] = true
	if _, ok := modifierKeys[name]; ok {
		return Chord{}, false
	}
	if k.fired[name] {
		return Chord{}, false
	}
	k.fired[name] = true

	var c Chord
	for key, mod := range modifierKeys {
		if k.held[key] {
			c.Mods |= mod
		}
	}
	c.Key = name
	return c, true
}

func (k *keyboard) release(name string) {
	delete(k.held, name)
	delete(k.fired, name)
}

var modifierKeys = map[string]Modifier{
	"ctrl":  ModPrimary,
	"cmd":   ModPrimary,
	"shift": ModShift,
	"alt":   ModAlt,
}

// Listen starts a system-wide keyboard hook and calls onChord for every chord
// pressed anywhere on the desktop. The returned stop func ends the hook.
func Listen(log zerolog.Logger, onChord func(Chord)) (stop func()) {
	log = log.With().Str("component", "hotkeys").Logger()
	evChan := gohook.Start()
	if evChan == nil {
		log.Error().Msg("keyboard hook did not start")
		return func() {}
	}

	var once sync.Once
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("keyboard hook goroutine panicked")
			}
		}()

		kb := newKeyboard()
		for ev := range evChan {
			name, ok := rawcodeToKey(ev.Rawcode)
			if !ok {
				continue
			}
			switch ev.Kind {
			case gohook.KeyDown, gohook.KeyHold:
				if c, ok := kb.press(name); ok {
					log.Debug().Str("chord", c.String()).Msg("global chord")
					onChord(c)
				}
			case gohook.KeyUp:
				kb.release(name)
			}
		}
		log.Debug().Msg("keyboard hook channel closed")
	}()

	log.Info().Msg("global hotkeys enabled")
	return func() {
		once.Do(func() {
			gohook.End()
			<-done
		})
	}
}

var (
	rawcodeOnce  sync.Once
	rawcodeNames map[uint16]string
)

// rawcodeToKey maps a platform rawcode back to a key name from keyNames.
func rawcodeToKey(code uint16) (string, bool) {
	rawcodeOnce.Do(func() {
		rawcodeNames = make(map[uint16]string)
		for _, name := range keyNames() {
			for _, rc := range keyNameToRawcodes(name) {
				rawcodeNames[rc] = name
			}
		}
	})
	name, ok := rawcodeNames[code]
	return name, ok
}

func keyNames() []string {
	names := []string{"ctrl", "cmd", "shift", "alt", "enter", "escape", "space", "tab"}
	for r := 'a'; r <= 'z'; r++ {
		names = append(names, string(r))
	}
	for r := '0'; r <= '9'; r++ {
		names = append(names, string(r))
	}
	return names
}
