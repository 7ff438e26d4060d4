// Package shortcut maps key chords to application actions.
package shortcut

import (
	"fmt"
	"strings"
)

// Modifier is a bit set of held modifier keys. Ctrl and Cmd are the same
// primary modifier so that one binding serves every platform.
type Modifier uint8

const (
	ModPrimary Modifier = 1 << iota
	ModShift
	ModAlt
)

// Chord is a set of modifiers plus one normalized key name.
type Chord struct {
	Mods Modifier
	Key  string
}

// Parse converts "Ctrl+Shift+C" style text into a Chord. Key names are
// case-insensitive; "cmd", "super", "win" and "meta" all mean the primary
// modifier.
func Parse(s string) (Chord, error) {
	var c Chord
	parts := strings.Split(strings.ToLower(s), "+")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "ctrl", "control", "cmd", "super", "win", "meta":
			c.Mods |= ModPrimary
		case "shift":
			c.Mods |= ModShift
		case "alt", "option":
			c.Mods |= ModAlt
		case "":
			return Chord{}, fmt.Errorf("empty key in chord %q", s)
		default:
			if i != len(parts)-1 {
				return Chord{}, fmt.Errorf("key %q must come last in chord %q", part, s)
			}
			c.Key = normalizeKey(part)
		}
	}
	if c.Key == "" {
		return Chord{}, fmt.Errorf("chord %q has no key", s)
	}
	return c, nil
}

// MustParse is Parse for static bindings.
func MustParse(s string) Chord {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

func normalizeKey(k string) string {
	switch k {
	case "return":
		return "enter"
	case "esc":
		return "escape"
	}
	return k
}

// Format renders the chord with the given name for the primary modifier.
func (c Chord) Format(primary string) string {
	var parts []string
	if c.Mods&ModPrimary != 0 {
		parts = append(parts, primary)
	}
	if c.Mods&ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if c.Mods&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	key := c.Key
	if len(key) == 1 {
		key = strings.ToUpper(key)
	} else if key != "" {
		key = strings.ToUpper(key[:1]) + key[1:]
	}
	return strings.Join(append(parts, key), "+")
}

func (c Chord) String() string { return c.Format("Ctrl") }
