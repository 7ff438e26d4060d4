package view

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"caption-assist/src/shortcut"
)

// canvasShortcuts converts a binding into fyne shortcuts. Bindings without
// a modifier return nil; they arrive through the typed-key handler.
func canvasShortcuts(b shortcut.Binding) []*desktop.CustomShortcut {
	if b.Chord.Mods == 0 {
		return nil
	}
	var mod fyne.KeyModifier
	if b.Chord.Mods&shortcut.ModPrimary != 0 {
		mod |= fyne.KeyModifierShortcutDefault
	}
	if b.Chord.Mods&shortcut.ModShift != 0 {
		mod |= fyne.KeyModifierShift
	}
	if b.Chord.Mods&shortcut.ModAlt != 0 {
		mod |= fyne.KeyModifierAlt
	}

	var out []*desktop.CustomShortcut
	for _, k := range fyneKeys(b.Chord.Key) {
		out = append(out, &desktop.CustomShortcut{KeyName: k, Modifier: mod})
	}
	return out
}

func fyneKeys(key string) []fyne.KeyName {
	switch key {
	case "enter":
		return []fyne.KeyName{fyne.KeyReturn, fyne.KeyEnter}
	case "escape":
		return []fyne.KeyName{fyne.KeyEscape}
	case "space":
		return []fyne.KeyName{fyne.KeySpace}
	case "tab":
		return []fyne.KeyName{fyne.KeyTab}
	}
	return []fyne.KeyName{fyne.KeyName(strings.ToUpper(key))}
}

// typedKeyChord maps an unmodified key event onto a chord.
func typedKeyChord(name fyne.KeyName) (shortcut.Chord, bool) {
	switch name {
	case fyne.KeyEscape:
		return shortcut.Chord{Key: "escape"}, true
	}
	return shortcut.Chord{}, false
}
