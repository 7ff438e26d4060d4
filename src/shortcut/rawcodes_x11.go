//go:build !windows && !darwin

package shortcut

// keyNameToRawcodes maps a key name to X11 keysyms. Letters report the
// lowercase or uppercase keysym depending on Shift, so both are listed.
func keyNameToRawcodes(name string) []uint16 {
	switch name {
	case "ctrl":
		return []uint16{0xffe3, 0xffe4}
	case "shift":
		return []uint16{0xffe1, 0xffe2}
	case "alt":
		return []uint16{0xffe9, 0xffea}
	case "cmd":
		return []uint16{0xffeb, 0xffec}
	case "enter":
		return []uint16{0xff0d, 0xff8d}
	case "escape":
		return []uint16{0xff1b}
	case "space":
		return []uint16{0x20}
	case "tab":
		return []uint16{0xff09}
	}
	if len(name) == 1 {
		switch c := name[0]; {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c), uint16(c - 'a' + 'A')}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c)}
		}
	}
	return nil
}
