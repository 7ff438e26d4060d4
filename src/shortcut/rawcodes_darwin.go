package shortcut

// macOS virtual key codes follow the ANSI keyboard layout, not the alphabet.
var darwinLetters = map[byte]uint16{
	'a': 0, 's': 1, 'd': 2, 'f': 3, 'h': 4, 'g': 5, 'z': 6, 'x': 7, 'c': 8, 'v': 9,
	'b': 11, 'q': 12, 'w': 13, 'e': 14, 'r': 15, 'y': 16, 't': 17, 'o': 31, 'u': 32,
	'i': 34, 'p': 35, 'l': 37, 'j': 38, 'k': 40, 'n': 45, 'm': 46,
	'1': 18, '2': 19, '3': 20, '4': 21, '6': 22, '5': 23, '9': 25, '7': 26, '8': 28, '0': 29,
}

// keyNameToRawcodes maps a key name to macOS virtual key codes.
func keyNameToRawcodes(name string) []uint16 {
	switch name {
	case "ctrl":
		return []uint16{59, 62}
	case "alt":
		return []uint16{58, 61}
	case "shift":
		return []uint16{56, 60}
	case "cmd":
		return []uint16{55, 54}
	case "enter":
		return []uint16{36, 76} // Return, keypad Enter
	case "escape":
		return []uint16{53}
	case "space":
		return []uint16{49}
	case "tab":
		return []uint16{48}
	}
	if len(name) == 1 {
		if rc, ok := darwinLetters[name[0]]; ok {
			return []uint16{rc}
		}
	}
	return nil
}
