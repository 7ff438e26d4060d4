package singleinstance

const DefaultPort = 49600

// resolvePort falls back to DefaultPort when port is outside [1024, 65535].
func resolvePort(port int) int {
	if port < 1024 || port > 65535 {
		return DefaultPort
	}
	return port
}
