//go:build windows

package main

import (
	"syscall"

	"github.com/rs/zerolog/log"
)

// enableDPIAwareness sets per-monitor DPI awareness so the preview is not
// blurred on scaled displays.
func enableDPIAwareness() {
	shcore := syscall.NewLazyDLL("Shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	const processPerMonitorDPIAware = 2
	if err := setProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret != 0 {
			log.Debug().Uint64("code", uint64(ret)).Msg("DPI: per-monitor awareness not set")
		}
		return
	}

	user32 := syscall.NewLazyDLL("user32.dll")
	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err != nil {
		log.Debug().Msg("DPI: no awareness API available")
		return
	}
	if ret, _, _ := setProcessDPIAware.Call(); ret == 0 {
		log.Debug().Msg("DPI: system awareness not set")
	}
}
