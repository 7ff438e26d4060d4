package view

import (
	_ "embed"

	"fyne.io/fyne/v2"
)

//go:embed icon.svg
var iconSVG []byte

// appIcon is used for the window, the tray and desktop notifications.
var appIcon = fyne.NewStaticResource("caption-assist.svg", iconSVG)
