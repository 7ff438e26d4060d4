package imageinput

import (
	"fmt"
	"time"

	"caption-assist/src/clipboard"
	"caption-assist/src/screenshot"
)

// Source produces an image on demand: the file picker result, a camera-style
// screen capture, or the clipboard.
type Source interface {
	Acquire() (Image, error)
}

type FileSource struct{ Path string }

func (s FileSource) Acquire() (Image, error) { return LoadFile(s.Path) }

type CameraSource struct{}

// Acquire captures every active display as one PNG.
func (CameraSource) Acquire() (Image, error) {
	data, err := screenshot.Capture()
	if err != nil {
		return Image{}, fmt.Errorf("capture screen: %w", err)
	}
	return FromBytes(fmt.Sprintf("capture-%s.png", time.Now().Format("20060102-150405")), data)
}

type ClipboardSource struct{}

func (ClipboardSource) Acquire() (Image, error) {
	data, err := clipboard.ReadImage()
	if err != nil {
		return Image{}, err
	}
	return FromBytes("clipboard.png", data)
}
