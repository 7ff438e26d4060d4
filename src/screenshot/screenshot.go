package screenshot

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/kbinani/screenshot"
)

var ErrNoDisplay = errors.New("no active displays found")

// Capture grabs the union of every active display and encodes it as PNG.
// It stands in for a camera on desktops: the "photo" is what is on screen.
func Capture() ([]byte, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, ErrNoDisplay
	}

	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}

	img, err := screenshot.CaptureRect(union)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}
	return encodePNG(img)
}

// CaptureDisplay grabs a single display by index.
func CaptureDisplay(index int) ([]byte, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, ErrNoDisplay
	}
	if index < 0 || index >= n {
		return nil, fmt.Errorf("display %d out of range (have %d)", index, n)
	}

	img, err := screenshot.CaptureDisplay(index)
	if err != nil {
		return nil, fmt.Errorf("failed to capture display %d: %w", index, err)
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}
