package imageinput

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MaxImageSizeMB = 20
	maxImageSize   = MaxImageSizeMB * 1024 * 1024
)

var (
	ErrNotImage  = errors.New("file is not an image")
	ErrEmpty     = errors.New("image is empty")
	ErrTooLarge  = fmt.Errorf("image exceeds maximum size of %d MB", MaxImageSizeMB)
	ErrNoPreview = errors.New("preview has been released")
)

// Extensions is the picker filter; it matches the media types the sniffer accepts.
var Extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".tif", ".tiff", ".heic", ".avif"}

// Image is an acquired picture ready for upload.
type Image struct {
	Name      string
	MediaType string
	Data      []byte
}

// FromBytes validates data as an image and names it.
func FromBytes(name string, data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmpty
	}
	if len(data) > maxImageSize {
		return Image{}, ErrTooLarge
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Image{}, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	if name == "" {
		name = "image" + mt.Extension()
	}
	return Image{Name: name, MediaType: baseMediaType(mt.String()), Data: data}, nil
}

// LoadFile reads and validates an image from disk.
func LoadFile(path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
	if err != nil {
		return Image{}, fmt.Errorf("read %s: %w", path, err)
	}
	return FromBytes(filepath.Base(path), data)
}

// Load reads an image from r, used for stdin input.
func Load(name string, r io.Reader) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageSize+1))
	if err != nil {
		return Image{}, fmt.Errorf("read image: %w", err)
	}
	return FromBytes(name, data)
}

// HasImageExtension reports whether path passes the picker filter.
func HasImageExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func baseMediaType(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
