package imageinput

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type recordingAnnouncer struct{ messages []string }

func (r *recordingAnnouncer) Announce(m string) { r.messages = append(r.messages, m) }

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFromBytes(t *testing.T) {
	img, err := FromBytes("", testPNG(t))
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if img.MediaType != "image/png" {
		t.Errorf("MediaType = %q, want image/png", img.MediaType)
	}
	if img.Name != "image.png" {
		t.Errorf("Name = %q, want image.png", img.Name)
	}
}

func TestFromBytesRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrEmpty},
		{"text", []byte("hello, this is plain text"), ErrNotImage},
		{"too large", make([]byte, maxImageSize+1), ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromBytes("x", tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("FromBytes err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dog.png")
	if err := os.WriteFile(path, testPNG(t), 0600); err != nil {
		t.Fatal(err)
	}

	img, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if img.Name != "dog.png" {
		t.Errorf("Name = %q, want dog.png", img.Name)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromReader(t *testing.T) {
	img, err := Load("stdin", bytes.NewReader(testPNG(t)))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Name != "stdin" {
		t.Errorf("Name = %q, want stdin", img.Name)
	}
}

func TestHasImageExtension(t *testing.T) {
	tests := map[string]bool{
		"a.png":      true,
		"b.JPG":      true,
		"c.webp":     true,
		"d.txt":      false,
		"noext":      false,
		"dir/e.jpeg": true,
	}
	for path, want := range tests {
		if got := HasImageExtension(path); got != want {
			t.Errorf("HasImageExtension(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestSelectReleasesPreviousPreview(t *testing.T) {
	ann := &recordingAnnouncer{}
	a := New(Options{PreviewDir: t.TempDir(), Announcer: ann, Log: zerolog.Nop()})

	img, err := FromBytes("first.png", testPNG(t))
	if err != nil {
		t.Fatal(err)
	}
	first, err := a.Select(img)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	firstPath, err := first.Preview.Path()
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if _, err := os.Stat(firstPath); err != nil {
		t.Fatalf("preview file missing: %v", err)
	}

	img.Name = "second.png"
	second, err := a.Select(img)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	if !first.Preview.Released() {
		t.Error("first preview should be released after replacement")
	}
	if _, err := os.Stat(firstPath); !os.IsNotExist(err) {
		t.Errorf("first preview file should be removed, stat err=%v", err)
	}
	if _, err := first.Preview.Path(); !errors.Is(err, ErrNoPreview) {
		t.Errorf("released preview Path err = %v, want ErrNoPreview", err)
	}
	if a.Current() != second {
		t.Error("Current should be the latest selection")
	}

	if len(ann.messages) != 2 || ann.messages[1] != MsgImageSelected {
		t.Errorf("announcements = %v", ann.messages)
	}

	secondPath, _ := second.Preview.Path()
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(secondPath); !os.IsNotExist(err) {
		t.Errorf("Close should remove the live preview, stat err=%v", err)
	}
}

func TestSelectRunsHooksBeforeAnnouncing(t *testing.T) {
	var order []string
	ann := announcerFunc(func(m string) { order = append(order, "announce") })
	a := New(Options{PreviewDir: t.TempDir(), Announcer: ann, Log: zerolog.Nop()})
	a.OnSelect(func(*SelectedImage) { order = append(order, "reset") })

	img, _ := FromBytes("x.png", testPNG(t))
	if _, err := a.Select(img); err != nil {
		t.Fatal(err)
	}
	if strings.Join(order, ",") != "reset,announce" {
		t.Errorf("order = %v", order)
	}
}

func TestPreviewReleaseIsIdempotent(t *testing.T) {
	img, _ := FromBytes("x.png", testPNG(t))
	p, err := newPreview(t.TempDir(), img)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Release(); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if err := p.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

type announcerFunc func(string)

func (f announcerFunc) Announce(m string) { f(m) }
