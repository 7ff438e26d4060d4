package imageinput

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Preview is a revocable handle to a private on-disk copy of the selected
// image. Views render from Path; Release deletes the copy. A released preview
// reports ErrNoPreview.
type Preview struct {
	mu       sync.Mutex
	path     string
	released bool
}

func newPreview(dir string, img Image) (*Preview, error) {
	pattern := "caption-preview-*" + filepath.Ext(img.Name)
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create preview: %w", err)
	}
	if _, err := f.Write(img.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("write preview: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("close preview: %w", err)
	}
	return &Preview{path: f.Name()}, nil
}

func (p *Preview) Path() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return "", ErrNoPreview
	}
	return p.path, nil
}

func (p *Preview) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// Release is idempotent.
func (p *Preview) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return nil
	}
	p.released = true
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
