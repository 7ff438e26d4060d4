package clipboard

import (
	"errors"
	"sync"

	"golang.design/x/clipboard"
)

var (
	ErrUnavailable = errors.New("clipboard unavailable")
	ErrNoImage     = errors.New("clipboard holds no image")
)

var (
	initOnce sync.Once
	initErr  error
	mu       sync.Mutex
)

// Init is safe to call repeatedly; the first result sticks.
func Init() error {
	initOnce.Do(func() {
		initErr = clipboard.Init()
	})
	return initErr
}

// WriteText performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func WriteText(text string) error {
	if err := Init(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	mu.Lock()
	defer mu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// ReadImage returns the PNG bytes currently on the clipboard.
func ReadImage() ([]byte, error) {
	if err := Init(); err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	mu.Lock()
	defer mu.Unlock()
	data := clipboard.Read(clipboard.FmtImage)
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	return data, nil
}
