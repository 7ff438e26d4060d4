package imageinput

import (
	"github.com/rs/zerolog"

	"caption-assist/src/logutil"
)

const MsgImageSelected = "Image selected. Ready to generate caption."

type Announcer interface {
	Announce(message string)
}

// SelectedImage is the single live image and its preview handle.
type SelectedImage struct {
	Image   Image
	Preview *Preview
}

type Options struct {
	// PreviewDir holds preview copies; empty means os.TempDir.
	PreviewDir string
	Announcer  Announcer
	Log        zerolog.Logger
}

// Acquirer owns the selected image. It is not safe for concurrent use; the
// event loop is its only caller.
type Acquirer struct {
	dir       string
	announcer Announcer
	log       zerolog.Logger
	current   *SelectedImage
	onSelect  []func(*SelectedImage)
}

func New(opts Options) *Acquirer {
	return &Acquirer{
		dir:       opts.PreviewDir,
		announcer: opts.Announcer,
		log:       opts.Log.With().Str("component", "imageinput").Logger(),
	}
}

// OnSelect registers fn to run after every successful Select.
func (a *Acquirer) OnSelect(fn func(*SelectedImage)) {
	a.onSelect = append(a.onSelect, fn)
}

// Select replaces the current image. The previous preview is released before
// the new selection becomes current.
func (a *Acquirer) Select(img Image) (*SelectedImage, error) {
	preview, err := newPreview(a.dir, img)
	if err != nil {
		return nil, err
	}

	if a.current != nil {
		if err := a.current.Preview.Release(); err != nil {
			a.log.Warn().Err(err).Msg("failed to release previous preview")
		}
	}

	sel := &SelectedImage{Image: img, Preview: preview}
	a.current = sel
	a.log.Info().
		Str("name", logutil.Sanitize(img.Name)).
		Str("media_type", img.MediaType).
		Int("bytes", len(img.Data)).
		Msg("image selected")

	for _, fn := range a.onSelect {
		fn(sel)
	}
	if a.announcer != nil {
		a.announcer.Announce(MsgImageSelected)
	}
	return sel, nil
}

// Current returns the selected image or nil.
func (a *Acquirer) Current() *SelectedImage { return a.current }

// Close releases the live preview on teardown.
func (a *Acquirer) Close() error {
	if a.current == nil {
		return nil
	}
	return a.current.Preview.Release()
}
