// Package view is the fyne desktop front end: one window with the image
// sources, the options, the preview and the caption results.
package view

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"caption-assist/src/announce"
	"caption-assist/src/eventloop"
	"caption-assist/src/imageinput"
	"caption-assist/src/shortcut"
)

const appTitle = "Caption Assist"

// Loop is the subset of the event loop the window drives.
type Loop interface {
	Acquire(src imageinput.Source) error
	Generate() error
	ToggleSpeech() error
	CopyCaption() error
	SetDetailed(on bool) error
	SetAutoSpeak(on bool) error
	KeyPressed(c shortcut.Chord) bool
	Bindings() []shortcut.Binding
}

type Options struct {
	Loop                 Loop
	ClipboardOK          bool
	DesktopNotifications bool
	Log                  zerolog.Logger
}

type View struct {
	app         fyne.App
	win         fyne.Window
	loop        Loop
	clipboardOK bool
	notify      bool
	log         zerolog.Logger

	imageLabel   *widget.Label
	preview      *canvas.Image
	detailed     *widget.Check
	autoSpeak    *widget.Check
	generateBtn  *widget.Button
	progress     *widget.ProgressBarInfinite
	errorLabel   *widget.Label
	captionLabel *widget.Label
	altLabel     *widget.Label
	speakBtn     *widget.Button
	copyBtn      *widget.Button
	results      *fyne.Container
	liveRegion   *widget.Label

	mu        sync.Mutex
	liveNodes []announce.Node
}

func New(a fyne.App, opts Options) *View {
	v := &View{
		app:         a,
		win:         a.NewWindow(appTitle),
		loop:        opts.Loop,
		clipboardOK: opts.ClipboardOK,
		notify:      opts.DesktopNotifications,
		log:         opts.Log.With().Str("component", "view").Logger(),
	}
	a.SetIcon(appIcon)
	v.win.SetIcon(appIcon)
	v.build()
	v.bindKeys()
	v.setupTray()
	return v
}

func (v *View) Window() fyne.Window { return v.win }

func (v *View) build() {
	upload := widget.NewButtonWithIcon("Upload", theme.FolderOpenIcon(), v.ShowFilePicker)
	camera := widget.NewButtonWithIcon("Camera", theme.MediaPhotoIcon(), func() {
		v.acquire(imageinput.CameraSource{})
	})
	paste := widget.NewButtonWithIcon("Paste", theme.ContentPasteIcon(), func() {
		v.acquire(imageinput.ClipboardSource{})
	})
	if !v.clipboardOK {
		paste.Disable()
	}

	v.detailed = widget.NewCheck("Detailed description", func(on bool) { _ = v.loop.SetDetailed(on) })
	v.autoSpeak = widget.NewCheck("Speak captions automatically", func(on bool) { _ = v.loop.SetAutoSpeak(on) })

	v.imageLabel = widget.NewLabel(labelNoImage)
	v.preview = canvas.NewImageFromResource(nil)
	v.preview.FillMode = canvas.ImageFillContain
	v.preview.SetMinSize(fyne.NewSize(320, 240))

	v.generateBtn = widget.NewButtonWithIcon(labelGenerate, theme.MediaPlayIcon(), func() { _ = v.loop.Generate() })
	v.generateBtn.Importance = widget.HighImportance
	v.generateBtn.Disable()
	v.progress = widget.NewProgressBarInfinite()
	v.progress.Hide()

	v.errorLabel = widget.NewLabel("")
	v.errorLabel.Importance = widget.DangerImportance
	v.errorLabel.Wrapping = fyne.TextWrapWord
	v.errorLabel.Hide()

	v.captionLabel = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	v.captionLabel.Wrapping = fyne.TextWrapWord
	v.altLabel = widget.NewLabel("")
	v.altLabel.Wrapping = fyne.TextWrapWord
	v.speakBtn = widget.NewButtonWithIcon(labelSpeak, theme.VolumeUpIcon(), func() { _ = v.loop.ToggleSpeech() })
	v.copyBtn = widget.NewButtonWithIcon("Copy", theme.ContentCopyIcon(), func() { _ = v.loop.CopyCaption() })
	v.results = container.NewVBox(
		widget.NewLabelWithStyle("Caption", fyne.TextAlignLeading, fyne.TextStyle{Italic: true}),
		v.captionLabel,
		v.altLabel,
		container.NewHBox(v.speakBtn, v.copyBtn),
	)
	v.results.Hide()

	v.liveRegion = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Italic: true})

	help := widget.NewAccordion(widget.NewAccordionItem("Keyboard shortcuts", widget.NewLabel(shortcutHelp(v.loop.Bindings()))))

	top := container.NewVBox(
		container.NewHBox(upload, camera, paste),
		container.NewHBox(v.detailed, v.autoSpeak),
		v.imageLabel,
	)
	bottom := container.NewVBox(
		v.generateBtn,
		v.progress,
		v.errorLabel,
		v.results,
		widget.NewSeparator(),
		v.liveRegion,
		help,
	)
	v.win.SetContent(container.NewBorder(top, bottom, nil, nil, v.preview))
	v.win.Resize(fyne.NewSize(560, 720))
}

// bindKeys registers the dispatcher's chords. Registered canvas shortcuts
// never reach focused widgets, which is the suppression the chords need.
func (v *View) bindKeys() {
	c := v.win.Canvas()
	for _, b := range v.loop.Bindings() {
		chord := b.Chord
		for _, sc := range canvasShortcuts(b) {
			c.AddShortcut(sc, func(fyne.Shortcut) { v.loop.KeyPressed(chord) })
		}
	}
	c.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if chord, ok := typedKeyChord(ev.Name); ok {
			v.loop.KeyPressed(chord)
		}
	})
}

func (v *View) setupTray() {
	desk, ok := v.app.(desktop.App)
	if !ok {
		return
	}
	menu := fyne.NewMenu(appTitle,
		fyne.NewMenuItem("Show", func() {
			v.win.Show()
			v.win.RequestFocus()
		}),
		fyne.NewMenuItem("Caption clipboard image", func() {
			v.win.Show()
			v.acquire(imageinput.ClipboardSource{})
		}),
	)
	desk.SetSystemTrayMenu(menu)
	desk.SetSystemTrayIcon(appIcon)
	v.win.SetCloseIntercept(v.win.Hide)
}

// ShowFilePicker opens the image file dialog. Safe from any goroutine.
func (v *View) ShowFilePicker() {
	fyne.Do(func() {
		fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
			if err != nil {
				v.log.Warn().Err(err).Msg("file dialog failed")
				return
			}
			if reader == nil {
				return
			}
			path := reader.URI().Path()
			_ = reader.Close()
			v.acquire(imageinput.FileSource{Path: path})
		}, v.win)
		fd.SetFilter(storage.NewExtensionFileFilter(imageinput.Extensions))
		fd.Show()
	})
}

// acquire loads off the UI goroutine; failures are announced by the loop.
func (v *View) acquire(src imageinput.Source) {
	go func() {
		if err := v.loop.Acquire(src); err != nil {
			v.log.Debug().Err(err).Msg("acquire failed")
		}
	}()
}

// Render applies st. It is subscribed to the event loop and hops onto the
// fyne goroutine.
func (v *View) Render(st eventloop.ViewState) {
	m := Present(st, v.clipboardOK)
	fyne.Do(func() { v.apply(m) })
}

func (v *View) apply(m Model) {
	v.imageLabel.SetText(m.ImageLabel)
	if v.preview.File != m.PreviewPath {
		v.preview.File = m.PreviewPath
		v.preview.Resource = nil
		v.preview.Refresh()
	}

	if v.detailed.Checked != m.Detailed {
		v.detailed.SetChecked(m.Detailed)
	}
	if v.autoSpeak.Checked != m.AutoSpeak {
		v.autoSpeak.SetChecked(m.AutoSpeak)
	}

	v.generateBtn.SetText(m.GenerateLabel)
	setEnabled(v.generateBtn, m.GenerateEnabled)
	setVisible(v.progress, m.Loading)

	v.errorLabel.SetText(m.ErrorText)
	setVisible(v.errorLabel, m.ErrorText != "")

	v.captionLabel.SetText(m.Caption)
	v.altLabel.SetText(formatAlternatives(m.Alternatives))
	setVisible(v.altLabel, len(m.Alternatives) > 0)
	v.speakBtn.SetText(m.SpeakLabel)
	if m.SpeakLabel == labelStop {
		v.speakBtn.SetIcon(theme.MediaStopIcon())
	} else {
		v.speakBtn.SetIcon(theme.VolumeUpIcon())
	}
	setEnabled(v.speakBtn, m.SpeakEnabled)
	setEnabled(v.copyBtn, m.CopyEnabled)
	setVisible(v.results, m.ShowResult)
}

// Show is the announce.Sink side of the view: the live region plus optional
// desktop notifications.
func (v *View) Show(n announce.Node) {
	v.mu.Lock()
	v.liveNodes = append(v.liveNodes, n)
	text := liveText(v.liveNodes)
	v.mu.Unlock()

	fyne.Do(func() { v.liveRegion.SetText(text) })
	if v.notify {
		v.app.SendNotification(fyne.NewNotification(appTitle, n.Message))
	}
}

func (v *View) Remove(id string) {
	v.mu.Lock()
	for i, n := range v.liveNodes {
		if n.ID == id {
			v.liveNodes = append(v.liveNodes[:i], v.liveNodes[i+1:]...)
			break
		}
	}
	text := liveText(v.liveNodes)
	v.mu.Unlock()

	fyne.Do(func() { v.liveRegion.SetText(text) })
}

func (v *View) ShowAndRun() { v.win.ShowAndRun() }

func liveText(nodes []announce.Node) string {
	msgs := make([]string, len(nodes))
	for i, n := range nodes {
		msgs[i] = n.Message
	}
	return strings.Join(msgs, "\n")
}

func formatAlternatives(alts []string) string {
	if len(alts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Alternatives:")
	for _, a := range alts {
		fmt.Fprintf(&b, "\n• %s", a)
	}
	return b.String()
}

func shortcutHelp(bindings []shortcut.Binding) string {
	primary := "Ctrl"
	if runtime.GOOS == "darwin" {
		primary = "Cmd"
	}
	lines := make([]string, 0, len(bindings))
	for _, b := range bindings {
		lines = append(lines, fmt.Sprintf("%s: %s", b.Chord.Format(primary), b.Description))
	}
	return strings.Join(lines, "\n")
}

type toggler interface {
	Enable()
	Disable()
}

func setEnabled(w toggler, on bool) {
	if on {
		w.Enable()
	} else {
		w.Disable()
	}
}

func setVisible(o fyne.CanvasObject, on bool) {
	if on {
		o.Show()
	} else {
		o.Hide()
	}
}
