package eventloop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"caption-assist/src/caption"
	"caption-assist/src/captionapi"
	"caption-assist/src/imageinput"
	"caption-assist/src/shortcut"
	"caption-assist/src/speech"
	"caption-assist/src/worker"
)

const (
	MsgLoadFailed = "Could not load the selected image."
	MsgCopied     = "Caption copied to clipboard."
)

var (
	ErrStopped = errors.New("event loop stopped")
	errBusy    = errors.New("caption worker busy")
)

type Announcer interface {
	Announce(message string)
}

type Config struct {
	Captioner worker.Captioner
	Announcer Announcer
	Engine    speech.Engine
	Voice     string
	// Options seeds the user toggles.
	Options  caption.Options
	Deadline time.Duration
	// PreviewDir holds preview files; empty means the OS temp dir.
	PreviewDir string
	Bindings   []shortcut.Binding
	// CopyText writes the caption to the clipboard; nil disables copying.
	CopyText func(string) error
	Log      zerolog.Logger
}

// ViewState is everything a view renders. It is rebuilt on every change.
type ViewState struct {
	HasImage    bool
	ImageName   string
	PreviewPath string
	Caption     caption.Snapshot
	Options     caption.Options
	Speech      speech.State
	CanGenerate bool
}

// Loop is the single-threaded coordinator. Every state container is touched
// only from the goroutine running Run; other goroutines post closures.
type Loop struct {
	log        zerolog.Logger
	announcer  Announcer
	acquirer   *imageinput.Acquirer
	controller *caption.Controller
	speaker    *speech.Announcer
	dispatcher *shortcut.Dispatcher
	pool       *worker.Pool
	copyText   func(string) error
	opts       caption.Options

	ctx      context.Context
	cmds     chan func()
	results  chan result
	speechCh chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	observers []func(ViewState)
	onPicker  func()
}

type result struct {
	req *caption.Request
	res captionapi.Result
	err error
}

func New(cfg Config) *Loop {
	log := cfg.Log.With().Str("component", "eventloop").Logger()
	l := &Loop{
		log:       log,
		announcer: cfg.Announcer,
		copyText:  cfg.CopyText,
		opts:      cfg.Options,
		ctx:       context.Background(),
		cmds:      make(chan func(), 16),
		results:   make(chan result, 1),
		speechCh:  make(chan struct{}, 1),
		stopped:   make(chan struct{}),
	}
	l.acquirer = imageinput.New(imageinput.Options{
		PreviewDir: cfg.PreviewDir,
		Announcer:  cfg.Announcer,
		Log:        cfg.Log,
	})
	l.controller = caption.New(caption.Config{
		Announcer: cfg.Announcer,
		Speaker:   speakerFunc(func(text string) { l.speaker.Speak(text) }),
		Options:   func() caption.Options { return l.opts },
		Deadline:  cfg.Deadline,
		Log:       cfg.Log,
	})
	l.speaker = speech.New(speech.Options{
		Engine:        cfg.Engine,
		Voice:         cfg.Voice,
		Log:           cfg.Log,
		OnStateChange: func(speech.State) { l.speechChanged() },
	})
	bindings := cfg.Bindings
	if bindings == nil {
		bindings = shortcut.DefaultBindings()
	}
	l.dispatcher = shortcut.NewDispatcher(bindings, cfg.Log)
	l.pool = worker.New(cfg.Captioner, 1, cfg.Log)

	// Selecting an image always clears the previous request.
	l.acquirer.OnSelect(func(*imageinput.SelectedImage) { l.controller.Reset() })
	return l
}

type speakerFunc func(string)

func (f speakerFunc) Speak(text string) { f(text) }

// Subscribe registers fn to receive every new ViewState on the loop
// goroutine. fn must not block or call back into the loop synchronously.
func (l *Loop) Subscribe(fn func(ViewState)) {
	l.mu.Lock()
	l.observers = append(l.observers, fn)
	l.mu.Unlock()
}

// OnOpenPicker sets the handler for the open-picker shortcut.
func (l *Loop) OnOpenPicker(fn func()) {
	l.mu.Lock()
	l.onPicker = fn
	l.mu.Unlock()
}

func (l *Loop) Bindings() []shortcut.Binding { return l.dispatcher.Bindings() }

// Run processes commands until ctx is cancelled. Shortcuts are active only
// while Run is executing.
func (l *Loop) Run(ctx context.Context) error {
	l.ctx = ctx
	l.dispatcher.Mount()
	defer l.shutdown()

	l.publish()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-l.cmds:
			cmd()
		case r := <-l.results:
			l.controller.Complete(r.req, r.res, r.err)
			l.publish()
		case <-l.speechCh:
			l.publish()
		}
	}
}

func (l *Loop) shutdown() {
	l.dispatcher.Unmount()
	l.stopOnce.Do(func() { close(l.stopped) })
	l.controller.Reset()
	l.pool.Close()
	l.speaker.Stop()
	if err := l.acquirer.Close(); err != nil {
		l.log.Warn().Err(err).Msg("failed to release preview")
	}
}

// call runs fn on the loop goroutine and waits for it.
func (l *Loop) call(fn func()) error {
	done := make(chan struct{})
	select {
	case l.cmds <- func() { fn(); close(done) }:
	case <-l.stopped:
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-l.stopped:
		return ErrStopped
	}
}

// SelectImage makes img the current image and resets the request state.
func (l *Loop) SelectImage(img imageinput.Image) error {
	var selErr error
	if err := l.call(func() {
		_, selErr = l.acquirer.Select(img)
		l.publish()
	}); err != nil {
		return err
	}
	return selErr
}

// Acquire reads an image from src on the calling goroutine and selects it.
func (l *Loop) Acquire(src imageinput.Source) error {
	img, err := src.Acquire()
	if err != nil {
		l.log.Warn().Err(err).Msg("image acquisition failed")
		l.announce(MsgLoadFailed)
		return err
	}
	return l.SelectImage(img)
}

func (l *Loop) Generate() error { return l.call(l.generate) }

func (l *Loop) Speak() error { return l.call(l.speak) }

func (l *Loop) StopSpeech() error { return l.call(l.speaker.Stop) }

// ToggleSpeech stops an active utterance or speaks the caption.
func (l *Loop) ToggleSpeech() error {
	return l.call(func() {
		if l.speaker.State() == speech.Speaking {
			l.speaker.Stop()
			return
		}
		l.speak()
	})
}

func (l *Loop) CopyCaption() error {
	var copyErr error
	if err := l.call(func() { copyErr = l.copyCaption() }); err != nil {
		return err
	}
	return copyErr
}

func (l *Loop) SetDetailed(on bool) error {
	return l.call(func() {
		l.opts.Detailed = on
		l.publish()
	})
}

func (l *Loop) SetAutoSpeak(on bool) error {
	return l.call(func() {
		l.opts.AutoSpeak = on
		l.publish()
	})
}

// KeyPressed dispatches c and reports whether its default handling must be
// suppressed.
func (l *Loop) KeyPressed(c shortcut.Chord) bool {
	var handled bool
	_ = l.call(func() {
		out := l.dispatcher.Dispatch(c, l.shortcutState())
		handled = out.Handled
		if out.Fire {
			l.perform(out.Action)
		}
	})
	return handled
}

// State returns the current view state.
func (l *Loop) State() (ViewState, error) {
	var st ViewState
	err := l.call(func() { st = l.viewState() })
	return st, err
}

func (l *Loop) perform(a shortcut.Action) {
	switch a {
	case shortcut.ActionOpenPicker:
		l.mu.Lock()
		fn := l.onPicker
		l.mu.Unlock()
		if fn != nil {
			fn()
		}
	case shortcut.ActionGenerate:
		l.generate()
	case shortcut.ActionSpeak:
		l.speak()
	case shortcut.ActionStop:
		l.speaker.Stop()
	case shortcut.ActionCopy:
		_ = l.copyCaption()
	}
}

func (l *Loop) generate() {
	var img *imageinput.Image
	if sel := l.acquirer.Current(); sel != nil {
		i := sel.Image
		img = &i
	}

	req := l.controller.Generate(l.ctx, img)
	if req != nil {
		ok := l.pool.Submit(req.Context(), req.API(), func(res captionapi.Result, err error) {
			select {
			case l.results <- result{req: req, res: res, err: err}:
			case <-l.stopped:
			}
		})
		if !ok {
			l.controller.Complete(req, captionapi.Result{}, errBusy)
		}
	}
	l.publish()
}

func (l *Loop) speak() {
	if text := l.controller.Caption(); text != "" {
		l.speaker.Speak(text)
	}
}

func (l *Loop) copyCaption() error {
	text := l.controller.Caption()
	if text == "" || l.copyText == nil {
		return nil
	}
	if err := l.copyText(text); err != nil {
		l.log.Warn().Err(err).Msg("failed to copy caption")
		return err
	}
	l.announce(MsgCopied)
	return nil
}

func (l *Loop) shortcutState() shortcut.State {
	return shortcut.State{
		HasImage:   l.acquirer.Current() != nil,
		InFlight:   l.controller.InFlight(),
		HasCaption: l.controller.Caption() != "",
		Speaking:   l.speaker.State() == speech.Speaking,
	}
}

// speechChanged runs on engine goroutines and on the loop itself, so it
// must never block.
func (l *Loop) speechChanged() {
	select {
	case l.speechCh <- struct{}{}:
	default:
	}
}

func (l *Loop) viewState() ViewState {
	st := ViewState{
		Caption: l.controller.Snapshot(),
		Options: l.opts,
		Speech:  l.speaker.State(),
	}
	if sel := l.acquirer.Current(); sel != nil {
		st.HasImage = true
		st.ImageName = sel.Image.Name
		st.PreviewPath, _ = sel.Preview.Path()
	}
	st.CanGenerate = st.HasImage && st.Caption.State != caption.InFlight
	return st
}

func (l *Loop) publish() {
	st := l.viewState()
	l.mu.Lock()
	observers := append([]func(ViewState){}, l.observers...)
	l.mu.Unlock()
	for _, fn := range observers {
		fn(st)
	}
}

func (l *Loop) announce(msg string) {
	if l.announcer != nil {
		l.announcer.Announce(msg)
	}
}
