// Package speech wraps a platform text-to-speech engine behind a single
// utterance slot.
package speech

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"caption-assist/src/logutil"
)

// State is the announcer's playback state.
type State int

const (
	Silent State = iota
	Speaking
)

func (s State) String() string {
	if s == Speaking {
		return "speaking"
	}
	return "silent"
}

// Fixed voice parameters. Rate sits slightly below normal for intelligibility.
const (
	DefaultRate   = 0.9
	DefaultPitch  = 1.0
	DefaultVolume = 1.0
)

type Utterance struct {
	Text   string
	Rate   float64
	Pitch  float64
	Volume float64
	Voice  string
}

// Playback is a started utterance.
type Playback interface {
	// Wait blocks until the utterance ends, fails, or its context is cancelled.
	Wait() error
}

// Engine starts utterances. Cancelling ctx must stop the audio.
type Engine interface {
	Name() string
	Start(ctx context.Context, u Utterance) (Playback, error)
}

type Options struct {
	Engine Engine
	Voice  string
	Log    zerolog.Logger
	// OnStateChange runs on engine goroutines and on the caller of Speak/Stop.
	OnStateChange func(State)
}

// Announcer holds at most one active utterance. Starting a new one cancels
// the previous; a superseded utterance's completion never touches state.
type Announcer struct {
	engine   Engine
	voice    string
	log      zerolog.Logger
	onChange func(State)

	mu     sync.Mutex
	state  State
	seq    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

func New(opts Options) *Announcer {
	engine := opts.Engine
	if engine == nil {
		engine = NewNoop(opts.Log)
	}
	return &Announcer{
		engine:   engine,
		voice:    opts.Voice,
		log:      opts.Log.With().Str("component", "speech").Str("engine", engine.Name()).Logger(),
		onChange: opts.OnStateChange,
	}
}

func (a *Announcer) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Speak cancels any active utterance and starts text. Empty text is a no-op.
func (a *Announcer) Speak(text string) {
	if text == "" {
		return
	}

	a.mu.Lock()
	prevDone := a.cancelLocked()
	a.seq++
	seq := a.seq
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	done := make(chan struct{})
	a.done = done
	a.mu.Unlock()

	// The engine releases its audio device only once the prior playback returns.
	if prevDone != nil {
		<-prevDone
	}

	u := Utterance{Text: text, Rate: DefaultRate, Pitch: DefaultPitch, Volume: DefaultVolume, Voice: a.voice}
	pb, err := a.engine.Start(ctx, u)
	if err != nil {
		a.log.Warn().Err(err).Msg("utterance failed to start")
		close(done)
		a.finish(seq)
		return
	}

	a.log.Debug().Str("text", logutil.Sanitize(text)).Msg("utterance started")
	a.transition(seq, Speaking)

	go func() {
		defer close(done)
		if err := pb.Wait(); err != nil && ctx.Err() == nil {
			a.log.Warn().Err(err).Msg("utterance failed")
		}
		a.finish(seq)
	}()
}

// Stop cancels the active utterance and forces Silent. Idempotent.
func (a *Announcer) Stop() {
	a.mu.Lock()
	done := a.cancelLocked()
	a.seq++
	changed := a.state != Silent
	a.state = Silent
	a.mu.Unlock()

	if done != nil {
		<-done
	}
	if changed {
		a.notify(Silent)
	}
}

// Close stops playback; the announcer stays usable.
func (a *Announcer) Close() { a.Stop() }

func (a *Announcer) cancelLocked() chan struct{} {
	if a.cancel == nil {
		return nil
	}
	a.cancel()
	a.cancel = nil
	done := a.done
	a.done = nil
	return done
}

func (a *Announcer) transition(seq uint64, s State) {
	a.mu.Lock()
	if seq != a.seq || a.state == s {
		a.mu.Unlock()
		return
	}
	a.state = s
	a.mu.Unlock()
	a.notify(s)
}

func (a *Announcer) finish(seq uint64) {
	a.mu.Lock()
	if seq == a.seq && a.cancel != nil {
		a.cancel()
		a.cancel = nil
		a.done = nil
	}
	a.mu.Unlock()
	a.transition(seq, Silent)
}

func (a *Announcer) notify(s State) {
	if a.onChange != nil {
		a.onChange(s)
	}
}
