package speech

import (
	"context"

	"github.com/rs/zerolog"

	"caption-assist/src/logutil"
)

var _ Engine = (*Noop)(nil)

// Noop is used when no TTS program is available or speech is disabled.
// Its utterances end immediately.
type Noop struct {
	log zerolog.Logger
}

func NewNoop(log zerolog.Logger) *Noop {
	return &Noop{log: log}
}

func (n *Noop) Name() string { return "none" }

func (n *Noop) Start(ctx context.Context, u Utterance) (Playback, error) {
	n.log.Debug().Str("text", logutil.Sanitize(u.Text)).Msg("speech disabled, would say")
	return noopPlayback{}, nil
}

type noopPlayback struct{}

func (noopPlayback) Wait() error { return nil }
