// Package session runs one caption attempt outside the GUI: load an image,
// call the backend once and hand the result to every target.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"caption-assist/src/captionapi"
	"caption-assist/src/clipboard"
	"caption-assist/src/imageinput"
	"caption-assist/src/speech"
)

var ErrNoImage = errors.New("no image provided")

type LoadFunc func() (imageinput.Image, error)

type CaptionFunc func(ctx context.Context, req captionapi.Request) (captionapi.Result, error)

type ResultTarget interface {
	OnSuccess(ctx context.Context, out Output) error
	OnFailure(err error) error
}

type Options struct {
	Deadline time.Duration
	Load     LoadFunc
	Caption  CaptionFunc
	Detailed bool
	Targets  []ResultTarget
	Log      zerolog.Logger
}

// Output is one successful caption. Alternatives is never nil.
type Output struct {
	Source       string        `json:"source"`
	Caption      string        `json:"caption"`
	Alternatives []string      `json:"alternative_captions"`
	Detailed     bool          `json:"detailed"`
	Timestamp    string        `json:"timestamp"`
	Duration     time.Duration `json:"-"`
	Seconds      float64       `json:"duration_seconds"`
}

func Execute(ctx context.Context, opts Options) (Output, error) {
	if opts.Load == nil {
		return Output{}, ErrNoImage
	}
	if opts.Caption == nil {
		return Output{}, errors.New("Caption is required")
	}

	img, err := opts.Load()
	if err != nil {
		err = fmt.Errorf("load image: %w", err)
		notifyFailure(opts.Targets, err)
		return Output{}, err
	}

	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = 60 * time.Second
	}
	jobCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	opts.Log.Debug().Str("image", img.Name).Int("bytes", len(img.Data)).Bool("detailed", opts.Detailed).Msg("requesting caption")
	start := time.Now()
	res, err := opts.Caption(jobCtx, captionapi.Request{
		FileName:  img.Name,
		MediaType: img.MediaType,
		Image:     img.Data,
		Detailed:  opts.Detailed,
	})
	elapsed := time.Since(start)
	if err != nil {
		opts.Log.Debug().Err(err).Dur("elapsed", elapsed).Msg("caption failed")
		err = fmt.Errorf("caption request: %w", err)
		notifyFailure(opts.Targets, err)
		return Output{}, err
	}

	out := Output{
		Source:       img.Name,
		Caption:      res.Caption,
		Alternatives: res.Alternatives,
		Detailed:     opts.Detailed,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Duration:     elapsed,
		Seconds:      elapsed.Seconds(),
	}
	if out.Alternatives == nil {
		out.Alternatives = []string{}
	}
	opts.Log.Debug().Dur("elapsed", elapsed).Int("alternatives", len(out.Alternatives)).Msg("caption received")

	for _, t := range opts.Targets {
		if err := t.OnSuccess(ctx, out); err != nil {
			notifyFailure(opts.Targets, err)
			return out, err
		}
	}
	return out, nil
}

func notifyFailure(targets []ResultTarget, err error) {
	for _, t := range targets {
		_ = t.OnFailure(err)
	}
}

// StdoutTarget prints the caption, or the full Output as indented JSON.
type StdoutTarget struct {
	Writer io.Writer
	JSON   bool
}

func (t StdoutTarget) OnSuccess(_ context.Context, out Output) error {
	w := t.Writer
	if w == nil {
		w = os.Stdout
	}
	if t.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}
	if _, err := fmt.Fprintln(w, out.Caption); err != nil {
		return err
	}
	for _, alt := range out.Alternatives {
		if _, err := fmt.Fprintf(w, "  - %s\n", alt); err != nil {
			return err
		}
	}
	return nil
}

func (StdoutTarget) OnFailure(error) error { return nil }

type ClipboardTarget struct{}

func (ClipboardTarget) OnSuccess(_ context.Context, out Output) error {
	if err := clipboard.WriteText(out.Caption); err != nil {
		return fmt.Errorf("clipboard error: %w", err)
	}
	return nil
}

func (ClipboardTarget) OnFailure(error) error { return nil }

// SpeechTarget speaks the caption and blocks until playback ends.
type SpeechTarget struct {
	Engine speech.Engine
	Voice  string
}

func (t SpeechTarget) OnSuccess(ctx context.Context, out Output) error {
	if t.Engine == nil || out.Caption == "" {
		return nil
	}
	pb, err := t.Engine.Start(ctx, speech.Utterance{
		Text:   out.Caption,
		Rate:   speech.DefaultRate,
		Pitch:  speech.DefaultPitch,
		Volume: speech.DefaultVolume,
		Voice:  t.Voice,
	})
	if err != nil {
		return fmt.Errorf("speech: %w", err)
	}
	// Playback errors are absorbed like in the interactive views.
	_ = pb.Wait()
	return nil
}

func (SpeechTarget) OnFailure(error) error { return nil }
