package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caption-assist/src/captionapi"
	"caption-assist/src/imageinput"
	"caption-assist/src/speech"
)

type recordingTarget struct {
	successes []Output
	failures  []error
	failWith  error
}

func (r *recordingTarget) OnSuccess(_ context.Context, out Output) error {
	r.successes = append(r.successes, out)
	return r.failWith
}

func (r *recordingTarget) OnFailure(err error) error {
	r.failures = append(r.failures, err)
	return nil
}

func loadOK() (imageinput.Image, error) {
	return imageinput.Image{Name: "dog.png", MediaType: "image/png", Data: []byte{1}}, nil
}

func TestExecuteSuccess(t *testing.T) {
	var got captionapi.Request
	target := &recordingTarget{}
	out, err := Execute(context.Background(), Options{
		Load: loadOK,
		Caption: func(_ context.Context, req captionapi.Request) (captionapi.Result, error) {
			got = req
			return captionapi.Result{Caption: "A dog running"}, nil
		},
		Detailed: true,
		Targets:  []ResultTarget{target},
		Log:      zerolog.Nop(),
	})
	require.NoError(t, err)

	assert.Equal(t, "dog.png", got.FileName)
	assert.True(t, got.Detailed)
	assert.Equal(t, "A dog running", out.Caption)
	assert.NotNil(t, out.Alternatives)
	require.Len(t, target.successes, 1)
	assert.Empty(t, target.failures)
}

func TestExecuteCaptionFailure(t *testing.T) {
	target := &recordingTarget{}
	_, err := Execute(context.Background(), Options{
		Load: loadOK,
		Caption: func(context.Context, captionapi.Request) (captionapi.Result, error) {
			return captionapi.Result{}, &captionapi.StatusError{Code: 500}
		},
		Targets: []ResultTarget{target},
		Log:     zerolog.Nop(),
	})

	var se *captionapi.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.Code)
	assert.Len(t, target.failures, 1)
	assert.Empty(t, target.successes)
}

func TestExecuteLoadFailure(t *testing.T) {
	called := false
	_, err := Execute(context.Background(), Options{
		Load: func() (imageinput.Image, error) { return imageinput.Image{}, imageinput.ErrNotImage },
		Caption: func(context.Context, captionapi.Request) (captionapi.Result, error) {
			called = true
			return captionapi.Result{}, nil
		},
		Log: zerolog.Nop(),
	})
	assert.ErrorIs(t, err, imageinput.ErrNotImage)
	assert.False(t, called)
}

func TestExecuteWithoutLoader(t *testing.T) {
	_, err := Execute(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestTargetFailureIsReported(t *testing.T) {
	boom := errors.New("clipboard gone")
	target := &recordingTarget{failWith: boom}
	_, err := Execute(context.Background(), Options{
		Load: loadOK,
		Caption: func(context.Context, captionapi.Request) (captionapi.Result, error) {
			return captionapi.Result{Caption: "x"}, nil
		},
		Targets: []ResultTarget{target},
		Log:     zerolog.Nop(),
	})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, target.failures, 1)
}

func TestStdoutTarget(t *testing.T) {
	out := Output{Source: "dog.png", Caption: "A dog running", Alternatives: []string{"A dog in a field"}}

	var plain bytes.Buffer
	require.NoError(t, StdoutTarget{Writer: &plain}.OnSuccess(context.Background(), out))
	assert.Equal(t, "A dog running\n  - A dog in a field\n", plain.String())

	var js bytes.Buffer
	require.NoError(t, StdoutTarget{Writer: &js, JSON: true}.OnSuccess(context.Background(), out))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "A dog running", decoded["caption"])
	assert.Equal(t, []any{"A dog in a field"}, decoded["alternative_captions"])
	assert.Equal(t, "dog.png", decoded["source"])
}

type instantEngine struct{ texts []string }

func (e *instantEngine) Name() string { return "instant" }

func (e *instantEngine) Start(_ context.Context, u speech.Utterance) (speech.Playback, error) {
	e.texts = append(e.texts, u.Text)
	return donePlayback{}, nil
}

type donePlayback struct{}

func (donePlayback) Wait() error { return nil }

func TestSpeechTarget(t *testing.T) {
	eng := &instantEngine{}
	target := SpeechTarget{Engine: eng}
	require.NoError(t, target.OnSuccess(context.Background(), Output{Caption: "A dog running"}))
	require.NoError(t, target.OnSuccess(context.Background(), Output{}))
	assert.Equal(t, []string{"A dog running"}, eng.texts)
}
