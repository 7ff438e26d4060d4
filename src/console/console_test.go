package console

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caption-assist/src/caption"
	"caption-assist/src/eventloop"
	"caption-assist/src/imageinput"
	"caption-assist/src/shortcut"
	"caption-assist/src/speech"
)

type fakeLoop struct {
	calls    []string
	sources  []imageinput.Source
	detailed *bool
	state    eventloop.ViewState
}

func (f *fakeLoop) Acquire(src imageinput.Source) error {
	f.calls = append(f.calls, "acquire")
	f.sources = append(f.sources, src)
	return nil
}

func (f *fakeLoop) record(name string) error {
	f.calls = append(f.calls, name)
	return nil
}

func (f *fakeLoop) Generate() error         { return f.record("generate") }
func (f *fakeLoop) Speak() error            { return f.record("speak") }
func (f *fakeLoop) StopSpeech() error       { return f.record("stop") }
func (f *fakeLoop) CopyCaption() error      { return f.record("copy") }
func (f *fakeLoop) SetAutoSpeak(bool) error { return f.record("autospeak") }

func (f *fakeLoop) SetDetailed(on bool) error {
	f.detailed = &on
	return nil
}

func (f *fakeLoop) KeyPressed(shortcut.Chord) bool      { return false }
func (f *fakeLoop) State() (eventloop.ViewState, error) { return f.state, nil }
func (f *fakeLoop) Bindings() []shortcut.Binding        { return shortcut.DefaultBindings() }

func newTestConsole(clipboardOK bool) (*Console, *fakeLoop, *bytes.Buffer) {
	loop := &fakeLoop{}
	var out bytes.Buffer
	return New(loop, Options{Out: &out, ClipboardOK: clipboardOK, Log: zerolog.Nop()}), loop, &out
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line, name, args string
	}{
		{"open dog.png", "open", "dog.png"},
		{"  OPEN   my dog.png ", "open", "my dog.png"},
		{"g", "generate", ""},
		{"detailed on", "detailed", "on"},
		{"?", "help", ""},
		{"exit", "quit", ""},
	}
	for _, tt := range tests {
		cmd, err := parseCommand(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.name, cmd.name, tt.line)
		assert.Equal(t, tt.args, cmd.args, tt.line)
	}

	_, err := parseCommand("fly")
	assert.Error(t, err)
}

func TestExecuteDispatchesToLoop(t *testing.T) {
	c, loop, out := newTestConsole(true)

	assert.False(t, c.Execute(`open "my dog.png"`))
	assert.False(t, c.Execute("generate"))
	assert.False(t, c.Execute("speak"))
	assert.False(t, c.Execute("stop"))
	assert.False(t, c.Execute("copy"))
	assert.False(t, c.Execute("autospeak off"))
	assert.False(t, c.Execute("detailed on"))
	assert.False(t, c.Execute(""))

	assert.Equal(t, []string{"acquire", "generate", "speak", "stop", "copy", "autospeak"}, loop.calls)
	require.Len(t, loop.sources, 1)
	assert.Equal(t, imageinput.FileSource{Path: "my dog.png"}, loop.sources[0])
	require.NotNil(t, loop.detailed)
	assert.True(t, *loop.detailed)
	assert.Empty(t, out.String())

	assert.True(t, c.Execute("quit"))
}

func TestExecuteUsageErrors(t *testing.T) {
	c, loop, out := newTestConsole(true)

	c.Execute("open")
	c.Execute("detailed maybe")

	assert.Empty(t, loop.calls)
	assert.Nil(t, loop.detailed)
	assert.Contains(t, out.String(), "usage: open <path>")
	assert.Contains(t, out.String(), "usage: detailed on|off")
}

func TestClipboardCommandsNeedClipboard(t *testing.T) {
	c, loop, out := newTestConsole(false)
	c.Execute("paste")
	c.Execute("copy")
	assert.Empty(t, loop.calls)
	assert.Equal(t, 2, strings.Count(out.String(), "Clipboard is not available."))
}

func TestRenderPrintsCaptionOnce(t *testing.T) {
	c, _, out := newTestConsole(true)

	inflight := eventloop.ViewState{HasImage: true, Caption: caption.Snapshot{State: caption.InFlight}}
	done := eventloop.ViewState{HasImage: true, Caption: caption.Snapshot{
		State:  caption.Succeeded,
		Result: &caption.Result{Primary: "A dog running", Alternatives: []string{"A dog in a field"}},
	}}

	c.Render(inflight)
	c.Render(done)
	c.Render(done)

	assert.Equal(t, "Caption: A dog running\n  - A dog in a field\n", out.String())
}

func TestRenderOptionChanges(t *testing.T) {
	c, _, out := newTestConsole(true)
	c.Render(eventloop.ViewState{Options: caption.Options{AutoSpeak: true}})
	c.Render(eventloop.ViewState{Options: caption.Options{AutoSpeak: true, Detailed: true}})
	assert.Equal(t, "Detailed: on, auto-speak: on\n", out.String())
}

func TestStatus(t *testing.T) {
	st := eventloop.ViewState{
		HasImage:  true,
		ImageName: "dog.png",
		Caption:   caption.Snapshot{State: caption.Failed, Error: caption.MsgRequestFailure},
		Speech:    speech.Silent,
	}
	got := Status(st)
	assert.Contains(t, got, "Image: dog.png\n")
	assert.Contains(t, got, "Request: failed\n")
	assert.Contains(t, got, "Error: "+caption.MsgRequestFailure)
	assert.Contains(t, got, "speaking: no")
}

func TestHelpListsShortcuts(t *testing.T) {
	got := Help(shortcut.DefaultBindings())
	for _, want := range []string{"open <path>", "Ctrl+Enter", "Generate caption", "Escape", "Stop speaking"} {
		assert.Contains(t, got, want)
	}
}

func TestImageFilesCompletion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dog.png"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0700))

	got := imageFiles("open " + dir + string(os.PathSeparator))
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "dog.png"),
		filepath.Join(dir, "sub") + string(os.PathSeparator),
	}, got)
}

func TestUnquote(t *testing.T) {
	assert.Equal(t, "a b", unquote(`"a b"`))
	assert.Equal(t, "a b", unquote(`'a b'`))
	assert.Equal(t, `"a`, unquote(`"a`))
}
