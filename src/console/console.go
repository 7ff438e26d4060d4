// Package console is the terminal front end. It offers the same operations
// as the GUI through typed commands and a few control keys.
package console

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"caption-assist/src/caption"
	"caption-assist/src/eventloop"
	"caption-assist/src/imageinput"
	"caption-assist/src/shortcut"
	"caption-assist/src/speech"
)

// Loop is the subset of the event loop the console drives.
type Loop interface {
	Acquire(src imageinput.Source) error
	Generate() error
	Speak() error
	StopSpeech() error
	CopyCaption() error
	SetDetailed(on bool) error
	SetAutoSpeak(on bool) error
	KeyPressed(c shortcut.Chord) bool
	State() (eventloop.ViewState, error)
	Bindings() []shortcut.Binding
}

type Options struct {
	Out         io.Writer
	ClipboardOK bool
	Log         zerolog.Logger
}

type Console struct {
	loop        Loop
	clipboardOK bool
	log         zerolog.Logger

	mu   sync.Mutex
	out  io.Writer
	prev *eventloop.ViewState
}

func New(loop Loop, opts Options) *Console {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Console{
		loop:        loop,
		out:         out,
		clipboardOK: opts.ClipboardOK,
		log:         opts.Log.With().Str("component", "console").Logger(),
	}
}

// SetOutput redirects rendering, for example to a readline writer.
func (c *Console) SetOutput(w io.Writer) {
	c.mu.Lock()
	c.out = w
	c.mu.Unlock()
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

var errUsage = errors.New("usage")

type command struct {
	name  string
	args  string
	usage string
	help  string
}

var commands = []command{
	{name: "open", usage: "open <path>", help: "select an image file"},
	{name: "camera", usage: "camera", help: "capture the screen as the image"},
	{name: "paste", usage: "paste", help: "use the image on the clipboard"},
	{name: "generate", usage: "generate", help: "generate a caption"},
	{name: "speak", usage: "speak", help: "read the caption aloud"},
	{name: "stop", usage: "stop", help: "stop speaking"},
	{name: "copy", usage: "copy", help: "copy the caption to the clipboard"},
	{name: "detailed", usage: "detailed on|off", help: "request a more detailed caption"},
	{name: "autospeak", usage: "autospeak on|off", help: "speak new captions automatically"},
	{name: "status", usage: "status", help: "show the current state"},
	{name: "help", usage: "help", help: "show commands and shortcuts"},
	{name: "quit", usage: "quit", help: "exit"},
}

var aliases = map[string]string{
	"o": "open", "upload": "open", "g": "generate", "gen": "generate",
	"s": "speak", "x": "stop", "c": "copy", "q": "quit", "exit": "quit", "?": "help",
}

// parseCommand splits a line into a known command and its argument.
func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	name, args, _ := strings.Cut(line, " ")
	name = strings.ToLower(name)
	if full, ok := aliases[name]; ok {
		name = full
	}
	for _, cmd := range commands {
		if cmd.name == name {
			cmd.args = strings.TrimSpace(args)
			return cmd, nil
		}
	}
	return command{}, fmt.Errorf("unknown command %q, type help", name)
}

func parseSwitch(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, errUsage
}

// Execute runs one input line. It returns true when the user asked to quit.
func (c *Console) Execute(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	cmd, err := parseCommand(line)
	if err != nil {
		c.printf("%v\n", err)
		return false
	}

	switch cmd.name {
	case "open":
		if cmd.args == "" {
			err = errUsage
			break
		}
		err = c.loop.Acquire(imageinput.FileSource{Path: unquote(cmd.args)})
	case "camera":
		err = c.loop.Acquire(imageinput.CameraSource{})
	case "paste":
		if !c.clipboardOK {
			c.printf("Clipboard is not available.\n")
			return false
		}
		err = c.loop.Acquire(imageinput.ClipboardSource{})
	case "generate":
		err = c.loop.Generate()
	case "speak":
		err = c.loop.Speak()
	case "stop":
		err = c.loop.StopSpeech()
	case "copy":
		if !c.clipboardOK {
			c.printf("Clipboard is not available.\n")
			return false
		}
		err = c.loop.CopyCaption()
	case "detailed", "autospeak":
		var on bool
		if on, err = parseSwitch(cmd.args); err != nil {
			break
		}
		if cmd.name == "detailed" {
			err = c.loop.SetDetailed(on)
		} else {
			err = c.loop.SetAutoSpeak(on)
		}
	case "status":
		var st eventloop.ViewState
		if st, err = c.loop.State(); err == nil {
			c.printf("%s", Status(st))
		}
	case "help":
		c.printf("%s", Help(c.loop.Bindings()))
	case "quit":
		return true
	}

	if errors.Is(err, errUsage) {
		c.printf("usage: %s\n", cmd.usage)
	} else if err != nil {
		// Load failures are already announced.
		c.log.Debug().Err(err).Str("command", cmd.name).Msg("command failed")
	}
	return false
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// Render prints what changed since the previous state. It is subscribed to
// the event loop.
func (c *Console) Render(st eventloop.ViewState) {
	c.mu.Lock()
	prev := c.prev
	c.prev = &st
	c.mu.Unlock()

	if text := describeChange(prev, st); text != "" {
		c.printf("%s", text)
	}
}

// describeChange returns the lines worth printing when moving from prev to
// cur. Announcements are printed separately by the notifier.
func describeChange(prev *eventloop.ViewState, cur eventloop.ViewState) string {
	var b strings.Builder
	if cur.Caption.State == caption.Succeeded && cur.Caption.Result != nil &&
		(prev == nil || prev.Caption.State != caption.Succeeded) {
		fmt.Fprintf(&b, "Caption: %s\n", cur.Caption.Result.Primary)
		for _, alt := range cur.Caption.Result.Alternatives {
			fmt.Fprintf(&b, "  - %s\n", alt)
		}
	}
	if prev != nil && prev.Options != cur.Options {
		fmt.Fprintf(&b, "Detailed: %s, auto-speak: %s\n", onOff(cur.Options.Detailed), onOff(cur.Options.AutoSpeak))
	}
	return b.String()
}

// Status is the full state summary printed by the status command.
func Status(st eventloop.ViewState) string {
	var b strings.Builder
	image := "none"
	if st.HasImage {
		image = st.ImageName
	}
	fmt.Fprintf(&b, "Image: %s\n", image)
	fmt.Fprintf(&b, "Request: %s\n", st.Caption.State)
	if st.Caption.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", st.Caption.Error)
	}
	if r := st.Caption.Result; r != nil {
		fmt.Fprintf(&b, "Caption: %s\n", r.Primary)
		for _, alt := range r.Alternatives {
			fmt.Fprintf(&b, "  - %s\n", alt)
		}
	}
	speaking := "no"
	if st.Speech == speech.Speaking {
		speaking = "yes"
	}
	fmt.Fprintf(&b, "Detailed: %s, auto-speak: %s, speaking: %s\n", onOff(st.Options.Detailed), onOff(st.Options.AutoSpeak), speaking)
	return b.String()
}

// Help lists commands and keyboard shortcuts.
func Help(bindings []shortcut.Binding) string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(&b, "  %-18s %s\n", cmd.usage, cmd.help)
	}
	b.WriteString("Shortcuts:\n")
	for _, bind := range bindings {
		fmt.Fprintf(&b, "  %-18s %s\n", bind.Chord.String(), bind.Description)
	}
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
