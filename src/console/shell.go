package console

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"caption-assist/src/imageinput"
	"caption-assist/src/shortcut"
)

const prompt = "caption> "

// Control keys the terminal can deliver as single runes.
var controlChords = map[rune]shortcut.Chord{
	readline.CharCtrlU:     shortcut.MustParse("Ctrl+U"),
	readline.CharFwdSearch: shortcut.MustParse("Ctrl+S"),
}

type ShellOptions struct {
	HistoryFile string
	Stdin       io.ReadCloser
	Stdout      io.Writer
}

// Shell reads console commands with line editing and completion.
type Shell struct {
	rl      *readline.Instance
	console *Console
}

func NewShell(c *Console, opts ShellOptions) (*Shell, error) {
	s := &Shell{console: c}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:              prompt,
		HistoryFile:         opts.HistoryFile,
		AutoComplete:        completer(),
		InterruptPrompt:     "^C",
		EOFPrompt:           "quit",
		HistorySearchFold:   true,
		Stdin:               opts.Stdin,
		Stdout:              opts.Stdout,
		FuncFilterInputRune: s.filterRune,
	})
	if err != nil {
		return nil, err
	}
	s.rl = rl
	c.SetOutput(rl.Stdout())
	return s, nil
}

// Out is the writer that keeps the prompt intact while printing.
func (s *Shell) Out() io.Writer { return s.rl.Stdout() }

// filterRune turns control keys into shortcut chords. Keys the dispatcher
// handles never reach the line editor.
func (s *Shell) filterRune(r rune) (rune, bool) {
	if c, ok := controlChords[r]; ok && s.console.loop.KeyPressed(c) {
		return r, false
	}
	return r, true
}

// Run reads lines until quit, EOF, Ctrl+C on an empty line or ctx
// cancellation.
func (s *Shell) Run(ctx context.Context) error {
	defer s.rl.Close()
	go func() {
		<-ctx.Done()
		_ = s.rl.Close()
	}()

	s.console.printf("Type help for commands. Ctrl+U prompts for a file, Ctrl+S speaks the caption.\n")
	for {
		line, err := s.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if s.console.Execute(line) {
			return nil
		}
	}
}

// PromptForFile is the open-picker action in a terminal.
func (s *Shell) PromptForFile() {
	s.console.printf("Type: open <path to image>\n")
}

func completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, cmd := range commands {
		switch cmd.name {
		case "open":
			items = append(items, readline.PcItem("open", readline.PcItemDynamic(imageFiles)))
		case "detailed", "autospeak":
			items = append(items, readline.PcItem(cmd.name, readline.PcItem("on"), readline.PcItem("off")))
		default:
			items = append(items, readline.PcItem(cmd.name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

// imageFiles completes image paths relative to the directory being typed.
func imageFiles(line string) []string {
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "open"))
	dir := filepath.Dir(arg)
	if arg == "" || strings.HasSuffix(arg, string(os.PathSeparator)) {
		dir = arg
	}
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if dir != "." {
			name = filepath.Join(dir, name)
		}
		if e.IsDir() {
			out = append(out, name+string(os.PathSeparator))
		} else if imageinput.HasImageExtension(name) {
			out = append(out, name)
		}
	}
	return out
}
