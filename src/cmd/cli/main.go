package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"caption-assist/src/announce"
	"caption-assist/src/caption"
	"caption-assist/src/clipboard"
	"caption-assist/src/config"
	"caption-assist/src/console"
	"caption-assist/src/eventloop"
	"caption-assist/src/imageinput"
	"caption-assist/src/runtimeinit"
	"caption-assist/src/session"
	"caption-assist/src/shortcut"
	"caption-assist/src/singleinstance"
)

var errNoResident = errors.New("no running Caption Assist instance")

type cliOptions struct {
	envFile      string
	backend      string
	speechEngine string
	verbose      bool
}

type captionOptions struct {
	filePath   string
	detailed   bool
	jsonOutput bool
	speak      bool
	copy       bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runWithArgs(ctx, normalizeLegacyArgs(os.Args), os.Stdin, os.Stdout)
}

func runWithArgs(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		args = []string{"caption-cli"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "caption-cli",
		Short:         "Caption images from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.envFile, "env-file", "", "Path to a .env file")
	pf.StringVar(&opts.backend, "backend", "", "Caption backend URL")
	pf.StringVar(&opts.speechEngine, "speech-engine", "", "Speech engine (auto, espeak-ng, espeak, spd-say, say, sapi, none)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")

	cmd.AddCommand(newCaptionCmd(opts), newConsoleCmd(opts), newSendCmd(opts))
	return cmd
}

func (o *cliOptions) bootstrap(skipBackendCheck bool) (*runtimeinit.Runtime, error) {
	return runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			EnvFileOverride:    o.envFile,
			BackendURLOverride: o.backend,
		},
		Verbose:              o.verbose,
		SkipBackendCheck:     skipBackendCheck,
		SpeechEngineOverride: o.speechEngine,
	})
}

func newCaptionCmd(opts *cliOptions) *cobra.Command {
	copts := &captionOptions{}
	cmd := &cobra.Command{
		Use:   "caption",
		Short: "Caption one image and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.bootstrap(true)
			if err != nil {
				return err
			}
			detailed := rt.Config.Detailed
			if cmd.Flags().Changed("detailed") {
				detailed = copts.detailed
			}
			return runCaption(cmd.Context(), rt, *copts, detailed, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&copts.filePath, "file", "", "Path to image file (use '-' for stdin)")
	cmd.Flags().BoolVar(&copts.detailed, "detailed", false, "Request a detailed description")
	cmd.Flags().BoolVar(&copts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVar(&copts.speak, "speak", false, "Read the caption aloud")
	cmd.Flags().BoolVar(&copts.copy, "copy", false, "Copy the caption to the clipboard")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runCaption(ctx context.Context, rt *runtimeinit.Runtime, opts captionOptions, detailed bool, stdin io.Reader, stdout io.Writer) error {
	targets := []session.ResultTarget{session.StdoutTarget{Writer: stdout, JSON: opts.jsonOutput}}
	if opts.copy {
		if !rt.ClipboardOK {
			return errors.New("clipboard is not available")
		}
		targets = append(targets, session.ClipboardTarget{})
	}
	if opts.speak {
		targets = append(targets, session.SpeechTarget{Engine: rt.Engine, Voice: rt.Config.SpeechVoice})
	}

	load := func() (imageinput.Image, error) {
		if opts.filePath == "-" {
			return imageinput.Load("stdin", stdin)
		}
		return imageinput.LoadFile(opts.filePath)
	}

	_, err := session.Execute(ctx, session.Options{
		Deadline: rt.Config.RequestDeadline(),
		Load:     load,
		Caption:  rt.Client.Caption,
		Detailed: detailed,
		Targets:  targets,
		Log:      rt.Log,
	})
	return err
}

func newConsoleCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive terminal view with speech output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.bootstrap(false)
			if err != nil {
				return err
			}
			return runConsole(cmd.Context(), rt)
		},
	}
}

func runConsole(ctx context.Context, rt *runtimeinit.Runtime) error {
	cfg, log := rt.Config, rt.Log

	notifier := announce.New(cfg.AnnounceDelay(), log)
	defer notifier.Close()
	notifier.AddSink(announce.LogSink{Log: log})

	var copyText func(string) error
	if rt.ClipboardOK {
		copyText = clipboard.WriteText
	}
	loop := eventloop.New(eventloop.Config{
		Captioner: rt.Client,
		Announcer: notifier,
		Engine:    rt.Engine,
		Voice:     cfg.SpeechVoice,
		Options:   caption.Options{Detailed: cfg.Detailed, AutoSpeak: cfg.AutoSpeak},
		Deadline:  cfg.RequestDeadline(),
		CopyText:  copyText,
		Log:       log,
	})

	con := console.New(loop, console.Options{ClipboardOK: rt.ClipboardOK, Log: log})
	shell, err := console.NewShell(con, console.ShellOptions{HistoryFile: historyFile()})
	if err != nil {
		return fmt.Errorf("failed to start console: %w", err)
	}
	notifier.AddSink(&announce.WriterSink{W: shell.Out(), Prefix: "» "})
	loop.Subscribe(con.Render)
	loop.OnOpenPicker(shell.PromptForFile)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()

	if cfg.GlobalHotkeys {
		stopHook := shortcut.Listen(log, func(c shortcut.Chord) { loop.KeyPressed(c) })
		defer stopHook()
	}

	err = shell.Run(ctx)
	cancel()
	<-loopDone
	return err
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "caption-assist")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return ""
	}
	return filepath.Join(dir, "console_history")
}

func newSendCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send <image>",
		Short: "Open an image in the running Caption Assist window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.bootstrap(true)
			if err != nil {
				return err
			}
			return runSend(cmd.Context(), singleinstance.NewClient(rt.Config.SingleInstancePort), args[0], cmd.OutOrStdout())
		},
	}
}

func runSend(ctx context.Context, client singleinstance.Client, path string, stdout io.Writer) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if !imageinput.HasImageExtension(abs) {
		return fmt.Errorf("%s does not look like an image file", path)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	delivered, err := client.Send(ctx, abs)
	if err != nil {
		return fmt.Errorf("failed to send image: %w", err)
	}
	if !delivered {
		return errNoResident
	}
	fmt.Fprintf(stdout, "Opened %s in the running instance\n", abs)
	return nil
}

var legacyFlags = []string{"file", "json", "verbose", "detailed", "speak", "copy", "backend", "env-file", "speech-engine"}

// normalizeLegacyArgs maps single-dash long flags to the GNU form and routes
// a bare flag invocation (caption-cli --file x.png) to the caption command.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	hasFile := false
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		if arg == "--" {
			break
		}
		for _, name := range legacyFlags {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
		if normalized[i] == "--file" || strings.HasPrefix(normalized[i], "--file=") {
			hasFile = true
		}
	}

	if hasFile && len(normalized) > 1 && strings.HasPrefix(normalized[1], "-") {
		normalized = append([]string{normalized[0], "caption"}, normalized[1:]...)
	}
	return normalized
}
