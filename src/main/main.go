package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"caption-assist/src/announce"
	"caption-assist/src/caption"
	"caption-assist/src/clipboard"
	"caption-assist/src/config"
	"caption-assist/src/eventloop"
	"caption-assist/src/imageinput"
	"caption-assist/src/runtimeinit"
	"caption-assist/src/singleinstance"
	"caption-assist/src/view"
)

const appID = "io.github.caption-assist"

type mainOptions struct {
	envFile string
	backend string
	verbose bool
}

// normalizeLegacyArgs maps single-dash long flags (-env-file) to the GNU
// form cobra expects.
func normalizeLegacyArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 1; i < len(out); i++ {
		arg := out[i]
		if arg == "--" {
			break
		}
		for _, name := range []string{"env-file", "backend", "verbose"} {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				out[i] = "-" + arg
			}
		}
	}
	return out
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "caption-assist [image]",
		Short:        "Caption images and read the captions aloud",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return run(*opts, path)
		},
	}
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "Path to a .env file")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Caption backend URL")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")
	return cmd
}

func main() {
	enableDPIAwareness()

	os.Args = normalizeLegacyArgs(os.Args)
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// handleOpenWithDelegation hands path to a resident instance and runs
// fallback when none accepted it.
func handleOpenWithDelegation(ctx context.Context, path string, client singleinstance.Client, log zerolog.Logger, fallback func()) {
	delegated, err := client.Send(ctx, path)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("delegation failed; starting a new instance")
		fallback()
	case delegated:
		log.Info().Msg("image handed to resident instance")
	default:
		fallback()
	}
}

func run(opts mainOptions, path string) error {
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			EnvFileOverride:    opts.envFile,
			BackendURLOverride: opts.backend,
		},
		Verbose: opts.verbose,
	})
	if err != nil {
		return err
	}
	cfg, log := rt.Config, rt.Log

	if path != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		started := false
		handleOpenWithDelegation(ctx, path, singleinstance.NewClient(cfg.SingleInstancePort), log, func() { started = true })
		cancel()
		if !started {
			return nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := singleinstance.NewServer(cfg.SingleInstancePort, log)
	if err := srv.Start(ctx); err != nil {
		if singleinstance.DetectResident(ctx, cfg.SingleInstancePort) {
			fmt.Printf("Caption Assist is already running on port %d\n", cfg.SingleInstancePort)
			return errors.New("already running")
		}
		return fmt.Errorf("failed to claim port %d: %w", cfg.SingleInstancePort, err)
	}
	defer srv.Close()

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

	a := app.NewWithID(appID)
	v := view.New(a, view.Options{
		Loop:                 loop,
		ClipboardOK:          rt.ClipboardOK,
		DesktopNotifications: cfg.DesktopNotifications,
		Log:                  log,
	})
	notifier.AddSink(v)
	loop.Subscribe(v.Render)
	loop.OnOpenPicker(v.ShowFilePicker)

	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()

	go singleinstance.Serve(ctx, srv, func(p string) error {
		if err := loop.Acquire(imageinput.FileSource{Path: p}); err != nil {
			return err
		}
		fyne.Do(func() {
			v.Window().Show()
			v.Window().RequestFocus()
		})
		return nil
	})

	if path != "" {
		go func() { _ = loop.Acquire(imageinput.FileSource{Path: path}) }()
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(ch)
		select {
		case <-ch:
			log.Info().Msg("signal received, quitting")
			fyne.Do(a.Quit)
		case <-ctx.Done():
		}
	}()

	log.Info().Int("port", srv.Port()).Msg("Caption Assist started")
	v.ShowAndRun()

	cancel()
	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Msg("event loop stopped")
	}
	return nil
}
