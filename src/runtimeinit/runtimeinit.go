// Package runtimeinit performs the startup shared by the GUI and the CLI.
package runtimeinit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"caption-assist/src/captionapi"
	"caption-assist/src/clipboard"
	"caption-assist/src/config"
	"caption-assist/src/logutil"
	"caption-assist/src/speech"
)

type Options struct {
	LoadOptions config.LoadOptions
	// Verbose mirrors logs to stderr.
	Verbose bool
	// SkipBackendCheck avoids the startup reachability probe.
	SkipBackendCheck bool
	// SpeechEngineOverride replaces SPEECH_ENGINE when non-empty.
	SpeechEngineOverride string
}

// Runtime is everything a front end needs after startup.
type Runtime struct {
	Config *config.Config
	Log    zerolog.Logger
	Client *captionapi.Client
	Engine speech.Engine

	// ClipboardOK is false when the system clipboard could not be opened.
	ClipboardOK bool
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logutil.Setup(logutil.Options{
		EnableFileLogging: cfg.EnableFileLogging,
		Level:             cfg.LogLevel,
		Verbose:           opts.Verbose,
	})
	log.Info().
		Str("backend", cfg.BackendURL).
		Str("env_file", cfg.EnvPath).
		Bool("detailed", cfg.Detailed).
		Bool("auto_speak", cfg.AutoSpeak).
		Msg("configuration loaded")

	engineName := cfg.SpeechEngine
	if opts.SpeechEngineOverride != "" {
		engineName = opts.SpeechEngineOverride
	}
	engine, err := speech.Select(engineName, log)
	if err != nil {
		return nil, fmt.Errorf("failed to select speech engine: %w", err)
	}

	rt := &Runtime{
		Config: cfg,
		Log:    log,
		Client: captionapi.New(cfg.BackendURL, cfg.RequestDeadline()),
		Engine: engine,
	}

	if err := clipboard.Init(); err != nil {
		log.Warn().Err(err).Msg("clipboard unavailable")
	} else {
		rt.ClipboardOK = true
	}

	if !opts.SkipBackendCheck {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		// The backend may be started later, so an unreachable backend is not fatal.
		if err := rt.Client.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("backend", cfg.BackendURL).Msg("caption backend unreachable")
		} else {
			log.Info().Msg("caption backend reachable")
		}
	}

	return rt, nil
}
