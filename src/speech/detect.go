package speech

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"
)

type engineDef struct {
	name  string
	bin   string
	build func(Utterance) ([]string, string)
}

var knownEngines = map[string]engineDef{
	"espeak-ng": {"espeak-ng", "espeak-ng", espeakArgs},
	"espeak":    {"espeak", "espeak", espeakArgs},
	"spd-say":   {"spd-say", "spd-say", spdSayArgs},
	"say":       {"say", "say", sayArgs},
	"sapi":      {"sapi", "powershell", sapiArgs},
}

func autoOrder(goos string) []string {
	switch goos {
	case "windows":
		return []string{"sapi"}
	case "darwin":
		return []string{"say", "espeak-ng", "espeak"}
	default:
		return []string{"espeak-ng", "espeak", "spd-say"}
	}
}

var lookPath = exec.LookPath

// Select resolves an engine by config name: "auto", "none", or a known engine.
// Auto falls back to Noop when nothing is installed.
func Select(name string, log zerolog.Logger) (Engine, error) {
	switch name {
	case "", "auto":
		for _, candidate := range autoOrder(runtime.GOOS) {
			if e, err := build(candidate, log); err == nil {
				return e, nil
			}
		}
		log.Warn().Msg("no text-to-speech program found; speech disabled")
		return NewNoop(log), nil
	case "none":
		return NewNoop(log), nil
	default:
		return build(name, log)
	}
}

func build(name string, log zerolog.Logger) (Engine, error) {
	def, ok := knownEngines[name]
	if !ok {
		return nil, fmt.Errorf("unknown speech engine %q", name)
	}
	bin, err := lookPath(def.bin)
	if err != nil {
		return nil, fmt.Errorf("speech engine %s: %w", name, err)
	}
	return &CommandEngine{
		name:  def.name,
		bin:   bin,
		build: def.build,
		log:   log.With().Str("component", "tts").Str("engine", def.name).Logger(),
	}, nil
}
