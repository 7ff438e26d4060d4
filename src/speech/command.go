package speech

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// CommandEngine speaks by running a platform TTS program and treats the
// process lifetime as the utterance lifetime.
type CommandEngine struct {
	name  string
	bin   string
	build func(u Utterance) (args []string, stdin string)
	log   zerolog.Logger
}

func (e *CommandEngine) Name() string { return e.name }

func (e *CommandEngine) Start(ctx context.Context, u Utterance) (Playback, error) {
	args, stdin := e.build(u)
	cmd := exec.CommandContext(ctx, e.bin, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	configureProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = 2 * time.Second

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", e.name, err)
	}
	e.log.Debug().Int("pid", cmd.Process.Pid).Msg("tts process started")
	return cmdPlayback{cmd: cmd}, nil
}

type cmdPlayback struct{ cmd *exec.Cmd }

func (p cmdPlayback) Wait() error { return p.cmd.Wait() }

// wordsPerMinute maps a relative rate onto engines that take absolute WPM.
func wordsPerMinute(rate float64) string {
	return strconv.Itoa(int(math.Round(175 * rate)))
}

func espeakArgs(u Utterance) ([]string, string) {
	args := []string{
		"-s", wordsPerMinute(u.Rate),
		"-p", strconv.Itoa(int(math.Round(50 * u.Pitch))),
		"-a", strconv.Itoa(int(math.Round(100 * u.Volume))),
	}
	if u.Voice != "" {
		args = append(args, "-v", u.Voice)
	}
	return append(args, "--stdin"), u.Text
}

func spdSayArgs(u Utterance) ([]string, string) {
	scale := func(v float64) string { return strconv.Itoa(int(math.Round((v - 1) * 100))) }
	args := []string{"-w", "-r", scale(u.Rate), "-p", scale(u.Pitch), "-i", scale(u.Volume)}
	if u.Voice != "" {
		args = append(args, "-y", u.Voice)
	}
	return append(args, "--", u.Text), ""
}

func sayArgs(u Utterance) ([]string, string) {
	args := []string{"-r", wordsPerMinute(u.Rate)}
	if u.Voice != "" {
		args = append(args, "-v", u.Voice)
	}
	return append(args, "-f", "-"), u.Text
}

func sapiArgs(u Utterance) ([]string, string) {
	var script strings.Builder
	script.WriteString("Add-Type -AssemblyName System.Speech; ")
	script.WriteString("$s = New-Object System.Speech.Synthesis.SpeechSynthesizer; ")
	fmt.Fprintf(&script, "$s.Rate = %d; ", int(math.Round((u.Rate-1)*10)))
	fmt.Fprintf(&script, "$s.Volume = %d; ", int(math.Round(u.Volume*100)))
	if u.Voice != "" {
		fmt.Fprintf(&script, "$s.SelectVoice('%s'); ", strings.ReplaceAll(u.Voice, "'", "''"))
	}
	script.WriteString("$s.Speak([Console]::In.ReadToEnd())")
	return []string{"-NoProfile", "-NonInteractive", "-Command", script.String()}, u.Text
}
