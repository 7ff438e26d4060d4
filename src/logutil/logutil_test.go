package logutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "A dog running", "A dog running"},
		{"newlines", "line1\nline2\r", "line1\\nline2\\n"},
		{"tab", "a\tb", "a\\tb"},
		{"control", "bell\x07", "bell?"},
		{"truncated", strings.Repeat("x", 120), strings.Repeat("x", 100) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSetupFileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := Setup(Options{EnableFileLogging: true, Level: "debug", Dir: dir})
	logger.Info().Str("component", "test").Msg("hello")

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file missing message: %s", data)
	}
}

func TestRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, logFileName)
	if err := os.WriteFile(path, []byte("current"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(archiveName(path, 1), []byte("older"), 0644); err != nil {
		t.Fatal(err)
	}

	rotate(path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected base log to be moved away, stat err=%v", err)
	}
	got, err := os.ReadFile(archiveName(path, 1))
	if err != nil || string(got) != "current" {
		t.Errorf("archive .1 = %q (err=%v), want current", got, err)
	}
	got, err = os.ReadFile(archiveName(path, 2))
	if err != nil || string(got) != "older" {
		t.Errorf("archive .2 = %q (err=%v), want older", got, err)
	}
}
