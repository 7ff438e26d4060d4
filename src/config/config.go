package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DefaultBackendURL = "http://localhost:8000/caption"
	EnvFileEnvVar     = "CAPTION_ASSIST_ENV"

	SpeechEngineAuto = "auto"
	SpeechEngineNone = "none"
)

type LoadOptions struct {
	EnvFileOverride    string
	BackendURLOverride string
	LogLevelOverride   string
}

type Config struct {
	BackendURL     string `env:"CAPTION_BACKEND_URL" envDefault:"http://localhost:8000/caption"`
	RequestTimeout int    `env:"CAPTION_DEADLINE_SEC" envDefault:"60"`

	Detailed  bool `env:"DETAILED" envDefault:"false"`
	AutoSpeak bool `env:"AUTO_SPEAK" envDefault:"true"`

	SpeechEngine string `env:"SPEECH_ENGINE" envDefault:"auto"`
	SpeechVoice  string `env:"SPEECH_VOICE"`

	AnnounceDelayMS      int  `env:"ANNOUNCE_DELAY_MS" envDefault:"1000"`
	DesktopNotifications bool `env:"DESKTOP_NOTIFICATIONS" envDefault:"false"`
	GlobalHotkeys        bool `env:"GLOBAL_HOTKEYS" envDefault:"false"`

	EnableFileLogging bool   `env:"ENABLE_FILE_LOGGING" envDefault:"false"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`

	SingleInstancePort int `env:"SINGLEINSTANCE_PORT" envDefault:"49600"`

	// EnvPath is the .env file that was applied, empty when none was found.
	EnvPath string
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) explicit override path
	// 2) .env in the executable directory
	// 3) the file named by CAPTION_ASSIST_ENV
	envPath := resolveEnvPath(opts.EnvFileOverride)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	cfg.EnvPath = envPath

	if v := strings.TrimSpace(opts.BackendURLOverride); v != "" {
		cfg.BackendURL = v
	}
	if v := strings.TrimSpace(opts.LogLevelOverride); v != "" {
		cfg.LogLevel = v
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.BackendURL = strings.TrimSpace(c.BackendURL)
	if c.BackendURL == "" {
		c.BackendURL = DefaultBackendURL
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60
	}
	if c.AnnounceDelayMS <= 0 {
		c.AnnounceDelayMS = 1000
	}
	c.SpeechEngine = strings.ToLower(strings.TrimSpace(c.SpeechEngine))
	if c.SpeechEngine == "" {
		c.SpeechEngine = SpeechEngineAuto
	}
	if c.SingleInstancePort < 1024 || c.SingleInstancePort > 65535 {
		c.SingleInstancePort = 49600
	}
}

// RequestDeadline is the per-request timeout applied to caption calls.
func (c *Config) RequestDeadline() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// AnnounceDelay is how long a live-region node stays mounted.
func (c *Config) AnnounceDelay() time.Duration {
	return time.Duration(c.AnnounceDelayMS) * time.Millisecond
}

func resolveEnvPath(override string) string {
	if override = strings.TrimSpace(override); override != "" {
		if _, err := os.Stat(override); err == nil {
			return override
		}
		return ""
	}

	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}
