// Package config loads ramwatch settings from defaults, an optional YAML
// file, RAMWATCH_* environment variables and command-line flags, in
// increasing order of priority.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	apperrors "ramwatch/internal/errors"
	"ramwatch/internal/logging"

	"gopkg.in/yaml.v3"
)

// Display modes.
const (
	ModePlain = "plain"
	ModeTUI   = "tui"
)

// Defaults.
const (
	DefaultInterval      = 1 * time.Second
	DefaultSampleTimeout = 800 * time.Millisecond
	DefaultRenderTimeout = 800 * time.Millisecond
	DefaultWidth         = 72
	DefaultHeight        = 18
	DefaultHTTPAddr      = "127.0.0.1:8089"
	DefaultRateLimit     = 10
	DefaultRateBurst     = 20
	DefaultTokenTTL      = 30 * 24 * time.Hour
	DefaultLogLevel      = "info"

	// MinInterval is the fastest supported sampling cadence.
	MinInterval = 1 * time.Second

	minWidth  = 10
	minHeight = 3
)

// Config is the complete application configuration.
type Config struct {
	Sampling SamplingConfig `yaml:"sampling"`
	Display  DisplayConfig  `yaml:"display"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`

	// ConfigFile is the YAML file the values were loaded from, if any.
	ConfigFile string `yaml:"-"`
	// IssueToken, when set, makes the process print a stream token for this
	// client name and exit instead of monitoring.
	IssueToken string `yaml:"-"`
}

// SamplingConfig controls the sampling loop.
type SamplingConfig struct {
	Interval      time.Duration `yaml:"interval"`
	SampleTimeout time.Duration `yaml:"sample_timeout"`
	RenderTimeout time.Duration `yaml:"render_timeout"`
}

// DisplayConfig controls the chart.
type DisplayConfig struct {
	Mode   string `yaml:"mode"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	// Clear redraws plain-mode frames on a cleared screen.
	Clear bool `yaml:"clear"`
}

// HTTPConfig controls the optional local dashboard API.
type HTTPConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Addr       string   `yaml:"addr"`
	AllowedIPs []string `yaml:"allowed_ips"`
	RateLimit  float64  `yaml:"rate_limit"`
	RateBurst  int      `yaml:"rate_burst"`
}

// AuthConfig controls the tokens that guard the live feed.
type AuthConfig struct {
	Secret     string        `yaml:"secret"`
	SecretFile string        `yaml:"secret_file"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
}

// LoggingConfig controls the application logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Sampling: SamplingConfig{
			Interval:      DefaultInterval,
			SampleTimeout: DefaultSampleTimeout,
			RenderTimeout: DefaultRenderTimeout,
		},
		Display: DisplayConfig{
			Mode:   ModePlain,
			Width:  DefaultWidth,
			Height: DefaultHeight,
			Clear:  true,
		},
		HTTP: HTTPConfig{
			Addr:      DefaultHTTPAddr,
			RateLimit: DefaultRateLimit,
			RateBurst: DefaultRateBurst,
		},
		Auth: AuthConfig{
			TokenTTL: DefaultTokenTTL,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// LoadFile overlays the YAML file at path onto cfg. Keys missing from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewConfigError("reading config file: %v", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return apperrors.NewConfigError("parsing config file %s: %v", path, err)
	}
	cfg.ConfigFile = path
	return nil
}

// flagValues holds the raw command-line values before they are merged.
type flagValues struct {
	configFile string
	interval   time.Duration
	mode       string
	httpAddr   string
	logLevel   string
	logFile    string
	issueToken string
}

// Parse builds the configuration for one process run. flag.ErrHelp is
// returned unchanged when -h or -help is given; every other failure is an
// apperrors.ConfigError.
func Parse(programName string, args []string, errOut io.Writer) (Config, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errOut)

	var fv flagValues
	fs.StringVar(&fv.configFile, "config", "", "path to a YAML configuration file")
	fs.DurationVar(&fv.interval, "interval", DefaultInterval, "sampling interval (at least 1s)")
	fs.StringVar(&fv.mode, "mode", ModePlain, "display mode: plain or tui")
	fs.StringVar(&fv.httpAddr, "http", "", "serve the local dashboard API on this address")
	fs.StringVar(&fv.logLevel, "log-level", DefaultLogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&fv.logFile, "log-file", "", "write logs to this file instead of stderr")
	fs.StringVar(&fv.issueToken, "issue-token", "", "print a live feed token for this client name and exit")
	fs.Usage = func() {
		fmt.Fprintf(errOut, "Usage: %s [flags]\n\nSamples memory usage every interval and charts it.\nType 'terminate' and press Enter to exit.\n\nFlags:\n", programName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, err
		}
		return Config{}, apperrors.NewConfigError("%v", err)
	}
	if fs.NArg() > 0 {
		return Config{}, apperrors.NewConfigError("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	cfg := Default()

	path := fv.configFile
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnvOverrides(&cfg, fs); err != nil {
		return Config{}, err
	}
	applyFlags(&cfg, fs, fv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyFlags copies the explicitly set flags onto cfg.
func applyFlags(cfg *Config, fs *flag.FlagSet, fv flagValues) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "interval":
			cfg.Sampling.Interval = fv.interval
		case "mode":
			cfg.Display.Mode = fv.mode
		case "http":
			cfg.HTTP.Addr = fv.httpAddr
			cfg.HTTP.Enabled = fv.httpAddr != ""
		case "log-level":
			cfg.Logging.Level = fv.logLevel
		case "log-file":
			cfg.Logging.File = fv.logFile
		case "issue-token":
			cfg.IssueToken = fv.issueToken
		}
	})
}

// Validate checks the values that cannot be corrected at run time.
func (c Config) Validate() error {
	if c.Sampling.Interval < MinInterval {
		return apperrors.NewConfigError("sampling interval %v is below the minimum of %v", c.Sampling.Interval, MinInterval)
	}
	if c.Sampling.SampleTimeout < 0 || c.Sampling.RenderTimeout < 0 {
		return apperrors.NewConfigError("timeouts must not be negative")
	}
	switch c.Display.Mode {
	case ModePlain, ModeTUI:
	default:
		return apperrors.NewConfigError("unknown display mode %q (want %s or %s)", c.Display.Mode, ModePlain, ModeTUI)
	}
	if c.Display.Width < minWidth || c.Display.Height < minHeight {
		return apperrors.NewConfigError("chart size %dx%d is below the minimum of %dx%d", c.Display.Width, c.Display.Height, minWidth, minHeight)
	}
	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		return apperrors.NewConfigError("http is enabled but no address is set")
	}
	if c.HTTP.RateLimit <= 0 || c.HTTP.RateBurst <= 0 {
		return apperrors.NewConfigError("rate limit and burst must be positive")
	}
	if c.Auth.TokenTTL < 0 {
		return apperrors.NewConfigError("token ttl must not be negative")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return apperrors.NewConfigError("%v", err)
	}
	return nil
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}

// IsConfigError reports whether err is an apperrors.ConfigError.
func IsConfigError(err error) bool {
	var cfgErr apperrors.ConfigError
	return errors.As(err, &cfgErr)
}
