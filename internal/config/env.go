package config

import (
	"flag"
	"os"
	"strings"
	"time"

	apperrors "ramwatch/internal/errors"
)

// EnvPrefix is prepended to every environment variable ramwatch reads.
const EnvPrefix = "RAMWATCH_"

// isFlagSet checks if a flag was explicitly set on the command line.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// envOverride declares a single environment variable override.
// Each entry maps an env key (without the RAMWATCH_ prefix) to the CLI flag
// it yields to and a function that applies the env value.
type envOverride struct {
	envKey string
	flag   string
	apply  func(*Config, string) error
}

// envOverrides is the declarative table of all environment variable overrides.
var envOverrides = []envOverride{
	{"INTERVAL", "interval", func(c *Config, v string) error {
		return setDuration(&c.Sampling.Interval, "INTERVAL", v)
	}},
	{"SAMPLE_TIMEOUT", "", func(c *Config, v string) error {
		return setDuration(&c.Sampling.SampleTimeout, "SAMPLE_TIMEOUT", v)
	}},
	{"RENDER_TIMEOUT", "", func(c *Config, v string) error {
		return setDuration(&c.Sampling.RenderTimeout, "RENDER_TIMEOUT", v)
	}},
	{"MODE", "mode", func(c *Config, v string) error {
		c.Display.Mode = strings.ToLower(v)
		return nil
	}},
	{"HTTP_ADDR", "http", func(c *Config, v string) error {
		c.HTTP.Addr = v
		c.HTTP.Enabled = true
		return nil
	}},
	{"LOG_LEVEL", "log-level", func(c *Config, v string) error {
		c.Logging.Level = v
		return nil
	}},
	{"LOG_FILE", "log-file", func(c *Config, v string) error {
		c.Logging.File = v
		return nil
	}},
	{"SECRET", "", func(c *Config, v string) error {
		c.Auth.Secret = v
		return nil
	}},
}

func setDuration(dst *time.Duration, key, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return apperrors.NewConfigError("%s%s: %v", EnvPrefix, key, err)
	}
	*dst = d
	return nil
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
// This implements the priority: CLI flags > Environment variables > File > Defaults.
func applyEnvOverrides(cfg *Config, fs *flag.FlagSet) error {
	for _, o := range envOverrides {
		if o.flag != "" && isFlagSet(fs, o.flag) {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.envKey); val != "" {
			if err := o.apply(cfg, val); err != nil {
				return err
			}
		}
	}
	return nil
}
