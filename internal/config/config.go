// Package config loads the settings shared by the commands. Settings are read
// from RBXROJO_* environment variables, and may then be overridden by
// command-line flags.
package config

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-hclog"
	"github.com/kelseyhightower/envconfig"

	"github.com/robloxapi/rbxrojo/pathname"
	"github.com/robloxapi/rbxrojo/sanitize"
)

type Config struct {
	Policy             string `envconfig:"RBXROJO_POLICY" default:"portable"` // windows, posix, portable, or host
	LogLevel           string `envconfig:"RBXROJO_LOG_LEVEL" default:"info"`
	LogFile            string `envconfig:"RBXROJO_LOG_FILE" default:"rbxlx-to-rojo.log"` // relative to the output directory; empty disables
	NumericReplacement string `envconfig:"RBXROJO_NUMERIC_REPLACEMENT" default:"0"`
	SourceDir          string `envconfig:"RBXROJO_SOURCE_DIR" default:"src"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var c Config
	err := envconfig.Process("", &c)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// Validate checks that every setting has a usable value.
func (c *Config) Validate() error {
	if _, err := c.PathPolicy(); err != nil {
		return err
	}
	if c.Level() == hclog.NoLevel {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if err := validReplacement(c.NumericReplacement); err != nil {
		return err
	}
	if c.LogFile != "" && !filepath.IsLocal(c.LogFile) {
		return fmt.Errorf("log file %q must be relative to the output directory", c.LogFile)
	}
	if !filepath.IsLocal(c.SourceDir) {
		return fmt.Errorf("source directory %q must be relative to the project", c.SourceDir)
	}
	return nil
}

// validReplacement reports whether s can stand in for an illegal numeric
// literal. It must itself be a legal number.
func validReplacement(s string) error {
	for _, r := range s {
		if sanitize.IsIllegal(r) {
			return fmt.Errorf("numeric replacement %q contains illegal character %U", s, r)
		}
	}
	if sanitize.IsIllegalNumeric(s) {
		return fmt.Errorf("numeric replacement %q is an illegal literal", s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("numeric replacement %q is not a number", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("numeric replacement %q is not finite", s)
	}
	return nil
}

// PathPolicy returns the naming policy selected by Policy.
func (c *Config) PathPolicy() (pathname.Policy, error) {
	p, ok := pathname.Lookup(c.Policy)
	if !ok {
		return pathname.Policy{}, fmt.Errorf("unknown path policy %q", c.Policy)
	}
	return p, nil
}

// Level returns the log level selected by LogLevel, or hclog.NoLevel if it is
// unknown.
func (c *Config) Level() hclog.Level {
	return hclog.LevelFromString(c.LogLevel)
}

// Sanitizer returns the sanitizer applied to written text.
func (c *Config) Sanitizer() sanitize.Sanitizer {
	return sanitize.Sanitizer{NumericReplacement: c.NumericReplacement}
}
