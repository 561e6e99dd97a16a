// Package config holds the machine configuration shared by the brainfuck
// CLI and the containerd shim.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/MarcinKonowalczyk/bfvm/bf"
	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

// Environment variables read by FromEnv.
const (
	EnvTapeSize = "BF_TAPE_SIZE"
	EnvMaxSteps = "BF_MAX_STEPS"
	EnvDebug    = "BF_DEBUG"
)

// EnvPrefix is the prefix shared by all configuration variables.
const EnvPrefix = "BF_"

type Config struct {
	// TapeSize is the number of cells on the tape.
	TapeSize int `toml:"tape_size" yaml:"tape_size"`
	// MaxSteps bounds the steps of a run. Zero means unbounded.
	MaxSteps int `toml:"max_steps" yaml:"max_steps"`
	// Debug enables debug logging.
	Debug bool `toml:"debug" yaml:"debug"`
}

func Default() Config {
	return Config{
		TapeSize: bf.TapeSize,
	}
}

// Load overlays the file at path onto c. The format follows the extension:
// .toml, .yaml or .yml.
func (c Config) Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("cannot read %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	default:
		return c, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return c, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return c, nil
}

// Load reads the file at path on top of the defaults.
func Load(path string) (Config, error) {
	return Default().Load(path)
}

// FromEnv overlays the BF_* environment variables that are set onto c.
// Malformed numbers leave the field unchanged and are reported in the
// returned error.
func (c Config) FromEnv() (Config, error) {
	// env caches the environment on first use
	env.Load()

	var errs []error
	if env.Has(EnvTapeSize) {
		n, err := envInt(EnvTapeSize)
		if err != nil {
			errs = append(errs, err)
		} else {
			c.TapeSize = n
		}
	}
	if env.Has(EnvMaxSteps) {
		n, err := envInt(EnvMaxSteps)
		if err != nil {
			errs = append(errs, err)
		} else {
			c.MaxSteps = n
		}
	}
	if env.Has(EnvDebug) {
		c.Debug = env.Bool(EnvDebug)
	}
	return c, errors.Join(errs...)
}

func envInt(name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(env.Str(name)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return n, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.TapeSize < 1 {
		errs = append(errs, fmt.Errorf("tape size must be positive, got %d", c.TapeSize))
	}
	if c.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("max steps must not be negative, got %d", c.MaxSteps))
	}
	return errors.Join(errs...)
}

// Options converts the configuration into execution options.
func (c Config) Options() []bf.Option {
	return []bf.Option{
		bf.WithTapeSize(c.TapeSize),
		bf.WithMaxSteps(uint64(max(c.MaxSteps, 0))),
	}
}
