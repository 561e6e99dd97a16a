package shim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MarcinKonowalczyk/bfvm/config"
	"github.com/containerd/errdefs"
)

const configFilename = "config.json"

// The subset of the OCI runtime spec the shim reads from a bundle.
type ociRoot struct {
	Path string `json:"path"`
}

type ociProcess struct {
	Args []string `json:"args"`
	Env  []string `json:"env"`
}

type ociConfig struct {
	Root    ociRoot    `json:"root"`
	Process ociProcess `json:"process"`
}

// Config describes the brainfuck program a bundle runs.
type Config struct {
	// Root is the path to the rootfs
	Root string
	// Entrypoint is the .bf file, relative to Root
	Entrypoint string
	// Input is the optional input line, the second CMD argument
	Input    string
	HasInput bool
	// Env holds the BF_* configuration variables of the process
	Env []string
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errdefs.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// ReadConfig reads and validates the config.json of the bundle at path.
func ReadConfig(path string) (*Config, error) {
	filePath := filepath.Join(path, configFilename)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file %s not found: %w", configFilename, errdefs.ErrNotFound)
		}
		return nil, err
	}

	var oci ociConfig
	if err := json.Unmarshal(data, &oci); err != nil {
		return nil, invalidf("parsing %s: %v", configFilename, err)
	}

	if oci.Root.Path == "" {
		return nil, invalidf("root path not found in config file %s", configFilename)
	}

	args := oci.Process.Args
	if len(args) < 1 || len(args) > 2 {
		return nil, invalidf("incorrect number of args in the CMD. Expected 1 or 2, got %d", len(args))
	}

	entrypoint := args[0]
	if ext := filepath.Ext(entrypoint); ext != ".bf" && ext != ".brainfuck" {
		return nil, invalidf("entry point (%s) is not a .bf file", entrypoint)
	}

	script := filepath.Join(oci.Root.Path, entrypoint)
	if _, err := os.Stat(script); err != nil {
		if os.IsNotExist(err) {
			return nil, invalidf("script %s does not exist", entrypoint)
		}
		return nil, fmt.Errorf("checking script %s: %w", entrypoint, err)
	}

	c := &Config{
		Root:       oci.Root.Path,
		Entrypoint: entrypoint,
	}
	if len(args) == 2 {
		c.Input = args[1]
		c.HasInput = true
	}
	for _, env := range oci.Process.Env {
		if strings.HasPrefix(env, config.EnvPrefix) {
			c.Env = append(c.Env, env)
		}
	}

	return c, nil
}

func (c *Config) FullPath() string {
	return filepath.Join(c.Root, c.Entrypoint)
}

// Args is the command line that runs the program through the shim binary
// at self.
func (c *Config) Args(self string) []string {
	args := []string{self, BrainfuckArg, c.FullPath()}
	if c.HasInput {
		args = append(args, c.Input)
	}
	return args
}
