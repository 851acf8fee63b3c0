package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/kriansa/fuse-abort/internal/validation"
)

const (
	// DefaultConfigPath is the default location for the config file
	DefaultConfigPath = "/etc/fuse-abort.conf"
	// DefaultControlDir is where the fusectl control filesystem is expected
	DefaultControlDir = "/sys/fs/fuse/connections"
	// DefaultMountInfoPath is the default mount table location
	DefaultMountInfoPath = "/proc/self/mountinfo"
)

// Config holds the tool configuration
type Config struct {
	// ControlDir is the directory where the fusectl filesystem is mounted
	ControlDir string `toml:"control_dir"`
	// MountInfoPath is the mount table to scan for FUSE mounts
	MountInfoPath string `toml:"mountinfo"`
}

// Load loads configuration from a TOML file
// Returns an empty config if the file doesn't exist
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

// Merge merges CLI flags into the config, with CLI flags taking precedence
// over config file values. Empty CLI values are ignored.
func (c *Config) Merge(controlDir, mountInfoPath string) {
	if controlDir != "" {
		c.ControlDir = controlDir
	}
	if mountInfoPath != "" {
		c.MountInfoPath = mountInfoPath
	}
}

// ApplyDefaults applies default values for any unset fields
func (c *Config) ApplyDefaults() {
	if c.ControlDir == "" {
		c.ControlDir = DefaultControlDir
	}
	if c.MountInfoPath == "" {
		c.MountInfoPath = DefaultMountInfoPath
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validation.ValidateAbsolutePath("control_dir", c.ControlDir); err != nil {
		return err
	}

	return validation.ValidateAbsolutePath("mountinfo", c.MountInfoPath)
}
