package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/sergev/td0scan/cpm"
)

//go:embed td0scan.toml
var defaultConfigData []byte

// Config represents the entire TOML configuration structure
type Config struct {
	Threshold float64     `toml:"threshold"`
	Workers   int         `toml:"workers"`
	Verbose   bool        `toml:"verbose"`
	Candidate []Candidate `toml:"candidate"`

	Path string `toml:"-"` // file the configuration was read from
}

// Candidate represents one CP/M directory layout
type Candidate struct {
	Name           string `toml:"name"`
	Offset         int    `toml:"offset"`
	ReservedTracks int    `toml:"reserved_tracks"`
	Entries        int    `toml:"entries"`
	BlockSize      int    `toml:"block_size"`
}

// configPath determines the config file path based on the operating system
func configPath() (string, error) {
	var configDir string
	var err error

	switch runtime.GOOS {
	case "windows":
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "td0scan")
	default:
		configDir, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user home directory: %w", err)
		}
	}

	return filepath.Join(configDir, ".td0scan"), nil
}

// Default returns the built-in configuration
func Default() *Config {
	conf, _, err := decode(defaultConfigData)
	if err == nil {
		err = conf.Validate()
	}
	if err != nil {
		panic("invalid embedded configuration: " + err.Error())
	}
	return conf
}

// Load reads and validates the configuration file at path.
// An empty path selects ~/.td0scan, which is created from the embedded
// default if it doesn't exist.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = configPath()
		if err != nil {
			return nil, err
		}
		if err := writeDefault(path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	conf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	conf.Path = path
	return conf, nil
}

// writeDefault creates the config file from the embedded default if it is missing
func writeDefault(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	if err := os.WriteFile(path, defaultConfigData, 0644); err != nil {
		return fmt.Errorf("failed to create default config file at %s: %w", path, err)
	}
	return nil
}

// Parse decodes and validates TOML configuration data.
// A missing threshold or missing [[candidate]] tables take the built-in defaults.
func Parse(data []byte) (*Config, error) {
	conf, md, err := decode(data)
	if err != nil {
		return nil, err
	}
	if !md.IsDefined("threshold") || !md.IsDefined("candidate") {
		def := Default()
		if !md.IsDefined("threshold") {
			conf.Threshold = def.Threshold
		}
		if !md.IsDefined("candidate") {
			conf.Candidate = def.Candidate
		}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// decode reads TOML data, rejecting keys the configuration doesn't have
func decode(data []byte) (*Config, toml.MetaData, error) {
	var conf Config
	md, err := toml.Decode(string(data), &conf)
	if err != nil {
		return nil, md, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, md, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return &conf, md, nil
}

// Validate checks value ranges and every candidate
func (c *Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("invalid threshold: %g (must be in (0, 1])", c.Threshold)
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid workers: %d (must not be negative)", c.Workers)
	}
	if len(c.Candidate) == 0 {
		return errors.New("no [[candidate]] tables in config")
	}
	names := make(map[string]bool)
	for _, cand := range c.Candidates() {
		if err := cand.Validate(); err != nil {
			return err
		}
		if names[cand.Name] {
			return fmt.Errorf("candidate %q listed twice", cand.Name)
		}
		names[cand.Name] = true
	}
	return nil
}

// Candidates converts the configured layouts for the directory locator
func (c *Config) Candidates() []cpm.Candidate {
	out := make([]cpm.Candidate, len(c.Candidate))
	for i, cand := range c.Candidate {
		out[i] = cpm.Candidate{
			Name:           cand.Name,
			Offset:         cand.Offset,
			ReservedTracks: cand.ReservedTracks,
			Entries:        cand.Entries,
			BlockSize:      cand.BlockSize,
		}
	}
	return out
}

// WorkerCount returns the number of scan workers, resolving 0 to the CPU count
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
