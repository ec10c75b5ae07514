package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is a termhost daemon's YAML configuration (spec.md §4.6's
// host options, plus the ambient settings a real deployment needs).
type Config struct {
	// SocketPath is the Unix domain socket a termhostd listens on.
	// Empty disables this transport.
	SocketPath string `yaml:"socket_path"`

	// Listen is an optional "host:port" address to serve the attach
	// protocol over WebSocket. Empty disables this transport.
	Listen string `yaml:"listen,omitempty"`

	MaxSessions     int           `yaml:"max_sessions"`
	BufferSizeBytes int           `yaml:"buffer_size_bytes"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ReaperInterval  time.Duration `yaml:"reaper_interval"`
	DefaultCols     uint16        `yaml:"default_cols"`
	DefaultRows     uint16        `yaml:"default_rows"`
}

// ConfigDir returns the termhost configuration directory (~/.termhost/).
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".termhost")
	}
	return filepath.Join(home, ".termhost")
}

// Load reads the termhost config from ~/.termhost/config.yaml.
// If the file does not exist, it returns a Config populated with
// defaults and no error.
func Load() (*Config, error) {
	return LoadFrom(filepath.Join(ConfigDir(), "config.yaml"))
}

// LoadFrom reads the termhost config from the given path. If the file
// does not exist, it returns a Config populated with defaults and no
// error.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with the daemon's built-in defaults: a
// Unix socket at ~/.termhost/termhost.sock, no WebSocket listener, and
// the limits internal/termhost itself falls back to when given a zero
// Options value.
func Default() *Config {
	return &Config{
		SocketPath:      filepath.Join(ConfigDir(), "termhost.sock"),
		MaxSessions:     100,
		BufferSizeBytes: 64 * 1024,
		IdleTimeout:     0,
		ReaperInterval:  time.Minute,
		DefaultCols:     80,
		DefaultRows:     24,
	}
}

func (c *Config) validate() error {
	if c.SocketPath == "" && c.Listen == "" {
		return fmt.Errorf("config: at least one of socket_path or listen must be set")
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("config: max_sessions must be >= 0")
	}
	if c.BufferSizeBytes < 0 {
		return fmt.Errorf("config: buffer_size_bytes must be >= 0")
	}
	if c.ReaperInterval < 0 {
		return fmt.Errorf("config: reaper_interval must be >= 0")
	}
	return nil
}
