// Package config loads daemon and client settings from a TOML file,
// environment overrides, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Storage backends for the timer record.
const (
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Environment overrides.
const (
	EnvSocket       = "TOMATO_SOCKET"
	EnvStateBackend = "TOMATO_STATE_BACKEND"
	EnvStatePath    = "TOMATO_STATE_PATH"
	EnvChime        = "TOMATO_CHIME"
)

const (
	defaultConfigPath   = "~/.config/tomato/config.toml"
	defaultDataDir      = "~/.local/share/tomato"
	defaultTickInterval = time.Second
	maxTickInterval     = time.Second
	defaultChimeVolume  = 0.6
)

// Config holds everything tomatod and tomato read at startup.
type Config struct {
	SocketPath   string
	StateBackend string
	StatePath    string
	TickInterval time.Duration
	Chime        bool
	ChimeVolume  float64
	LogLevel     string
	LogFile      string
}

// Default returns the configuration used when no file exists.
func Default() Config {
	dataDir := mustExpand(defaultDataDir)
	return Config{
		SocketPath:   defaultSocketPath(),
		StateBackend: BackendYAML,
		StatePath:    filepath.Join(dataDir, "state.yaml"),
		TickInterval: defaultTickInterval,
		Chime:        true,
		ChimeVolume:  defaultChimeVolume,
		LogLevel:     "normal",
		LogFile:      filepath.Join(dataDir, "tomatod.log"),
	}
}

// Load locates and parses the config file, falling back to defaults when
// missing, then applies environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		if err := cfg.parse(file); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) parse(r io.Reader) error {
	bytes, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		SocketPath   string   `toml:"socket_path"`
		StateBackend string   `toml:"state_backend"`
		StatePath    string   `toml:"state_path"`
		TickInterval string   `toml:"tick_interval"`
		Chime        *bool    `toml:"chime"`
		ChimeVolume  *float64 `toml:"chime_volume"`
		LogLevel     string   `toml:"log_level"`
		LogFile      string   `toml:"log_file"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.SocketPath); v != "" {
		c.SocketPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.StateBackend); v != "" {
		c.SetBackend(v)
	}
	if v := strings.TrimSpace(raw.StatePath); v != "" {
		c.StatePath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.TickInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse config: tick_interval: %w", err)
		}
		c.TickInterval = d
	}
	if raw.Chime != nil {
		c.Chime = *raw.Chime
	}
	if raw.ChimeVolume != nil {
		c.ChimeVolume = *raw.ChimeVolume
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		c.LogFile = v
		if v != "stderr" {
			c.LogFile = mustExpand(v)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvSocket)); v != "" {
		c.SocketPath = mustExpand(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStateBackend)); v != "" {
		c.SetBackend(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStatePath)); v != "" {
		c.StatePath = mustExpand(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvChime)); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvChime, err)
		}
		c.Chime = on
	}
	return nil
}

// SetBackend switches backend and, if the state path is still the previous
// backend's default, moves it to the new backend's default file name.
func (c *Config) SetBackend(backend string) {
	backend = strings.ToLower(backend)
	if c.StatePath == defaultStatePath(c.StateBackend) {
		c.StatePath = defaultStatePath(backend)
	}
	c.StateBackend = backend
}

// Validate reports settings the daemon cannot run with.
func (c Config) Validate() error {
	switch c.StateBackend {
	case BackendYAML, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown state_backend %q (want yaml, sqlite or memory)", c.StateBackend)
	}
	if c.TickInterval <= 0 || c.TickInterval > maxTickInterval {
		return fmt.Errorf("tick_interval must be in (0, %s], got %s", maxTickInterval, c.TickInterval)
	}
	if c.ChimeVolume < 0 || c.ChimeVolume > 1 {
		return fmt.Errorf("chime_volume must be between 0 and 1, got %g", c.ChimeVolume)
	}
	if strings.TrimSpace(c.SocketPath) == "" {
		return errors.New("socket_path is empty")
	}
	return nil
}

func defaultStatePath(backend string) string {
	dataDir := mustExpand(defaultDataDir)
	switch backend {
	case BackendSQLite:
		return filepath.Join(dataDir, "state.db")
	case BackendYAML:
		return filepath.Join(dataDir, "state.yaml")
	default:
		return ""
	}
}

func defaultSocketPath() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); dir != "" {
		return filepath.Join(dir, "tomato", "tomato.sock")
	}
	return filepath.Join(filepath.Dir(mustExpand(defaultConfigPath)), "tomato.sock")
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
