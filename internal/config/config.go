// Package config handles configuration loading and management for recurse.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProjectFile is the per-project override file, searched from the working
// directory upward.
const ProjectFile = ".recurse.yaml"

// EnvPrefix prefixes environment overrides, e.g. RECURSE_STATE_BACKEND.
const EnvPrefix = "RECURSE"

// Store backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

var (
	// ErrUnknownKey is returned for keys that have no default.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrInvalidValue is returned when a value cannot be used for its key.
	ErrInvalidValue = errors.New("invalid config value")
)

// Config holds all configuration for recurse.
type Config struct {
	Defaults DefaultsConfig `mapstructure:"defaults" yaml:"defaults"`
	State    StateConfig    `mapstructure:"state" yaml:"state"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Viewer   ViewerConfig   `mapstructure:"viewer" yaml:"viewer"`
	TUI      TUIConfig      `mapstructure:"tui" yaml:"tui"`
}

// DefaultsConfig holds the limits used by init when no flag is given.
type DefaultsConfig struct {
	MaxDepth   int `mapstructure:"max_depth" yaml:"max_depth"`
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// StateConfig locates and selects the store.
type StateConfig struct {
	// Dir is the state directory, relative to the working directory unless absolute.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// Backend is "json" or "sqlite".
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Markdown enables the task_registry.md projection.
	Markdown bool `mapstructure:"markdown" yaml:"markdown"`
	// LockTimeout bounds how long a JSON store write waits for the file lock.
	LockTimeout time.Duration `mapstructure:"lock_timeout" yaml:"lock_timeout"`
}

// LogConfig holds debug logging settings.
type LogConfig struct {
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// ViewerConfig holds HTML viewer settings.
type ViewerConfig struct {
	// Output is the viewer file name, placed in the state directory when relative.
	Output string `mapstructure:"output" yaml:"output"`
}

// TUIConfig holds TUI display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate" yaml:"refresh_rate"`
}

// defaults lists every known key with its built-in value.
var defaults = map[string]any{
	"defaults.max_depth":   5,
	"defaults.max_retries": 3,
	"state.dir":            ".agent/recursive-refactor",
	"state.backend":        BackendJSON,
	"state.markdown":       true,
	"state.lock_timeout":   "5s",
	"log.debug":            false,
	"viewer.output":        "viewer.html",
	"tui.refresh_rate":     "250ms",
}

// durationKeys are parsed with time.ParseDuration by Set.
var durationKeys = map[string]bool{
	"state.lock_timeout": true,
	"tui.refresh_rate":   true,
}

// Keys returns every known configuration key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (RECURSE_STATE_DIR, RECURSE_LOG_DEBUG, ...)
// 2. Project config (.recurse.yaml in current directory or parent)
// 3. User config (~/.config/recurse/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v, err := load()
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// Get returns the effective value of a single key.
func Get(key string) (any, error) {
	if _, ok := defaults[key]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	v, err := load()
	if err != nil {
		return nil, err
	}
	return v.Get(key), nil
}

// Effective returns the value of every known key after all layers apply.
func Effective() (map[string]any, error) {
	v, err := load()
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, len(defaults))
	for k := range defaults {
		values[k] = v.Get(k)
	}
	return values, nil
}

func load() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	applyEnv(v)
	return v, nil
}

// LoadFromPath loads configuration from a single file in place of the user
// and project files. Defaults and environment variables still apply.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	applyEnv(v)
	return decode(v)
}

func applyEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.State.Dir = os.ExpandEnv(cfg.State.Dir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that the store and orchestrator cannot accept.
func (c *Config) Validate() error {
	switch c.State.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("%w: state.backend %q (want %s or %s)", ErrInvalidValue, c.State.Backend, BackendJSON, BackendSQLite)
	}
	if c.Defaults.MaxDepth < 0 {
		return fmt.Errorf("%w: defaults.max_depth must be >= 0", ErrInvalidValue)
	}
	if c.Defaults.MaxRetries < 0 {
		return fmt.Errorf("%w: defaults.max_retries must be >= 0", ErrInvalidValue)
	}
	if c.State.Dir == "" {
		return fmt.Errorf("%w: state.dir is empty", ErrInvalidValue)
	}
	if c.State.LockTimeout <= 0 {
		return fmt.Errorf("%w: state.lock_timeout must be > 0", ErrInvalidValue)
	}
	return nil
}

// Set stores a single key in the config file at path, keeping the keys
// already there. The raw value is parsed according to the key's type.
func Set(path, key, raw string) error {
	def, ok := defaults[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	value, err := parseValue(key, def, raw)
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %v", ErrInvalidValue, key, raw, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}
	v.Set(key, value)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return v.WriteConfigAs(path)
}

func parseValue(key string, def any, raw string) (any, error) {
	switch def.(type) {
	case int:
		return strconv.Atoi(raw)
	case bool:
		return strconv.ParseBool(raw)
	}
	if durationKeys[key] {
		if _, err := time.ParseDuration(raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// getUserConfigDir returns the XDG config directory for recurse.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "recurse")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "recurse")
	}
	return filepath.Join(home, ".config", "recurse")
}

// findProjectConfig searches for .recurse.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// ViewerPath resolves the viewer output against the state directory.
func (c *Config) ViewerPath() string {
	if filepath.IsAbs(c.Viewer.Output) {
		return c.Viewer.Output
	}
	return filepath.Join(c.State.Dir, c.Viewer.Output)
}
