// Package config provides application settings loaded from a YAML file and
// environment variables.
//
// Settings are created via New() or Load() which handle:
// - Default value application
// - Optional YAML file overlay
// - Environment variable parsing with validation (environment wins)

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds all application configuration.
type Settings struct {
	Compiler CompilerConfig `yaml:"compiler"`
	GitHub   GitHubConfig   `yaml:"github"`
	Tools    ToolsConfig    `yaml:"tools"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// CompilerConfig holds book compilation and inheritance settings.
type CompilerConfig struct {
	DefaultModel     string        `yaml:"default_model"`
	DefaultParentURL string        `yaml:"default_parent_url"`
	MaxDepth         int           `yaml:"max_depth"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
}

// GitHubConfig holds GitHub REST API settings for project tools.
type GitHubConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIVersion string        `yaml:"api_version"`
	Timeout    time.Duration `yaml:"timeout"`
	// Token is read from the environment only.
	Token string `yaml:"-"`
}

// ToolsConfig holds tool execution settings.
type ToolsConfig struct {
	TimeoutSecs     uint64        `yaml:"timeout_secs"`
	LocationTimeout time.Duration `yaml:"location_timeout"`
}

// StorageConfig selects the memory and wallet store. An empty SQLitePath
// keeps records in memory.
type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		Compiler: CompilerConfig{
			DefaultModel: "gpt-4.1",
			MaxDepth:     8,
			FetchTimeout: 10 * time.Second,
		},
		GitHub: GitHubConfig{
			BaseURL:    "https://api.github.com",
			APIVersion: "2022-11-28",
			Timeout:    30 * time.Second,
		},
		Tools: ToolsConfig{
			TimeoutSecs:     30,
			LocationTimeout: 60 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// New creates settings from defaults and environment variables.
// Returns an error if environment variables contain invalid values.
func New() (Settings, error) {
	s := Defaults()
	if err := s.applyEnv(); err != nil {
		return Settings{}, err
	}
	return s, s.Validate()
}

// Load reads a YAML settings file over the defaults, then applies the
// environment. A missing file is an error; use New when there is none.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	s := Defaults()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	if err := s.applyEnv(); err != nil {
		return Settings{}, err
	}
	return s, s.Validate()
}

// MustNew creates settings from the environment.
// Panics if environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew() Settings {
	settings, err := New()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// Validate reports settings no component can run with.
func (s Settings) Validate() error {
	var errs []error
	if s.Compiler.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("compiler max depth must be at least 1, got %d", s.Compiler.MaxDepth))
	}
	if s.Compiler.FetchTimeout <= 0 {
		errs = append(errs, errors.New("compiler fetch timeout must be positive"))
	}
	if s.GitHub.Timeout <= 0 {
		errs = append(errs, errors.New("github timeout must be positive"))
	}
	if s.Tools.LocationTimeout <= 0 {
		errs = append(errs, errors.New("location timeout must be positive"))
	}
	if _, err := s.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses the configured level name.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}
	return level, nil
}

// applyEnv overrides settings with the environment variables that are set.
func (s *Settings) applyEnv() error {
	s.Compiler.DefaultModel = getEnv("AGENTBOOK_DEFAULT_MODEL", s.Compiler.DefaultModel)
	s.Compiler.DefaultParentURL = getEnv("AGENTBOOK_DEFAULT_PARENT", s.Compiler.DefaultParentURL)
	s.GitHub.BaseURL = getEnv("GITHUB_API_URL", s.GitHub.BaseURL)
	s.GitHub.APIVersion = getEnv("GITHUB_API_VERSION", s.GitHub.APIVersion)
	s.GitHub.Token = getEnv("GITHUB_TOKEN", s.GitHub.Token)
	s.Storage.SQLitePath = getEnv("AGENTBOOK_SQLITE_PATH", s.Storage.SQLitePath)
	s.Log.Level = getEnv("AGENTBOOK_LOG_LEVEL", s.Log.Level)
	s.Log.File = getEnv("AGENTBOOK_LOG_FILE", s.Log.File)

	var err error
	if s.Compiler.MaxDepth, err = getEnvInt("AGENTBOOK_MAX_DEPTH", s.Compiler.MaxDepth); err != nil {
		return err
	}
	if s.Compiler.FetchTimeout, err = getEnvDuration("AGENTBOOK_FETCH_TIMEOUT", s.Compiler.FetchTimeout); err != nil {
		return err
	}
	if s.GitHub.Timeout, err = getEnvDuration("GITHUB_TIMEOUT", s.GitHub.Timeout); err != nil {
		return err
	}
	if s.Tools.TimeoutSecs, err = getEnvUint64("AGENTBOOK_TOOL_TIMEOUT_SECS", s.Tools.TimeoutSecs); err != nil {
		return err
	}
	if s.Tools.LocationTimeout, err = getEnvDuration("AGENTBOOK_LOCATION_TIMEOUT", s.Tools.LocationTimeout); err != nil {
		return err
	}
	return nil
}

// Environment variable helpers with proper error handling

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint64(key string, defaultVal uint64) (uint64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return d, nil
}
