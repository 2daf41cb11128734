// Package config loads MeetMate configuration from YAML files with
// environment-variable fallbacks. The global file is merged first, then the
// project file overrides it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	AI       AIConfig       `yaml:"ai" mapstructure:"ai"`
	Capture  CaptureConfig  `yaml:"capture" mapstructure:"capture"`
	State    StateConfig    `yaml:"state" mapstructure:"state"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DatabaseConfig controls SQLite persistence.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// AIConfig controls the transcription/summarization collaborators.
type AIConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	Model     string `yaml:"model" mapstructure:"model"`
	TimeoutMS int    `yaml:"timeout_ms" mapstructure:"timeout_ms"`
}

// CaptureConfig controls the ffmpeg capture adapter.
type CaptureConfig struct {
	InputFormat  string `yaml:"input_format" mapstructure:"input_format"`
	SystemDevice string `yaml:"system_device" mapstructure:"system_device"`
	MicDevice    string `yaml:"mic_device" mapstructure:"mic_device"`
	WorkDir      string `yaml:"work_dir" mapstructure:"work_dir"`
}

// StateConfig controls the persisted recording-state snapshot.
type StateConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8787"},
		Database: DatabaseConfig{Path: defaultHomePath("meetmate.db")},
		AI: AIConfig{
			Model:     "gpt-4o-mini",
			TimeoutMS: 120000,
		},
		Capture: CaptureConfig{
			InputFormat:  "pulse",
			SystemDevice: "default",
		},
		State: StateConfig{Path: defaultHomePath("state.json")},
	}
}

// Load loads and merges configuration from global and project sources.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	if err == nil {
		// Global config first
		globalPath := filepath.Join(home, ".meetmate", "config.yaml")
		if err := loadFile(globalPath, cfg); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading %s: %w", globalPath, err)
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		// Project config overrides global
		projectPath := filepath.Join(cwd, ".meetmate", "config.yaml")
		if err := loadFile(projectPath, cfg); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading %s: %w", projectPath, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

func applyEnv(cfg *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.AI.APIKey == "" {
		cfg.AI.APIKey = key
	}
	if url := os.Getenv("MEETMATE_AI_BASE_URL"); url != "" {
		cfg.AI.BaseURL = url
	}
	if addr := os.Getenv("MEETMATE_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if path := os.Getenv("MEETMATE_DB"); path != "" {
		cfg.Database.Path = path
	}
}

// WriteDefault writes the default configuration to the global path, for
// first-run setup. Existing files are left alone.
func WriteDefault() (string, error) {
	path := GlobalConfigPath()
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".meetmate", "config.yaml")
}

func defaultHomePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".meetmate", name)
	}
	return filepath.Join(home, ".meetmate", name)
}
