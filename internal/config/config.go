// Package config handles configuration loading for Ponder. It supports XDG
// config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Ponder.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Personas  PersonasConfig  `mapstructure:"personas"`
	TUI       TUIConfig       `mapstructure:"tui"`
	Usage     UsageConfig     `mapstructure:"usage"`
}

// AnthropicConfig holds completion backend settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. ${VAR} references are expanded.
	APIKey string `mapstructure:"api_key"`
	// UseBedrock routes requests through AWS Bedrock instead of the
	// Anthropic API.
	UseBedrock bool `mapstructure:"use_bedrock"`
	// Model is the model id used for every reasoning request.
	Model string `mapstructure:"model"`
}

// EngineConfig holds reasoning-engine tunables.
type EngineConfig struct {
	// MaxDepth is the decomposition tree's recursion budget.
	MaxDepth int `mapstructure:"max_depth"`
	// ForceDeep always selects the decomposition tree, skipping the
	// complexity classifier.
	ForceDeep bool `mapstructure:"force_deep"`
	// CritiqueBatchSize is the degraded-mode critique concurrency.
	CritiqueBatchSize int `mapstructure:"critique_batch_size"`
	// CritiqueCooldown is the pause between degraded-mode batches.
	CritiqueCooldown time.Duration `mapstructure:"critique_cooldown"`
}

// PersonasConfig holds persona registry settings.
type PersonasConfig struct {
	// Dir is the directory scanned for persona YAML files.
	Dir string `mapstructure:"dir"`
	// Default is the persona used when a query names none.
	Default string `mapstructure:"default"`
	// Watch reloads personas when files under Dir change.
	Watch bool `mapstructure:"watch"`
}

// TUIConfig holds progress display settings.
type TUIConfig struct {
	// Enabled shows the live tree view while a session runs.
	Enabled bool `mapstructure:"enabled"`
	// RefreshRate is the render interval.
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// UsageConfig holds token ledger settings.
type UsageConfig struct {
	// Enabled records one ledger row per completion request.
	Enabled bool `mapstructure:"enabled"`
	// Path overrides the default ledger location.
	Path string `mapstructure:"path"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.ponder.yaml in current directory or a parent)
// 3. User config (~/.config/ponder/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	if cfg.Personas.Dir == "" {
		cfg.Personas.Dir = filepath.Join(userConfigDir, "personas")
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("engine.max_depth", cfg.Engine.MaxDepth)
	v.Set("engine.force_deep", cfg.Engine.ForceDeep)
	v.Set("engine.critique_batch_size", cfg.Engine.CritiqueBatchSize)
	v.Set("engine.critique_cooldown", cfg.Engine.CritiqueCooldown.String())
	v.Set("personas.dir", cfg.Personas.Dir)
	v.Set("personas.default", cfg.Personas.Default)
	v.Set("personas.watch", cfg.Personas.Watch)
	v.Set("tui.enabled", cfg.TUI.Enabled)
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())
	v.Set("usage.enabled", cfg.Usage.Enabled)
	v.Set("usage.path", cfg.Usage.Path)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if one
// exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")

	v.SetDefault("engine.max_depth", 3)
	v.SetDefault("engine.force_deep", false)
	v.SetDefault("engine.critique_batch_size", 3)
	v.SetDefault("engine.critique_cooldown", "1500ms")

	v.SetDefault("personas.dir", "")
	v.SetDefault("personas.default", "general")
	v.SetDefault("personas.watch", false)

	v.SetDefault("tui.enabled", true)
	v.SetDefault("tui.refresh_rate", "100ms")

	v.SetDefault("usage.enabled", true)
	v.SetDefault("usage.path", "")
}

// getUserConfigDir returns the XDG config directory for Ponder.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ponder")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "ponder")
	}
	return filepath.Join(home, ".config", "ponder")
}

// findProjectConfig searches for .ponder.yaml in the current directory and
// its parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".ponder.yaml")
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

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},
		Engine: EngineConfig{
			MaxDepth:          3,
			CritiqueBatchSize: 3,
			CritiqueCooldown:  1500 * time.Millisecond,
		},
		Personas: PersonasConfig{
			Default: "general",
		},
		TUI: TUIConfig{
			Enabled:     true,
			RefreshRate: 100 * time.Millisecond,
		},
		Usage: UsageConfig{
			Enabled: true,
		},
	}
}
