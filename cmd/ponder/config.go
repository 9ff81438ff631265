package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ponderhq/ponder/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Ponder configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/ponder/config.yaml
Project-specific overrides can be placed in .ponder.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("engine.max_depth: %d\n", cfg.Engine.MaxDepth)
	fmt.Printf("engine.force_deep: %t\n", cfg.Engine.ForceDeep)
	fmt.Printf("engine.critique_batch_size: %d\n", cfg.Engine.CritiqueBatchSize)
	fmt.Printf("engine.critique_cooldown: %s\n", cfg.Engine.CritiqueCooldown)
	fmt.Printf("personas.dir: %s\n", cfg.Personas.Dir)
	fmt.Printf("personas.default: %s\n", cfg.Personas.Default)
	fmt.Printf("personas.watch: %t\n", cfg.Personas.Watch)
	fmt.Printf("tui.enabled: %t\n", cfg.TUI.Enabled)
	fmt.Printf("tui.refresh_rate: %s\n", cfg.TUI.RefreshRate)
	fmt.Printf("usage.enabled: %t\n", cfg.Usage.Enabled)
	fmt.Printf("usage.path: %s\n", cfg.Usage.Path)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "engine.max_depth":
		return strconv.Itoa(cfg.Engine.MaxDepth), nil
	case "engine.force_deep":
		return strconv.FormatBool(cfg.Engine.ForceDeep), nil
	case "engine.critique_batch_size":
		return strconv.Itoa(cfg.Engine.CritiqueBatchSize), nil
	case "engine.critique_cooldown":
		return cfg.Engine.CritiqueCooldown.String(), nil
	case "personas.dir":
		return cfg.Personas.Dir, nil
	case "personas.default":
		return cfg.Personas.Default, nil
	case "personas.watch":
		return strconv.FormatBool(cfg.Personas.Watch), nil
	case "tui.enabled":
		return strconv.FormatBool(cfg.TUI.Enabled), nil
	case "tui.refresh_rate":
		return cfg.TUI.RefreshRate.String(), nil
	case "usage.enabled":
		return strconv.FormatBool(cfg.Usage.Enabled), nil
	case "usage.path":
		return cfg.Usage.Path, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for use_bedrock: %w", err)
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "engine.max_depth":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_depth: %w", err)
		}
		if n < 1 {
			return fmt.Errorf("max_depth must be at least 1")
		}
		cfg.Engine.MaxDepth = n
	case "engine.force_deep":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for force_deep: %w", err)
		}
		cfg.Engine.ForceDeep = b
	case "engine.critique_batch_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for critique_batch_size: %w", err)
		}
		cfg.Engine.CritiqueBatchSize = n
	case "engine.critique_cooldown":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for critique_cooldown: %w", err)
		}
		cfg.Engine.CritiqueCooldown = d
	case "personas.dir":
		cfg.Personas.Dir = value
	case "personas.default":
		cfg.Personas.Default = value
	case "personas.watch":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for personas.watch: %w", err)
		}
		cfg.Personas.Watch = b
	case "tui.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for tui.enabled: %w", err)
		}
		cfg.TUI.Enabled = b
	case "tui.refresh_rate":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for refresh_rate: %w", err)
		}
		cfg.TUI.RefreshRate = d
	case "usage.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for usage.enabled: %w", err)
		}
		cfg.Usage.Enabled = b
	case "usage.path":
		cfg.Usage.Path = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
