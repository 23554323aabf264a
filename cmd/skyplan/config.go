package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/skyplan-dev/skyplan/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify skyplan configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/skyplan/config.yaml
Project-specific overrides can be placed in .skyplan.yaml`,
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
	fmt.Printf("anthropic.api_key: %s\n", maskKey(cfg.Anthropic.APIKey))
	fmt.Printf("providers.weather_api_key: %s\n", maskKey(cfg.Providers.WeatherAPIKey))
	fmt.Printf("providers.news_api_key: %s\n", maskKey(cfg.Providers.NewsAPIKey))
	fmt.Printf("engine.max_iterations: %d\n", cfg.Engine.MaxIterations)
	fmt.Printf("engine.max_concurrency: %d\n", cfg.Engine.MaxConcurrency)
	fmt.Printf("engine.step_timeout: %s\n", cfg.Engine.StepTimeout)
	fmt.Printf("engine.budget: %s\n", cfg.Engine.Budget)
	fmt.Printf("engine.fresh_context: %t\n", cfg.Engine.FreshContext)
	fmt.Printf("engine.use_model: %t\n", cfg.Engine.UseModel)
	fmt.Printf("history.enabled: %t\n", cfg.History.Enabled)
	fmt.Printf("history.path: %s\n", cfg.History.Path)
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return "****"
}

// displayConfigKey prints the value for a single key.
func displayConfigKey(cfg *config.Config, key string) {
	switch key {
	case "anthropic.api_key":
		fmt.Println(maskKey(cfg.Anthropic.APIKey))
	case "providers.weather_api_key":
		fmt.Println(maskKey(cfg.Providers.WeatherAPIKey))
	case "providers.news_api_key":
		fmt.Println(maskKey(cfg.Providers.NewsAPIKey))
	case "engine.max_iterations":
		fmt.Println(cfg.Engine.MaxIterations)
	case "engine.max_concurrency":
		fmt.Println(cfg.Engine.MaxConcurrency)
	case "engine.step_timeout":
		fmt.Println(cfg.Engine.StepTimeout)
	case "engine.budget":
		fmt.Println(cfg.Engine.Budget)
	case "engine.fresh_context":
		fmt.Println(cfg.Engine.FreshContext)
	case "engine.use_model":
		fmt.Println(cfg.Engine.UseModel)
	case "history.enabled":
		fmt.Println(cfg.History.Enabled)
	case "history.path":
		fmt.Println(cfg.History.Path)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
}

// setConfigKey updates a single configuration value and saves.
func setConfigKey(cfg *config.Config, key, value string) {
	var err error
	switch key {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "providers.weather_api_key":
		cfg.Providers.WeatherAPIKey = value
	case "providers.news_api_key":
		cfg.Providers.NewsAPIKey = value
	case "engine.max_iterations":
		cfg.Engine.MaxIterations, err = strconv.Atoi(value)
	case "engine.max_concurrency":
		cfg.Engine.MaxConcurrency, err = strconv.Atoi(value)
	case "engine.step_timeout":
		cfg.Engine.StepTimeout, err = time.ParseDuration(value)
	case "engine.budget":
		cfg.Engine.Budget, err = time.ParseDuration(value)
	case "engine.fresh_context":
		cfg.Engine.FreshContext, err = strconv.ParseBool(value)
	case "engine.use_model":
		cfg.Engine.UseModel, err = strconv.ParseBool(value)
	case "history.enabled":
		cfg.History.Enabled, err = strconv.ParseBool(value)
	case "history.path":
		cfg.History.Path = value
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid value for %s: %v\n", key, err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Set %s\n", key)
}
