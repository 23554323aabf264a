// Package config handles configuration loading and management for skyplan.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for skyplan.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Engine    EngineConfig    `mapstructure:"engine"`
	History   HistoryConfig   `mapstructure:"history"`
}

// AnthropicConfig holds Anthropic API settings for goal analysis.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// ProvidersConfig holds credentials and endpoints for data providers.
type ProvidersConfig struct {
	// WeatherAPIKey is the OpenWeatherMap API key.
	WeatherAPIKey string `mapstructure:"weather_api_key"`
	// NewsAPIKey is the NewsAPI key.
	NewsAPIKey string `mapstructure:"news_api_key"`
}

// EngineConfig holds iteration loop and execution settings.
type EngineConfig struct {
	// MaxIterations bounds the plan-execute-validate loop.
	MaxIterations int `mapstructure:"max_iterations"`
	// MaxConcurrency bounds parallel capability invocations.
	MaxConcurrency int `mapstructure:"max_concurrency"`
	// StepTimeout bounds a single capability invocation.
	StepTimeout time.Duration `mapstructure:"step_timeout"`
	// Budget bounds total wall-clock time per run. Zero means no limit.
	Budget time.Duration `mapstructure:"budget"`
	// FreshContext discards accumulated outputs between iterations.
	FreshContext bool `mapstructure:"fresh_context"`
	// UseModel enables model-backed goal analysis when an Anthropic key
	// is configured.
	UseModel bool `mapstructure:"use_model"`
}

// HistoryConfig holds run history persistence settings.
type HistoryConfig struct {
	// Enabled toggles saving reports to the local database.
	Enabled bool `mapstructure:"enabled"`
	// Path overrides the database location. Empty means the default
	// under the user data directory.
	Path string `mapstructure:"path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, OPENWEATHER_API_KEY, NEWSAPI_KEY)
// 2. Project config (.skyplan.yaml in current directory or parent)
// 3. User config (~/.config/skyplan/config.yaml)
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

	projectConfig := findProjectConfig()
	if projectConfig != "" {
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
	v.BindEnv("providers.weather_api_key", "OPENWEATHER_API_KEY")
	v.BindEnv("providers.news_api_key", "NEWSAPI_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.Providers.WeatherAPIKey = expandEnv(cfg.Providers.WeatherAPIKey)
	cfg.Providers.NewsAPIKey = expandEnv(cfg.Providers.NewsAPIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
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
	cfg.Providers.WeatherAPIKey = expandEnv(cfg.Providers.WeatherAPIKey)
	cfg.Providers.NewsAPIKey = expandEnv(cfg.Providers.NewsAPIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("providers.weather_api_key", cfg.Providers.WeatherAPIKey)
	v.Set("providers.news_api_key", cfg.Providers.NewsAPIKey)
	v.Set("engine.max_iterations", cfg.Engine.MaxIterations)
	v.Set("engine.max_concurrency", cfg.Engine.MaxConcurrency)
	v.Set("engine.step_timeout", cfg.Engine.StepTimeout.String())
	v.Set("engine.budget", cfg.Engine.Budget.String())
	v.Set("engine.fresh_context", cfg.Engine.FreshContext)
	v.Set("engine.use_model", cfg.Engine.UseModel)
	v.Set("history.enabled", cfg.History.Enabled)
	v.Set("history.path", cfg.History.Path)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// DefaultHistoryPath returns the default run history database location.
func DefaultHistoryPath() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "skyplan", "history.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".skyplan", "history.db")
	}
	return filepath.Join(home, ".local", "share", "skyplan", "history.db")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")

	v.SetDefault("providers.weather_api_key", "")
	v.SetDefault("providers.news_api_key", "")

	v.SetDefault("engine.max_iterations", 3)
	v.SetDefault("engine.max_concurrency", 4)
	v.SetDefault("engine.step_timeout", "30s")
	v.SetDefault("engine.budget", "0s")
	v.SetDefault("engine.fresh_context", false)
	v.SetDefault("engine.use_model", true)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
}

// getUserConfigDir returns the XDG config directory for skyplan.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "skyplan")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "skyplan")
	}
	return filepath.Join(home, ".config", "skyplan")
}

// findProjectConfig searches for .skyplan.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".skyplan.yaml")
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
		Engine: EngineConfig{
			MaxIterations:  3,
			MaxConcurrency: 4,
			StepTimeout:    30 * time.Second,
			UseModel:       true,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}
