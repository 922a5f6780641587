// Package config provides configuration management for the text2cal
// application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the text2cal application.
// Configuration precedence: CLI flags > Environment variables > Config file > Defaults
type Config struct {
	// SettingsFile is the path to the persisted settings store (credentials,
	// method selections, cached model lists)
	SettingsFile string

	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string

	// LogFormat selects console or json log output
	LogFormat string

	// HTTPTimeout bounds every provider API call
	HTTPTimeout time.Duration

	// DevicePixelRatio scales selection rectangles before cropping
	DevicePixelRatio float64

	// Endpoints holds per-vendor base URL overrides, primarily for tests
	// and proxies
	Endpoints EndpointConfig

	// Keys holds API keys loaded from the environment. Keys set here are
	// written into the settings store at startup; the store stays the
	// single source of truth afterwards.
	Keys KeyConfig
}

// EndpointConfig holds base URL overrides for the provider APIs. Empty
// values mean the vendor default.
type EndpointConfig struct {
	OpenAI       string
	Gemini       string
	Claude       string
	GoogleVision string

	// GeminiDocsURL is the documentation page scraped for Gemini model
	// names
	GeminiDocsURL string
}

// KeyConfig holds API keys sourced from environment variables:
//   - OPENAI_API_KEY for OpenAI
//   - GEMINI_API_KEY for Gemini
//   - ANTHROPIC_API_KEY for Claude
//   - GOOGLE_VISION_API_KEY for Google Cloud Vision
type KeyConfig struct {
	OpenAI       string
	Gemini       string
	Claude       string
	GoogleVision string
}

// Load reads configuration from multiple sources and returns a Config
// instance. Sources are checked in this order: CLI flags > env vars >
// config file > defaults
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigName(".text2cal")
			v.SetConfigType("yaml")
		}
	}

	// Config file not found is OK - we'll use env vars and defaults
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("TEXT2CAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	config := &Config{
		SettingsFile:     v.GetString("settings-file"),
		LogLevel:         v.GetString("log-level"),
		LogFormat:        v.GetString("log-format"),
		HTTPTimeout:      v.GetDuration("http-timeout"),
		DevicePixelRatio: v.GetFloat64("device-pixel-ratio"),
		Endpoints: EndpointConfig{
			OpenAI:        v.GetString("openai-endpoint"),
			Gemini:        v.GetString("gemini-endpoint"),
			Claude:        v.GetString("claude-endpoint"),
			GoogleVision:  v.GetString("google-vision-endpoint"),
			GeminiDocsURL: v.GetString("gemini-docs-url"),
		},
		Keys: KeyConfig{
			OpenAI:       os.Getenv("OPENAI_API_KEY"),
			Gemini:       os.Getenv("GEMINI_API_KEY"),
			Claude:       os.Getenv("ANTHROPIC_API_KEY"),
			GoogleVision: os.Getenv("GOOGLE_VISION_API_KEY"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	v.SetDefault("settings-file", filepath.Join(home, ".text2cal-settings.json"))
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")
	v.SetDefault("http-timeout", 60*time.Second)
	v.SetDefault("device-pixel-ratio", 1.0)
	v.SetDefault("openai-endpoint", "")
	v.SetDefault("gemini-endpoint", "")
	v.SetDefault("claude-endpoint", "")
	v.SetDefault("google-vision-endpoint", "")
	v.SetDefault("gemini-docs-url", "")
}

// Validate checks that the configuration is valid and internally consistent
func (c *Config) Validate() error {
	if c.SettingsFile == "" {
		return fmt.Errorf("settings-file cannot be empty")
	}

	// Expand home directory in the settings file path
	if strings.HasPrefix(c.SettingsFile, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to expand home directory in settings-file: %w", err)
		}
		c.SettingsFile = filepath.Join(home, c.SettingsFile[2:])
	}

	settingsDir := filepath.Dir(c.SettingsFile)
	if err := os.MkdirAll(settingsDir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory %s: %w", settingsDir, err)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log-level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	c.LogFormat = strings.ToLower(c.LogFormat)
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log-format %q, must be console or json", c.LogFormat)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http-timeout must be positive, got %s", c.HTTPTimeout)
	}

	if c.DevicePixelRatio <= 0 {
		return fmt.Errorf("device-pixel-ratio must be positive, got %f", c.DevicePixelRatio)
	}

	return nil
}

// String returns a string representation of the configuration (with
// sensitive data redacted)
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  SettingsFile: %s
  LogLevel: %s
  LogFormat: %s
  HTTPTimeout: %s
  DevicePixelRatio: %.2f
  Endpoints:
    OpenAI: %s
    Gemini: %s
    Claude: %s
    GoogleVision: %s
    GeminiDocsURL: %s
  Keys:
    OpenAI: %s
    Gemini: %s
    Claude: %s
    GoogleVision: %s`,
		c.SettingsFile,
		c.LogLevel,
		c.LogFormat,
		c.HTTPTimeout,
		c.DevicePixelRatio,
		orDefault(c.Endpoints.OpenAI),
		orDefault(c.Endpoints.Gemini),
		orDefault(c.Endpoints.Claude),
		orDefault(c.Endpoints.GoogleVision),
		orDefault(c.Endpoints.GeminiDocsURL),
		redactKey(c.Keys.OpenAI),
		redactKey(c.Keys.Gemini),
		redactKey(c.Keys.Claude),
		redactKey(c.Keys.GoogleVision),
	)
}

func orDefault(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}

func redactKey(key string) string {
	if key == "" {
		return "not set"
	}
	if len(key) > 8 {
		return "***" + key[len(key)-4:]
	}
	return "***"
}
