package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SettingsFile != filepath.Join(tmpDir, ".text2cal-settings.json") {
		t.Errorf("SettingsFile = %q", cfg.SettingsFile)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.LogFormat != "console" {
		t.Errorf("LogFormat = %q, want console", cfg.LogFormat)
	}
	if cfg.HTTPTimeout != 60*time.Second {
		t.Errorf("HTTPTimeout = %s, want 60s", cfg.HTTPTimeout)
	}
	if cfg.DevicePixelRatio != 1.0 {
		t.Errorf("DevicePixelRatio = %f, want 1.0", cfg.DevicePixelRatio)
	}
	if cfg.Endpoints.OpenAI != "" {
		t.Errorf("Endpoints.OpenAI = %q, want empty", cfg.Endpoints.OpenAI)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	configFile := filepath.Join(tmpDir, "config.yaml")
	content := `log-level: debug
log-format: json
http-timeout: 30s
device-pixel-ratio: 2.0
openai-endpoint: http://localhost:9999/v1
`
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %s, want 30s", cfg.HTTPTimeout)
	}
	if cfg.DevicePixelRatio != 2.0 {
		t.Errorf("DevicePixelRatio = %f, want 2.0", cfg.DevicePixelRatio)
	}
	if cfg.Endpoints.OpenAI != "http://localhost:9999/v1" {
		t.Errorf("Endpoints.OpenAI = %q", cfg.Endpoints.OpenAI)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	if _, err := Load(filepath.Join(tmpDir, "no-such-file.yaml")); err == nil {
		t.Error("expected an error for an explicitly named missing file")
	}
}

func TestLoad_EnvironmentKeys(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("GEMINI_API_KEY", "AIza-from-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Keys.OpenAI != "sk-from-env" {
		t.Errorf("Keys.OpenAI = %q", cfg.Keys.OpenAI)
	}
	if cfg.Keys.Gemini != "AIza-from-env" {
		t.Errorf("Keys.Gemini = %q", cfg.Keys.Gemini)
	}
	if cfg.Keys.Claude != "" {
		t.Errorf("Keys.Claude = %q, want empty", cfg.Keys.Claude)
	}
}

func TestValidate(t *testing.T) {
	tmpDir := t.TempDir()

	valid := func() *Config {
		return &Config{
			SettingsFile:     filepath.Join(tmpDir, "settings.json"),
			LogLevel:         "info",
			LogFormat:        "console",
			HTTPTimeout:      time.Minute,
			DevicePixelRatio: 1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"uppercase log level", func(c *Config) { c.LogLevel = "DEBUG" }, false},
		{"empty settings file", func(c *Config) { c.SettingsFile = "" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }, true},
		{"negative pixel ratio", func(c *Config) { c.DevicePixelRatio = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ExpandsHome(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	cfg := &Config{
		SettingsFile:     "~/nested/settings.json",
		LogLevel:         "info",
		LogFormat:        "console",
		HTTPTimeout:      time.Minute,
		DevicePixelRatio: 1,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.SettingsFile != filepath.Join(tmpDir, "nested", "settings.json") {
		t.Errorf("SettingsFile = %q", cfg.SettingsFile)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "nested")); err != nil {
		t.Errorf("settings directory was not created: %v", err)
	}
}

func TestString_RedactsKeys(t *testing.T) {
	cfg := &Config{
		SettingsFile:     "/tmp/settings.json",
		LogLevel:         "info",
		LogFormat:        "console",
		HTTPTimeout:      time.Minute,
		DevicePixelRatio: 1,
		Keys: KeyConfig{
			OpenAI: "sk-proj-verysecretvalue1234",
			Claude: "short",
		},
	}

	out := cfg.String()
	if strings.Contains(out, "verysecret") {
		t.Errorf("String() leaks a key: %s", out)
	}
	if !strings.Contains(out, "***1234") {
		t.Errorf("expected a redacted key suffix, got: %s", out)
	}
	if !strings.Contains(out, "not set") {
		t.Errorf("expected unset keys to read as not set, got: %s", out)
	}
}
