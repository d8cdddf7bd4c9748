package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"ModesFile", cfg.ModesFile, ""},
		{"RequireRoot", cfg.RequireRoot, true},
		{"Color", cfg.Color, "auto"},
		{"PluginTimeoutSeconds", cfg.PluginTimeoutSeconds, 30},
		{"LogLevel", cfg.Logging.Level, "error"},
		{"LogFormat", cfg.Logging.Format, "text"},
		{"LogFile", cfg.Logging.File, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("DefaultConfig().%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	if filepath.Base(cfg.PluginDir) != "plugins" {
		t.Errorf("DefaultConfig().PluginDir = %s, want a plugins directory", cfg.PluginDir)
	}
}

func TestValidation_ValidConfig(t *testing.T) {
	cfg := DefaultConfig()
	errors := cfg.Validate()

	if len(errors) != 0 {
		t.Errorf("Validate() on default config returned errors: %v", errors)
	}
}

func TestValidation_InvalidFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"color", func(c *Config) { c.Color = "sometimes" }, "color"},
		{"zero timeout", func(c *Config) { c.PluginTimeoutSeconds = 0 }, "plugin_timeout_seconds"},
		{"huge timeout", func(c *Config) { c.PluginTimeoutSeconds = 7200 }, "plugin_timeout_seconds"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			errors := cfg.Validate()
			if len(errors) != 1 {
				t.Fatalf("Validate() = %v, want exactly one error", errors)
			}
			if errors[0].Path != tt.path {
				t.Errorf("Validate() path = %s, want %s", errors[0].Path, tt.path)
			}
		})
	}
}

func TestLoadFrom_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
modes_file: /etc/powermodes/laptop.toml
require_root: false
logging:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.ModesFile != "/etc/powermodes/laptop.toml" {
		t.Errorf("ModesFile = %s, want /etc/powermodes/laptop.toml", cfg.ModesFile)
	}
	if cfg.RequireRoot {
		t.Error("RequireRoot = true, want false")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.Logging.Level)
	}

	// Verify defaults are preserved for unspecified fields
	if cfg.Logging.Format != "text" {
		t.Errorf("LogFormat = %s, want text (default)", cfg.Logging.Format)
	}
	if cfg.PluginTimeoutSeconds != 30 {
		t.Errorf("PluginTimeoutSeconds = %d, want 30 (default)", cfg.PluginTimeoutSeconds)
	}
}

func TestLoadFrom_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("color: rainbow\n"), 0o600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadFrom(configPath)
	if err == nil || !strings.Contains(err.Error(), "color") {
		t.Errorf("LoadFrom() error = %v, want a color validation error", err)
	}
}

func TestLoadFrom_NonexistentFile(t *testing.T) {
	_, err := LoadFrom("/nonexistent/config.yaml")
	if err == nil {
		t.Error("LoadFrom() should return error for nonexistent file")
	}
}

func TestLoadFrom_MalformedYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	malformedContent := `
color: auto
  invalid_indentation: value
require_root: true
`
	if err := os.WriteFile(configPath, []byte(malformedContent), 0o600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadFrom(configPath)
	if err == nil {
		t.Error("LoadFrom() should return error for malformed YAML")
	}
}

func TestLoad_MergeOrder(t *testing.T) {
	systemDir := t.TempDir()
	homeDir := t.TempDir()
	t.Setenv("POWERMODES_CONFIG_DIR", systemDir)
	t.Setenv("HOME", homeDir)

	system := "modes_file: /etc/powermodes/modes.toml\ncolor: never\nplugin_timeout_seconds: 10\n"
	if err := os.WriteFile(filepath.Join(systemDir, "config.yaml"), []byte(system), 0o600); err != nil {
		t.Fatal(err)
	}

	userDir := filepath.Join(homeDir, ".powermodes")
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		t.Fatal(err)
	}
	user := "color: always\nlogging:\n  format: json\n"
	if err := os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte(user), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ModesFile != "/etc/powermodes/modes.toml" {
		t.Errorf("ModesFile = %s, want the system value", cfg.ModesFile)
	}
	if cfg.Color != "always" {
		t.Errorf("Color = %s, want the user value", cfg.Color)
	}
	if cfg.PluginTimeout() != 10*time.Second {
		t.Errorf("PluginTimeout() = %v, want 10s", cfg.PluginTimeout())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "error" {
		t.Errorf("Logging = %+v, want json format and the default level", cfg.Logging)
	}
	if cfg.PluginDir != filepath.Join(systemDir, "plugins") {
		t.Errorf("PluginDir = %s, want it below the config dir", cfg.PluginDir)
	}
}

func TestLoad_NoFiles(t *testing.T) {
	t.Setenv("POWERMODES_CONFIG_DIR", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("Load() = %+v, want the defaults", cfg)
	}
}

func TestSystemConfigPath(t *testing.T) {
	path := SystemConfigPath()
	if path == "" {
		t.Error("SystemConfigPath() should not return empty string")
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("SystemConfigPath() basename = %s, want config.yaml", filepath.Base(path))
	}
}

func TestUserConfigPath(t *testing.T) {
	path := UserConfigPath()
	// May be empty if home dir not available
	if path != "" && filepath.Base(path) != "config.yaml" {
		t.Errorf("UserConfigPath() basename = %s, want config.yaml", filepath.Base(path))
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Path:    "logging.level",
		Message: "must be one of [debug info warn error]",
	}

	expected := "logging.level: must be one of [debug info warn error]"
	if err.Error() != expected {
		t.Errorf("ValidationError.Error() = %s, want %s", err.Error(), expected)
	}
}

func TestFormatValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		errors []ValidationError
		want   string
	}{
		{"empty", []ValidationError{}, ""},
		{"single", []ValidationError{{Path: "test.field", Message: "error message"}}, "test.field: error message"},
		{
			"multiple",
			[]ValidationError{{Path: "field1", Message: "error 1"}, {Path: "field2", Message: "error 2"}},
			"2 validation errors:\n  - field1: error 1\n  - field2: error 2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatValidationErrors(tt.errors); got != tt.want {
				t.Errorf("formatValidationErrors() = %q, want %q", got, tt.want)
			}
		})
	}
}
