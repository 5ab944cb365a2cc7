package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Serve.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Serve.Port)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Generate.Suffix != ".go" {
		t.Errorf("expected default suffix '.go', got %q", cfg.Generate.Suffix)
	}
	if len(cfg.Templates.Include) != 1 || cfg.Templates.Include[0] != "**/*.beam" {
		t.Errorf("expected default include '**/*.beam', got %v", cfg.Templates.Include)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestInterpolateEnv(t *testing.T) {
	getenv := func(key string) string {
		switch key {
		case "TEST_HOST":
			return "example.com"
		case "TEST_PORT":
			return "9000"
		default:
			return ""
		}
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple substitution",
			input:    "host: ${TEST_HOST}",
			expected: "host: example.com",
		},
		{
			name:     "with default (env set)",
			input:    "host: ${TEST_HOST:-localhost}",
			expected: "host: example.com",
		},
		{
			name:     "with default (env not set)",
			input:    "host: ${UNSET_VAR:-localhost}",
			expected: "host: localhost",
		},
		{
			name:     "multiple substitutions",
			input:    "addr: ${TEST_HOST}:${TEST_PORT}",
			expected: "addr: example.com:9000",
		},
		{
			name:     "unset without default",
			input:    "data: ${UNSET_VAR}",
			expected: "data: ",
		},
		{
			name:     "no substitution needed",
			input:    "package: views",
			expected: "package: views",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := string(interpolateEnv([]byte(tt.input), getenv))
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func writeConfig(t *testing.T, content string) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "beam.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return dir, path
}

func TestLoad(t *testing.T) {
	dir, configPath := writeConfig(t, `
templates:
  root: views
  include:
    - "**/*.beam"
  exclude: "**/_*.beam"

generate:
  package: views
  suffix: _beam.go

serve:
  host: 0.0.0.0
  port: 3000
  compression:
    level: best

logging:
  format: json
  output: logs/beam.log

data: data.yaml
`)

	cfg, path, err := LoadWithPath(configPath, os.Getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if path != configPath {
		t.Errorf("expected path %q, got %q", configPath, path)
	}

	if cfg.BaseDir != dir {
		t.Errorf("expected base dir %q, got %q", dir, cfg.BaseDir)
	}
	if cfg.Templates.Root != filepath.Join(dir, "views") {
		t.Errorf("expected templates root to be resolved, got %q", cfg.Templates.Root)
	}
	if len(cfg.Templates.Exclude) != 1 || cfg.Templates.Exclude[0] != "**/_*.beam" {
		t.Errorf("expected a single exclude glob, got %v", cfg.Templates.Exclude)
	}
	if cfg.Generate.Package != "views" || cfg.Generate.Suffix != "_beam.go" {
		t.Errorf("unexpected generate config: %+v", cfg.Generate)
	}
	if cfg.Serve.Host != "0.0.0.0" || cfg.Serve.Port != 3000 {
		t.Errorf("unexpected serve config: %+v", cfg.Serve)
	}

	// Unset keys keep their defaults
	if !cfg.Serve.Compression.Enabled || cfg.Serve.Compression.MinSize != 1024 {
		t.Errorf("expected compression defaults to survive, got %+v", cfg.Serve.Compression)
	}
	if cfg.Serve.Compression.Level != "best" {
		t.Errorf("expected compression level 'best', got %q", cfg.Serve.Compression.Level)
	}

	if cfg.Logging.Output != filepath.Join(dir, "logs", "beam.log") {
		t.Errorf("expected log file to be resolved, got %q", cfg.Logging.Output)
	}
	if cfg.Data != filepath.Join(dir, "data.yaml") {
		t.Errorf("expected data path to be resolved, got %q", cfg.Data)
	}
}

func TestLoadWithEnvInterpolation(t *testing.T) {
	_, configPath := writeConfig(t, `
serve:
  host: ${BEAM_HOST:-localhost}
  port: ${BEAM_PORT:-8080}
`)

	getenv := func(key string) string {
		switch key {
		case "BEAM_HOST":
			return "preview.example.com"
		case "BEAM_PORT":
			return "9090"
		}
		return ""
	}

	cfg, err := Load(configPath, getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Serve.Host != "preview.example.com" || cfg.Serve.Port != 9090 {
		t.Errorf("expected interpolated serve config, got %+v", cfg.Serve)
	}

	cfg, err = Load(configPath, func(string) string { return "" })
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Serve.Host != "localhost" || cfg.Serve.Port != 8080 {
		t.Errorf("expected defaults from the config, got %+v", cfg.Serve)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Serve.Port = 70000 }, "invalid port: 70000"},
		{"zero port", func(c *Config) { c.Serve.Port = 0 }, "invalid port: 0"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format: xml"},
		{"bad compression level", func(c *Config) { c.Serve.Compression.Level = "max" }, "invalid compression level: max"},
		{"negative min size", func(c *Config) { c.Serve.Compression.MinSize = -1 }, "min_size must not be negative"},
		{"no include", func(c *Config) { c.Templates.Include = nil }, "templates.include must name at least one glob"},
		{"bad glob", func(c *Config) { c.Templates.Exclude = StringOrSlice{"[a-"} }, `invalid glob: "[a-"`},
		{"bad package", func(c *Config) { c.Generate.Package = "my-views" }, `"my-views" is not a Go identifier`},
		{"bad suffix", func(c *Config) { c.Generate.Suffix = ".txt" }, "must end in .go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	_, configPath := writeConfig(t, "serve:\n  port: 0\n")
	if _, err := Load(configPath, os.Getenv); err == nil || !strings.Contains(err.Error(), "invalid port") {
		t.Errorf("expected invalid port error, got %v", err)
	}

	_, configPath = writeConfig(t, "serve: [not, a, map]\n")
	if _, err := Load(configPath, os.Getenv); err == nil || !strings.Contains(err.Error(), "failed to parse config") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestResolveConfigPath(t *testing.T) {
	dir, configPath := writeConfig(t, "")

	path, err := resolveConfigPath(configPath, func(string) string { return "" })
	if err != nil || path != configPath {
		t.Errorf("explicit path: got %q, %v", path, err)
	}

	if _, err := resolveConfigPath(filepath.Join(dir, "missing.yaml"), func(string) string { return "" }); err == nil {
		t.Error("expected error for a missing explicit path")
	}

	getenv := func(key string) string {
		if key == "BEAM_CONFIG" {
			return configPath
		}
		return ""
	}
	path, err = resolveConfigPath("", getenv)
	if err != nil || path != configPath {
		t.Errorf("BEAM_CONFIG: got %q, %v", path, err)
	}

	bad := func(key string) string {
		if key == "BEAM_CONFIG" {
			return filepath.Join(dir, "nope.yaml")
		}
		return ""
	}
	if _, err := resolveConfigPath("", bad); err == nil || !strings.Contains(err.Error(), "BEAM_CONFIG file not found") {
		t.Errorf("expected BEAM_CONFIG error, got %v", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	cfg, path, err := LoadOrDefault("", dir, func(string) string { return "" })
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if path != "" {
		t.Errorf("expected no config path, got %q", path)
	}
	if cfg.BaseDir != dir || cfg.Serve.Port != 8080 {
		t.Errorf("expected defaults rooted at %q, got %+v", dir, cfg)
	}

	if _, err := Load("", func(string) string { return "" }); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, _, err := LoadOrDefault(filepath.Join(dir, "missing.yaml"), dir, func(string) string { return "" }); err == nil {
		t.Error("an explicit missing path is an error")
	}
}

func TestApplyDeveloper(t *testing.T) {
	dir, configPath := writeConfig(t, `
data: data.yaml
developers:
  alice:
    port: 9001
    data: alice.yaml
    logging:
      format: json
      quiet: true
`)
	cfg, err := Load(configPath, os.Getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := ApplyDeveloper(cfg, "alice"); err != nil {
		t.Fatalf("ApplyDeveloper failed: %v", err)
	}
	if cfg.Serve.Port != 9001 {
		t.Errorf("expected port 9001, got %d", cfg.Serve.Port)
	}
	if cfg.Data != filepath.Join(dir, "alice.yaml") {
		t.Errorf("expected alice's data file, got %q", cfg.Data)
	}
	if cfg.Logging.Format != "json" || !cfg.Logging.Quiet {
		t.Errorf("expected logging overrides, got %+v", cfg.Logging)
	}

	err = ApplyDeveloper(cfg, "bob")
	if err == nil || !strings.Contains(err.Error(), `unknown developer profile "bob"`) {
		t.Errorf("expected unknown profile error, got %v", err)
	}

	if err := ApplyDeveloper(Defaults(), "alice"); err == nil {
		t.Error("expected error with no profiles")
	}
}
