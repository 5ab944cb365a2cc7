package config

import (
	"errors"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no config file was given and none was found.
var ErrNotFound = errors.New("no config file found (tried BEAM_CONFIG, beam.yaml, ~/.config/beam/beam.yaml)")

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadOrDefault is like LoadWithPath, but returns Defaults rooted at dir and
// an empty path when no config file exists and none was asked for.
func LoadOrDefault(configPath, dir string, getenv func(string) string) (*Config, string, error) {
	cfg, path, err := LoadWithPath(configPath, getenv)
	if errors.Is(err, ErrNotFound) {
		cfg = Defaults()
		cfg.BaseDir = dir
		return cfg, "", nil
	}
	return cfg, path, err
}

// LoadWithPath reads configuration and returns both the config and the resolved path.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}

	// Get absolute path and directory for resolving relative paths
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	// Interpolate environment variables
	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.BaseDir = baseDir

	if cfg.Templates.Root != "" && !filepath.IsAbs(cfg.Templates.Root) {
		cfg.Templates.Root = filepath.Join(baseDir, cfg.Templates.Root)
	}
	if cfg.Data != "" && !filepath.IsAbs(cfg.Data) {
		cfg.Data = filepath.Join(baseDir, cfg.Data)
	}
	if isFileOutput(cfg.Logging.Output) && !filepath.IsAbs(cfg.Logging.Output) {
		cfg.Logging.Output = filepath.Join(baseDir, cfg.Logging.Output)
	}

	if err := Validate(cfg); err != nil {
		return nil, "", err
	}

	return cfg, absPath, nil
}

func isFileOutput(output string) bool {
	return output != "" && output != "stderr" && output != "stdout"
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > BEAM_CONFIG env > ./beam.yaml > ~/.config/beam/beam.yaml
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	// Try BEAM_CONFIG environment variable
	if envPath := getenv("BEAM_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("BEAM_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	// Try ./beam.yaml
	if _, err := os.Stat("beam.yaml"); err == nil {
		return "beam.yaml", nil
	}

	// Try ~/.config/beam/beam.yaml
	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".config", "beam", "beam.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", ErrNotFound
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := string(parts[1])
		value := getenv(varName)

		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}

// Validate checks the configuration for errors.
func Validate(cfg *Config) error {
	var errs []string

	if len(cfg.Templates.Include) == 0 {
		errs = append(errs, "templates.include must name at least one glob")
	}
	for _, pattern := range append(append([]string{}, cfg.Templates.Include...), cfg.Templates.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Sprintf("invalid glob: %q", pattern))
		}
	}

	if cfg.Generate.Package != "" && !token.IsIdentifier(cfg.Generate.Package) {
		errs = append(errs, fmt.Sprintf("generate.package: %q is not a Go identifier", cfg.Generate.Package))
	}
	if !strings.HasSuffix(cfg.Generate.Suffix, ".go") {
		errs = append(errs, fmt.Sprintf("generate.suffix: %q must end in .go", cfg.Generate.Suffix))
	}

	if cfg.Serve.Port < 1 || cfg.Serve.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port: %d (must be 1-65535)", cfg.Serve.Port))
	}
	validLevels := map[string]bool{"fastest": true, "default": true, "best": true, "none": true}
	if !validLevels[cfg.Serve.Compression.Level] {
		errs = append(errs, fmt.Sprintf("invalid compression level: %s (must be fastest, default, best, or none)", cfg.Serve.Compression.Level))
	}
	if cfg.Serve.Compression.MinSize < 0 {
		errs = append(errs, "compression.min_size must not be negative")
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be json or text)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// ApplyDeveloper applies a named developer profile to the configuration.
// Only non-zero values in the developer config override the base config.
// Returns an error if the profile name doesn't exist.
func ApplyDeveloper(cfg *Config, profileName string) error {
	if cfg.Developers == nil {
		return fmt.Errorf("no developer profiles defined in config")
	}

	dev, ok := cfg.Developers[profileName]
	if !ok {
		var names []string
		for name := range cfg.Developers {
			names = append(names, name)
		}
		return fmt.Errorf("unknown developer profile %q (available: %s)", profileName, strings.Join(names, ", "))
	}

	if dev.Port != 0 {
		cfg.Serve.Port = dev.Port
	}
	if dev.Data != "" {
		path := dev.Data
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.BaseDir, path)
		}
		cfg.Data = path
	}
	if dev.Logging.Format != "" {
		cfg.Logging.Format = dev.Logging.Format
	}
	if dev.Logging.Output != "" {
		cfg.Logging.Output = dev.Logging.Output
	}
	if dev.Logging.Quiet {
		cfg.Logging.Quiet = true
	}

	return nil
}
