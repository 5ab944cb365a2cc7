package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Config represents the complete beam configuration
type Config struct {
	BaseDir    string                     `yaml:"-"` // Directory containing config file, for resolving relative paths
	Templates  TemplatesConfig            `yaml:"templates"`
	Generate   GenerateConfig             `yaml:"generate"`
	Serve      ServeConfig                `yaml:"serve"`
	Logging    LoggingConfig              `yaml:"logging"`
	Data       string                     `yaml:"data"`       // YAML, JSON or JSONC file of values for beam render and serve
	Developers map[string]DeveloperConfig `yaml:"developers"` // Named developer profiles for per-developer overrides
}

// TemplatesConfig selects the .beam files beam works on
type TemplatesConfig struct {
	Root    string        `yaml:"root"`    // Directory globs are relative to (default: config directory)
	Include StringOrSlice `yaml:"include"` // doublestar globs (default: "**/*.beam")
	Exclude StringOrSlice `yaml:"exclude"` // doublestar globs removed from the include set
}

// GenerateConfig holds code generation settings
type GenerateConfig struct {
	Package string `yaml:"package"` // Overrides the package clause of every file
	Suffix  string `yaml:"suffix"`  // Output file suffix (default: ".go", giving page.beam.go)
}

// ServeConfig holds preview server settings
type ServeConfig struct {
	Host        string            `yaml:"host"`
	Port        int               `yaml:"port"`
	Compression CompressionConfig `yaml:"compression"`
}

// CompressionConfig holds HTTP response compression settings
type CompressionConfig struct {
	Enabled bool   `yaml:"enabled"`  // Enable gzip compression (default: true)
	Level   string `yaml:"level"`    // Compression level: "fastest", "default", "best", "none" (default: "default")
	MinSize int    `yaml:"min_size"` // Minimum response size to compress in bytes (default: 1024)
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Format string `yaml:"format"` // json or text
	Output string `yaml:"output"` // stderr, stdout, or file path
	Quiet  bool   `yaml:"quiet"`  // suppress request logs
}

// DeveloperConfig holds per-developer overrides
// All fields are optional - only non-zero values override the base config
type DeveloperConfig struct {
	Port    int           `yaml:"port"`    // Override serve.port
	Data    string        `yaml:"data"`    // Override data file
	Logging LoggingConfig `yaml:"logging"` // Override logging settings
}

// StringOrSlice supports YAML fields that can be either a string or a slice of strings
type StringOrSlice []string

// UnmarshalYAML implements yaml.Unmarshaler to handle both string and []string
func (s *StringOrSlice) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*s = []string{single}
		return nil
	}

	var slice []string
	if err := unmarshal(&slice); err != nil {
		return err
	}
	*s = slice
	return nil
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Templates: TemplatesConfig{
			Include: StringOrSlice{"**/*.beam"},
		},
		Generate: GenerateConfig{
			Suffix: ".go",
		},
		Serve: ServeConfig{
			Host: "localhost",
			Port: 8080,
			Compression: CompressionConfig{
				Enabled: true,
				Level:   "default",
				MinSize: 1024,
			},
		},
		Logging: LoggingConfig{
			Format: "text",
			Output: "stderr",
		},
	}
}

// Root returns the directory template globs are matched against.
func (c *Config) Root() string {
	if c.Templates.Root != "" {
		return c.Templates.Root
	}
	if c.BaseDir != "" {
		return c.BaseDir
	}
	return "."
}

// Matches reports whether path, relative to Root, is selected by the include
// globs and not removed by the exclude globs.
func (c *Config) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	included := false
	for _, pattern := range c.Templates.Include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, pattern := range c.Templates.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	return true
}

// TemplateFiles returns the selected .beam files under Root, sorted.
func (c *Config) TemplateFiles() ([]string, error) {
	root := c.Root()
	fsys := os.DirFS(root)

	seen := map[string]bool{}
	var files []string
	for _, pattern := range c.Templates.Include {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if seen[m] || !c.Matches(m) {
				continue
			}
			seen[m] = true
			files = append(files, filepath.Join(root, filepath.FromSlash(m)))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Rel returns path relative to Root, or false when path is outside it.
func (c *Config) Rel(path string) (string, bool) {
	root, err := filepath.Abs(c.Root())
	if err != nil {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || !fs.ValidPath(filepath.ToSlash(rel)) {
		return "", false
	}
	return rel, true
}
