package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for treedit
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Parser   ParserConfig   `yaml:"parser"`
	Projects ProjectsConfig `yaml:"projects"`
	Render   RenderConfig   `yaml:"render"`
	Log      LogConfig      `yaml:"log"`
	Dev      DevConfig      `yaml:"dev"`
}

// DatabaseConfig locates the SQLite file projects are stored in
type DatabaseConfig struct {
	Path     string `yaml:"path"`
	PoolSize int    `yaml:"pool_size"`
}

// ParserConfig controls how input documents are read
type ParserConfig struct {
	// AllowComments accepts JSONC (comments and trailing commas) in every
	// input file, not only in .jsonc files.
	AllowComments bool `yaml:"allow_comments"`
}

// ProjectsConfig controls project seeding
type ProjectsConfig struct {
	DefaultName string `yaml:"default_name"`
}

// RenderConfig controls tree output
type RenderConfig struct {
	Color     bool `yaml:"color"`
	ShowTypes bool `yaml:"show_types"`
	Indent    int  `yaml:"indent"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DevConfig contains development/debug options
type DevConfig struct {
	Debug bool `yaml:"debug"`
}

// CLIOverrides carries the global flags that take precedence over the file
type CLIOverrides struct {
	DatabasePath string
	LogFormat    string
	Debug        bool
}

// Default values
const (
	DefaultDatabasePath = "treedit.db"
	DefaultProjectName  = "Sample Project"
	DefaultIndent       = 2
)

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:     DefaultDatabasePath,
			PoolSize: 4,
		},
		Parser: ParserConfig{
			AllowComments: false,
		},
		Projects: ProjectsConfig{
			DefaultName: DefaultProjectName,
		},
		Render: RenderConfig{
			Color:     true,
			ShowTypes: true,
			Indent:    DefaultIndent,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Dev: DevConfig{
			Debug: false,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values that YAML decoding alone cannot
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error (got %q)", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format)
	}
	if c.Render.Indent < 1 || c.Render.Indent > 8 {
		return fmt.Errorf("render.indent must be between 1 and 8 (got %d)", c.Render.Indent)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if strings.TrimSpace(c.Projects.DefaultName) == "" {
		return fmt.Errorf("projects.default_name must not be empty")
	}
	return nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".treedit.yml", ".treedit.yaml", "treedit.yml", "treedit.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Search up the directory tree
	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root directory
			break
		}
		currentDir = parentDir
	}

	return ""
}

// MergeConfigs merges CLI overrides into a base config
// Non-empty values from override take precedence over base values
func MergeConfigs(base *Config, override CLIOverrides) *Config {
	merged := *base

	if override.DatabasePath != "" {
		merged.Database.Path = override.DatabasePath
	}
	if override.LogFormat != "" {
		merged.Log.Format = override.LogFormat
	}
	// --debug can only switch debugging on
	if override.Debug {
		merged.Dev.Debug = true
		merged.Log.Level = "debug"
	}

	return &merged
}

// LoadConfigWithCLI loads config with CLI argument precedence:
// CLI > config file > defaults
func LoadConfigWithCLI(configPath string, overrides CLIOverrides) (*Config, error) {
	cfg := NewConfig()

	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	merged := MergeConfigs(cfg, overrides)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}
