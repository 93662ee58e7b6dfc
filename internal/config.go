package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/okvist/manifold/internal/format"
)

// Record format preference names.
const (
	FormatPlist = "plist"
	FormatYAML  = "yaml"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Repo   RepoConfig        `yaml:"repo"`
	Git    GitConfig         `yaml:"git"`
	Status StatusConfig      `yaml:"status"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Repo.Validate(); err != nil {
		return err
	}
	return c.Status.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// RepoConfig holds the repository directory layout and the process-wide
// record format preference.
type RepoConfig struct {
	Path string `yaml:"path"`
	// Kinds are the record collections served by the API, each mapped to a
	// subdirectory of Path.
	Kinds []string `yaml:"kinds"`
	// DefaultFormat is used when a record path carries no decisive suffix
	// and the caller states no preference. "plist" when empty.
	DefaultFormat string `yaml:"default_format"`
}

// Validate validates the repository configuration.
func (c *RepoConfig) Validate() error {
	if c.DefaultFormat == "" {
		c.DefaultFormat = FormatPlist
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Kinds, validation.Required),
		validation.Field(&c.DefaultFormat, validation.In(FormatPlist, FormatYAML)),
	)
}

// Format returns the configured preference as a format tag.
func (c *RepoConfig) Format() format.Tag {
	if c.DefaultFormat == FormatYAML {
		return format.YAML
	}
	return format.Plist
}

// GitConfig holds the optional version-control integration. An empty Path
// disables version-control notifications entirely.
type GitConfig struct {
	Path string `yaml:"path"`
}

// Enabled returns true when a git executable is configured.
func (c *GitConfig) Enabled() bool {
	return c.Path != ""
}

// StatusConfig holds the progress-status database configuration.
type StatusConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the status configuration.
func (c *StatusConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Repo: RepoConfig{
			Path:          "./repo",
			Kinds:         []string{"manifests", "pkgsinfo", "catalogs", "icons"},
			DefaultFormat: FormatPlist,
		},
		Status: StatusConfig{
			Path: "./manifold.db",
		},
	}
}
