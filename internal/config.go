package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/eniileme/nuclinotion/internal/models"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Spool      SpoolConfig       `yaml:"spool"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Processing ProcessingConfig  `yaml:"processing"`
	Auth       AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Spool.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Processing.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// SpoolConfig holds the job workspace and upload staging area settings.
type SpoolConfig struct {
	Path        string `yaml:"path"`
	TTLHours    int    `yaml:"ttl_hours"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

// Validate validates the spool configuration.
func (c *SpoolConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.TTLHours, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxUploadMB, validation.Required, validation.Min(int64(1))),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ProcessingConfig holds the defaults applied to jobs that do not pick
// their own options.
type ProcessingConfig struct {
	DefaultStrategy string `yaml:"default_strategy"`
	DefaultK        int    `yaml:"default_k"`
}

// Validate validates the processing defaults.
func (c *ProcessingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultStrategy, validation.Required,
			validation.In(models.StrategyCluster, models.StrategyHeadings, models.StrategyTags)),
		validation.Field(&c.DefaultK, validation.Min(0)),
	)
}

// Options returns the processing defaults as pipeline options.
func (c *ProcessingConfig) Options() models.ProcessingOptions {
	return models.ProcessingOptions{
		Strategy:    c.DefaultStrategy,
		ClusteringK: c.DefaultK,
	}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
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
		Spool: SpoolConfig{
			Path:        "./spool",
			TTLHours:    24,
			MaxUploadMB: 200,
		},
		SQLite: SQLiteConfig{
			Path: "./nuclinotion.db",
		},
		Processing: ProcessingConfig{
			DefaultStrategy: models.StrategyCluster,
			DefaultK:        models.AutoK,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
