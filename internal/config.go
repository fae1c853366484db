package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/scribe/internal/aiclient"
	"github.com/starford/scribe/internal/documents"
	"github.com/starford/scribe/internal/execution"
	"github.com/starford/scribe/internal/inbox"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	AI     AIConfig          `yaml:"ai"`
	Editor EditorConfig      `yaml:"editor"`
	Inbox  InboxConfig       `yaml:"inbox"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.AI.Validate(); err != nil {
		return fmt.Errorf("ai: %w", err)
	}
	if err := c.Editor.Validate(); err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	return nil
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

// AIConfig holds the chat-completions backend settings. An empty APIKey is
// allowed: cell runs then fail with a missing credential error.
type AIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"api_key"`
	MaxTokens    int           `yaml:"max_tokens"`
	Temperature  float64       `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`
	CodeLanguage string        `yaml:"code_language"`
}

// Validate validates the AI configuration.
func (c *AIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.MaxTokens, validation.Required, validation.Min(1)),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.CodeLanguage, validation.Required),
	)
}

// Client returns the aiclient settings.
func (c *AIConfig) Client() aiclient.Config {
	return aiclient.Config{
		BaseURL:     c.BaseURL,
		Model:       c.Model,
		APIKey:      c.APIKey,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
	}
}

// EditorConfig holds document defaults.
type EditorConfig struct {
	DefaultTitle string `yaml:"default_title"`
	DefaultSort  string `yaml:"default_sort"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultTitle, validation.Required),
		validation.Field(&c.DefaultSort, validation.In(
			string(documents.SortModified), string(documents.SortCreated),
			string(documents.SortTitle), string(documents.SortMode),
		)),
	)
}

// InboxConfig holds the watched import directory. An empty Dir disables
// the inbox. ProcessedDir is relative to Dir; empty deletes imported files.
type InboxConfig struct {
	Dir          string `yaml:"dir"`
	ProcessedDir string `yaml:"processed_dir"`
}

// Enabled reports whether the inbox watcher should run.
func (c *InboxConfig) Enabled() bool {
	return c.Dir != ""
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
		SQLite: SQLiteConfig{
			Path: "./scribe.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		AI: AIConfig{
			BaseURL:      aiclient.DefaultBaseURL,
			Model:        aiclient.DefaultModel,
			MaxTokens:    aiclient.DefaultMaxTokens,
			Temperature:  aiclient.DefaultTemperature,
			Timeout:      execution.DefaultTimeout,
			CodeLanguage: execution.DefaultLanguage,
		},
		Editor: EditorConfig{
			DefaultTitle: documents.DefaultTitle,
			DefaultSort:  string(documents.SortModified),
		},
		Inbox: InboxConfig{
			Dir:          "./inbox",
			ProcessedDir: inbox.DefaultProcessedDir,
		},
	}
}
