package internal

import "github.com/starford/scribe/internal/aiclient"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	client aiclient.Client
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithAIClient overrides the AI client built from the configuration.
func WithAIClient(c aiclient.Client) Option {
	return func(a *application) {
		a.client = c
	}
}
