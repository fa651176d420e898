// File: internal/services/ai/config.go
package ai

import (
	"fmt"
	"time"

	"github.com/iyunix/go-chatstream/internal/config"
)

type Config struct {
	APIKey  string
	BaseURL string

	// StreamModel answers chat turns. CompleteModel serves single-shot calls.
	StreamModel   string
	CompleteModel string
	SystemPrompt  string

	RequestsPerSecond float64
	Timeout           time.Duration
	Temperature       float32
}

func (c *Config) Validate() error {
	if c.StreamModel == "" {
		return fmt.Errorf("assistant model is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		StreamModel:       "gpt-4.1-nano",
		CompleteModel:     "gpt-4.1-nano",
		RequestsPerSecond: 5,
		Timeout:           2 * time.Minute,
		Temperature:       0.7,
	}
}

// ConfigFromApp maps the process configuration onto gateway settings.
func ConfigFromApp(app *config.Config) *Config {
	cfg := DefaultConfig()
	cfg.APIKey = app.OpenAIAPIKey
	cfg.BaseURL = app.OpenAIBaseURL
	cfg.StreamModel = app.AssistantModel
	cfg.CompleteModel = app.TitleModel
	cfg.SystemPrompt = app.AssistantSystemPrompt
	cfg.RequestsPerSecond = app.UpstreamRPS
	return cfg
}
