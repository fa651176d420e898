// File: internal/services/chat/config.go
package chat

import (
	"fmt"
	"time"

	"github.com/iyunix/go-chatstream/internal/config"
)

type Config struct {
	// Title channel behaviour
	TitlePollInterval  time.Duration // How often an open title channel re-reads the chat
	TitleStreamTimeout time.Duration // Hard bound on an open title channel

	// Background work
	TitleGenerationTimeout time.Duration // Budget for one detached title run
	SaveTimeout            time.Duration // Budget for persisting a finished response
	TitleMaxTokens         int
}

func (c *Config) Validate() error {
	if c.TitlePollInterval <= 0 {
		return fmt.Errorf("title poll interval must be positive")
	}
	if c.TitleStreamTimeout < c.TitlePollInterval {
		return fmt.Errorf("title stream timeout must not be shorter than the poll interval")
	}
	if c.TitleGenerationTimeout <= 0 || c.SaveTimeout <= 0 {
		return fmt.Errorf("background timeouts must be positive")
	}
	if c.TitleMaxTokens < 1 {
		return fmt.Errorf("title_max_tokens must be at least 1")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		TitlePollInterval:      500 * time.Millisecond,
		TitleStreamTimeout:     30 * time.Second,
		TitleGenerationTimeout: 30 * time.Second,
		SaveTimeout:            5 * time.Second,
		TitleMaxTokens:         20,
	}
}

// ConfigFromApp copies the title channel settings from the process configuration.
func ConfigFromApp(app *config.Config) *Config {
	cfg := DefaultConfig()
	cfg.TitlePollInterval = app.TitlePollInterval
	cfg.TitleStreamTimeout = app.TitleStreamTimeout
	return cfg
}
