// File: internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort   string
	DatabasePath string
	JWTSecretKey string

	// Upstream model. An empty OpenAIAPIKey selects the stub gateway.
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	AssistantModel        string
	AssistantSystemPrompt string
	TitleModel            string
	UpstreamRPS           float64

	TitlePollInterval  time.Duration
	TitleStreamTimeout time.Duration

	NATSURL          string
	OTelTracesStdout bool

	Environment string
}

// Load reads configuration from environment variables or .env file.
func Load() (*Config, error) {
	env := os.Getenv("ENV")
	if strings.ToLower(env) != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := &Config{
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		DatabasePath:          getEnv("DATABASE_PATH", "chatstream.db"),
		JWTSecretKey:          getEnv("JWT_SECRET_KEY", "dev-secret-change-me"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", ""),
		AssistantModel:        getEnv("ASSISTANT_MODEL", "gpt-4.1-nano"),
		AssistantSystemPrompt: getEnv("ASSISTANT_SYSTEM_PROMPT", ""),
		UpstreamRPS:           getEnvAsFloat("UPSTREAM_RPS", 5),
		TitlePollInterval:     getEnvAsDuration("TITLE_POLL_INTERVAL", 500*time.Millisecond),
		TitleStreamTimeout:    getEnvAsDuration("TITLE_STREAM_TIMEOUT", 30*time.Second),
		NATSURL:               getEnv("NATS_URL", ""),
		OTelTracesStdout:      getEnvAsBool("OTEL_TRACES_STDOUT", false),
		Environment:           env,
	}
	// The title model follows the assistant unless overridden.
	cfg.TitleModel = getEnv("TITLE_MODEL", cfg.AssistantModel)

	if cfg.IsProduction() {
		missing := []string{}
		if os.Getenv("JWT_SECRET_KEY") == "" {
			missing = append(missing, "JWT_SECRET_KEY")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("missing required production environment variables: %v", missing)
		}
	}

	if cfg.TitlePollInterval <= 0 || cfg.TitleStreamTimeout <= 0 {
		return nil, fmt.Errorf("title poll interval and timeout must be positive")
	}

	return cfg, nil
}

// IsProduction reports whether ENV is set to production.
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// HasUpstream reports whether a real completion provider can be used.
func (c *Config) HasUpstream() bool {
	return strings.TrimSpace(c.OpenAIAPIKey) != ""
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as number. Using default value.", key)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as bool. Using default value.", key)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("750ms") or plain milliseconds ("750").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	log.Printf("Warning: could not parse env var %s as duration. Using default value.", key)
	return defaultValue
}
