// Package config loads application configuration from environment variables.
// All variables use the CLASSBOT_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	AI       AIConfig
	Content  ContentConfig
	Session  SessionConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	Host            string
	AllowedOrigins  []string // websocket origin patterns besides the page's own host
	ShutdownTimeout time.Duration
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL disables
// event persistence.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings. An empty URL keeps
// sessions, budgets and cached answers in memory.
type CacheConfig struct {
	URL       string
	Password  string
	AnswerTTL time.Duration
}

// AIConfig holds configuration for all AI providers.
type AIConfig struct {
	OpenAI     OpenAIConfig
	DeepSeek   DeepSeekConfig
	Ollama     OllamaConfig
	OpenRouter OpenRouterConfig

	Model         string // OpenAI model; other providers use their own
	Temperature   float64
	MaxTokens     int
	SessionBudget int64 // tokens per browser session, 0 = unlimited
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// DeepSeekConfig holds DeepSeek provider settings (OpenAI-compatible).
type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
}

// OllamaConfig holds self-hosted Ollama settings.
type OllamaConfig struct {
	Enabled bool
	URL     string
	Model   string
}

// OpenRouterConfig holds OpenRouter provider settings.
type OpenRouterConfig struct {
	APIKey string
}

// ContentConfig locates the course material.
type ContentConfig struct {
	ClassDataFile   string
	CourseInfoFile  string
	WorkbookDir     string
	WorkbookPattern string // fmt pattern taking the class number
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	TTL          time.Duration
	CookieSecure bool
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with CLASSBOT_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("CLASSBOT_SERVER_PORT", 8080),
			Host:            envStr("CLASSBOT_SERVER_HOST", "0.0.0.0"),
			AllowedOrigins:  envList("CLASSBOT_SERVER_ALLOWED_ORIGINS"),
			ShutdownTimeout: envDuration("CLASSBOT_SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:      envStr("CLASSBOT_DATABASE_URL", ""),
			MaxConns: envInt("CLASSBOT_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("CLASSBOT_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL:       envStr("CLASSBOT_CACHE_URL", ""),
			Password:  envStr("CLASSBOT_CACHE_PASSWORD", ""),
			AnswerTTL: envDuration("CLASSBOT_CACHE_ANSWER_TTL", 24*time.Hour),
		},
		AI: AIConfig{
			OpenAI: OpenAIConfig{
				APIKey:  envStr("CLASSBOT_AI_OPENAI_API_KEY", ""),
				BaseURL: envStr("CLASSBOT_AI_OPENAI_BASE_URL", ""),
			},
			DeepSeek: DeepSeekConfig{
				APIKey:  envStr("CLASSBOT_AI_DEEPSEEK_API_KEY", ""),
				BaseURL: envStr("CLASSBOT_AI_DEEPSEEK_BASE_URL", ""),
			},
			Ollama: OllamaConfig{
				Enabled: envBool("CLASSBOT_AI_OLLAMA_ENABLED", false),
				URL:     envStr("CLASSBOT_AI_OLLAMA_URL", "http://localhost:11434"),
				Model:   envStr("CLASSBOT_AI_OLLAMA_MODEL", ""),
			},
			OpenRouter: OpenRouterConfig{
				APIKey: envStr("CLASSBOT_AI_OPENROUTER_API_KEY", ""),
			},
			Model:         envStr("CLASSBOT_AI_MODEL", "gpt-4o"),
			Temperature:   envFloat("CLASSBOT_AI_TEMPERATURE", 0.3),
			MaxTokens:     envInt("CLASSBOT_AI_MAX_TOKENS", 0),
			SessionBudget: int64(envInt("CLASSBOT_AI_SESSION_TOKEN_BUDGET", 0)),
		},
		Content: ContentConfig{
			ClassDataFile:   envStr("CLASSBOT_CONTENT_CLASS_DATA", "qrm_content.json"),
			CourseInfoFile:  envStr("CLASSBOT_CONTENT_COURSE_INFO", "course_info.json"),
			WorkbookDir:     envStr("CLASSBOT_CONTENT_WORKBOOK_DIR", "class_data"),
			WorkbookPattern: envStr("CLASSBOT_CONTENT_WORKBOOK_PATTERN", "iQRM_Class_%02d.xlsx"),
		},
		Session: SessionConfig{
			TTL:          envDuration("CLASSBOT_SESSION_TTL", 24*time.Hour),
			CookieSecure: envBool("CLASSBOT_SESSION_COOKIE_SECURE", false),
		},
		Log: LogConfig{
			Level:  envStr("CLASSBOT_LOG_LEVEL", "info"),
			Format: envStr("CLASSBOT_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks that the configuration is usable. Missing AI keys are not
// an error: the chatbot then answers with a disabled notice.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("CLASSBOT_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("CLASSBOT_AI_TEMPERATURE must be between 0 and 2, got %v", c.AI.Temperature)
	}

	if c.AI.SessionBudget < 0 {
		return fmt.Errorf("CLASSBOT_AI_SESSION_TOKEN_BUDGET must not be negative")
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("CLASSBOT_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	if !strings.Contains(c.Content.WorkbookPattern, "%") {
		return fmt.Errorf("CLASSBOT_CONTENT_WORKBOOK_PATTERN must contain a class number verb, got %q", c.Content.WorkbookPattern)
	}

	return nil
}

// HasAIProvider returns true if at least one AI provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.OpenAI.APIKey != "" ||
		c.AI.DeepSeek.APIKey != "" ||
		c.AI.OpenRouter.APIKey != "" ||
		c.AI.Ollama.Enabled
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma separated value, dropping empty entries.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
