package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the site.
type Config struct {
	// Server
	Port string
	Env  string

	// Completion provider. An empty APIKey disables the chatbot without
	// stopping the server.
	LLMProvider    string
	LLMAPIKey      string
	LLMBaseURL     string
	LLMModel       string
	LLMTimeout     time.Duration
	ChatTemp       float32
	ChatMaxTokens  int
	TipTemp        float32
	TipMaxTokens   int
	PersonaFile    string
	SystemPrompt   string // overrides the persona-rendered prompt when set
	ChatRateLimit  int    // requests per minute per client IP
	DatabasePath   string
	RedisURL       string

	// SMTP
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	ToEmail  string

	// Admin
	AdminUsername string
	AdminPassword string
}

// Load reads configuration from environment variables, loading .env first
// when it exists.
func Load() *Config {
	_ = godotenv.Load()

	provider := getEnvOrDefault("LLM_PROVIDER", "openai")
	defaultModel := "llama-3.1-8b-instant"
	if provider == "gemini" {
		defaultModel = "gemini-1.5-flash"
	}

	return &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		Env:           getEnvOrDefault("ENV", "development"),
		LLMProvider:   provider,
		LLMAPIKey:     firstEnv("LLM_API_KEY", "GROQ_API_KEY"),
		LLMBaseURL:    os.Getenv("LLM_BASE_URL"),
		LLMModel:      getEnvOrDefault("LLM_MODEL", defaultModel),
		LLMTimeout:    getEnvAsDurationOrDefault("LLM_TIMEOUT", 30*time.Second),
		ChatTemp:      getEnvAsFloatOrDefault("CHAT_TEMPERATURE", 0.7),
		ChatMaxTokens: getEnvAsIntOrDefault("CHAT_MAX_TOKENS", 500),
		TipTemp:       clamp(getEnvAsFloatOrDefault("TIP_TEMPERATURE", 0.6), 0.6, 0.9),
		TipMaxTokens:  getEnvAsIntOrDefault("TIP_MAX_TOKENS", 200),
		PersonaFile:   os.Getenv("PERSONA_FILE"),
		SystemPrompt:  os.Getenv("SYSTEM_PROMPT"),
		ChatRateLimit: getEnvAsIntOrDefault("CHAT_RATE_LIMIT", 20),
		DatabasePath:  getEnvOrDefault("DATABASE_PATH", "./data/portfolio.db"),
		RedisURL:      os.Getenv("REDIS_URL"),
		SMTPHost:      getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPass:      os.Getenv("SMTP_PASS"),
		ToEmail:       getEnvOrDefault("TO_EMAIL", "malik.ehtisham.188@gmail.com"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ChatEnabled reports whether a provider credential is present.
func (c *Config) ChatEnabled() bool {
	return c.LLMAPIKey != ""
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float32) float32 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 32)
	if err != nil {
		return defaultVal
	}
	return float32(f)
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
