package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	SessionTTL     time.Duration
	MaxChatHistory int

	// Document library and retrieval
	UploadDir             string
	DocumentsBucket       string
	RetrievalTopK         int
	RetrievalChunkSize    int
	RetrievalChunkOverlap int

	// Language model
	LLMProvider             string
	LLMTemperature          float64
	LLMMaxTokens            int
	BedrockModelID          string
	BedrockEmbeddingModelID string
	GeminiAPIKey            string
	GeminiModel             string
	GeminiEmbeddingModel    string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Email
	EmailProvider    string
	SendGridAPIKey   string
	EmailFromAddress string
	EmailFromName    string

	AdminJWTSecret     string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		SessionTTL:     getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		MaxChatHistory: getEnvAsInt("MAX_CHAT_HISTORY", 25),

		UploadDir:             getEnv("UPLOAD_DIR", "data/uploaded_docs"),
		DocumentsBucket:       getEnv("DOCUMENTS_BUCKET", ""),
		RetrievalTopK:         getEnvAsInt("RETRIEVAL_TOP_K", 4),
		RetrievalChunkSize:    getEnvAsInt("RETRIEVAL_CHUNK_SIZE", 500),
		RetrievalChunkOverlap: getEnvAsInt("RETRIEVAL_CHUNK_OVERLAP", 50),

		LLMProvider:             strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "bedrock"))),
		LLMTemperature:          getEnvAsFloat("LLM_TEMPERATURE", 0.3),
		LLMMaxTokens:            getEnvAsInt("LLM_MAX_TOKENS", 512),
		BedrockModelID:          getEnv("BEDROCK_MODEL_ID", ""),
		BedrockEmbeddingModelID: getEnv("BEDROCK_EMBEDDING_MODEL_ID", ""),
		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		GeminiModel:             getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiEmbeddingModel:    getEnv("GEMINI_EMBEDDING_MODEL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Clinic Assistant"),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// Validate reports configuration the API cannot start without.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLMProvider {
	case "bedrock":
		if c.BedrockModelID == "" {
			errs = append(errs, errors.New("BEDROCK_MODEL_ID is required when LLM_PROVIDER=bedrock"))
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required when LLM_PROVIDER=gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider))
	}
	if c.RetrievalChunkOverlap >= c.RetrievalChunkSize {
		errs = append(errs, errors.New("RETRIEVAL_CHUNK_OVERLAP must be smaller than RETRIEVAL_CHUNK_SIZE"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
