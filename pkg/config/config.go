// Package config loads deployment secrets and bind addresses from the
// environment, the way the source product's pkg/config does.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds the values that must come from the environment: secrets,
// connection strings, and anything that differs per deployment. Behavior
// knobs (batch sizes, thresholds, weights) live in pipelineconfig instead.
type Config struct {
	Port string

	DatabaseURL string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	YouTubeAPIKey string

	PubSubProjectID string

	JWTSecret string

	CredentialEncryptionKey string

	PipelineConfigPath string
}

// Load reads a .env file if present, then the environment, applying
// defaults for anything unset.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		DatabaseURL:             getEnv("DATABASE_URL", "postgres://localhost:5432/inboxreel?sslmode=disable"),
		GoogleClientID:          getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:      getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:       getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/auth/google/callback"),
		YouTubeAPIKey:           getEnv("YOUTUBE_API_KEY", ""),
		PubSubProjectID:         getEnv("PUBSUB_PROJECT_ID", ""),
		JWTSecret:               getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		CredentialEncryptionKey: getEnv("CREDENTIAL_ENCRYPTION_KEY", ""),
		PipelineConfigPath:      getEnv("PIPELINE_CONFIG_PATH", "pipeline.toml"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
