package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	GroqKey      string
	GroqEndpoint string
	GroqModel    string
	JWTSecret    string
	Database     string
	UploadDir    string
	Port         string
}

// Load reads configuration from the environment, providing sensible defaults.
func Load() Config {
	// Load .env file if it exists (useful for development)
	_ = godotenv.Load()
	cfg := Config{
		GroqKey:      os.Getenv("GROQ_API_KEY"),
		GroqEndpoint: getEnv("GROQ_API_ENDPOINT", "https://api.groq.com/openai/v1"),
		GroqModel:    getEnv("GROQ_MODEL", "openai/gpt-oss-120b"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		Database:     getEnv("DATABASE_PATH", "./data/quizly.db"),
		UploadDir:    getEnv("UPLOAD_DIR", "./data/uploads"),
		Port:         getEnv("PORT", "8080"),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("failed to ensure upload dir %s: %v", cfg.UploadDir, err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		log.Fatalf("failed to ensure database dir %s: %v", cfg.Database, err)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
