// Package config reads process configuration from the environment.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the binaries need. Collaborator URLs left empty
// disable the matching integration rather than failing startup.
type Config struct {
	OllamaURL   string
	OllamaModel string
	Temperature float64

	LightRAGURL  string
	TavilyAPIKey string

	WeatherServiceURL string
	MarketServiceURL  string

	RedisURL      string
	RedisPassword string
	DatabaseURL   string

	MaxRetries          int
	AcceptanceThreshold float64

	Port string
}

// Load reads a .env file when present, then the environment, falling back
// to the documented defaults.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		OllamaURL:   getString("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel: getString("OLLAMA_MODEL", "llama3"),
		Temperature: getFloat("TEMPERATURE", 0.3),

		LightRAGURL:  getString("LIGHTRAG_URL", "http://localhost:9621"),
		TavilyAPIKey: getString("TAVILY_API_KEY", ""),

		WeatherServiceURL: getString("WEATHER_SERVICE_URL", ""),
		MarketServiceURL:  getString("MARKET_SERVICE_URL", ""),

		RedisURL:      getString("REDIS_URL", ""),
		RedisPassword: getString("REDIS_PASSWORD", ""),
		DatabaseURL:   getString("DATABASE_URL", ""),

		MaxRetries:          getInt("MAX_RETRIES", 2),
		AcceptanceThreshold: getFloat("ACCEPTANCE_THRESHOLD", 0.7),

		Port: getString("PORT", "8080"),
	}
}

func getString(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
