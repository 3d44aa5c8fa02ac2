package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "http://localhost:11434", cfg.OllamaURL)
	assert.Equal(t, "llama3", cfg.OllamaModel)
	assert.Equal(t, "http://localhost:9621", cfg.LightRAGURL)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 0.7, cfg.AcceptanceThreshold)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("OLLAMA_MODEL", "mistral")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("ACCEPTANCE_THRESHOLD", "0.85")
	t.Setenv("TAVILY_API_KEY", "tk-123")

	cfg := Load()

	assert.Equal(t, "mistral", cfg.OllamaModel)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 0.85, cfg.AcceptanceThreshold)
	assert.Equal(t, "tk-123", cfg.TavilyAPIKey)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("MAX_RETRIES", "many")
	t.Setenv("TEMPERATURE", "warm")

	cfg := Load()

	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 0.3, cfg.Temperature)
}
