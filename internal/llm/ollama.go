// Package llm talks to the language-model collaborator. The shipped client
// speaks Ollama's /api/generate protocol; anything satisfying
// workflow.LLM can stand in for it.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type generateRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Options map[string]any `json:"options,omitempty"`
}

// Ollama streams response chunks as {"response": "...", "done": false}.
type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Ollama is an LLM client for a local or remote Ollama server. Safe for
// concurrent use; the embedded http.Client pools connections.
type Ollama struct {
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
}

// NewOllama constructs a client. An empty baseURL defaults to the local
// server, an empty model to llama3.
func NewOllama(baseURL, model string, temperature float64) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return &Ollama{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		client:      &http.Client{Timeout: 120 * time.Second},
	}
}

// Generate sends a system/user prompt pair and concatenates the streamed
// response chunks. Timeouts and connection failures surface as errors; the
// call never blocks past the client timeout.
func (o *Ollama) Generate(ctx context.Context, system, user string) (string, error) {
	reqBody, err := json.Marshal(generateRequest{
		Model:   o.model,
		System:  system,
		Prompt:  user,
		Options: map[string]any{"temperature": o.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("encoding ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("creating ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama http %d", resp.StatusCode)
	}

	var out strings.Builder
	decoder := json.NewDecoder(resp.Body)
	for {
		var chunk generateChunk
		if err := decoder.Decode(&chunk); err == io.EOF {
			break
		} else if err != nil {
			return "", fmt.Errorf("decoding ollama response: %w", err)
		}
		out.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}
	return out.String(), nil
}
