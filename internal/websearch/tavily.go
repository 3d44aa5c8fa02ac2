// Package websearch answers queries from the web via the Tavily QnA API.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.tavily.com/search"

// ErrNotConfigured is returned when no API key is set. Callers treat an
// unconfigured searcher as a degraded retrieval, not a failure.
var ErrNotConfigured = errors.New("websearch: tavily API key not configured")

// Tavily posts QnA searches to the Tavily API. Safe for concurrent use.
type Tavily struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewTavily(apiKey string) *Tavily {
	return &Tavily{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NewTavilyWithEndpoint overrides the API endpoint, mainly for tests.
func NewTavilyWithEndpoint(apiKey, endpoint string) *Tavily {
	t := NewTavily(apiKey)
	t.endpoint = endpoint
	return t
}

// Answer runs a QnA search and returns the direct answer, falling back to
// the first result's content. An empty string means the web had nothing.
func (t *Tavily) Answer(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(t.apiKey) == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]any{
		"query":          query,
		"api_key":        t.apiKey,
		"include_answer": true,
		"max_results":    5,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tavily http %d", resp.StatusCode)
	}

	var response struct {
		Answer  string `json:"answer"`
		Results []struct {
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", err
	}

	if strings.TrimSpace(response.Answer) != "" {
		return response.Answer, nil
	}
	if len(response.Results) > 0 {
		return response.Results[0].Content, nil
	}
	return "", nil
}
