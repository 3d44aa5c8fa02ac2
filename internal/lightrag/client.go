// Package lightrag is the HTTP client for the knowledge-graph retrieval
// service. The service owns indexing, embeddings and graph construction;
// this client only speaks its REST surface: /query, /insert, /batch_insert
// and /status.
package lightrag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client is safe for concurrent use by multiple in-flight workflow runs.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9621"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// Document is one unit of text submitted for indexing.
type Document struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// InsertResult reports what the service extracted from one document.
type InsertResult struct {
	DocumentID    string `json:"document_id"`
	Entities      int    `json:"entities"`
	Relationships int    `json:"relationships"`
}

// BatchResult reports totals for a batch insert.
type BatchResult struct {
	DocumentsProcessed int `json:"documents_processed"`
	TotalEntities      int `json:"total_entities"`
	TotalRelationships int `json:"total_relationships"`
}

// Status carries the service availability flag and knowledge-base counters.
type Status struct {
	Available     bool `json:"available"`
	Documents     int  `json:"total_documents"`
	Entities      int  `json:"total_entities"`
	Relationships int  `json:"total_relationships"`
}

// Query runs a retrieval query in the given mode ("local", "global" or
// "hybrid") and returns the service's answer text. Timeouts, connection
// failures, non-2xx statuses and malformed bodies all come back as errors;
// the router converts them into error-tagged retrieval records.
func (c *Client) Query(ctx context.Context, query, mode string) (string, error) {
	var out struct {
		Response string `json:"response"`
	}
	err := c.post(ctx, "/query", map[string]string{"query": query, "mode": mode}, &out)
	if err != nil {
		return "", err
	}
	return out.Response, nil
}

// Insert indexes a single document.
func (c *Client) Insert(ctx context.Context, doc Document) (InsertResult, error) {
	var out InsertResult
	if err := c.post(ctx, "/insert", doc, &out); err != nil {
		return InsertResult{}, err
	}
	return out, nil
}

// BatchInsert indexes multiple documents in one call.
func (c *Client) BatchInsert(ctx context.Context, docs []Document) (BatchResult, error) {
	var out BatchResult
	payload := map[string][]Document{"documents": docs}
	if err := c.post(ctx, "/batch_insert", payload, &out); err != nil {
		return BatchResult{}, err
	}
	return out, nil
}

// CheckStatus reports availability and knowledge-base statistics. A service
// that cannot be reached yields Available=false together with the error.
func (c *Client) CheckStatus(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return Status{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("lightrag not reachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("lightrag status check failed: http %d", resp.StatusCode)
	}
	var body struct {
		KBStats Status `json:"kb_stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Status{}, fmt.Errorf("decoding lightrag status: %w", err)
	}
	body.KBStats.Available = true
	return body.KBStats, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding lightrag request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling lightrag %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("lightrag %s: http %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding lightrag %s response: %w", path, err)
	}
	return nil
}
