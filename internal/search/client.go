// Package search is the client for the web-search tool collaborator. Provider
// errors propagate to the invoking worker's isolation boundary and degrade
// that worker only, never the whole run.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Params are the per-call search knobs consumed from configuration.
type Params struct {
	MaxResults        int    `json:"max_results"`
	MaxCharsPerResult int    `json:"max_chars_per_result"`
	Processor         string `json:"processor"`
}

// Result is one ranked search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Excerpt string `json:"excerpt"`
}

// Client executes web searches for research objectives.
type Client interface {
	Search(ctx context.Context, objective string, params Params) ([]Result, error)
}

// HTTPClient talks to the search provider over HTTP. Safe for concurrent use.
type HTTPClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *zap.Logger
}

// ErrMissingCredential is returned at construction when no API key is
// configured. This is fatal at startup, not at search time.
var ErrMissingCredential = errors.New("search: api key not configured")

// NewHTTPClient builds a search client, failing fast on a missing credential.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) (*HTTPClient, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

type searchRequest struct {
	Objective         string `json:"objective"`
	MaxResults        int    `json:"max_results"`
	MaxCharsPerResult int    `json:"max_chars_per_result"`
	Processor         string `json:"processor"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// Search runs one objective against the provider and returns ranked results.
func (c *HTTPClient) Search(ctx context.Context, objective string, params Params) ([]Result, error) {
	body, err := json.Marshal(searchRequest{
		Objective:         objective,
		MaxResults:        params.MaxResults,
		MaxCharsPerResult: params.MaxCharsPerResult,
		Processor:         params.Processor,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call search provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search provider returned status %d", resp.StatusCode)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if c.logger != nil {
		c.logger.Debug("search completed",
			zap.String("objective", objective),
			zap.Int("results", len(out.Results)),
		)
	}
	return out.Results, nil
}

const excerptLimit = 1000

// FormatResults renders search results for consumption inside a reasoning
// prompt, truncating long excerpts.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No search results found."
	}
	var b strings.Builder
	b.WriteString("SEARCH RESULTS:\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "Result %d:\n", i+1)
		fmt.Fprintf(&b, "Title: %s\n", r.Title)
		fmt.Fprintf(&b, "URL: %s\n", r.URL)
		if r.Excerpt != "" {
			excerpt := r.Excerpt
			if runes := []rune(excerpt); len(runes) > excerptLimit {
				excerpt = string(runes[:excerptLimit]) + "..."
			}
			fmt.Fprintf(&b, "Excerpt: %s\n", excerpt)
		}
		b.WriteString("\n" + strings.Repeat("-", 80) + "\n\n")
	}
	return b.String()
}

// URLsFromResults collects the result URLs in rank order.
func URLsFromResults(results []Result) []string {
	urls := make([]string, 0, len(results))
	for _, r := range results {
		if r.URL != "" {
			urls = append(urls, r.URL)
		}
	}
	return urls
}
