// Package llm is the client for the text-generation service. The service
// handle is shared read-only across concurrently active workers and stages
// and tolerates concurrent invocation.
package llm

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

// Role tags a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one role-tagged prompt message.
type Message struct {
	Role       Role   `json:"role"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolSpec declares a tool the generation service may request.
type ToolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// ToolCall is a structured tool invocation requested by the service.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ContentBlock is one segment of a segmented response.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CompletionRequest is a single generation call.
type CompletionRequest struct {
	Messages    []Message  `json:"messages"`
	Tools       []ToolSpec `json:"tools,omitempty"`
	Temperature float64    `json:"temperature"`
	MaxTokens   int        `json:"max_tokens"`
	AgentID     string     `json:"agent_id,omitempty"`
}

// CompletionResponse is the generation service's answer.
type CompletionResponse struct {
	Content      string         `json:"content"`
	Blocks       []ContentBlock `json:"blocks,omitempty"`
	ToolCalls    []ToolCall     `json:"tool_calls,omitempty"`
	TokensUsed   int            `json:"tokens_used"`
	InputTokens  int            `json:"input_tokens"`
	OutputTokens int            `json:"output_tokens"`
	ModelUsed    string         `json:"model_used"`
	Provider     string         `json:"provider"`
}

// Text flattens the response into plain text, joining content blocks when the
// service returned segmented output.
func (r *CompletionResponse) Text() string {
	if len(r.Blocks) == 0 {
		return r.Content
	}
	parts := make([]string, 0, len(r.Blocks))
	for _, b := range r.Blocks {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	if len(parts) == 0 {
		return r.Content
	}
	return strings.Join(parts, " ")
}

// ErrorKind classifies generation-service failures. All are fatal to the
// stage that invoked them.
type ErrorKind string

const (
	ErrRateLimited    ErrorKind = "rate_limited"
	ErrTimeout        ErrorKind = "timeout"
	ErrInvalidRequest ErrorKind = "invalid_request"
	ErrUnavailable    ErrorKind = "service_unavailable"
)

// Error is a classified generation-service failure.
type Error struct {
	Kind   ErrorKind
	Status int
	Msg    string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("generation service %s (HTTP %d): %s", e.Kind, e.Status, e.Msg)
	}
	return fmt.Sprintf("generation service %s: %s", e.Kind, e.Msg)
}

// Client sends prompts to the generation service.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// HTTPClient talks to the generation service over HTTP. Safe for concurrent
// use.
type HTTPClient struct {
	baseURL string
	httpc   *http.Client
	logger  *zap.Logger
}

// NewHTTPClient builds a client for the given service base URL.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Complete posts a completion request and classifies failures into the error
// taxonomy the stages expect.
func (c *HTTPClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidRequest, Msg: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/complete", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: ErrInvalidRequest, Msg: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.AgentID != "" {
		httpReq.Header.Set("X-Agent-ID", req.AgentID)
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &Error{Kind: ErrTimeout, Msg: err.Error()}
		}
		return nil, &Error{Kind: ErrUnavailable, Msg: err.Error()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{Kind: ErrRateLimited, Status: resp.StatusCode, Msg: "rate limited"}
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return nil, &Error{Kind: ErrTimeout, Status: resp.StatusCode, Msg: "timed out"}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, &Error{Kind: ErrInvalidRequest, Status: resp.StatusCode, Msg: "request rejected"}
	case resp.StatusCode >= 500:
		return nil, &Error{Kind: ErrUnavailable, Status: resp.StatusCode, Msg: "service error"}
	}

	var out CompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &Error{Kind: ErrUnavailable, Status: resp.StatusCode, Msg: "undecodable response: " + err.Error()}
	}
	if c.logger != nil {
		c.logger.Debug("completion received",
			zap.String("agent_id", req.AgentID),
			zap.Int("tokens_used", out.TokensUsed),
			zap.Int("tool_calls", len(out.ToolCalls)),
		)
	}
	return &out, nil
}
