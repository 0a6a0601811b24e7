// Package advisor asks a chat-completion model to propose column roles. It
// implements roles.Advisor; the identifier treats it as one input among
// several and never as the only source of truth.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/marketplace"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/observability"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/roles"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "google/gemini-2.5-flash"
)

// Config holds advisor client settings.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	RequestsPerMinute float64
	Retry             RetryConfig
	HTTPClient        *http.Client
}

// Client talks to an OpenRouter-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryConfig
	logger     *observability.Logger
}

var _ roles.Advisor = (*Client)(nil)

// Message is a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat asks the model for a JSON object.
type ResponseFormat struct {
	Type string `json:"type"`
}

// Request is the chat completions request body.
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Response is the chat completions response body.
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice is a single completion choice.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// proposal is the JSON object the model is asked to return.
type proposal struct {
	Roles      map[string]string  `json:"roles"`
	Confidence map[string]float64 `json:"confidence"`
	Warnings   []string           `json:"warnings"`
}

// NewClient creates an advisor client.
func NewClient(cfg Config, logger *observability.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialBackoff == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(cfg.RequestsPerMinute / 60)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: cfg.HTTPClient,
		limiter:    rate.NewLimiter(limit, 1),
		retry:      cfg.Retry,
		logger:     logger.WithOperation("advisor"),
	}
}

// ProposeRoles sends labels and sample values to the model and parses its
// role proposal. Roles outside the taxonomy are dropped with a warning.
func (c *Client) ProposeRoles(ctx context.Context, labels []string, samples map[string][]string, platform marketplace.Platform) (*roles.Proposal, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("advisor: no api key configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("advisor: rate limit wait: %w", err)
	}

	prompt, err := buildPrompt(labels, samples, platform)
	if err != nil {
		return nil, fmt.Errorf("advisor: build prompt: %w", err)
	}
	body, err := json.Marshal(Request{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("advisor: marshal request: %w", err)
	}

	start := time.Now()
	resp, err := c.retryWithBackoff(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("X-Title", "Sales Analytics Column Advisor")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("advisor: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("advisor: API returned status %d: %s", resp.StatusCode, string(b))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("advisor: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("advisor: response has no choices")
	}

	p, err := parseProposal(out.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("roles", len(p.Roles)).
		Dur("latency", time.Since(start)).
		Msg("advisor proposal received")
	return p, nil
}

func parseProposal(content string) (*roles.Proposal, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw proposal
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return nil, fmt.Errorf("advisor: parse proposal: %w", err)
	}

	p := &roles.Proposal{
		Roles:      make(map[roles.Role]string, len(raw.Roles)),
		Confidence: make(map[roles.Role]float64, len(raw.Confidence)),
		Warnings:   raw.Warnings,
	}
	for name, label := range raw.Roles {
		r, ok := roles.ParseRole(name)
		if !ok {
			p.Warnings = append(p.Warnings, fmt.Sprintf("advisor proposed unknown role %s", name))
			continue
		}
		if label == "" {
			continue
		}
		p.Roles[r] = label
		if c, ok := raw.Confidence[name]; ok {
			p.Confidence[r] = c
		}
	}
	return p, nil
}
