// Package claude adapts the Anthropic messages API to ports.CompletionClient.
package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/juristcu/juristcu-api/internal/core/domain"
	"github.com/juristcu/juristcu-api/internal/core/ports"
)

const DefaultVersion = "sonnet-4.5"

var modelByVersion = map[string]string{
	"opus-4":     "claude-opus-4-20250514",
	"opus-4.1":   "claude-opus-4-1-20250805",
	"sonnet-4":   "claude-sonnet-4-20250514",
	"sonnet-4.5": "claude-sonnet-4-5-20250929",
}

// ModelForVersion resolves a CLAUDE_VERSION value; unknown versions use the default.
func ModelForVersion(version string) string {
	if model, ok := modelByVersion[strings.TrimSpace(version)]; ok {
		return model
	}
	return modelByVersion[DefaultVersion]
}

type Config struct {
	BaseURL string
	Version string
	Timeout time.Duration
}

type Client struct {
	client anthropic.Client
	model  string
}

func New(cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &Client{
		client: anthropic.NewClient(opts...),
		model:  ModelForVersion(cfg.Version),
	}
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	if strings.TrimSpace(req.Credential) == "" {
		return "", &domain.ProviderError{Provider: domain.ProviderClaude, StatusCode: http.StatusUnauthorized, Message: "missing api key"}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(maxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
		Temperature: anthropic.Float(clampTemperature(req.Temperature)),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	start := time.Now()
	resp, err := c.client.Messages.New(ctx, params, option.WithAPIKey(req.Credential))
	if err != nil {
		return "", toProviderError(err)
	}

	slog.DebugContext(ctx, "claude_completion",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"stop_reason", resp.StopReason,
	)

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", &domain.ProviderError{Provider: domain.ProviderClaude, Message: "empty response content"}
	}
	return text, nil
}

// clampTemperature keeps the value inside the [0, 1] range the messages API accepts.
func clampTemperature(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	default:
		return t
	}
}

func toProviderError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		msg := messageFromBody(apiErr.RawJSON())
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return &domain.ProviderError{
			Provider:   domain.ProviderClaude,
			StatusCode: apiErr.StatusCode,
			Message:    msg,
			Err:        err,
		}
	}
	return &domain.ProviderError{Provider: domain.ProviderClaude, Err: fmt.Errorf("claude messages: %w", err)}
}

// messageFromBody reads {"type":"error","error":{"type","message"}}.
func messageFromBody(raw string) string {
	var body struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Error.Type + " " + body.Error.Message)
}
