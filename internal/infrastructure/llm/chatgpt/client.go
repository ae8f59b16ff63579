// Package chatgpt adapts the OpenAI chat completions API to ports.CompletionClient.
package chatgpt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/juristcu/juristcu-api/internal/core/domain"
	"github.com/juristcu/juristcu-api/internal/core/ports"
)

const DefaultVersion = "4.1"

var modelByVersion = map[string]string{
	"3":        "gpt-3.5-turbo",
	"3.5":      "gpt-3.5-turbo",
	"4":        "gpt-4o",
	"4o":       "gpt-4o",
	"4.1":      "gpt-4-turbo",
	"4.1-mini": "gpt-4-turbo",
	"5":        "gpt-4o",
	"5-mini":   "gpt-4o-mini",
}

// ModelForVersion resolves a CHATGPT_VERSION value; unknown versions use the default.
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
	openai openai.Client
	model  string
}

func New(cfg Config) *Client {
	// The router decides what happens after a failure, so the SDK must not retry.
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
		openai: openai.NewClient(opts...),
		model:  ModelForVersion(cfg.Version),
	}
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	if strings.TrimSpace(req.Credential) == "" {
		return "", &domain.ProviderError{Provider: domain.ProviderOpenAI, StatusCode: http.StatusUnauthorized, Message: "missing api key"}
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.SchemaName,
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	start := time.Now()
	resp, err := c.openai.Chat.Completions.New(ctx, params, option.WithAPIKey(req.Credential))
	if err != nil {
		return "", toProviderError(err)
	}

	slog.DebugContext(ctx, "openai_completion",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	if len(resp.Choices) == 0 {
		return "", &domain.ProviderError{Provider: domain.ProviderOpenAI, Message: "no choices in response"}
	}
	choice := resp.Choices[0]
	if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
		return "", &domain.ProviderError{Provider: domain.ProviderOpenAI, Message: "refusal: " + refusal}
	}
	return strings.TrimSpace(choice.Message.Content), nil
}

func toProviderError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := joinNonEmpty(apiErr.Message, apiErr.Code, apiErr.Type)
		if msg == "" {
			msg = messageFromBody(apiErr.RawJSON())
		}
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return &domain.ProviderError{
			Provider:   domain.ProviderOpenAI,
			StatusCode: apiErr.StatusCode,
			Message:    msg,
			Err:        err,
		}
	}
	return &domain.ProviderError{Provider: domain.ProviderOpenAI, Err: fmt.Errorf("openai chat: %w", err)}
}

// messageFromBody reads {"error":{"message","code","type"}} when the SDK left the
// envelope unparsed.
func messageFromBody(raw string) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
			Code    any    `json:"code"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return ""
	}
	code, _ := body.Error.Code.(string)
	return joinNonEmpty(body.Error.Message, code, body.Error.Type)
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
