// Package draftapi requests comment drafts from an OpenAI-compatible chat completion
// service and maps service failures to user-facing categories.
package draftapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/codex-k8s/jiradraft/internal/drafterr"
	"github.com/codex-k8s/jiradraft/internal/prompt"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-5"

	// maxRateLimitRetries bounds resubmissions after a 429.
	maxRateLimitRetries = 1
)

// Config describes how to reach the generation service.
type Config struct {
	// APIKey is the bearer token; required.
	APIKey string
	// Model is the model identifier; DefaultModel when empty.
	Model string
	// BaseURL overrides the service endpoint, e.g. for a proxy or a test server.
	BaseURL string
	// HTTPClient overrides the transport.
	HTTPClient *http.Client
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client sends draft prompts to the generation service.
type Client struct {
	logger *slog.Logger
	apiKey string
	model  string
	openai openai.Client
	sleep  Sleeper
}

// Option customizes a Client.
type Option func(*Client)

// WithSleeper replaces the wait used between rate-limit retries.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

// NewClient builds a client. A missing key is reported by RequestDraft, not here, so
// the check happens at invocation time before any network call.
func NewClient(logger *slog.Logger, cfg Config, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.HTTPClient))
	}

	c := &Client{
		logger: logger,
		apiKey: strings.TrimSpace(cfg.APIKey),
		model:  model,
		openai: openai.NewClient(reqOpts...),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model identifier requests are sent with.
func (c *Client) Model() string {
	return c.model
}

// RequestDraft sends prompt and returns the trimmed draft text. A 429 is retried once
// after the service's retry hint; every other failure is returned immediately.
func (c *Client) RequestDraft(ctx context.Context, userPrompt string) (string, error) {
	if c.apiKey == "" {
		return "", drafterr.New(drafterr.KindConfiguration, "Missing API key in configuration. Set it with \"jiradraft config set --api-key\".")
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.SystemInstruction),
			openai.UserMessage(userPrompt),
		},
	}

	for attempt := 0; ; attempt++ {
		start := time.Now()
		resp, err := c.openai.Chat.Completions.New(ctx, params)
		if err == nil {
			c.logger.Debug("draft completed",
				"model", c.model,
				"attempt", attempt,
				"duration_ms", time.Since(start).Milliseconds(),
				"prompt_tokens", resp.Usage.PromptTokens,
				"completion_tokens", resp.Usage.CompletionTokens)
			if len(resp.Choices) == 0 {
				return "", nil
			}
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		}

		var apiErr *openai.Error
		if !errors.As(err, &apiErr) {
			return "", drafterr.Wrap(drafterr.KindService, err, fmt.Sprintf("Generation request failed: %v", err))
		}

		if apiErr.StatusCode == http.StatusTooManyRequests && attempt < maxRateLimitRetries {
			wait := retryDelay(responseHeader(apiErr))
			c.logger.Warn("draft rate limited, retrying", "model", c.model, "attempt", attempt, "wait", wait)
			if err := c.sleep(ctx, wait); err != nil {
				return "", err
			}
			continue
		}

		c.logger.Debug("draft request failed", "model", c.model, "attempt", attempt, "status", apiErr.StatusCode)
		return "", statusError(apiErr)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
