// Package openai implements cleanup.Cleaner directly on the OpenAI API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/voxkey/voxkey/pkg/cleanup"
)

var _ cleanup.Cleaner = (*Cleaner)(nil)

// Cleaner implements cleanup.Cleaner using the OpenAI chat completions API.
type Cleaner struct {
	client oai.Client
	model  string
}

type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Cleaner.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL, for
// OpenAI-compatible local servers.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New constructs a Cleaner. apiKey and model must be non-empty.
func New(apiKey, model string, opts ...Option) (*Cleaner, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Cleaner{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Clean implements [cleanup.Cleaner].
func (c *Cleaner) Clean(ctx context.Context, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	resp, err := c.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: oai.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(cleanup.Instruction),
			oai.UserMessage(raw),
		},
		Temperature: oai.Float(0.2),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", cleanup.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}

	out := cleanup.Normalize(resp.Choices[0].Message.Content)
	if out == "" {
		return raw, nil
	}
	return out, nil
}
