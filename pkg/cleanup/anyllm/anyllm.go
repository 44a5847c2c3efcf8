// Package anyllm implements cleanup.Cleaner on github.com/mozilla-ai/any-llm-go,
// a unified multi-provider interface supporting OpenAI, Anthropic, Gemini,
// Ollama, DeepSeek, Mistral, Groq and local llama.cpp servers.
//
// Usage:
//
//	c, err := anyllm.New("ollama", "llama3.2")
//	c, err := anyllm.New("anthropic", "claude-3-5-haiku-latest", anyllmlib.WithAPIKey("sk-ant-..."))
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/voxkey/voxkey/pkg/cleanup"
)

var _ cleanup.Cleaner = (*Cleaner)(nil)

// cleanTemperature keeps the model close to verbatim editing.
const cleanTemperature = 0.2

// Cleaner implements cleanup.Cleaner by wrapping any-llm-go.
type Cleaner struct {
	backend anyllmlib.Provider
	model   string
}

// New creates a Cleaner backed by the named provider.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "mistral", "llamacpp". model is the specific model to use. opts are
// any-llm-go configuration options (anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL, ...); without an API key option the relevant
// environment variable is consulted.
func New(providerName, model string, opts ...anyllmlib.Option) (*Cleaner, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}
	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}
	return &Cleaner{backend: backend, model: model}, nil
}

func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, mistral, llamacpp", providerName)
	}
}

// Clean implements [cleanup.Cleaner].
func (c *Cleaner) Clean(ctx context.Context, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	temp := cleanTemperature
	resp, err := c.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model: c.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: cleanup.Instruction},
			{Role: anyllmlib.RoleUser, Content: raw},
		},
		Temperature: &temp,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", cleanup.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}

	out := cleanup.Normalize(resp.Choices[0].Message.ContentString())
	if out == "" {
		// A model that returns nothing did not clean; keep the raw text.
		return raw, nil
	}
	return out, nil
}
