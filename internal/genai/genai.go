// Package genai provides GenAI-backed query suggestions using the OpenAI API.
//
// It is an optional collaborator: only the no-results path of the serving
// layer consults it, and only when an API key is configured. The core
// engines never call it.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// MaxSuggestions caps how many rephrasings a single call returns.
const MaxSuggestions = 5

const suggestionSystemPrompt = "You are a help desk search assistant. " +
	"Given a user's failed search query, suggest short alternative phrasings " +
	"that are more likely to match a technical knowledge base. " +
	"Reply with one suggestion per line and nothing else."

// Suggester proposes alternative search queries for a failed lookup.
type Suggester interface {
	SuggestQueries(ctx context.Context, query string) ([]string, error)
}

// Client wraps the OpenAI chat completion API.
type Client struct {
	client openai.Client
	model  string
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey string
	Model  string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the default chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// NewClient initializes a GenAI client, falling back to the OPENAI_API_KEY
// environment variable when no key option is given.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	slog.Debug("GenAI client configured", "model", cfg.Model)

	return &Client{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  cfg.Model,
	}, nil
}

// SuggestQueries asks the model for alternative phrasings of a failed query.
func (c *Client) SuggestQueries(ctx context.Context, query string) ([]string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(suggestionSystemPrompt),
			openai.UserMessage(query),
		},
	})
	if err != nil {
		slog.Error("GenAI SuggestQueries failed", "error", err)
		return nil, fmt.Errorf("failed to generate query suggestions: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	suggestions := parseSuggestions(completion.Choices[0].Message.Content)
	slog.Debug("GenAI SuggestQueries succeeded", "count", len(suggestions))
	return suggestions, nil
}

// parseSuggestions splits model output into clean suggestion lines.
func parseSuggestions(content string) []string {
	var suggestions []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if line == "" {
			continue
		}
		suggestions = append(suggestions, line)
		if len(suggestions) >= MaxSuggestions {
			break
		}
	}
	return suggestions
}
