// Package llm writes markdown summaries of exported sessions with an OpenAI-compatible API.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/leonardotrapani/hyprscribe/internal/export"
	"github.com/leonardotrapani/hyprscribe/internal/logging"
)

type Config struct {
	Provider string
	APIKey   string
	Model    string
	Prompt   string // replaces the built-in instructions when set
	BaseURL  string // overrides the provider endpoint
}

var providerBaseURLs = map[string]string{
	"openai": "https://api.openai.com/v1",
	"groq":   "https://api.groq.com/openai/v1",
}

var defaultModels = map[string]string{
	"openai": "gpt-4o-mini",
	"groq":   "llama-3.3-70b-versatile",
}

type Summarizer struct {
	client *openai.Client
	config Config
	logger zerolog.Logger
}

func NewSummarizer(cfg Config) (*Summarizer, error) {
	baseURL, ok := providerBaseURLs[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key required", cfg.Provider)
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModels[cfg.Provider]
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = baseURL
	return &Summarizer{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: logging.WithComponent("llm"),
	}, nil
}

// Summarize returns a markdown summary, or "" for a session without transcript or notes.
func (s *Summarizer) Summarize(ctx context.Context, exp export.SessionExport) (string, error) {
	if len(exp.Transcript) == 0 && len(exp.Notes) == 0 {
		return "", nil
	}

	req := openai.ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: BuildSystemPrompt(s.config.Prompt)},
			{Role: openai.ChatMessageRoleUser, Content: BuildUserPrompt(exp)},
		},
		Temperature: 0.3,
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Dur("took", time.Since(start)).Msg("chat completion failed")
		return "", fmt.Errorf("%s chat completion: %w", s.config.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s chat completion: no response choices", s.config.Provider)
	}

	s.logger.Info().
		Str("model", s.config.Model).
		Dur("took", time.Since(start)).
		Int("segments", len(exp.Transcript)).
		Msg("summary generated")
	return resp.Choices[0].Message.Content, nil
}
