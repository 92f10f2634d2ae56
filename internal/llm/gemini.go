// Package llm adapts the Gemini generation API to the single call the
// query agent needs.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/siterag/siterag/internal/log"
	"github.com/siterag/siterag/internal/retry"
)

// ErrEmptyResponse indicates the model returned no text.
var ErrEmptyResponse = errors.New("model returned empty response")

// contentGenerator is the slice of *genai.Models this adapter needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini generates completions for assembled prompts.
type Gemini struct {
	models   contentGenerator
	model    string
	retryCfg retry.Config
	logger   log.Logger
}

// New creates a Gemini generator over an initialized genai client.
func New(client *genai.Client, model string, logger log.Logger) *Gemini {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Gemini{
		models:   client.Models,
		model:    model,
		retryCfg: retry.DefaultConfig(),
		logger:   logger,
	}
}

// Generate returns the model's text answer for prompt.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := retry.Do(ctx, g.retryCfg, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return g.models.GenerateContent(
			ctx,
			g.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
			nil,
		)
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}

	g.logger.Debug("generated", "model", g.model, "prompt_length", len(prompt), "response_length", len(text))
	return text, nil
}
