// Package embedding adapts the Gemini embedding API for the toolchain.
//
// The service distinguishes document-oriented embeddings (for indexing)
// from query-oriented embeddings (for search); using the wrong task type
// degrades relevance but is not a structural error, so the two are exposed
// as separate methods rather than a parameter callers might omit.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/siterag/siterag/internal/log"
	"github.com/siterag/siterag/internal/retry"
)

// ErrEmptyEmbedding indicates the service acknowledged the request but
// returned no embedding values.
var ErrEmptyEmbedding = errors.New("embedding service returned no embedding")

// Gemini task types for retrieval workloads.
const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

// contentEmbedder is the slice of *genai.Models this adapter needs.
// Defined here, by the consumer, so tests can substitute a fake.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder turns text into fixed-dimension vectors via Gemini.
type Embedder struct {
	models   contentEmbedder
	model    string
	dim      int32
	retryCfg retry.Config
	logger   log.Logger
}

// New creates an Embedder over an initialized genai client. dim is the
// requested output dimensionality and must match the target collection's
// schema; mismatches surface at write time, not here.
func New(client *genai.Client, model string, dim int32, logger log.Logger) *Embedder {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Embedder{
		models:   client.Models,
		model:    model,
		dim:      dim,
		retryCfg: retry.DefaultConfig(),
		logger:   logger,
	}
}

// EmbedDocuments embeds a batch of chunks for indexing, one vector per
// input text in input order.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, texts, taskDocument)
}

// EmbedQuery embeds a search question.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, taskQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: text}},
		})
	}

	config := &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: genai.Ptr(e.dim),
	}

	resp, err := retry.Do(ctx, e.retryCfg, func(ctx context.Context) (*genai.EmbedContentResponse, error) {
		return e.models.EmbedContent(ctx, e.model, contents, config)
	})
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmptyEmbedding, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, 0, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: text %d", ErrEmptyEmbedding, i)
		}
		vectors = append(vectors, emb.Values)
	}

	e.logger.Debug("embedded", "texts", len(texts), "task_type", taskType, "dim", len(vectors[0]))
	return vectors, nil
}
