// Package agent answers questions against the index: embed the question,
// search for the nearest chunks, assemble a prompt with those chunks as
// context, and generate an answer with sources.
//
// User-facing failures are plain messages, never raw errors: an empty
// query and an empty result set are normal outcomes of normal use.
package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/siterag/siterag/internal/history"
	"github.com/siterag/siterag/internal/log"
	"github.com/siterag/siterag/internal/vectorstore"
)

// Exact user-visible messages for the two graceful-failure paths.
const (
	msgEmptyQuery = "Error: Query cannot be empty."
	msgNoAnswer   = "Could not find an answer to your question."
)

// DefaultTopK is the retrieval depth when none is configured.
const DefaultTopK = 5

// QueryEmbedder embeds a question for search. Satisfied by
// *embedding.Embedder.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs nearest-neighbor search. Satisfied by *vectorstore.Qdrant.
type Searcher interface {
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]vectorstore.Hit, error)
}

// Generator produces the answer text. Satisfied by *llm.Gemini.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Recorder persists the audit trail. Satisfied by *history.Recorder.
type Recorder interface {
	Record(entry history.Entry) (string, error)
}

// DocumentChunk is one search hit, ephemeral to a single query.
type DocumentChunk struct {
	Text    string
	URL     string
	ChunkID string
	Score   float32
}

// Agent wires the query-time collaborators together.
type Agent struct {
	embedder   QueryEmbedder
	searcher   Searcher
	generator  Generator
	recorder   Recorder // optional; nil disables history
	collection string
	model      string
	topK       int
	out        io.Writer
	logger     log.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithTopK overrides DefaultTopK. Values < 1 are ignored.
func WithTopK(k int) Option {
	return func(a *Agent) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithRecorder enables prompt-history recording. Recording is
// fire-and-forget: failures are logged, never surfaced to the user.
func WithRecorder(recorder Recorder) Option {
	return func(a *Agent) {
		a.recorder = recorder
	}
}

// WithOutput redirects the agent's printed output (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(a *Agent) {
		a.out = w
	}
}

// New creates an Agent searching the named collection. model is recorded
// in the audit trail alongside each response.
func New(embedder QueryEmbedder, searcher Searcher, generator Generator, collection, model string, logger log.Logger, opts ...Option) *Agent {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &Agent{
		embedder:   embedder,
		searcher:   searcher,
		generator:  generator,
		collection: collection,
		model:      model,
		topK:       DefaultTopK,
		out:        os.Stdout,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer handles one question end to end and prints the answer with
// sources. command is the CLI invocation recorded in the audit trail.
//
// An empty query or an empty result set prints a message and returns nil:
// neither is an error in the Go sense, and neither reaches the network
// beyond what has already happened.
func (a *Agent) Answer(ctx context.Context, query, command string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		fmt.Fprintln(a.out, msgEmptyQuery)
		return nil
	}

	docs, err := a.retrieve(ctx, query)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(a.out, msgNoAnswer)
		return nil
	}

	prompt := buildPrompt(docs, query)

	answer, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generate answer: %w", err)
	}

	fmt.Fprintln(a.out, "Answer:")
	fmt.Fprintln(a.out, answer)
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Sources:")
	for _, doc := range docs {
		fmt.Fprintf(a.out, "- %s (Score: %.4f)\n", doc.URL, doc.Score)
	}

	a.record(query, answer, command, docs)
	return nil
}

// retrieve embeds the query and returns the nearest chunks.
func (a *Agent) retrieve(ctx context.Context, query string) ([]DocumentChunk, error) {
	vector, err := a.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := a.searcher.Search(ctx, a.collection, vector, a.topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	docs := make([]DocumentChunk, 0, len(hits))
	for _, hit := range hits {
		docs = append(docs, DocumentChunk{
			Text:    payloadString(hit.Payload, "content"),
			URL:     payloadString(hit.Payload, "url"),
			ChunkID: payloadString(hit.Payload, "chunk_id"),
			Score:   hit.Score,
		})
	}
	return docs, nil
}

func (a *Agent) record(query, answer, command string, docs []DocumentChunk) {
	if a.recorder == nil {
		return
	}

	sources := make([]history.SourceRef, 0, len(docs))
	for _, doc := range docs {
		sources = append(sources, history.SourceRef{URL: doc.URL, Score: doc.Score})
	}

	path, err := a.recorder.Record(history.Entry{
		Prompt:   query,
		Response: answer,
		Title:    "RAG Agent Query",
		Stage:    history.DefaultStage,
		Model:    a.model,
		Command:  command,
		Sources:  sources,
		Outcome:  "RAG agent response to user query.",
	})
	if err != nil {
		a.logger.Warn("failed to record prompt history", "error", err)
		return
	}
	a.logger.Debug("prompt history recorded", "path", path)
}

// buildPrompt concatenates the hit texts as context followed by the
// question.
func buildPrompt(docs []DocumentChunk, query string) string {
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		texts = append(texts, doc.Text)
	}

	return fmt.Sprintf(
		"Based on the following context, please answer the question.\n\nContext:\n%s\n\nQuestion:\n%s",
		strings.Join(texts, "\n"), query)
}

func payloadString(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}
