package embedding

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"github.com/siterag/siterag/internal/log"
)

type fakeModels struct {
	embedErr   error
	dimensions int
	dropLast   bool // return one embedding fewer than requested
	emptyFirst bool // first embedding has no values

	calls        int
	lastModel    string
	lastTexts    []string
	lastTaskType string
	lastDim      *int32
}

func (f *fakeModels) EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.calls++
	f.lastModel = model
	f.lastTexts = nil
	for _, c := range contents {
		f.lastTexts = append(f.lastTexts, c.Parts[0].Text)
	}
	if config != nil {
		f.lastTaskType = config.TaskType
		f.lastDim = config.OutputDimensionality
	}

	if f.embedErr != nil {
		return nil, f.embedErr
	}

	n := len(contents)
	if f.dropLast {
		n--
	}
	resp := &genai.EmbedContentResponse{}
	for i := 0; i < n; i++ {
		values := make([]float32, f.dimensions)
		if i == 0 && f.emptyFirst {
			values = nil
		}
		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{Values: values})
	}
	return resp, nil
}

func newTestEmbedder(models contentEmbedder) *Embedder {
	return &Embedder{
		models: models,
		model:  "test-embedding-model",
		dim:    4,
		logger: log.NewNop(),
	}
}

func TestEmbedDocuments(t *testing.T) {
	fake := &fakeModels{dimensions: 4}
	e := newTestEmbedder(fake)

	vectors, err := e.EmbedDocuments(context.Background(), []string{"chunk one", "chunk two"})
	if err != nil {
		t.Fatalf("EmbedDocuments failed: %v", err)
	}

	if len(vectors) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vectors))
	}
	for i, v := range vectors {
		if len(v) != 4 {
			t.Errorf("vector %d has %d dimensions, want 4", i, len(v))
		}
	}
	if fake.lastTaskType != taskDocument {
		t.Errorf("task type = %q, want %q", fake.lastTaskType, taskDocument)
	}
	if fake.lastModel != "test-embedding-model" {
		t.Errorf("model = %q", fake.lastModel)
	}
	if fake.lastDim == nil || *fake.lastDim != 4 {
		t.Errorf("output dimensionality = %v, want 4", fake.lastDim)
	}
	if len(fake.lastTexts) != 2 || fake.lastTexts[0] != "chunk one" {
		t.Errorf("texts sent = %v", fake.lastTexts)
	}
}

func TestEmbedDocuments_Empty(t *testing.T) {
	fake := &fakeModels{dimensions: 4}
	e := newTestEmbedder(fake)

	vectors, err := e.EmbedDocuments(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedDocuments failed: %v", err)
	}
	if vectors != nil {
		t.Errorf("got %v, want nil", vectors)
	}
	if fake.calls != 0 {
		t.Errorf("service called %d times for empty input", fake.calls)
	}
}

func TestEmbedQuery(t *testing.T) {
	fake := &fakeModels{dimensions: 4}
	e := newTestEmbedder(fake)

	vector, err := e.EmbedQuery(context.Background(), "what is siterag?")
	if err != nil {
		t.Fatalf("EmbedQuery failed: %v", err)
	}
	if len(vector) != 4 {
		t.Errorf("vector has %d dimensions, want 4", len(vector))
	}
	if fake.lastTaskType != taskQuery {
		t.Errorf("task type = %q, want %q", fake.lastTaskType, taskQuery)
	}
}

func TestEmbed_ServiceError(t *testing.T) {
	serviceErr := errors.New("invalid argument")
	fake := &fakeModels{embedErr: serviceErr}
	e := newTestEmbedder(fake)

	_, err := e.EmbedDocuments(context.Background(), []string{"text"})
	if !errors.Is(err, serviceErr) {
		t.Errorf("error = %v, want wrapped %v", err, serviceErr)
	}
}

func TestEmbed_CountMismatch(t *testing.T) {
	fake := &fakeModels{dimensions: 4, dropLast: true}
	e := newTestEmbedder(fake)

	_, err := e.EmbedDocuments(context.Background(), []string{"a", "b"})
	if !errors.Is(err, ErrEmptyEmbedding) {
		t.Errorf("error = %v, want ErrEmptyEmbedding", err)
	}
}

func TestEmbed_EmptyValues(t *testing.T) {
	fake := &fakeModels{dimensions: 4, emptyFirst: true}
	e := newTestEmbedder(fake)

	_, err := e.EmbedQuery(context.Background(), "q")
	if !errors.Is(err, ErrEmptyEmbedding) {
		t.Errorf("error = %v, want ErrEmptyEmbedding", err)
	}
}
