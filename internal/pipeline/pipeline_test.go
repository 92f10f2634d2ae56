package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/siterag/siterag/internal/chunker"
	"github.com/siterag/siterag/internal/crawler"
	"github.com/siterag/siterag/internal/indexer"
	"github.com/siterag/siterag/internal/log"
)

type mockResolver struct {
	urls  []string
	err   error
	calls int
}

func (m *mockResolver) Resolve(ctx context.Context) ([]string, error) {
	m.calls++
	return m.urls, m.err
}

type mockExtractor struct {
	pages    map[string]string // url -> content
	failURLs map[string]bool
	calls    int
}

func (m *mockExtractor) Extract(ctx context.Context, url string) (*crawler.Page, error) {
	m.calls++
	if m.failURLs[url] {
		return nil, crawler.ErrExtraction
	}
	content := m.pages[url]
	return &crawler.Page{
		URL:     url,
		Title:   "Page " + url,
		Content: content,
		Metadata: crawler.Metadata{
			SourceURL:     url,
			ContentLength: len(content),
			ContentType:   "docusaurus_page",
		},
	}, nil
}

type mockEmbedder struct {
	err   error
	calls int
	texts []string
}

func (m *mockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	m.texts = append(m.texts, texts...)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

type mockWriter struct {
	ensureCalls int
	writeCalls  int
	written     []indexer.EmbeddedChunk
	writeErr    error
}

func (m *mockWriter) EnsureCollection(ctx context.Context) error {
	m.ensureCalls++
	return nil
}

func (m *mockWriter) Write(ctx context.Context, chunks []indexer.EmbeddedChunk) (int, error) {
	m.writeCalls++
	m.written = append(m.written, chunks...)
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	return len(chunks), nil
}

func newTestPipeline(r *mockResolver, e *mockExtractor, em *mockEmbedder, w *mockWriter) *Pipeline {
	splitter := chunker.New(chunker.WithChunkSize(10), chunker.WithOverlap(0))
	return New(r, e, splitter, em, w, nil, log.NewNop())
}

func TestRun_FullIngestion(t *testing.T) {
	resolver := &mockResolver{urls: []string{"https://a", "https://b"}}
	extractor := &mockExtractor{pages: map[string]string{
		// 30 bytes each -> 3 chunks of 10 per page.
		"https://a": strings.Repeat("a", 30),
		"https://b": strings.Repeat("b", 30),
	}}
	embedder := &mockEmbedder{}
	writer := &mockWriter{}

	p := newTestPipeline(resolver, extractor, embedder, writer)
	result, err := p.Run(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.URLsTotal != 2 || result.URLsSelected != 2 || result.URLsProcessed != 2 {
		t.Errorf("url counts = %+v", result)
	}
	if result.Chunks != 6 {
		t.Errorf("chunks = %d, want 6", result.Chunks)
	}
	if result.RecordsWritten != 6 {
		t.Errorf("records written = %d, want 6", result.RecordsWritten)
	}
	if writer.ensureCalls != 1 {
		t.Errorf("ensure calls = %d, want 1", writer.ensureCalls)
	}
	// All embedded chunks go to the store in one call.
	if writer.writeCalls != 1 {
		t.Errorf("write calls = %d, want 1", writer.writeCalls)
	}
	if len(writer.written) != 6 {
		t.Fatalf("written chunks = %d, want 6", len(writer.written))
	}

	first := writer.written[0]
	if first.URL != "https://a" || first.ChunkIndex != 0 {
		t.Errorf("first chunk = %+v", first)
	}
	if first.DocumentID != indexer.DocumentID("https://a") {
		t.Errorf("document id = %q", first.DocumentID)
	}
	if first.Extra["content_type"] != "docusaurus_page" {
		t.Errorf("extra = %v", first.Extra)
	}
}

func TestRun_ResolveFailureIsFatal(t *testing.T) {
	resolver := &mockResolver{err: errors.New("sitemap down")}
	p := newTestPipeline(resolver, &mockExtractor{}, &mockEmbedder{}, &mockWriter{})

	_, err := p.Run(context.Background(), DefaultOptions())
	if err == nil {
		t.Fatal("expected error from resolver failure")
	}
}

func TestRun_FailedURLIsSkipped(t *testing.T) {
	resolver := &mockResolver{urls: []string{"https://a", "https://bad", "https://c"}}
	extractor := &mockExtractor{
		pages: map[string]string{
			"https://a": "aaaa",
			"https://c": "cccc",
		},
		failURLs: map[string]bool{"https://bad": true},
	}
	writer := &mockWriter{}

	p := newTestPipeline(resolver, extractor, &mockEmbedder{}, writer)
	result, err := p.Run(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.URLsProcessed != 2 {
		t.Errorf("processed = %d, want 2", result.URLsProcessed)
	}
	if result.URLsFailed != 1 {
		t.Errorf("failed = %d, want 1", result.URLsFailed)
	}
	if len(writer.written) != 2 {
		t.Errorf("written = %d, want 2", len(writer.written))
	}
}

func TestRun_CountOnly(t *testing.T) {
	resolver := &mockResolver{urls: []string{"https://a"}}
	extractor := &mockExtractor{pages: map[string]string{
		"https://a": strings.Repeat("a", 25), // 3 chunks of size 10
	}}
	embedder := &mockEmbedder{}
	writer := &mockWriter{}

	p := newTestPipeline(resolver, extractor, embedder, writer)
	opts := DefaultOptions()
	opts.CountOnly = true

	result, err := p.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Chunks != 3 {
		t.Errorf("chunks = %d, want 3", result.Chunks)
	}
	if embedder.calls != 0 {
		t.Errorf("embedder called %d times in count-only mode", embedder.calls)
	}
	if writer.ensureCalls != 0 || writer.writeCalls != 0 {
		t.Errorf("writer touched in count-only mode: %+v", writer)
	}
}

func TestRun_BlankChunksSkipped(t *testing.T) {
	resolver := &mockResolver{urls: []string{"https://a"}}
	extractor := &mockExtractor{pages: map[string]string{
		// Second window of 10 is all spaces.
		"https://a": "0123456789          xyz",
	}}
	embedder := &mockEmbedder{}
	writer := &mockWriter{}

	p := newTestPipeline(resolver, extractor, embedder, writer)
	result, err := p.Run(context.Background(), DefaultOptions())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.ChunksSkipped != 1 {
		t.Errorf("skipped = %d, want 1", result.ChunksSkipped)
	}
	if len(writer.written) != 2 {
		t.Errorf("written = %d, want 2", len(writer.written))
	}
}

func TestSliceURLs(t *testing.T) {
	urls := []string{"u0", "u1", "u2", "u3"}

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{name: "default takes all", opts: DefaultOptions(), want: urls},
		{name: "range", opts: Options{URLStart: 1, URLEnd: 3, URLIndex: -1}, want: []string{"u1", "u2"}},
		{name: "open end", opts: Options{URLStart: 2, URLIndex: -1}, want: []string{"u2", "u3"}},
		{name: "end past length clamps", opts: Options{URLStart: 2, URLEnd: 99, URLIndex: -1}, want: []string{"u2", "u3"}},
		{name: "single index", opts: Options{URLIndex: 1}, want: []string{"u1"}},
		{name: "index wins over range", opts: Options{URLStart: 0, URLEnd: 4, URLIndex: 3}, want: []string{"u3"}},
		{name: "index out of range", opts: Options{URLIndex: 10}, want: nil},
		{name: "empty range", opts: Options{URLStart: 3, URLEnd: 3, URLIndex: -1}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sliceURLs(urls, tt.opts)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestSliceChunks(t *testing.T) {
	chunks := []chunker.Chunk{{Index: 0}, {Index: 1}, {Index: 2}}

	got := sliceChunks(chunks, Options{ChunkStart: 1, ChunkEnd: 2})
	if len(got) != 1 || got[0].Index != 1 {
		t.Errorf("got %v", got)
	}

	got = sliceChunks(chunks, Options{})
	if len(got) != 3 {
		t.Errorf("got %d chunks, want 3", len(got))
	}
}
