// Package pipeline sequences the ingestion flow: resolve the sitemap,
// then per URL extract, chunk and embed, and finally write every embedded
// chunk to the index in one batched call.
//
// Everything runs as a single sequential flow. A failing page is logged
// and skipped so one broken URL cannot abort a large run; only sitemap
// resolution and the final index write are fatal.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/siterag/siterag/internal/chunker"
	"github.com/siterag/siterag/internal/crawler"
	"github.com/siterag/siterag/internal/indexer"
	"github.com/siterag/siterag/internal/log"
)

// URLResolver lists the page URLs to ingest. Satisfied by
// *crawler.SitemapResolver.
type URLResolver interface {
	Resolve(ctx context.Context) ([]string, error)
}

// PageExtractor turns one URL into a cleaned Page. Satisfied by
// *crawler.Extractor.
type PageExtractor interface {
	Extract(ctx context.Context, url string) (*crawler.Page, error)
}

// DocumentEmbedder embeds chunk texts for indexing. Satisfied by
// *embedding.Embedder.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkWriter persists embedded chunks. Satisfied by *indexer.Writer.
type ChunkWriter interface {
	EnsureCollection(ctx context.Context) error
	Write(ctx context.Context, chunks []indexer.EmbeddedChunk) (int, error)
}

// Options narrow a run for partitioned or resumable ingestion. The zero
// value (as returned by DefaultOptions) processes everything.
type Options struct {
	// URLStart/URLEnd select a half-open URL index range [start, end).
	// URLEnd <= 0 means "to the end".
	URLStart int
	URLEnd   int

	// URLIndex selects exactly one URL by sitemap position. Negative
	// means unset. Takes precedence over the range.
	URLIndex int

	// ChunkStart/ChunkEnd select a chunk index range within each page,
	// same semantics as the URL range.
	ChunkStart int
	ChunkEnd   int

	// CountOnly reports URL and chunk totals without embedding or
	// writing anything.
	CountOnly bool
}

// DefaultOptions returns Options that process the full sitemap.
func DefaultOptions() Options {
	return Options{URLIndex: -1}
}

// Result reports what a run did.
type Result struct {
	URLsTotal      int // URLs in the sitemap
	URLsSelected   int // URLs after slicing
	URLsProcessed  int // URLs fully extracted, chunked and embedded
	URLsFailed     int // URLs skipped due to per-URL failures
	Chunks         int // chunks produced (after chunk slicing)
	ChunksSkipped  int // whitespace-only chunks not embedded
	RecordsWritten int // records acknowledged by the store
}

// Pipeline wires the ingestion collaborators together.
type Pipeline struct {
	resolver  URLResolver
	extractor PageExtractor
	splitter  *chunker.Splitter
	embedder  DocumentEmbedder
	writer    ChunkWriter
	limiter   *rate.Limiter
	logger    log.Logger
}

// New creates a Pipeline. limiter paces embedding calls to respect
// provider quotas; nil disables pacing.
func New(
	resolver URLResolver,
	extractor PageExtractor,
	splitter *chunker.Splitter,
	embedder DocumentEmbedder,
	writer ChunkWriter,
	limiter *rate.Limiter,
	logger log.Logger,
) *Pipeline {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{
		resolver:  resolver,
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		writer:    writer,
		limiter:   limiter,
		logger:    logger,
	}
}

// Run executes one ingestion pass.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	urls, err := p.resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve sitemap: %w", err)
	}

	result := &Result{URLsTotal: len(urls)}

	selected := sliceURLs(urls, opts)
	result.URLsSelected = len(selected)
	p.logger.Info("starting ingestion", "urls_total", len(urls), "urls_selected", len(selected), "count_only", opts.CountOnly)

	if !opts.CountOnly {
		if err := p.writer.EnsureCollection(ctx); err != nil {
			return nil, fmt.Errorf("ensure collection: %w", err)
		}
	}

	var embedded []indexer.EmbeddedChunk

	for _, url := range selected {
		pageChunks, err := p.processURL(ctx, url, opts, result)
		if err != nil {
			// Per-URL failures preserve forward progress across the
			// rest of the sitemap. Context cancellation is the
			// exception: nothing after it can succeed.
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			p.logger.Error("skipping url", "url", url, "error", err)
			result.URLsFailed++
			continue
		}
		embedded = append(embedded, pageChunks...)
		result.URLsProcessed++
	}

	if opts.CountOnly {
		p.logger.Info("count-only run finished", "urls", result.URLsSelected, "chunks", result.Chunks)
		return result, nil
	}

	if len(embedded) > 0 {
		written, err := p.writer.Write(ctx, embedded)
		result.RecordsWritten = written
		if err != nil {
			return result, fmt.Errorf("write index: %w", err)
		}
	}

	p.logger.Info("ingestion finished",
		"urls_processed", result.URLsProcessed,
		"urls_failed", result.URLsFailed,
		"records_written", result.RecordsWritten)
	return result, nil
}

// processURL extracts, chunks and embeds one page. Embedded chunks are
// returned as a unit so a mid-page embedding failure drops the whole page
// instead of indexing half of it.
func (p *Pipeline) processURL(ctx context.Context, url string, opts Options, result *Result) ([]indexer.EmbeddedChunk, error) {
	page, err := p.extractor.Extract(ctx, url)
	if err != nil {
		return nil, err
	}

	chunks := sliceChunks(p.splitter.Split(page.Content), opts)
	result.Chunks += len(chunks)
	p.logger.Info("chunked page", "url", page.URL, "title", page.Title, "chunks", len(chunks))

	if opts.CountOnly {
		return nil, nil
	}

	docID := indexer.DocumentID(page.URL)
	embedded := make([]indexer.EmbeddedChunk, 0, len(chunks))

	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			result.ChunksSkipped++
			continue
		}

		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		vectors, err := p.embedder.EmbedDocuments(ctx, []string{chunk.Text})
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", chunk.Index, err)
		}

		embedded = append(embedded, indexer.EmbeddedChunk{
			Text:       chunk.Text,
			Vector:     vectors[0],
			DocumentID: docID,
			URL:        page.URL,
			Title:      page.Title,
			ChunkIndex: chunk.Index,
			Extra: map[string]any{
				"content_type":         page.Metadata.ContentType,
				"content_length":       page.Metadata.ContentLength,
				"extraction_timestamp": page.Metadata.ExtractedAt.UTC().Format(time.RFC3339),
			},
		})
	}

	return embedded, nil
}

func sliceURLs(urls []string, opts Options) []string {
	if opts.URLIndex >= 0 {
		if opts.URLIndex >= len(urls) {
			return nil
		}
		return urls[opts.URLIndex : opts.URLIndex+1]
	}

	start := max(opts.URLStart, 0)
	if start > len(urls) {
		return nil
	}
	end := opts.URLEnd
	if end <= 0 || end > len(urls) {
		end = len(urls)
	}
	if start >= end {
		return nil
	}
	return urls[start:end]
}

func sliceChunks(chunks []chunker.Chunk, opts Options) []chunker.Chunk {
	start := max(opts.ChunkStart, 0)
	if start > len(chunks) {
		return nil
	}
	end := opts.ChunkEnd
	if end <= 0 || end > len(chunks) {
		end = len(chunks)
	}
	if start >= end {
		return nil
	}
	return chunks[start:end]
}
