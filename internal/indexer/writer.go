// Package indexer writes embedded chunks into the vector store.
//
// The writer owns the two sharp edges of indexing: collection schema
// management (vector size and distance metric must match or writes fail)
// and the batch-then-per-item upsert fallback that keeps one malformed
// record from sinking its whole batch.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/siterag/siterag/internal/log"
	"github.com/siterag/siterag/internal/vectorstore"
)

// ErrDimensionMismatch indicates a chunk's vector width differs from the
// collection schema. Fatal and not retried: retrying would fail the same
// way, and writing the rest would leave a silently partial index.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// DefaultBatchSize is the number of records per upsert call.
const DefaultBatchSize = 10

// Store is the vector store surface the writer needs. Satisfied by
// *vectorstore.Qdrant.
type Store interface {
	EnsureCollection(ctx context.Context, name string, vectorSize uint64, recreate bool) error
	Upsert(ctx context.Context, collection string, records []vectorstore.Record) error
	Retrieve(ctx context.Context, collection string, ids []string) ([]vectorstore.Record, error)
}

// EmbeddedChunk pairs one chunk's text and vector with its provenance.
// Consumed exactly once by Write, then discarded.
type EmbeddedChunk struct {
	Text       string
	Vector     []float32
	DocumentID string
	URL        string
	Title      string
	ChunkIndex int
	Extra      map[string]any
}

// Writer persists embedded chunks into one collection.
type Writer struct {
	store      Store
	collection string
	vectorSize uint64
	batchSize  int
	verify     bool
	recreate   bool
	logger     log.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithBatchSize overrides DefaultBatchSize. Values < 1 are ignored.
func WithBatchSize(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithVerification re-fetches one record per batch after writing and logs
// a warning when it cannot be found. The write itself already succeeded
// per the store's acknowledgment, so a failed verification never fails the
// run.
func WithVerification() Option {
	return func(w *Writer) {
		w.verify = true
	}
}

// WithRecreate allows EnsureCollection to drop and recreate a collection
// whose schema does not match. Destructive: all previously indexed points
// are lost. Operator opt-in only.
func WithRecreate() Option {
	return func(w *Writer) {
		w.recreate = true
	}
}

// NewWriter creates a Writer targeting the named collection with the given
// vector size.
func NewWriter(store Store, collection string, vectorSize uint64, logger log.Logger, opts ...Option) *Writer {
	if logger == nil {
		logger = log.NewNop()
	}
	w := &Writer{
		store:      store,
		collection: collection,
		vectorSize: vectorSize,
		batchSize:  DefaultBatchSize,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// EnsureCollection makes sure the target collection exists with the
// writer's vector size and cosine distance.
func (w *Writer) EnsureCollection(ctx context.Context) error {
	return w.store.EnsureCollection(ctx, w.collection, w.vectorSize, w.recreate)
}

// Write upserts chunks in batches, falling back to per-item upserts when a
// batch call fails. Each record receives a fresh random UUID, so
// re-running ingestion over unchanged content creates duplicate entries
// rather than updates; callers needing idempotent re-ingestion must drop
// and rebuild the collection.
//
// Returns the number of records written. A per-item failure after the
// fallback aborts the remaining work and is reported alongside that count.
func (w *Writer) Write(ctx context.Context, chunks []EmbeddedChunk) (int, error) {
	for i, chunk := range chunks {
		if uint64(len(chunk.Vector)) != w.vectorSize {
			return 0, fmt.Errorf("%w: chunk %d has %d dimensions, collection wants %d",
				ErrDimensionMismatch, i, len(chunk.Vector), w.vectorSize)
		}
	}

	records := make([]vectorstore.Record, 0, len(chunks))
	for _, chunk := range chunks {
		records = append(records, w.toRecord(chunk))
	}

	written := 0
	for start := 0; start < len(records); start += w.batchSize {
		batch := records[start:min(start+w.batchSize, len(records))]

		if err := w.store.Upsert(ctx, w.collection, batch); err != nil {
			w.logger.Warn("batch upsert failed, retrying records individually",
				"batch_start", start, "batch_size", len(batch), "error", err)

			for _, record := range batch {
				if err := w.store.Upsert(ctx, w.collection, []vectorstore.Record{record}); err != nil {
					return written, fmt.Errorf("upsert record %s: %w", record.ID, err)
				}
				written++
			}
		} else {
			written += len(batch)
		}

		if w.verify {
			w.verifyBatch(ctx, batch)
		}
	}

	w.logger.Info("wrote records", "collection", w.collection, "count", written)
	return written, nil
}

// verifyBatch re-fetches the first record of a just-written batch. Misses
// are warnings, never errors.
func (w *Writer) verifyBatch(ctx context.Context, batch []vectorstore.Record) {
	if len(batch) == 0 {
		return
	}
	id := batch[0].ID
	found, err := w.store.Retrieve(ctx, w.collection, []string{id})
	switch {
	case err != nil:
		w.logger.Warn("post-write verification failed", "id", id, "error", err)
	case len(found) == 0:
		w.logger.Warn("post-write verification missed record", "id", id)
	}
}

func (w *Writer) toRecord(chunk EmbeddedChunk) vectorstore.Record {
	payload := map[string]any{
		"document_id": chunk.DocumentID,
		"chunk_id":    fmt.Sprintf("%s_%d", chunk.DocumentID, chunk.ChunkIndex),
		"url":         chunk.URL,
		"title":       chunk.Title,
		"chunk_index": chunk.ChunkIndex,
		"content":     chunk.Text,
		"created_at":  time.Now().UTC().Format(time.RFC3339),
	}
	for key, value := range chunk.Extra {
		if _, taken := payload[key]; !taken {
			payload[key] = value
		}
	}

	return vectorstore.Record{
		ID:      uuid.New().String(),
		Vector:  chunk.Vector,
		Payload: payload,
	}
}

// DocumentID derives a stable document identifier from a page URL.
func DocumentID(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "doc_" + hex.EncodeToString(hash[:16])
}
