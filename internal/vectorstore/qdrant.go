// Package vectorstore wraps the Qdrant client behind the small surface the
// toolchain needs: schema-aware collection management, acknowledged
// upserts, nearest-neighbor search, point retrieval and counts.
//
// Consumers (indexer, pipeline, agent) depend on their own interfaces, so
// this is the only package that imports the Qdrant SDK.
package vectorstore

import (
	"context"
	"errors"
	"fmt"

	qdrant "github.com/qdrant/go-client/qdrant"

	"github.com/siterag/siterag/internal/log"
)

// ErrSchemaMismatch indicates an existing collection's vector size differs
// from the configured one. Writes against it would fail record by record,
// so it is surfaced before any write happens.
var ErrSchemaMismatch = errors.New("collection schema mismatch")

// Config holds Qdrant connection settings.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// Qdrant is a thin wrapper over the gRPC client.
type Qdrant struct {
	client *qdrant.Client
	logger log.Logger
}

// New connects to Qdrant. The underlying client is lazy; connection errors
// surface on first use.
func New(cfg Config, logger log.Logger) (*Qdrant, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	return &Qdrant{client: client, logger: logger}, nil
}

// Close releases the underlying gRPC connection.
func (s *Qdrant) Close() error {
	return s.client.Close()
}

// EnsureCollection idempotently ensures a cosine-distance collection of the
// given vector size exists.
//
// When the collection exists with a different vector size the call fails
// with ErrSchemaMismatch unless recreate is true, in which case the
// collection is dropped and recreated. Recreation silently discards all
// previously indexed data; it is an explicit operator decision, never a
// default.
func (s *Qdrant) EnsureCollection(ctx context.Context, name string, vectorSize uint64, recreate bool) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %q: %w", name, err)
	}

	if exists {
		current, err := s.collectionVectorSize(ctx, name)
		if err != nil {
			return err
		}
		if current == vectorSize {
			s.logger.Debug("collection exists", "collection", name, "vector_size", current)
			return nil
		}
		if !recreate {
			return fmt.Errorf("%w: collection %q has vector size %d, want %d", ErrSchemaMismatch, name, current, vectorSize)
		}

		s.logger.Warn("recreating collection, all existing points will be lost",
			"collection", name, "old_vector_size", current, "new_vector_size", vectorSize)
		if err := s.client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("delete collection %q: %w", name, err)
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %q: %w", name, err)
	}

	s.logger.Info("created collection", "collection", name, "vector_size", vectorSize, "distance", "cosine")
	return nil
}

func (s *Qdrant) collectionVectorSize(ctx context.Context, name string) (uint64, error) {
	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("get collection %q: %w", name, err)
	}
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return 0, fmt.Errorf("collection %q: no vector params in schema", name)
	}
	return params.GetSize(), nil
}

// Upsert writes records and waits for the store's acknowledgment.
func (s *Qdrant) Upsert(ctx context.Context, collection string, records []Record) error {
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, record := range records {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(record.ID),
			Vectors: qdrant.NewVectors(record.Vector...),
			Payload: qdrant.NewValueMap(record.Payload),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points into %q: %w", len(records), collection, err)
	}
	return nil
}

// Search returns the limit nearest points to vector with payloads.
func (s *Qdrant) Search(ctx context.Context, collection string, vector []float32, limit int) ([]Hit, error) {
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", collection, err)
	}

	hits := make([]Hit, 0, len(points))
	for _, point := range points {
		hits = append(hits, Hit{
			ID:      point.GetId().GetUuid(),
			Score:   point.GetScore(),
			Payload: payloadFromQdrant(point.GetPayload()),
		})
	}
	return hits, nil
}

// Retrieve fetches points by ID with payloads. Missing IDs are simply
// absent from the result.
func (s *Qdrant) Retrieve(ctx context.Context, collection string, ids []string) ([]Record, error) {
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewID(id))
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve %d points from %q: %w", len(ids), collection, err)
	}

	records := make([]Record, 0, len(points))
	for _, point := range points {
		records = append(records, Record{
			ID:      point.GetId().GetUuid(),
			Payload: payloadFromQdrant(point.GetPayload()),
		})
	}
	return records, nil
}

// Count returns the exact number of points in a collection.
func (s *Qdrant) Count(ctx context.Context, collection string) (uint64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", collection, err)
	}
	return count, nil
}

// DeleteCollection drops a collection and everything in it.
func (s *Qdrant) DeleteCollection(ctx context.Context, name string) error {
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("delete collection %q: %w", name, err)
	}
	s.logger.Info("deleted collection", "collection", name)
	return nil
}
