package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"wingmand/pkg/types"
)

// Service implements ingest and nearest-neighbour query over an Index.
type Service struct {
	index    *Index
	embedder Embedder
}

// New constructs a Service backed by index, embedding text through embedder.
func New(index *Index, embedder Embedder) *Service {
	return &Service{index: index, embedder: embedder}
}

// Ingest embeds and stores each chunk under documentID, numbered by its
// position in the slice.
func (s *Service) Ingest(ctx context.Context, req types.IngestRequest) (types.IngestResponse, error) {
	stored := 0
	for i, chunk := range req.Chunks {
		vec, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			return types.IngestResponse{}, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		rec := chunkRecord{documentID: req.DocumentID, chunkIndex: i, text: chunk, embedding: vec}
		if err := s.index.Store(rec); err != nil {
			return types.IngestResponse{}, fmt.Errorf("store chunk %d: %w", i, err)
		}
		stored++
	}
	return types.IngestResponse{DocumentID: req.DocumentID, Stored: stored}, nil
}

// Query embeds text and returns the topK nearest stored chunks by cosine
// similarity, highest score first.
func (s *Service) Query(ctx context.Context, text string, topK int) (types.QueryResponse, error) {
	if topK <= 0 {
		topK = 10
	}
	queryVec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return types.QueryResponse{}, fmt.Errorf("embed query: %w", err)
	}
	records, err := s.index.All()
	if err != nil {
		return types.QueryResponse{}, fmt.Errorf("load index: %w", err)
	}

	matches := make([]types.RetrievalMatch, 0, len(records))
	for _, rec := range records {
		matches = append(matches, types.RetrievalMatch{
			DocumentID: rec.documentID,
			ChunkIndex: rec.chunkIndex,
			Text:       rec.text,
			Score:      cosineSimilarity(queryVec, rec.embedding),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return types.QueryResponse{Matches: matches}, nil
}

// cosineSimilarity returns 0 for mismatched or zero-length vectors rather
// than erroring, since a malformed stored embedding should not take down a
// whole query.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
