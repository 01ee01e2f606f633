package retrieval

import (
	"context"
	"strings"
	"testing"

	"wingmand/pkg/types"
)

// fakeEmbedder maps a text deterministically to a 3-dim vector so tests can
// reason about similarity without a real model runtime.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	lower := strings.ToLower(text)
	return []float64{
		float64(strings.Count(lower, "cat")),
		float64(strings.Count(lower, "dog")),
		float64(strings.Count(lower, "fish")),
	}, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	idx, err := OpenIndex(t.TempDir())
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return New(idx, fakeEmbedder{})
}

func TestIngestAndQuery(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Ingest(context.Background(), types.IngestRequest{
		DocumentID: "doc1",
		Chunks:     []string{"the cat sat on a mat", "the dog ran in the yard", "a fish swims in water"},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	resp, err := svc.Query(context.Background(), "my cat is fluffy", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.Matches) == 0 {
		t.Fatalf("expected at least one match")
	}
	if resp.Matches[0].Text != "the cat sat on a mat" {
		t.Fatalf("expected cat chunk to rank first, got %q", resp.Matches[0].Text)
	}
}

func TestIngestStoredCount(t *testing.T) {
	svc := newTestService(t)
	resp, err := svc.Ingest(context.Background(), types.IngestRequest{DocumentID: "doc1", Chunks: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if resp.Stored != 3 {
		t.Fatalf("stored = %d, want 3", resp.Stored)
	}
}

func TestCosineSimilarityMismatchedLengths(t *testing.T) {
	if s := cosineSimilarity([]float64{1, 2}, []float64{1, 2, 3}); s != 0 {
		t.Fatalf("expected 0 for mismatched lengths, got %v", s)
	}
}

func TestQueryTopKLimitsResults(t *testing.T) {
	svc := newTestService(t)
	chunks := make([]string, 10)
	for i := range chunks {
		chunks[i] = "cat dog fish text"
	}
	if _, err := svc.Ingest(context.Background(), types.IngestRequest{DocumentID: "doc1", Chunks: chunks}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	resp, err := svc.Query(context.Background(), "cat", 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.Matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(resp.Matches))
	}
}
