package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wingmand/internal/retrieval"
	"wingmand/pkg/types"
)

type wordCountEmbedder struct{}

func (wordCountEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{float64(strings.Count(strings.ToLower(text), "cat"))}, nil
}

func withRetrieval(t *testing.T, deps *Dependencies) {
	t.Helper()
	idx, err := retrieval.OpenIndex(t.TempDir())
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	deps.Retrieval = retrieval.New(idx, wordCountEmbedder{})
}

func TestRetrievalIngestAndQuery(t *testing.T) {
	deps, _ := newTestDeps(t)
	withRetrieval(t, deps)
	mux := NewMux(deps)

	ingestReq := types.IngestRequest{DocumentID: "doc1", Chunks: []string{"a cat sat here", "no pets here"}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/retrieval/ingest", jsonBody(ingestReq))
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d body=%s", rec.Code, rec.Body.String())
	}

	recQuery := doRequest(t, mux, http.MethodGet, "/api/retrieval/query?q=cat&k=1")
	if recQuery.Code != http.StatusOK {
		t.Fatalf("query status = %d", recQuery.Code)
	}
	var resp types.QueryResponse
	if err := json.Unmarshal(recQuery.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Matches) != 1 || resp.Matches[0].Text != "a cat sat here" {
		t.Fatalf("unexpected matches: %+v", resp.Matches)
	}
}

func TestRetrievalRoutesAbsentWithoutService(t *testing.T) {
	deps, _ := newTestDeps(t)
	mux := NewMux(deps)
	rec := doRequest(t, mux, http.MethodGet, "/api/retrieval/query?q=cat")
	if rec.Code == http.StatusOK {
		t.Fatalf("expected retrieval routes to be absent, got 200")
	}
}
