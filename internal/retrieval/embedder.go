// Package retrieval implements the Retrieval Service (C7): ingesting text
// chunks by embedding and storing them, and answering nearest-neighbour
// queries by cosine similarity. Grounded on the original retrieval tool's
// embed-then-nearest-neighbour shape (tools/tool.retrieve.cpp), re-expressed
// against the same model-runtime HTTP contract (§6) used for inference
// rather than a bespoke annoy-index binary.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// httpEmbedder calls a running model runtime's POST /embedding endpoint,
// the same contract the Inference Supervisor's children expose.
type httpEmbedder struct {
	endpoint string
	client   *http.Client
}

// NewHTTPEmbedder constructs an Embedder against endpoint, the base URL of
// a model runtime serving /embedding (typically a dedicated embedding-model
// instance started out of band from the main inference queue).
func NewHTTPEmbedder(endpoint string) Embedder {
	return &httpEmbedder{endpoint: endpoint, client: &http.Client{}}
}

type embedRequest struct {
	Content string `json:"content"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (e *httpEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Content: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/embedding", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embed endpoint status %s: %s", resp.Status, string(b))
	}
	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	return out.Embedding, nil
}
