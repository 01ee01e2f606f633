package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// hfModelCatalog fetches a curated model list from the Hugging Face models
// API, replacing the original's curl::GetAIModelsFast call with an
// idiomatic net/http client.
type hfModelCatalog struct {
	client *http.Client
	limit  int
}

// NewHFModelCatalog builds a ModelCatalog against the Hugging Face models
// endpoint, capped at limit results.
func NewHFModelCatalog(limit int) ModelCatalog {
	if limit <= 0 {
		limit = 20
	}
	return &hfModelCatalog{client: &http.Client{}, limit: limit}
}

type hfModelEntry struct {
	ID string `json:"id"`
}

func (c *hfModelCatalog) List(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("https://huggingface.co/api/models?filter=gguf&sort=downloads&direction=-1&limit=%d", c.limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch model catalog: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("model catalog status %s", resp.Status)
	}
	var entries []hfModelEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode model catalog: %w", err)
	}
	models := make([]string, 0, len(entries))
	for _, e := range entries {
		models = append(models, e.ID)
	}
	return models, nil
}
