package httpapi

import (
	"net/http"
	"strconv"

	"wingmand/pkg/types"
)

func (h *handlers) retrievalIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.IngestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.DocumentID == "" || len(req.Chunks) == 0 {
		writeJSONError(w, http.StatusUnprocessableEntity, "missing required field: documentId and chunks are required")
		return
	}
	resp, err := h.deps.Retrieval.Ingest(r.Context(), req)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) retrievalQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "missing required parameter: q")
		return
	}
	topK := 5
	if k := r.URL.Query().Get("k"); k != "" {
		if n, err := strconv.Atoi(k); err == nil && n > 0 {
			topK = n
		}
	}
	resp, err := h.deps.Retrieval.Query(r.Context(), q, topK)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
