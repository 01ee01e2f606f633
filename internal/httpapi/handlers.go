package httpapi

import (
	"net/http"
	"sync"

	"wingmand/pkg/types"
)

// handlers closes over Dependencies for every Control API route.
type handlers struct {
	deps    *Dependencies
	startMu *startMutex
}

// startMutex is the single non-reentrant lock guarding the start-inference
// admission decision (§4.5): try-lock, 503 if already held, unlock once the
// decision (stop-and-wait, download check, enqueue) is made.
type startMutex struct {
	mu sync.Mutex
}

func newStartMutex() *startMutex { return &startMutex{} }

func (m *startMutex) TryLock() bool { return m.mu.TryLock() }
func (m *startMutex) Unlock()       { m.mu.Unlock() }

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
}

func (h *handlers) hardware(w http.ResponseWriter, r *http.Request) {
	info := h.deps.Probe(r.Context())
	writeJSON(w, http.StatusOK, info)
}

func (h *handlers) shutdown(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"shutting down"}`))
	if h.deps.RequestShutdown != nil {
		h.deps.RequestShutdown()
	}
}

func (h *handlers) writeLog(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var item types.LogItem
	if err := decodeJSON(r, &item); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	logItem(item)
	w.WriteHeader(http.StatusOK)
}

// writeJSON writes status and encodes v as the JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonEncode(w, v)
}
