package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"wingmand/internal/hub"
	"wingmand/internal/store"
	"wingmand/pkg/types"
)

const stopWaitTimeout = 30 * time.Second

func (h *handlers) listInference(w http.ResponseWriter, r *http.Request) {
	alias := r.URL.Query().Get("alias")
	var items []types.WingmanItem
	if alias == "" {
		all, err := h.deps.Store.Wingmen.GetAll()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		items = all
	} else {
		item, err := h.deps.Store.Wingmen.Get(alias)
		if err != nil && !store.IsNotFound(err) {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err == nil {
			items = []types.WingmanItem{item}
		}
	}
	writeJSON(w, http.StatusOK, types.InferenceResponse{Items: items})
}

func (h *handlers) startInference(w http.ResponseWriter, r *http.Request) {
	if !h.startMu.TryLock() {
		IncrementBackpressure("inference_start_in_progress")
		writeJSONError(w, http.StatusServiceUnavailable, "another inference start is already in progress")
		return
	}
	defer h.startMu.Unlock()

	q := r.URL.Query()
	modelRepo := q.Get("modelRepo")
	filePath := q.Get("filePath")
	if modelRepo == "" || filePath == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "missing required parameter: modelRepo and filePath are required")
		return
	}
	alias := q.Get("alias")
	if alias == "" {
		alias = filePath
	}

	if existing, err := h.deps.Store.Wingmen.Get(alias); err == nil && existing.Status.IsActive() {
		writeJSON(w, http.StatusAlreadyReported, existing)
		return
	} else if err != nil && !store.IsNotFound(err) {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Assert I1: at most one active inference. If violated, request stop on
	// the active row and wait up to 30s before admitting the new one.
	active, err := h.deps.Store.Wingmen.GetAllActive()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, a := range active {
		if !h.requestStopAndWait(a.Alias, stopWaitTimeout) {
			writeJSONError(w, http.StatusInternalServerError, "failed to stop currently active inference: "+a.Alias)
			return
		}
	}

	di, err := h.deps.Store.Downloads.Get(modelRepo, filePath)
	if store.IsNotFound(err) || (err == nil && di.Status != types.DownloadComplete) {
		writeJSONError(w, http.StatusNotFound, "model file not downloaded: "+modelRepo+":"+filePath)
		return
	}
	if err != nil && !store.IsNotFound(err) {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	address := q.Get("address")
	port := queryInt(q, "port", 6567)
	contextSize := queryInt(q, "contextSize", 0)
	gpuLayers := queryInt(q, "gpuLayers", -1)

	item := types.WingmanItem{
		Alias: alias, ModelRepo: modelRepo, FilePath: filePath,
		Address: address, Port: port, ContextSize: contextSize, GPULayers: gpuLayers,
		Status: types.WingmanQueued,
	}
	if err := h.deps.Store.Wingmen.Set(item); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	saved, err := h.deps.Store.Wingmen.Get(alias)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if h.deps.Hub != nil {
		h.deps.Hub.Publish(hub.WingmanFrame([]types.WingmanItem{saved}))
	}
	writeJSON(w, http.StatusAccepted, saved)
}

func (h *handlers) stopInference(w http.ResponseWriter, r *http.Request) {
	alias := r.URL.Query().Get("alias")
	if alias == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "missing required parameter: alias")
		return
	}
	item, err := h.deps.Store.Wingmen.Get(alias)
	if store.IsNotFound(err) {
		writeJSONError(w, http.StatusNotFound, "inference item not found: "+alias)
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !h.requestStopAndWait(alias, stopWaitTimeout) {
		writeJSONError(w, http.StatusInternalServerError, "timeout waiting for inference to stop: "+alias)
		return
	}
	item, _ = h.deps.Store.Wingmen.Get(alias)
	writeJSON(w, http.StatusOK, item)
}

func (h *handlers) resetInference(w http.ResponseWriter, r *http.Request) {
	alias := r.URL.Query().Get("alias")
	if alias == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "missing required parameter: alias")
		return
	}
	item, err := h.deps.Store.Wingmen.Get(alias)
	if store.IsNotFound(err) {
		writeJSONError(w, http.StatusNotFound, "inference item not found: "+alias)
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !h.requestStopAndWait(alias, stopWaitTimeout) {
		writeJSONError(w, http.StatusInternalServerError, "timeout waiting for inference to stop: "+alias)
		return
	}
	if err := h.deps.Store.Wingmen.Remove(alias); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *handlers) restartInference(w http.ResponseWriter, r *http.Request) {
	rows, err := h.deps.Store.Wingmen.GetByStatus(types.WingmanInferring)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(rows) == 0 {
		writeJSONError(w, http.StatusNotFound, "no inferring model to restart")
		return
	}
	if len(rows) != 1 {
		writeJSONError(w, http.StatusInternalServerError, "found multiple inferring models, expected 1")
		return
	}
	current := rows[0]
	if !h.requestStopAndWait(current.Alias, stopWaitTimeout) {
		writeJSONError(w, http.StatusInternalServerError, "timeout waiting for inference to stop: "+current.Alias)
		return
	}
	if err := h.deps.Store.Wingmen.Remove(current.Alias); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	restarted := types.WingmanItem{
		Alias: current.Alias, ModelRepo: current.ModelRepo, FilePath: current.FilePath,
		Address: current.Address, Port: current.Port, ContextSize: current.ContextSize,
		GPULayers: current.GPULayers, Status: types.WingmanQueued,
	}
	if err := h.deps.Store.Wingmen.Set(restarted); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	saved, err := h.deps.Store.Wingmen.Get(current.Alias)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, saved)
}

// requestStopAndWait transitions alias to cancelling (a no-op if it is
// already in a completed state) and polls the Store until the Inference
// Supervisor's cancellation loop has carried it to a completed status, or
// timeout elapses.
func (h *handlers) requestStopAndWait(alias string, timeout time.Duration) bool {
	item, err := h.deps.Store.Wingmen.Get(alias)
	if err != nil {
		return false
	}
	if item.Status.IsCompleted() {
		return true
	}
	item.Status = types.WingmanCancelling
	if err := h.deps.Store.Wingmen.Set(item); err != nil {
		return false
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		cur, err := h.deps.Store.Wingmen.Get(alias)
		if store.IsNotFound(err) || (err == nil && cur.Status.IsCompleted()) {
			return true
		}
		time.Sleep(200 * time.Millisecond)
	}
	return false
}

func queryInt(q interface{ Get(string) string }, name string, def int) int {
	v := q.Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
