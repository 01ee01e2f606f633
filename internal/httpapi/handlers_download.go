package httpapi

import (
	"net/http"
	"time"

	"wingmand/internal/hub"
	"wingmand/internal/store"
	"wingmand/pkg/types"
)

func (h *handlers) listDownloads(w http.ResponseWriter, r *http.Request) {
	modelRepo := r.URL.Query().Get("modelRepo")
	filePath := r.URL.Query().Get("filePath")
	items, err := h.deps.Store.Downloads.GetAll(modelRepo, filePath)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types.DownloadsResponse{Items: items})
}

func (h *handlers) enqueueDownload(w http.ResponseWriter, r *http.Request) {
	modelRepo := r.URL.Query().Get("modelRepo")
	filePath := r.URL.Query().Get("filePath")
	if modelRepo == "" || filePath == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "missing required parameter: modelRepo and filePath are required")
		return
	}

	existing, err := h.deps.Store.Downloads.Get(modelRepo, filePath)
	if err == nil {
		switch existing.Status {
		case types.DownloadQueued, types.DownloadDownloading, types.DownloadComplete:
			writeJSON(w, http.StatusAlreadyReported, existing)
			return
		}
	} else if !store.IsNotFound(err) {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	item := types.DownloadItem{ModelRepo: modelRepo, FilePath: filePath, Status: types.DownloadQueued}
	if err := h.deps.Store.Downloads.Set(item); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	saved, err := h.deps.Store.Downloads.Get(modelRepo, filePath)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if h.deps.Hub != nil {
		h.deps.Hub.Publish(hub.DownloadFrame([]types.DownloadItem{saved}))
	}
	writeJSON(w, http.StatusAccepted, saved)
}

func (h *handlers) cancelDownload(w http.ResponseWriter, r *http.Request) {
	modelRepo := r.URL.Query().Get("modelRepo")
	filePath := r.URL.Query().Get("filePath")
	if modelRepo == "" || filePath == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "missing required parameter: modelRepo and filePath are required")
		return
	}
	item, err := h.deps.Store.Downloads.Get(modelRepo, filePath)
	if store.IsNotFound(err) {
		writeJSONError(w, http.StatusNotFound, "download item not found")
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	item.Status = types.DownloadCancelled
	item.UpdatedAt = time.Now().UTC()
	if err := h.deps.Store.Downloads.Set(item); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *handlers) removeDownload(w http.ResponseWriter, r *http.Request) {
	modelRepo := r.URL.Query().Get("modelRepo")
	filePath := r.URL.Query().Get("filePath")
	if modelRepo == "" || filePath == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "missing required parameter: modelRepo and filePath are required")
		return
	}
	item, err := h.deps.Store.Downloads.Get(modelRepo, filePath)
	if store.IsNotFound(err) {
		writeJSONError(w, http.StatusNotFound, "download item not found")
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.deps.Store.Downloads.Remove(modelRepo, filePath); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, item)
}
