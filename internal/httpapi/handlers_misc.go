package httpapi

import (
	"net/http"

	"wingmand/pkg/types"
)

func (h *handlers) listModels(w http.ResponseWriter, r *http.Request) {
	if h.deps.Models == nil {
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: []string{}})
		return
	}
	models, err := h.deps.Models.List(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: models})
}

func (h *handlers) modelMetadata(w http.ResponseWriter, r *http.Request) {
	modelRepo := r.URL.Query().Get("modelRepo")
	filePath := r.URL.Query().Get("filePath")

	if modelRepo == "" || filePath == "" {
		inferring, err := h.deps.Store.Wingmen.GetByStatus(types.WingmanInferring)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		switch len(inferring) {
		case 0:
			writeJSONError(w, http.StatusUnprocessableEntity, "missing required parameter: modelRepo and filePath are required")
			return
		case 1:
			modelRepo, filePath = inferring[0].ModelRepo, inferring[0].FilePath
		default:
			writeJSONError(w, http.StatusInternalServerError, "found multiple inferring models, expected 1")
			return
		}
	}

	if h.deps.Metadata == nil {
		writeJSONError(w, http.StatusNotFound, "metadata reader not configured")
		return
	}
	info, err := h.deps.Metadata.Read(modelRepo, filePath)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "model not found: "+modelRepo+":"+filePath)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
