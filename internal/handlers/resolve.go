package handlers

import (
	"net/http"
)

// HandleResolve resolves the uri query parameter without reading it
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uri := r.URL.Query().Get("uri")
	if uri == "" {
		h.writeError(w, "uri is required", http.StatusBadRequest)
		return
	}

	res := h.readingService.Resolve(r.Context(), uri, h.credentials)
	if res.Error != "" {
		h.writeJSONStatus(w, res, http.StatusNotFound)
		return
	}
	h.writeJSON(w, res)
}
