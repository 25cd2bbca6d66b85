package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/imgreader/internal/pipeline"
	"github.com/lehigh-university-libraries/imgreader/internal/reading"
	"github.com/lehigh-university-libraries/imgreader/internal/settings"
)

type runRequest struct {
	Input       string          `json:"input"`
	Output      string          `json:"output"`
	Settings    json.RawMessage `json:"settings"`
	KeyColumn   string          `json:"key_column"`
	RowIDColumn string          `json:"row_id_column"`
}

func (h *Handler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, h.runStore.List())
	case "POST":
		h.createRun(w, r)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleRunDetail(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimPrefix(r.URL.Path, "/api/runs/")

	run, ok := h.getRunOrError(w, runID)
	if !ok {
		return
	}

	switch r.Method {
	case "GET":
		h.writeJSON(w, run)
	case "DELETE":
		h.runStore.Delete(runID)
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// createRun executes a run synchronously and records it
func (h *Handler) createRun(w http.ResponseWriter, r *http.Request) {
	var request runRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.Input == "" {
		h.writeError(w, "input is required", http.StatusBadRequest)
		return
	}

	input, err := h.dataPath(request.Input)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	output, err := h.dataPath(request.Output)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// omitted settings keep their defaults
	st := settings.Default()
	if len(request.Settings) > 0 {
		if err := json.Unmarshal(request.Settings, &st); err != nil {
			h.writeError(w, "Invalid settings: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	run, err := h.readingService.Execute(r.Context(), reading.Request{
		Input:       input,
		Output:      output,
		Settings:    st,
		KeyColumn:   request.KeyColumn,
		RowIDColumn: request.RowIDColumn,
		Credentials: h.credentials,
	})
	h.runStore.Set(run)

	switch {
	case err == nil:
		h.writeJSONStatus(w, run, http.StatusCreated)
	case errors.Is(err, pipeline.ErrAllRowsFailed):
		h.writeJSONStatus(w, run, http.StatusUnprocessableEntity)
	case run.Summary == nil:
		// configuration or input errors
		h.writeJSONStatus(w, run, http.StatusBadRequest)
	default:
		h.writeJSONStatus(w, run, http.StatusInternalServerError)
	}
}
