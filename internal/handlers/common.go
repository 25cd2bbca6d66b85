package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/lehigh-university-libraries/imgreader/internal/location"
	"github.com/lehigh-university-libraries/imgreader/internal/models"
	"github.com/lehigh-university-libraries/imgreader/internal/reading"
	"github.com/lehigh-university-libraries/imgreader/internal/storage"
)

type Handler struct {
	runStore       *storage.RunStore
	readingService *reading.Service
	credentials    *location.Credentials
	dataDir        string
}

// New creates the API handler. Input and output paths of runs are relative
// to dataDir. Credentials, when set, are used for every run and resolve.
func New(svc *reading.Service, dataDir string, creds *location.Credentials) *Handler {
	return &Handler{
		runStore:       storage.New(),
		readingService: svc,
		credentials:    creds,
		dataDir:        dataDir,
	}
}

// Routes registers the API on mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/runs", h.HandleRuns)
	mux.HandleFunc("/api/runs/", h.HandleRunDetail)
	mux.HandleFunc("/api/resolve", h.HandleResolve)
	mux.HandleFunc("/healthcheck", h.HandleHealthcheck)
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, data, http.StatusOK)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Run helpers
func (h *Handler) getRunOrError(w http.ResponseWriter, runID string) (*models.Run, bool) {
	run, exists := h.runStore.Get(runID)
	if !exists {
		h.writeError(w, "Run not found", http.StatusNotFound)
		return nil, false
	}
	return run, true
}

// dataPath maps a request path into the data directory
func (h *Handler) dataPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if !filepath.IsLocal(p) {
		return "", fmt.Errorf("invalid path %q", p)
	}
	return filepath.Join(h.dataDir, p), nil
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Unable to write healthcheck", "err", err)
	}
}
