package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-match/internal/results"
)

// ResultsHandler serves persisted recognition results.
type ResultsHandler struct {
	store results.Store
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(store results.Store) *ResultsHandler {
	return &ResultsHandler{store: store}
}

// Get returns the persisted result group for one image. The wildcard part
// of the route is the image key; bulk keys are jobID/imageID.
func (h *ResultsHandler) Get(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	key := chi.URLParam(r, "*")
	if key == "" {
		respondError(w, http.StatusBadRequest, "missing image key")
		return
	}

	res, err := h.store.Load(r.Context(), namespace, key)
	if err != nil {
		if errors.Is(err, results.ErrNotFound) {
			respondError(w, http.StatusNotFound, "results not found")
			return
		}
		log.Printf("failed to load results %s/%s: %v", sanitizeForLog(namespace), sanitizeForLog(key), err)
		respondError(w, http.StatusInternalServerError, "failed to load results")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"namespace": namespace,
		"image_id":  key,
		"results":   res,
	})
}
