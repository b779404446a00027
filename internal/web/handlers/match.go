package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-match/internal/constants"
	"github.com/kozaktomas/face-match/internal/pipeline"
	"github.com/kozaktomas/face-match/internal/results"
)

// MatchHandler handles synchronous single-image recognition.
type MatchHandler struct {
	single  *pipeline.Single
	results results.Store
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(single *pipeline.Single, store results.Store) *MatchHandler {
	return &MatchHandler{
		single:  single,
		results: store,
	}
}

// Match accepts one image as multipart field "image" and responds with the
// recognition results for every detected face. Results are also persisted
// under the single-image namespace, keyed by the optional "image_id" form
// value (a generated id otherwise).
func (h *MatchHandler) Match(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	if !isAllowedImage(header.Filename) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unsupported image format: %s", sanitizeForLog(header.Filename)))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read uploaded file")
		return
	}

	imageID := r.FormValue("image_id")
	if imageID == "" {
		imageID = uuid.New().String()
	}

	res, err := h.single.Process(r.Context(), imageID, data)
	if err != nil {
		if errors.Is(err, pipeline.ErrUnreadableImage) {
			respondError(w, http.StatusUnprocessableEntity, "image could not be decoded")
			return
		}
		log.Printf("match failed for image %s: %v", sanitizeForLog(imageID), err)
		respondError(w, http.StatusBadGateway, "face detection failed")
		return
	}

	if err := h.results.Persist(r.Context(), results.NamespaceSingle, imageID, res); err != nil {
		log.Printf("failed to persist results for image %s: %v", sanitizeForLog(imageID), err)
		respondError(w, http.StatusInternalServerError, "failed to persist results")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"image_id": imageID,
		"results":  res,
	})
}
