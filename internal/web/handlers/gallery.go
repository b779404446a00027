package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-match/internal/constants"
	"github.com/kozaktomas/face-match/internal/embedding"
	"github.com/kozaktomas/face-match/internal/gallery"
)

// GalleryHandler manages the registered identities.
type GalleryHandler struct {
	store    gallery.Store
	provider embedding.Provider
	dim      int
}

// NewGalleryHandler creates a new gallery handler.
func NewGalleryHandler(store gallery.Store, provider embedding.Provider, dim int) *GalleryHandler {
	return &GalleryHandler{
		store:    store,
		provider: provider,
		dim:      dim,
	}
}

// registerRequest is the JSON body for embedding-based registration.
type registerRequest struct {
	Embedding []float32 `json:"embedding"`
}

// Register adds a reference for an identity. JSON bodies carry a raw
// embedding; multipart bodies carry a reference photo ("image" field) that
// must contain exactly one face.
func (h *GalleryHandler) Register(w http.ResponseWriter, r *http.Request) {
	identityID := chi.URLParam(r, "identityId")

	var ref []float32
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/json"):
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
		ref = req.Embedding

	case strings.HasPrefix(contentType, "multipart/form-data"):
		var ok bool
		ref, ok = h.embeddingFromUpload(w, r)
		if !ok {
			return
		}

	default:
		respondError(w, http.StatusUnsupportedMediaType, "expected JSON or multipart body")
		return
	}

	if err := h.store.Register(r.Context(), identityID, ref); err != nil {
		switch {
		case errors.Is(err, gallery.ErrEmptyIdentity):
			respondError(w, http.StatusBadRequest, "identity id is empty")
		case errors.Is(err, gallery.ErrInvalidEmbedding):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("failed to register identity %s: %v", sanitizeForLog(identityID), err)
			respondError(w, http.StatusInternalServerError, "failed to register identity")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"identity_id": gallery.NormalizeID(identityID),
	})
}

// embeddingFromUpload extracts the embedding from a reference photo. The
// photo must contain exactly one face, otherwise registration is ambiguous.
func (h *GalleryHandler) embeddingFromUpload(w http.ResponseWriter, r *http.Request) ([]float32, bool) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return nil, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return nil, false
	}
	defer file.Close()

	if !isAllowedImage(header.Filename) {
		respondError(w, http.StatusBadRequest, "unsupported image format")
		return nil, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read uploaded file")
		return nil, false
	}

	normalized, err := embedding.Normalize(data, constants.MaxImageSize)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "image could not be decoded")
		return nil, false
	}

	faces, err := h.provider.DetectFaces(r.Context(), normalized)
	if err != nil {
		log.Printf("face detection failed during registration: %v", err)
		respondError(w, http.StatusBadGateway, "face detection failed")
		return nil, false
	}
	if len(faces) != 1 {
		respondError(w, http.StatusUnprocessableEntity,
			"reference photo must contain exactly one face")
		return nil, false
	}

	return faces[0].Embedding, true
}

// identityInfo is the list entry for one registered identity.
type identityInfo struct {
	ID         string `json:"id"`
	References int    `json:"references"`
}

// List returns all registered identities in registration order with their
// reference counts.
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Snapshot(r.Context())
	if err != nil {
		log.Printf("failed to snapshot gallery: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to read gallery")
		return
	}

	identities := make([]identityInfo, 0, snap.Len())
	for ident := range snap.All() {
		identities = append(identities, identityInfo{
			ID:         ident.ID,
			References: len(ident.References),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"identities": identities,
		"count":      len(identities),
	})
}

// Remove deletes an identity and all its references.
func (h *GalleryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	identityID := chi.URLParam(r, "identityId")

	if err := h.store.Remove(r.Context(), identityID); err != nil {
		switch {
		case errors.Is(err, gallery.ErrNotFound):
			respondError(w, http.StatusNotFound, "identity not found")
		case errors.Is(err, gallery.ErrEmptyIdentity):
			respondError(w, http.StatusBadRequest, "identity id is empty")
		default:
			log.Printf("failed to remove identity %s: %v", sanitizeForLog(identityID), err)
			respondError(w, http.StatusInternalServerError, "failed to remove identity")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"identity_id": gallery.NormalizeID(identityID),
	})
}
