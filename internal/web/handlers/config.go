package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-match/internal/config"
)

// ConfigHandler exposes the non-sensitive service configuration.
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{config: cfg}
}

// Get returns the active model, embedding dimension, and match threshold.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"model":     h.config.Embedding.Model,
		"dim":       h.config.Embedding.Dim,
		"threshold": h.config.Match.Threshold,
	})
}
