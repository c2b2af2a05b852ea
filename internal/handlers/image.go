package handlers

import (
	"net/http"

	"pickmate-backend/internal/middleware"
	"pickmate-backend/internal/services"
	"pickmate-backend/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ImageHandler handles option image uploads
type ImageHandler struct {
	imageService *services.ImageService
	validator    *validation.Validator
}

// NewImageHandler creates a new image handler
func NewImageHandler(imageService *services.ImageService, validator *validation.Validator) *ImageHandler {
	return &ImageHandler{
		imageService: imageService,
		validator:    validator,
	}
}

// UploadURL handles POST /api/v1/decisions/{decision_id}/options/image-upload
func (h *ImageHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	decisionID := chi.URLParam(r, "decision_id")

	var req services.UploadRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondAppError(w, log.Error(), err, "Invalid upload request")
		return
	}

	response, err := h.imageService.GetPreSignedURL(r.Context(), userID, decisionID, req)
	if err != nil {
		respondAppError(w, log.Error().
			Str("user_id", userID).
			Str("decision_id", decisionID).
			Str("filename", req.Filename), err, "Failed to generate pre-signed URL")
		return
	}
	respondJSON(w, http.StatusOK, response)
}
