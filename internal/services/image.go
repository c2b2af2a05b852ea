package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"pickmate-backend/internal/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ImageService hands out direct upload URLs for option images
type ImageService struct {
	decisions *DecisionService
	store     ImageStore
}

// NewImageService creates a new image service. A nil store disables uploads.
func NewImageService(decisions *DecisionService, store ImageStore) *ImageService {
	return &ImageService{
		decisions: decisions,
		store:     store,
	}
}

// UploadRequest represents a request to get a pre-signed URL
type UploadRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"omitempty,max=100"`
}

// UploadResponse carries the URL to PUT the file to and the URL to store as
// the option's image_url afterwards
type UploadResponse struct {
	UploadURL string `json:"upload_url"`
	Method    string `json:"method"`
	ImageURL  string `json:"image_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// Enabled reports whether an image store is configured
func (s *ImageService) Enabled() bool {
	return s.store != nil
}

// GetPreSignedURL signs an upload of one image for a decision's option
func (s *ImageService) GetPreSignedURL(ctx context.Context, userID, decisionID string, req UploadRequest) (*UploadResponse, error) {
	if s.store == nil {
		return nil, apperr.Unavailable("image uploads are not configured")
	}

	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if contentType == "" {
		contentType = "image/jpeg"
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperr.Validation("content_type must be an image type")
	}

	if err := s.decisions.Authorize(ctx, userID, decisionID); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(req.Filename))
	if ext == "" {
		ext = imageExtensions[contentType]
	}
	key := fmt.Sprintf("decisions/%s/%s%s", decisionID, uuid.New().String(), ext)

	upload, err := s.store.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("decision_id", decisionID).
		Str("key", key).
		Msg("Pre-signed URL generated")

	return &UploadResponse{
		UploadURL: upload.URL,
		Method:    upload.Method,
		ImageURL:  s.store.PublicURL(key),
		Key:       key,
		ExpiresIn: int(upload.ExpiresIn.Seconds()),
	}, nil
}
