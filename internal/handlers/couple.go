package handlers

import (
	"net/http"

	"pickmate-backend/internal/middleware"
	"pickmate-backend/internal/services"
	"pickmate-backend/internal/validation"

	"github.com/rs/zerolog/log"
)

// CoupleHandler handles couple-related HTTP requests
type CoupleHandler struct {
	pairingService *services.PairingService
	validator      *validation.Validator
}

// NewCoupleHandler creates a new couple handler
func NewCoupleHandler(pairingService *services.PairingService, validator *validation.Validator) *CoupleHandler {
	return &CoupleHandler{
		pairingService: pairingService,
		validator:      validator,
	}
}

// JoinCoupleRequest represents the request body for joining a couple
type JoinCoupleRequest struct {
	InviteCode string `json:"invite_code" validate:"required"`
}

// GetCouple handles GET /api/v1/couple
func (h *CoupleHandler) GetCouple(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	couple, err := h.pairingService.GetCouple(r.Context(), userID)
	if err != nil {
		respondAppError(w, log.Error().Str("user_id", userID), err, "Failed to get couple")
		return
	}
	respondJSON(w, http.StatusOK, couple)
}

// CreateCouple handles POST /api/v1/couple
func (h *CoupleHandler) CreateCouple(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	couple, err := h.pairingService.CreateCouple(r.Context(), userID)
	if err != nil {
		respondAppError(w, log.Error().Str("user_id", userID), err, "Failed to create couple")
		return
	}
	respondJSON(w, http.StatusCreated, couple)
}

// JoinCouple handles POST /api/v1/couple/join
func (h *CoupleHandler) JoinCouple(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req JoinCoupleRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondAppError(w, log.Error(), err, "Invalid join couple request")
		return
	}

	couple, err := h.pairingService.JoinCouple(r.Context(), userID, req.InviteCode)
	if err != nil {
		respondAppError(w, log.Error().Str("user_id", userID), err, "Failed to join couple")
		return
	}
	respondJSON(w, http.StatusOK, couple)
}

// LeaveCouple handles DELETE /api/v1/couple
func (h *CoupleHandler) LeaveCouple(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	result, err := h.pairingService.LeaveCouple(r.Context(), userID)
	if err != nil {
		respondAppError(w, log.Error().Str("user_id", userID), err, "Failed to leave couple")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
