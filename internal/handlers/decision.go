package handlers

import (
	"net/http"

	"pickmate-backend/internal/middleware"
	"pickmate-backend/internal/models"
	"pickmate-backend/internal/services"
	"pickmate-backend/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// DecisionHandler handles decision, option and member rating requests
type DecisionHandler struct {
	decisionService *services.DecisionService
	ratingService   *services.RatingService
	resultsService  *services.ResultsService
	validator       *validation.Validator
}

// NewDecisionHandler creates a new decision handler
func NewDecisionHandler(
	decisionService *services.DecisionService,
	ratingService *services.RatingService,
	resultsService *services.ResultsService,
	validator *validation.Validator,
) *DecisionHandler {
	return &DecisionHandler{
		decisionService: decisionService,
		ratingService:   ratingService,
		resultsService:  resultsService,
		validator:       validator,
	}
}

// StatusRequest changes a decision's status
type StatusRequest struct {
	Status models.DecisionStatus `json:"status" validate:"required"`
}

// RatingRequest sets the caller's stars for an option
type RatingRequest struct {
	Stars int `json:"stars"`
}

// List handles GET /api/v1/decisions
func (h *DecisionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	decisions, err := h.decisionService.List(r.Context(), userID)
	if err != nil {
		respondAppError(w, log.Error().Str("user_id", userID), err, "Failed to list decisions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"decisions": decisions})
}

// Create handles POST /api/v1/decisions
func (h *DecisionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.CreateDecisionInput
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondAppError(w, log.Error(), err, "Invalid create decision request")
		return
	}

	decision, err := h.decisionService.Create(r.Context(), userID, req)
	if err != nil {
		respondAppError(w, log.Error().Str("user_id", userID), err, "Failed to create decision")
		return
	}
	respondJSON(w, http.StatusCreated, decision)
}

// Get handles GET /api/v1/decisions/{decision_id}
func (h *DecisionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	decisionID := chi.URLParam(r, "decision_id")

	decision, err := h.decisionService.Get(r.Context(), userID, decisionID)
	if err != nil {
		respondAppError(w, log.Error().Str("decision_id", decisionID), err, "Failed to get decision")
		return
	}
	respondJSON(w, http.StatusOK, decision)
}

// Delete handles DELETE /api/v1/decisions/{decision_id}
func (h *DecisionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	decisionID := chi.URLParam(r, "decision_id")

	if err := h.decisionService.Delete(r.Context(), userID, decisionID); err != nil {
		respondAppError(w, log.Error().Str("decision_id", decisionID), err, "Failed to delete decision")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus handles PATCH /api/v1/decisions/{decision_id}/status
func (h *DecisionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	decisionID := chi.URLParam(r, "decision_id")

	var req StatusRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondAppError(w, log.Error(), err, "Invalid status request")
		return
	}

	decision, err := h.decisionService.UpdateStatus(r.Context(), userID, decisionID, req.Status)
	if err != nil {
		respondAppError(w, log.Error().Str("decision_id", decisionID), err, "Failed to update decision status")
		return
	}
	respondJSON(w, http.StatusOK, decision)
}

// AddOption handles POST /api/v1/decisions/{decision_id}/options
func (h *DecisionHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	decisionID := chi.URLParam(r, "decision_id")

	var req services.OptionInput
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondAppError(w, log.Error(), err, "Invalid option request")
		return
	}

	opt, err := h.decisionService.AddOption(r.Context(), userID, decisionID, req)
	if err != nil {
		respondAppError(w, log.Error().Str("decision_id", decisionID), err, "Failed to add option")
		return
	}
	respondJSON(w, http.StatusCreated, opt)
}

// RemoveOption handles DELETE /api/v1/decisions/{decision_id}/options/{option_id}
func (h *DecisionHandler) RemoveOption(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	decisionID := chi.URLParam(r, "decision_id")
	optionID := chi.URLParam(r, "option_id")

	if err := h.decisionService.RemoveOption(r.Context(), userID, decisionID, optionID); err != nil {
		respondAppError(w, log.Error().Str("decision_id", decisionID).Str("option_id", optionID), err, "Failed to remove option")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Rate handles PUT /api/v1/decisions/{decision_id}/options/{option_id}/rating.
// Members rate with their account id in the same ledger as public voters.
func (h *DecisionHandler) Rate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	decisionID := chi.URLParam(r, "decision_id")
	optionID := chi.URLParam(r, "option_id")

	var req RatingRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondAppError(w, log.Error(), err, "Invalid rating request")
		return
	}

	if err := h.decisionService.Authorize(r.Context(), userID, decisionID); err != nil {
		respondAppError(w, log.Error().Str("decision_id", decisionID), err, "Failed to rate option")
		return
	}

	rating, err := h.ratingService.SetRating(r.Context(), decisionID, optionID, userID, req.Stars)
	if err != nil {
		respondAppError(w, log.Error().Str("decision_id", decisionID).Str("option_id", optionID), err, "Failed to rate option")
		return
	}
	respondJSON(w, http.StatusOK, rating)
}

// Results handles GET /api/v1/decisions/{decision_id}/results
func (h *DecisionHandler) Results(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	decisionID := chi.URLParam(r, "decision_id")

	if err := h.decisionService.Authorize(r.Context(), userID, decisionID); err != nil {
		respondAppError(w, log.Error().Str("decision_id", decisionID), err, "Failed to get results")
		return
	}

	results, err := h.resultsService.Get(r.Context(), decisionID)
	if err != nil {
		respondAppError(w, log.Error().Str("decision_id", decisionID), err, "Failed to get results")
		return
	}
	respondJSON(w, http.StatusOK, results)
}
