package handlers

import (
	"net/http"

	"pickmate-backend/internal/identity"
	"pickmate-backend/internal/middleware"
	"pickmate-backend/internal/models"
	"pickmate-backend/internal/services"
	"pickmate-backend/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// VoteHandler serves the public voting link. Voters are identified by
// middleware.VoterIdentity and need no account.
type VoteHandler struct {
	decisionService *services.DecisionService
	ratingService   *services.RatingService
	resultsService  *services.ResultsService
	validator       *validation.Validator
}

// NewVoteHandler creates a new vote handler
func NewVoteHandler(
	decisionService *services.DecisionService,
	ratingService *services.RatingService,
	resultsService *services.ResultsService,
	validator *validation.Validator,
) *VoteHandler {
	return &VoteHandler{
		decisionService: decisionService,
		ratingService:   ratingService,
		resultsService:  resultsService,
		validator:       validator,
	}
}

// BallotResponse is what a voter needs to start or resume voting
type BallotResponse struct {
	Decision  *services.DecisionDetail `json:"decision"`
	MyRatings map[string]int           `json:"my_ratings"`
	Voter     identity.Identity        `json:"voter"`
	Completed bool                     `json:"completed"`
}

// DoneResponse is the voter's completion state with current results
type DoneResponse struct {
	Voter   *models.Voter   `json:"voter"`
	Results *models.Results `json:"results"`
}

// GetBallot handles GET /vote/{decision_id}
func (h *VoteHandler) GetBallot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	voter := middleware.GetVoter(ctx)
	decisionID := chi.URLParam(r, "decision_id")

	decision, err := h.decisionService.GetPublic(ctx, decisionID)
	if err != nil {
		respondAppError(w, log.Error().Str("decision_id", decisionID), err, "Failed to get decision")
		return
	}

	mine, err := h.ratingService.VoterRatings(ctx, decisionID, voter.VoterID)
	if err != nil {
		respondAppError(w, log.Error().Str("decision_id", decisionID), err, "Failed to get ratings")
		return
	}

	status, err := h.ratingService.VoterStatus(ctx, decisionID, voter.VoterID)
	if err != nil {
		respondAppError(w, log.Error().Str("decision_id", decisionID), err, "Failed to get voter status")
		return
	}

	respondJSON(w, http.StatusOK, BallotResponse{
		Decision:  decision,
		MyRatings: mine,
		Voter:     voter,
		Completed: status.Completed,
	})
}

// MyRatingResponse is the voter's stars for one option, 0 when unrated
type MyRatingResponse struct {
	OptionID string `json:"option_id"`
	Stars    int    `json:"stars"`
}

// GetRating handles GET /vote/{decision_id}/options/{option_id}
func (h *VoteHandler) GetRating(w http.ResponseWriter, r *http.Request) {
	voter := middleware.GetVoter(r.Context())
	optionID := chi.URLParam(r, "option_id")

	respondJSON(w, http.StatusOK, MyRatingResponse{
		OptionID: optionID,
		Stars:    h.ratingService.GetUserRating(r.Context(), voter.VoterID, optionID),
	})
}

// Rate handles PUT /vote/{decision_id}/options/{option_id}
func (h *VoteHandler) Rate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	voter := middleware.GetVoter(ctx)
	decisionID := chi.URLParam(r, "decision_id")
	optionID := chi.URLParam(r, "option_id")

	var req RatingRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondAppError(w, log.Error(), err, "Invalid rating request")
		return
	}

	rating, err := h.ratingService.SetRating(ctx, decisionID, optionID, voter.VoterID, req.Stars)
	if err != nil {
		respondAppError(w, log.Error().
			Str("decision_id", decisionID).
			Str("option_id", optionID).
			Str("voter_id", voter.VoterID), err, "Failed to save vote")
		return
	}
	respondJSON(w, http.StatusOK, rating)
}

// MarkDone handles POST /vote/{decision_id}/done
func (h *VoteHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	voter := middleware.GetVoter(ctx)
	decisionID := chi.URLParam(r, "decision_id")

	v, err := h.ratingService.MarkCompleted(ctx, decisionID, voter.VoterID)
	if err != nil {
		respondAppError(w, log.Error().Str("decision_id", decisionID).Str("voter_id", voter.VoterID), err, "Failed to complete vote")
		return
	}

	log.Info().
		Str("decision_id", decisionID).
		Str("voter_id", voter.VoterID).
		Msg("Voter completed")

	h.respondDone(w, r, v)
}

// GetDone handles GET /vote/{decision_id}/done
func (h *VoteHandler) GetDone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	voter := middleware.GetVoter(ctx)
	decisionID := chi.URLParam(r, "decision_id")

	v, err := h.ratingService.VoterStatus(ctx, decisionID, voter.VoterID)
	if err != nil {
		respondAppError(w, log.Error().Str("decision_id", decisionID), err, "Failed to get voter status")
		return
	}
	h.respondDone(w, r, v)
}

func (h *VoteHandler) respondDone(w http.ResponseWriter, r *http.Request, v *models.Voter) {
	results, err := h.resultsService.Get(r.Context(), v.DecisionID)
	if err != nil {
		respondAppError(w, log.Error().Str("decision_id", v.DecisionID), err, "Failed to get results")
		return
	}
	respondJSON(w, http.StatusOK, DoneResponse{Voter: v, Results: results})
}
