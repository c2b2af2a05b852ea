package services

import (
	"context"
	"fmt"

	"pickmate-backend/internal/apperr"
	"pickmate-backend/internal/events"
	"pickmate-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// RatingService records star ratings. Each voter holds at most one rating per
// option; rating again replaces it.
type RatingService struct {
	decisions DecisionStore
	options   OptionStore
	ratings   RatingStore
	effects   *sideEffects
}

// NewRatingService creates a new rating service
func NewRatingService(stores Stores, bus events.Bus) *RatingService {
	return &RatingService{
		decisions: stores.Decisions,
		options:   stores.Options,
		ratings:   stores.Ratings,
		effects:   &sideEffects{users: stores.Users, bus: bus},
	}
}

// SetRating stores voterID's rating of an option on an open decision
func (s *RatingService) SetRating(ctx context.Context, decisionID, optionID, voterID string, stars int) (*models.Rating, error) {
	if stars < models.MinStars || stars > models.MaxStars {
		return nil, apperr.Validation(fmt.Sprintf("stars must be between %d and %d", models.MinStars, models.MaxStars))
	}
	if voterID == "" {
		return nil, apperr.Unauthorized("voter identity required")
	}

	decision, err := s.decisions.GetByID(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	if decision.Status != models.StatusOpen {
		return nil, apperr.Conflict("decision is not open for voting")
	}

	opt, err := s.options.GetByID(ctx, optionID)
	if err != nil {
		return nil, err
	}
	if opt.DecisionID != decisionID {
		return nil, apperr.NotFound("option not found")
	}

	rating := &models.Rating{
		DecisionID: decisionID,
		OptionID:   optionID,
		VoterID:    voterID,
		Stars:      stars,
		UpdatedAt:  now(),
	}
	if err := s.ratings.Upsert(ctx, rating); err != nil {
		return nil, err
	}

	log.Debug().
		Str("decision_id", decisionID).
		Str("option_id", optionID).
		Str("voter_id", voterID).
		Int("stars", stars).
		Msg("Rating saved")

	s.effects.publish(ctx, events.DecisionTopic(decisionID), events.Event{
		Type:       events.RatingUpdated,
		DecisionID: decisionID,
		OptionID:   optionID,
		VoterID:    voterID,
	})
	return rating, nil
}

// GetUserRating returns the voter's stars for an option, or 0 when there is
// no rating. Lookup failures are logged and reported as 0.
func (s *RatingService) GetUserRating(ctx context.Context, voterID, optionID string) int {
	rating, err := s.ratings.Get(ctx, voterID, optionID)
	if err != nil {
		if apperr.CodeOf(err) != apperr.CodeNotFound {
			log.Error().
				Err(err).
				Str("voter_id", voterID).
				Str("option_id", optionID).
				Msg("Failed to get rating")
		}
		return 0
	}
	return rating.Stars
}

// VoterRatings maps option id to the voter's stars, for resuming a vote
func (s *RatingService) VoterRatings(ctx context.Context, decisionID, voterID string) (map[string]int, error) {
	ratings, err := s.ratings.ListByVoter(ctx, decisionID, voterID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(ratings))
	for _, r := range ratings {
		out[r.OptionID] = r.Stars
	}
	return out, nil
}

// MarkCompleted records that the voter finished voting. Repeating it is
// harmless.
func (s *RatingService) MarkCompleted(ctx context.Context, decisionID, voterID string) (*models.Voter, error) {
	if voterID == "" {
		return nil, apperr.Unauthorized("voter identity required")
	}
	if _, err := s.decisions.GetByID(ctx, decisionID); err != nil {
		return nil, err
	}

	if err := s.ratings.MarkCompleted(ctx, decisionID, voterID, now()); err != nil {
		return nil, err
	}

	s.effects.publish(ctx, events.DecisionTopic(decisionID), events.Event{
		Type:       events.VoterCompleted,
		DecisionID: decisionID,
		VoterID:    voterID,
	})
	return s.ratings.GetVoter(ctx, decisionID, voterID)
}

// VoterStatus returns the voter's progress; a voter who has not rated yet is
// reported as not completed
func (s *RatingService) VoterStatus(ctx context.Context, decisionID, voterID string) (*models.Voter, error) {
	v, err := s.ratings.GetVoter(ctx, decisionID, voterID)
	if err == nil {
		return v, nil
	}
	if apperr.CodeOf(err) == apperr.CodeNotFound {
		return &models.Voter{DecisionID: decisionID, VoterID: voterID}, nil
	}
	return nil, err
}
