package services

import (
	"context"
	"fmt"

	"pickmate-backend/internal/events"
	"pickmate-backend/internal/models"
	"pickmate-backend/internal/ranking"

	"github.com/rs/zerolog/log"
)

// ResultsService computes ranked results and keeps live watchers up to date
type ResultsService struct {
	decisions DecisionStore
	options   OptionStore
	ratings   RatingStore
	bus       events.Bus
}

// NewResultsService creates a new results service
func NewResultsService(stores Stores, bus events.Bus) *ResultsService {
	return &ResultsService{
		decisions: stores.Decisions,
		options:   stores.Options,
		ratings:   stores.Ratings,
		bus:       bus,
	}
}

// Get computes a snapshot of the decision's results
func (s *ResultsService) Get(ctx context.Context, decisionID string) (*models.Results, error) {
	if _, err := s.decisions.GetByID(ctx, decisionID); err != nil {
		return nil, err
	}
	return s.compute(ctx, decisionID)
}

func (s *ResultsService) compute(ctx context.Context, decisionID string) (*models.Results, error) {
	options, err := s.options.ListByDecision(ctx, decisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load options: %w", err)
	}
	ratings, err := s.ratings.ListByDecision(ctx, decisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}
	voters, err := s.ratings.ListVoters(ctx, decisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load voters: %w", err)
	}
	return ranking.Summarize(decisionID, options, ratings, voters, now()), nil
}

// Watch emits the current results, then fresh results after every change to
// the decision. The channel closes when ctx is done or the decision is
// deleted.
func (s *ResultsService) Watch(ctx context.Context, decisionID string) (<-chan *models.Results, error) {
	if _, err := s.decisions.GetByID(ctx, decisionID); err != nil {
		return nil, err
	}

	// subscribe before the first snapshot so no change slips in between
	changes, err := s.bus.Subscribe(ctx, events.DecisionTopic(decisionID))
	if err != nil {
		return nil, fmt.Errorf("failed to watch decision: %w", err)
	}

	out := make(chan *models.Results, 1)
	go func() {
		defer close(out)

		send := func() bool {
			results, err := s.compute(ctx, decisionID)
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Str("decision_id", decisionID).Msg("Failed to compute results")
				}
				return ctx.Err() == nil
			}
			select {
			case out <- results:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-changes:
				if !ok {
					return
				}
				if ev.Type == events.DecisionDeleted {
					return
				}
				if !send() {
					return
				}
			}
		}
	}()

	return out, nil
}
