package repository

import (
	"context"
	"fmt"
	"time"

	"pickmate-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RatingRepository handles the rating ledger and voter progress
type RatingRepository struct {
	db *pgxpool.Pool
}

// NewRatingRepository creates a new rating repository
func NewRatingRepository(db *pgxpool.Pool) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert writes the rating keyed by (decision, option, voter), overwriting a
// previous rating, and marks the voter as in progress
func (r *RatingRepository) Upsert(ctx context.Context, rating *models.Rating) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO voters (decision_id, voter_id, completed, created_at, updated_at)
			VALUES ($1, $2, FALSE, $3, $3)
			ON CONFLICT (decision_id, voter_id)
			DO UPDATE SET completed = FALSE, updated_at = EXCLUDED.updated_at
		`, rating.DecisionID, rating.VoterID, rating.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert voter: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO ratings (decision_id, option_id, voter_id, stars, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (decision_id, option_id, voter_id)
			DO UPDATE SET stars = EXCLUDED.stars, updated_at = EXCLUDED.updated_at
		`, rating.DecisionID, rating.OptionID, rating.VoterID, rating.Stars, rating.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert rating: %w", err)
		}
		return nil
	})
}

// Get retrieves the voter's rating of an option
func (r *RatingRepository) Get(ctx context.Context, voterID, optionID string) (*models.Rating, error) {
	query := `
		SELECT decision_id, option_id, voter_id, stars, updated_at
		FROM ratings
		WHERE voter_id = $1 AND option_id = $2
	`
	var rating models.Rating
	err := r.db.QueryRow(ctx, query, voterID, optionID).Scan(
		&rating.DecisionID, &rating.OptionID, &rating.VoterID, &rating.Stars, &rating.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "rating not found", "get rating")
	}
	return &rating, nil
}

// ListByDecision retrieves every rating cast on a decision
func (r *RatingRepository) ListByDecision(ctx context.Context, decisionID string) ([]*models.Rating, error) {
	return r.list(ctx, `
		SELECT decision_id, option_id, voter_id, stars, updated_at
		FROM ratings
		WHERE decision_id = $1
		ORDER BY updated_at ASC
	`, decisionID)
}

// ListByVoter retrieves one voter's ratings on a decision
func (r *RatingRepository) ListByVoter(ctx context.Context, decisionID, voterID string) ([]*models.Rating, error) {
	return r.list(ctx, `
		SELECT decision_id, option_id, voter_id, stars, updated_at
		FROM ratings
		WHERE decision_id = $1 AND voter_id = $2
	`, decisionID, voterID)
}

func (r *RatingRepository) list(ctx context.Context, query string, args ...any) ([]*models.Rating, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get ratings: %w", err)
	}
	defer rows.Close()

	var ratings []*models.Rating
	for rows.Next() {
		var rating models.Rating
		err := rows.Scan(&rating.DecisionID, &rating.OptionID, &rating.VoterID, &rating.Stars, &rating.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, &rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ratings: %w", err)
	}
	return ratings, nil
}

// MarkCompleted flags the voter as done with the decision
func (r *RatingRepository) MarkCompleted(ctx context.Context, decisionID, voterID string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO voters (decision_id, voter_id, completed, created_at, updated_at)
		VALUES ($1, $2, TRUE, $3, $3)
		ON CONFLICT (decision_id, voter_id)
		DO UPDATE SET completed = TRUE, updated_at = EXCLUDED.updated_at
	`, decisionID, voterID, at)
	if err != nil {
		return fmt.Errorf("failed to mark voter completed: %w", err)
	}
	return nil
}

// GetVoter retrieves a voter's progress record
func (r *RatingRepository) GetVoter(ctx context.Context, decisionID, voterID string) (*models.Voter, error) {
	query := `
		SELECT decision_id, voter_id, completed, created_at, updated_at
		FROM voters
		WHERE decision_id = $1 AND voter_id = $2
	`
	var v models.Voter
	err := r.db.QueryRow(ctx, query, decisionID, voterID).Scan(
		&v.DecisionID, &v.VoterID, &v.Completed, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "voter not found", "get voter")
	}
	return &v, nil
}

// ListVoters retrieves every voter of a decision
func (r *RatingRepository) ListVoters(ctx context.Context, decisionID string) ([]*models.Voter, error) {
	rows, err := r.db.Query(ctx, `
		SELECT decision_id, voter_id, completed, created_at, updated_at
		FROM voters
		WHERE decision_id = $1
		ORDER BY created_at ASC
	`, decisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get voters: %w", err)
	}
	defer rows.Close()

	var voters []*models.Voter
	for rows.Next() {
		var v models.Voter
		if err := rows.Scan(&v.DecisionID, &v.VoterID, &v.Completed, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan voter: %w", err)
		}
		voters = append(voters, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voters: %w", err)
	}
	return voters, nil
}
