package repository

import (
	"context"
	"fmt"

	"pickmate-backend/internal/apperr"
	"pickmate-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DecisionRepository handles database operations for decisions
type DecisionRepository struct {
	db *pgxpool.Pool
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db *pgxpool.Pool) *DecisionRepository {
	return &DecisionRepository{db: db}
}

const decisionColumns = `id, couple_id, owner_id, title, category, status, created_by, created_at`

func scanDecision(row pgx.Row) (*models.Decision, error) {
	var d models.Decision
	err := row.Scan(&d.ID, &d.CoupleID, &d.OwnerID, &d.Title, &d.Category, &d.Status, &d.CreatedBy, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a decision together with its initial options
func (r *DecisionRepository) Create(ctx context.Context, decision *models.Decision, options []*models.Option) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO decisions (`+decisionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, decision.ID, decision.CoupleID, decision.OwnerID, decision.Title,
			decision.Category, decision.Status, decision.CreatedBy, decision.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create decision: %w", err)
		}

		for _, opt := range options {
			if err := insertOption(ctx, tx, opt); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID retrieves a decision by ID
func (r *DecisionRepository) GetByID(ctx context.Context, id string) (*models.Decision, error) {
	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE id = $1`
	decision, err := scanDecision(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "decision not found", "get decision")
	}
	return decision, nil
}

// ListForUser returns the user's personal decisions and, when coupleID is
// set, the couple's decisions, newest first
func (r *DecisionRepository) ListForUser(ctx context.Context, userID string, coupleID *string) ([]*models.Decision, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM decisions
		WHERE owner_id = $1 OR ($2::text IS NOT NULL AND couple_id = $2)
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID, coupleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*models.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decisions: %w", err)
	}
	return decisions, nil
}

// UpdateStatus sets the status of a decision
func (r *DecisionRepository) UpdateStatus(ctx context.Context, id string, status models.DecisionStatus) error {
	result, err := r.db.Exec(ctx, `UPDATE decisions SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update decision status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("decision not found")
	}
	return nil
}

// Delete deletes a decision; options, voters and ratings cascade
func (r *DecisionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM decisions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete decision: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("decision not found")
	}
	return nil
}
