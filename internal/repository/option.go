package repository

import (
	"context"
	"fmt"

	"pickmate-backend/internal/apperr"
	"pickmate-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OptionRepository handles database operations for decision options
type OptionRepository struct {
	db *pgxpool.Pool
}

// NewOptionRepository creates a new option repository
func NewOptionRepository(db *pgxpool.Pool) *OptionRepository {
	return &OptionRepository{db: db}
}

const optionColumns = `id, decision_id, title, description, url, image_url, price, position, created_at`

func scanOption(row pgx.Row) (*models.Option, error) {
	var o models.Option
	err := row.Scan(
		&o.ID, &o.DecisionID, &o.Title, &o.Description, &o.URL,
		&o.ImageURL, &o.Price, &o.Order, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// rowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// insertOption appends opt after the decision's last option and stores the
// assigned position back into opt.Order
func insertOption(ctx context.Context, q rowQuerier, opt *models.Option) error {
	query := `
		INSERT INTO options (id, decision_id, title, description, url, image_url, price, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
			(SELECT COALESCE(MAX(position) + 1, 0) FROM options WHERE decision_id = $2), $8)
		RETURNING position
	`
	err := q.QueryRow(ctx, query,
		opt.ID, opt.DecisionID, opt.Title, opt.Description, opt.URL, opt.ImageURL, opt.Price, opt.CreatedAt,
	).Scan(&opt.Order)
	if err != nil {
		return fmt.Errorf("failed to create option: %w", err)
	}
	return nil
}

// Create adds an option at the end of its decision unless the decision is
// archived or already holds limit options. The decision row is locked so
// concurrent adds see each other's count and position.
func (r *OptionRepository) Create(ctx context.Context, opt *models.Option, limit int) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var status models.DecisionStatus
		err := tx.QueryRow(ctx, `SELECT status FROM decisions WHERE id = $1 FOR UPDATE`, opt.DecisionID).Scan(&status)
		if err != nil {
			return notFound(err, "decision not found", "lock decision")
		}
		if status == models.StatusArchived {
			return apperr.Conflict("decision is archived")
		}

		var total int
		err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM options WHERE decision_id = $1`, opt.DecisionID).Scan(&total)
		if err != nil {
			return fmt.Errorf("failed to count options: %w", err)
		}
		if total >= limit {
			return apperr.Validation(fmt.Sprintf("a decision can have at most %d options", limit))
		}

		return insertOption(ctx, tx, opt)
	})
}

// GetByID retrieves an option by ID
func (r *OptionRepository) GetByID(ctx context.Context, id string) (*models.Option, error) {
	query := `SELECT ` + optionColumns + ` FROM options WHERE id = $1`
	opt, err := scanOption(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "option not found", "get option")
	}
	return opt, nil
}

// ListByDecision retrieves a decision's options in insertion order
func (r *OptionRepository) ListByDecision(ctx context.Context, decisionID string) ([]*models.Option, error) {
	query := `
		SELECT ` + optionColumns + `
		FROM options
		WHERE decision_id = $1
		ORDER BY position ASC, created_at ASC
	`
	rows, err := r.db.Query(ctx, query, decisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get options: %w", err)
	}
	defer rows.Close()

	options := []*models.Option{}
	for rows.Next() {
		opt, err := scanOption(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", err)
	}
	return options, nil
}

// Delete removes an option; its ratings cascade
func (r *OptionRepository) Delete(ctx context.Context, decisionID, optionID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM options WHERE id = $1 AND decision_id = $2`, optionID, decisionID)
	if err != nil {
		return fmt.Errorf("failed to delete option: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("option not found")
	}
	return nil
}
