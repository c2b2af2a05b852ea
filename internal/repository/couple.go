package repository

import (
	"context"
	"fmt"

	"pickmate-backend/internal/apperr"
	"pickmate-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CoupleRepository handles database operations for couples.
// Every membership change runs in a single transaction with the couple row
// locked, so membership can never exceed two and a leave never half-applies.
type CoupleRepository struct {
	db *pgxpool.Pool
}

// NewCoupleRepository creates a new couple repository
func NewCoupleRepository(db *pgxpool.Pool) *CoupleRepository {
	return &CoupleRepository{db: db}
}

const coupleColumns = `id, members, invite_code, created_by, created_at`

func scanCouple(row pgx.Row) (*models.Couple, error) {
	var c models.Couple
	if err := row.Scan(&c.ID, &c.Members, &c.InviteCode, &c.CreatedBy, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CodeExists checks if an invite code is already taken
func (r *CoupleRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM couples WHERE invite_code = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check invite code existence: %w", err)
	}
	return exists, nil
}

// Create inserts the couple and links its creator in one transaction
func (r *CoupleRepository) Create(ctx context.Context, couple *models.Couple) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var current *string
		err := tx.QueryRow(ctx, `SELECT couple_id FROM users WHERE id = $1 FOR UPDATE`, couple.CreatedBy).Scan(&current)
		if err != nil {
			return notFound(err, "user not found", "lock user")
		}
		if current != nil {
			return apperr.Conflict("you are already in a couple")
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO couples (id, members, invite_code, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, couple.ID, couple.Members, couple.InviteCode, couple.CreatedBy, couple.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("invite code already in use")
			}
			return fmt.Errorf("failed to create couple: %w", err)
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET couple_id = $1 WHERE id = $2`, couple.ID, couple.CreatedBy); err != nil {
			return fmt.Errorf("failed to link user to couple: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a couple by ID
func (r *CoupleRepository) GetByID(ctx context.Context, id string) (*models.Couple, error) {
	query := `SELECT ` + coupleColumns + ` FROM couples WHERE id = $1`
	couple, err := scanCouple(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "couple not found", "get couple")
	}
	return couple, nil
}

// Join appends userID to the couple holding code
func (r *CoupleRepository) Join(ctx context.Context, code, userID string) (*models.Couple, error) {
	var joined *models.Couple
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `SELECT ` + coupleColumns + ` FROM couples WHERE invite_code = $1 FOR UPDATE`
		couple, err := scanCouple(tx.QueryRow(ctx, query, code))
		if err != nil {
			return notFound(err, "invalid invite code", "get couple by invite code")
		}

		if len(couple.Members) >= 2 {
			return apperr.CoupleFull()
		}
		if couple.HasMember(userID) {
			return apperr.AlreadyMember()
		}

		var current *string
		err = tx.QueryRow(ctx, `SELECT couple_id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&current)
		if err != nil {
			return notFound(err, "user not found", "lock user")
		}
		if current != nil {
			return apperr.Conflict("leave your current couple before joining another")
		}

		err = tx.QueryRow(ctx,
			`UPDATE couples SET members = array_append(members, $2) WHERE id = $1 RETURNING members`,
			couple.ID, userID,
		).Scan(&couple.Members)
		if err != nil {
			return fmt.Errorf("failed to add couple member: %w", err)
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET couple_id = $1 WHERE id = $2`, couple.ID, userID); err != nil {
			return fmt.Errorf("failed to link user to couple: %w", err)
		}

		joined = couple
		return nil
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// Leave removes userID from its couple. When nobody remains the couple and
// all of its decisions (with their options, voters and ratings) are deleted.
func (r *CoupleRepository) Leave(ctx context.Context, userID string) (*models.CoupleLeave, error) {
	var result *models.CoupleLeave
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var coupleID *string
		err := tx.QueryRow(ctx, `SELECT couple_id FROM users WHERE id = $1`, userID).Scan(&coupleID)
		if err != nil {
			return notFound(err, "user not found", "get user couple")
		}
		if coupleID == nil {
			return apperr.NotFound("you are not in a couple")
		}

		query := `SELECT ` + coupleColumns + ` FROM couples WHERE id = $1 FOR UPDATE`
		couple, err := scanCouple(tx.QueryRow(ctx, query, *coupleID))
		if err != nil {
			return notFound(err, "couple not found", "lock couple")
		}
		if !couple.HasMember(userID) {
			return apperr.Conflict("couple membership changed, try again")
		}

		remaining := make([]string, 0, len(couple.Members))
		for _, m := range couple.Members {
			if m != userID {
				remaining = append(remaining, m)
			}
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET couple_id = NULL WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("failed to unlink user from couple: %w", err)
		}

		result = &models.CoupleLeave{
			CoupleID:         couple.ID,
			InviteCode:       couple.InviteCode,
			RemainingMembers: remaining,
		}

		if len(remaining) > 0 {
			_, err := tx.Exec(ctx, `UPDATE couples SET members = $2 WHERE id = $1`, couple.ID, remaining)
			if err != nil {
				return fmt.Errorf("failed to remove couple member: %w", err)
			}
			return nil
		}

		rows, err := tx.Query(ctx, `DELETE FROM decisions WHERE couple_id = $1 RETURNING id`, couple.ID)
		if err != nil {
			return fmt.Errorf("failed to delete couple decisions: %w", err)
		}
		deleted, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("failed to delete couple decisions: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM couples WHERE id = $1`, couple.ID); err != nil {
			return fmt.Errorf("failed to delete couple: %w", err)
		}

		result.Dissolved = true
		result.DeletedDecisionIDs = deleted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
