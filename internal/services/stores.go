package services

import (
	"context"
	"time"

	"pickmate-backend/internal/models"
	"pickmate-backend/internal/storage"
)

// Persistence the services depend on. Both the pgx repositories and the
// in-memory store satisfy these.

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
}

type CoupleStore interface {
	CodeExists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, couple *models.Couple) error
	GetByID(ctx context.Context, id string) (*models.Couple, error)
	Join(ctx context.Context, code, userID string) (*models.Couple, error)
	Leave(ctx context.Context, userID string) (*models.CoupleLeave, error)
}

type DecisionStore interface {
	Create(ctx context.Context, decision *models.Decision, options []*models.Option) error
	GetByID(ctx context.Context, id string) (*models.Decision, error)
	ListForUser(ctx context.Context, userID string, coupleID *string) ([]*models.Decision, error)
	UpdateStatus(ctx context.Context, id string, status models.DecisionStatus) error
	Delete(ctx context.Context, id string) error
}

type OptionStore interface {
	// Create appends opt unless the decision is archived or already holds
	// limit options. The check and the insert are atomic.
	Create(ctx context.Context, opt *models.Option, limit int) error
	GetByID(ctx context.Context, id string) (*models.Option, error)
	ListByDecision(ctx context.Context, decisionID string) ([]*models.Option, error)
	Delete(ctx context.Context, decisionID, optionID string) error
}

type RatingStore interface {
	Upsert(ctx context.Context, rating *models.Rating) error
	Get(ctx context.Context, voterID, optionID string) (*models.Rating, error)
	ListByDecision(ctx context.Context, decisionID string) ([]*models.Rating, error)
	ListByVoter(ctx context.Context, decisionID, voterID string) ([]*models.Rating, error)
	MarkCompleted(ctx context.Context, decisionID, voterID string, at time.Time) error
	GetVoter(ctx context.Context, decisionID, voterID string) (*models.Voter, error)
	ListVoters(ctx context.Context, decisionID string) ([]*models.Voter, error)
}

// ImageStore signs direct uploads to object storage
type ImageStore interface {
	PresignPut(ctx context.Context, key, contentType string) (*storage.PresignedUpload, error)
	PublicURL(key string) string
}

// Stores groups every store a server needs
type Stores struct {
	Users     UserStore
	Couples   CoupleStore
	Decisions DecisionStore
	Options   OptionStore
	Ratings   RatingStore
}

func now() time.Time {
	return time.Now().UTC()
}
