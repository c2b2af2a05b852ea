package services

import (
	"context"
	"fmt"
	"strings"

	"pickmate-backend/internal/apperr"
	"pickmate-backend/internal/events"
	"pickmate-backend/internal/models"
	"pickmate-backend/internal/notify"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
)

const (
	codeLength      = 6
	codeChars       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts = 10
)

// PairingService links two users into a couple through an invite code
type PairingService struct {
	couples CoupleStore
	users   UserStore
	effects *sideEffects
}

// NewPairingService creates a new pairing service
func NewPairingService(couples CoupleStore, users UserStore, bus events.Bus, push notify.Notifier) *PairingService {
	return &PairingService{
		couples: couples,
		users:   users,
		effects: &sideEffects{users: users, bus: bus, push: push},
	}
}

// PublicUser is the part of a profile a partner may see
type PublicUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// CoupleView is a couple as seen by one of its members
type CoupleView struct {
	*models.Couple
	Partner *PublicUser `json:"partner,omitempty"`
}

// GenerateUniqueCode generates an invite code no other couple holds
func (s *PairingService) GenerateUniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := gonanoid.Generate(codeChars, codeLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		exists, err := s.couples.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code existence: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique code after %d attempts", maxCodeAttempts)
}

// NormalizeCode trims and upper-cases a typed invite code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateCouple starts a couple with userID as its only member
func (s *PairingService) CreateCouple(ctx context.Context, userID string) (*models.Couple, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.CoupleID != nil {
		return nil, apperr.Conflict("you are already in a couple")
	}

	code, err := s.GenerateUniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	couple := &models.Couple{
		ID:         uuid.New().String(),
		Members:    []string{userID},
		InviteCode: code,
		CreatedBy:  userID,
		CreatedAt:  now(),
	}
	if err := s.couples.Create(ctx, couple); err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("couple_id", couple.ID).
		Msg("Couple created")

	return couple, nil
}

// JoinCouple adds userID to the couple holding code
func (s *PairingService) JoinCouple(ctx context.Context, userID, code string) (*models.Couple, error) {
	code = NormalizeCode(code)
	if len(code) != codeLength {
		return nil, apperr.Validation(fmt.Sprintf("invite code must be %d characters", codeLength))
	}

	couple, err := s.couples.Join(ctx, code, userID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("couple_id", couple.ID).
		Msg("Joined couple")

	partnerID := couple.PartnerOf(userID)
	for _, member := range couple.Members {
		s.effects.publish(ctx, events.UserTopic(member), events.Event{
			Type:     events.CoupleJoined,
			CoupleID: couple.ID,
			UserID:   userID,
		})
	}
	if joiner, err := s.users.GetByID(ctx, userID); err == nil {
		s.effects.pushTo(ctx, partnerID, notify.Message{
			Title: "You're paired!",
			Body:  joiner.DisplayName + " joined your couple",
			Data:  map[string]string{"type": string(events.CoupleJoined), "couple_id": couple.ID},
		})
	}

	return couple, nil
}

// LeaveCouple removes userID from its couple. The last member leaving
// dissolves the couple along with its decisions.
func (s *PairingService) LeaveCouple(ctx context.Context, userID string) (*models.CoupleLeave, error) {
	result, err := s.couples.Leave(ctx, userID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("couple_id", result.CoupleID).
		Bool("dissolved", result.Dissolved).
		Int("deleted_decisions", len(result.DeletedDecisionIDs)).
		Msg("Left couple")

	for _, decisionID := range result.DeletedDecisionIDs {
		s.effects.publish(ctx, events.DecisionTopic(decisionID), events.Event{
			Type:       events.DecisionDeleted,
			DecisionID: decisionID,
			CoupleID:   result.CoupleID,
		})
	}
	for _, member := range result.RemainingMembers {
		s.effects.publish(ctx, events.UserTopic(member), events.Event{
			Type:     events.CoupleLeft,
			CoupleID: result.CoupleID,
			UserID:   userID,
		})
		s.effects.pushTo(ctx, member, notify.Message{
			Title: "Your partner left",
			Body:  "Share your invite code to pair again",
			Data:  map[string]string{"type": string(events.CoupleLeft), "couple_id": result.CoupleID},
		})
	}

	return result, nil
}

// GetCouple returns the user's couple with the partner's public profile
func (s *PairingService) GetCouple(ctx context.Context, userID string) (*CoupleView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.CoupleID == nil {
		return nil, apperr.NotFound("you are not in a couple")
	}

	couple, err := s.couples.GetByID(ctx, *user.CoupleID)
	if err != nil {
		return nil, err
	}

	view := &CoupleView{Couple: couple}
	if partnerID := couple.PartnerOf(userID); partnerID != "" {
		partner, err := s.users.GetByID(ctx, partnerID)
		if err != nil {
			return nil, fmt.Errorf("failed to get partner: %w", err)
		}
		view.Partner = &PublicUser{ID: partner.ID, DisplayName: partner.DisplayName}
	}
	return view, nil
}

// PartnerID returns the other member of the user's couple, or "" when the
// user is unpaired or alone
func (s *PairingService) PartnerID(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.CoupleID == nil {
		return "", nil
	}
	couple, err := s.couples.GetByID(ctx, *user.CoupleID)
	if err != nil {
		return "", err
	}
	return couple.PartnerOf(userID), nil
}
