package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"pickmate-backend/internal/apperr"
	"pickmate-backend/internal/events"
	"pickmate-backend/internal/models"
	"pickmate-backend/internal/notify"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxTitleLength = 120

// DecisionService owns decisions and their options
type DecisionService struct {
	decisions DecisionStore
	options   OptionStore
	users     UserStore
	couples   CoupleStore
	effects   *sideEffects
}

// NewDecisionService creates a new decision service
func NewDecisionService(stores Stores, bus events.Bus, push notify.Notifier) *DecisionService {
	return &DecisionService{
		decisions: stores.Decisions,
		options:   stores.Options,
		users:     stores.Users,
		couples:   stores.Couples,
		effects:   &sideEffects{users: stores.Users, bus: bus, push: push},
	}
}

// OptionInput describes an option to add
type OptionInput struct {
	Title       string `json:"title" validate:"required,max=120"`
	Description string `json:"description" validate:"max=1000"`
	URL         string `json:"url" validate:"omitempty,url,max=2048"`
	ImageURL    string `json:"image_url" validate:"omitempty,url,max=2048"`
	Price       string `json:"price" validate:"max=40"`
}

// CreateDecisionInput describes a new decision. Personal decisions are owned
// by the creator even when they are in a couple.
type CreateDecisionInput struct {
	Title    string          `json:"title" validate:"required,max=120"`
	Category models.Category `json:"category"`
	Personal bool            `json:"personal"`
	Options  []OptionInput   `json:"options" validate:"max=5,dive"`
}

// DecisionDetail is a decision with its options in display order
type DecisionDetail struct {
	*models.Decision
	Options []*models.Option `json:"options"`
}

func cleanTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperr.Validation("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", apperr.Validation(fmt.Sprintf("title must not exceed %d characters", maxTitleLength))
	}
	return title, nil
}

func newOption(decisionID string, input OptionInput) (*models.Option, error) {
	title, err := cleanTitle(input.Title)
	if err != nil {
		return nil, err
	}
	return &models.Option{
		ID:          uuid.New().String(),
		DecisionID:  decisionID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		URL:         strings.TrimSpace(input.URL),
		ImageURL:    strings.TrimSpace(input.ImageURL),
		Price:       strings.TrimSpace(input.Price),
		CreatedAt:   now(),
	}, nil
}

// Create stores a decision and its inline options
func (s *DecisionService) Create(ctx context.Context, userID string, input CreateDecisionInput) (*DecisionDetail, error) {
	title, err := cleanTitle(input.Title)
	if err != nil {
		return nil, err
	}

	category := input.Category
	if category == "" {
		category = models.CategoryOther
	}
	if !category.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown category %q", category))
	}
	if len(input.Options) > models.MaxOptionsPerDecision {
		return nil, apperr.Validation(fmt.Sprintf("a decision can have at most %d options", models.MaxOptionsPerDecision))
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	decision := &models.Decision{
		ID:        uuid.New().String(),
		Title:     title,
		Category:  category,
		Status:    models.StatusOpen,
		CreatedBy: userID,
		CreatedAt: now(),
	}
	if user.CoupleID != nil && !input.Personal {
		decision.CoupleID = user.CoupleID
	} else {
		decision.OwnerID = &user.ID
	}

	options := make([]*models.Option, 0, len(input.Options))
	for _, in := range input.Options {
		opt, err := newOption(decision.ID, in)
		if err != nil {
			return nil, err
		}
		options = append(options, opt)
	}

	if err := s.decisions.Create(ctx, decision, options); err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("decision_id", decision.ID).
		Int("options", len(options)).
		Msg("Decision created")

	if decision.CoupleID != nil {
		s.notifyPartner(ctx, user, decision)
	}

	return &DecisionDetail{Decision: decision, Options: options}, nil
}

func (s *DecisionService) notifyPartner(ctx context.Context, author *models.User, decision *models.Decision) {
	couple, err := s.couples.GetByID(ctx, *decision.CoupleID)
	if err != nil {
		log.Error().Err(err).Str("couple_id", *decision.CoupleID).Msg("Failed to load couple for notification")
		return
	}
	partnerID := couple.PartnerOf(author.ID)
	if partnerID == "" {
		return
	}

	s.effects.publish(ctx, events.UserTopic(partnerID), events.Event{
		Type:       events.DecisionCreated,
		DecisionID: decision.ID,
		CoupleID:   couple.ID,
		UserID:     author.ID,
	})
	s.effects.pushTo(ctx, partnerID, notify.Message{
		Title: decision.Title,
		Body:  author.DisplayName + " wants your opinion",
		Data:  map[string]string{"type": string(events.DecisionCreated), "decision_id": decision.ID},
	})
}

// authorize loads the decision and checks that userID may manage it
func (s *DecisionService) authorize(ctx context.Context, userID, decisionID string) (*models.Decision, error) {
	decision, err := s.decisions.GetByID(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	if decision.OwnerID != nil && *decision.OwnerID == userID {
		return decision, nil
	}
	if decision.CoupleID != nil {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user.CoupleID != nil && *user.CoupleID == *decision.CoupleID {
			return decision, nil
		}
	}
	return nil, apperr.Forbidden("you do not have access to this decision")
}

// Authorize reports whether userID may manage the decision
func (s *DecisionService) Authorize(ctx context.Context, userID, decisionID string) error {
	_, err := s.authorize(ctx, userID, decisionID)
	return err
}

func (s *DecisionService) detail(ctx context.Context, decision *models.Decision) (*DecisionDetail, error) {
	options, err := s.options.ListByDecision(ctx, decision.ID)
	if err != nil {
		return nil, err
	}
	return &DecisionDetail{Decision: decision, Options: options}, nil
}

// Get returns a decision the user has access to
func (s *DecisionService) Get(ctx context.Context, userID, decisionID string) (*DecisionDetail, error) {
	decision, err := s.authorize(ctx, userID, decisionID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, decision)
}

// GetPublic returns a decision for the public voting link. Account and
// couple ids are left out.
func (s *DecisionService) GetPublic(ctx context.Context, decisionID string) (*DecisionDetail, error) {
	decision, err := s.decisions.GetByID(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	decision.CreatedBy = ""
	decision.OwnerID = nil
	decision.CoupleID = nil
	return s.detail(ctx, decision)
}

// List returns the couple's decisions and the user's personal ones, newest
// first
func (s *DecisionService) List(ctx context.Context, userID string) ([]*models.Decision, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	decisions, err := s.decisions.ListForUser(ctx, userID, user.CoupleID)
	if err != nil {
		return nil, err
	}
	if decisions == nil {
		decisions = []*models.Decision{}
	}
	return decisions, nil
}

// UpdateStatus moves a decision through open, closed and archived
func (s *DecisionService) UpdateStatus(ctx context.Context, userID, decisionID string, status models.DecisionStatus) (*models.Decision, error) {
	if !status.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown status %q", status))
	}

	decision, err := s.authorize(ctx, userID, decisionID)
	if err != nil {
		return nil, err
	}
	if decision.Status == status {
		return decision, nil
	}
	if !decision.Status.CanTransitionTo(status) {
		return nil, apperr.Conflict(fmt.Sprintf("cannot change status from %s to %s", decision.Status, status))
	}

	if err := s.decisions.UpdateStatus(ctx, decisionID, status); err != nil {
		return nil, err
	}
	decision.Status = status

	log.Info().
		Str("user_id", userID).
		Str("decision_id", decisionID).
		Str("status", string(status)).
		Msg("Decision status changed")

	s.effects.publish(ctx, events.DecisionTopic(decisionID), events.Event{
		Type:       events.DecisionStatusChanged,
		DecisionID: decisionID,
		UserID:     userID,
	})
	return decision, nil
}

// Delete removes a decision with its options, voters and ratings
func (s *DecisionService) Delete(ctx context.Context, userID, decisionID string) error {
	if _, err := s.authorize(ctx, userID, decisionID); err != nil {
		return err
	}
	if err := s.decisions.Delete(ctx, decisionID); err != nil {
		return err
	}

	log.Info().
		Str("user_id", userID).
		Str("decision_id", decisionID).
		Msg("Decision deleted")

	s.effects.publish(ctx, events.DecisionTopic(decisionID), events.Event{
		Type:       events.DecisionDeleted,
		DecisionID: decisionID,
		UserID:     userID,
	})
	return nil
}

// AddOption appends an option. A decision holds at most five.
func (s *DecisionService) AddOption(ctx context.Context, userID, decisionID string, input OptionInput) (*models.Option, error) {
	decision, err := s.authorize(ctx, userID, decisionID)
	if err != nil {
		return nil, err
	}
	if decision.Status == models.StatusArchived {
		return nil, apperr.Conflict("decision is archived")
	}

	opt, err := newOption(decisionID, input)
	if err != nil {
		return nil, err
	}
	if err := s.options.Create(ctx, opt, models.MaxOptionsPerDecision); err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("decision_id", decisionID).
		Str("option_id", opt.ID).
		Msg("Option added")

	s.effects.publish(ctx, events.DecisionTopic(decisionID), events.Event{
		Type:       events.OptionAdded,
		DecisionID: decisionID,
		OptionID:   opt.ID,
		UserID:     userID,
	})
	return opt, nil
}

// RemoveOption deletes an option and its ratings
func (s *DecisionService) RemoveOption(ctx context.Context, userID, decisionID, optionID string) error {
	if _, err := s.authorize(ctx, userID, decisionID); err != nil {
		return err
	}
	if err := s.options.Delete(ctx, decisionID, optionID); err != nil {
		return err
	}

	log.Info().
		Str("user_id", userID).
		Str("decision_id", decisionID).
		Str("option_id", optionID).
		Msg("Option removed")

	s.effects.publish(ctx, events.DecisionTopic(decisionID), events.Event{
		Type:       events.OptionRemoved,
		DecisionID: decisionID,
		OptionID:   optionID,
		UserID:     userID,
	})
	return nil
}
