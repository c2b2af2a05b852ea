// Package memory is an in-process store with the same contract as the
// PostgreSQL repositories. Every operation runs under one mutex, so multi-row
// changes (join, leave with cascade, rating plus voter) are atomic.
// It backs the `memory` database driver and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pickmate-backend/internal/apperr"
	"pickmate-backend/internal/models"
)

// DB holds every table
type DB struct {
	mu        sync.Mutex
	users     map[string]*models.User
	couples   map[string]*models.Couple
	decisions map[string]*models.Decision
	options   map[string]*models.Option
	ratings   map[ratingKey]*models.Rating
	voters    map[voterKey]*models.Voter
}

type ratingKey struct{ decisionID, optionID, voterID string }

type voterKey struct{ decisionID, voterID string }

// New creates an empty store
func New() *DB {
	return &DB{
		users:     make(map[string]*models.User),
		couples:   make(map[string]*models.Couple),
		decisions: make(map[string]*models.Decision),
		options:   make(map[string]*models.Option),
		ratings:   make(map[ratingKey]*models.Rating),
		voters:    make(map[voterKey]*models.Voter),
	}
}

func (db *DB) Users() *UserRepository         { return &UserRepository{db: db} }
func (db *DB) Couples() *CoupleRepository     { return &CoupleRepository{db: db} }
func (db *DB) Decisions() *DecisionRepository { return &DecisionRepository{db: db} }
func (db *DB) Options() *OptionRepository     { return &OptionRepository{db: db} }
func (db *DB) Ratings() *RatingRepository     { return &RatingRepository{db: db} }

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.CoupleID = cloneString(u.CoupleID)
	c.PushToken = cloneString(u.PushToken)
	return &c
}

func cloneCouple(c *models.Couple) *models.Couple {
	out := *c
	out.Members = append([]string(nil), c.Members...)
	return &out
}

func cloneDecision(d *models.Decision) *models.Decision {
	out := *d
	out.CoupleID = cloneString(d.CoupleID)
	out.OwnerID = cloneString(d.OwnerID)
	return &out
}

// UserRepository stores users
type UserRepository struct{ db *DB }

func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[user.ID]; ok {
		return apperr.Conflict("user already exists")
	}
	for _, u := range r.db.users {
		if u.Email == user.Email {
			return apperr.Conflict("email already in use")
		}
	}
	r.db.users[user.ID] = cloneUser(user)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return cloneUser(u), nil
}

func (r *UserRepository) UpdatePushToken(_ context.Context, userID string, pushToken *string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[userID]
	if !ok {
		return apperr.NotFound("user not found")
	}
	u.PushToken = cloneString(pushToken)
	return nil
}

// CoupleRepository stores couples
type CoupleRepository struct{ db *DB }

func (r *CoupleRepository) CodeExists(_ context.Context, code string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, c := range r.db.couples {
		if c.InviteCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *CoupleRepository) Create(_ context.Context, couple *models.Couple) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[couple.CreatedBy]
	if !ok {
		return apperr.NotFound("user not found")
	}
	if u.CoupleID != nil {
		return apperr.Conflict("you are already in a couple")
	}
	for _, c := range r.db.couples {
		if c.InviteCode == couple.InviteCode {
			return apperr.Conflict("invite code already in use")
		}
	}

	r.db.couples[couple.ID] = cloneCouple(couple)
	id := couple.ID
	u.CoupleID = &id
	return nil
}

func (r *CoupleRepository) GetByID(_ context.Context, id string) (*models.Couple, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.couples[id]
	if !ok {
		return nil, apperr.NotFound("couple not found")
	}
	return cloneCouple(c), nil
}

func (r *CoupleRepository) Join(_ context.Context, code, userID string) (*models.Couple, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var couple *models.Couple
	for _, c := range r.db.couples {
		if c.InviteCode == code {
			couple = c
			break
		}
	}
	if couple == nil {
		return nil, apperr.NotFound("invalid invite code")
	}
	if len(couple.Members) >= 2 {
		return nil, apperr.CoupleFull()
	}
	if couple.HasMember(userID) {
		return nil, apperr.AlreadyMember()
	}

	u, ok := r.db.users[userID]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	if u.CoupleID != nil {
		return nil, apperr.Conflict("leave your current couple before joining another")
	}

	couple.Members = append(couple.Members, userID)
	id := couple.ID
	u.CoupleID = &id
	return cloneCouple(couple), nil
}

func (r *CoupleRepository) Leave(_ context.Context, userID string) (*models.CoupleLeave, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[userID]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	if u.CoupleID == nil {
		return nil, apperr.NotFound("you are not in a couple")
	}
	couple, ok := r.db.couples[*u.CoupleID]
	if !ok {
		return nil, apperr.NotFound("couple not found")
	}

	remaining := make([]string, 0, len(couple.Members))
	for _, m := range couple.Members {
		if m != userID {
			remaining = append(remaining, m)
		}
	}
	u.CoupleID = nil

	result := &models.CoupleLeave{
		CoupleID:         couple.ID,
		InviteCode:       couple.InviteCode,
		RemainingMembers: remaining,
	}
	if len(remaining) > 0 {
		couple.Members = remaining
		return result, nil
	}

	for id, d := range r.db.decisions {
		if d.CoupleID != nil && *d.CoupleID == couple.ID {
			r.db.deleteDecisionLocked(id)
			result.DeletedDecisionIDs = append(result.DeletedDecisionIDs, id)
		}
	}
	sort.Strings(result.DeletedDecisionIDs)
	delete(r.db.couples, couple.ID)
	result.Dissolved = true
	return result, nil
}

// deleteDecisionLocked removes a decision with its options, ratings and voters
func (db *DB) deleteDecisionLocked(id string) {
	delete(db.decisions, id)
	for oid, o := range db.options {
		if o.DecisionID == id {
			delete(db.options, oid)
		}
	}
	for k := range db.ratings {
		if k.decisionID == id {
			delete(db.ratings, k)
		}
	}
	for k := range db.voters {
		if k.decisionID == id {
			delete(db.voters, k)
		}
	}
}

// DecisionRepository stores decisions
type DecisionRepository struct{ db *DB }

func (r *DecisionRepository) Create(_ context.Context, decision *models.Decision, options []*models.Option) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.decisions[decision.ID]; ok {
		return apperr.Conflict("decision already exists")
	}
	r.db.decisions[decision.ID] = cloneDecision(decision)
	for _, opt := range options {
		r.db.insertOptionLocked(opt)
	}
	return nil
}

func (r *DecisionRepository) GetByID(_ context.Context, id string) (*models.Decision, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	d, ok := r.db.decisions[id]
	if !ok {
		return nil, apperr.NotFound("decision not found")
	}
	return cloneDecision(d), nil
}

func (r *DecisionRepository) ListForUser(_ context.Context, userID string, coupleID *string) ([]*models.Decision, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*models.Decision
	for _, d := range r.db.decisions {
		owned := d.OwnerID != nil && *d.OwnerID == userID
		shared := coupleID != nil && d.CoupleID != nil && *d.CoupleID == *coupleID
		if owned || shared {
			out = append(out, cloneDecision(d))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *DecisionRepository) UpdateStatus(_ context.Context, id string, status models.DecisionStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	d, ok := r.db.decisions[id]
	if !ok {
		return apperr.NotFound("decision not found")
	}
	d.Status = status
	return nil
}

func (r *DecisionRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.decisions[id]; !ok {
		return apperr.NotFound("decision not found")
	}
	r.db.deleteDecisionLocked(id)
	return nil
}

// OptionRepository stores options
type OptionRepository struct{ db *DB }

func (db *DB) insertOptionLocked(opt *models.Option) {
	next := 0
	for _, o := range db.options {
		if o.DecisionID == opt.DecisionID && o.Order >= next {
			next = o.Order + 1
		}
	}
	opt.Order = next
	stored := *opt
	db.options[opt.ID] = &stored
}

func (r *OptionRepository) Create(_ context.Context, opt *models.Option, limit int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	d, ok := r.db.decisions[opt.DecisionID]
	if !ok {
		return apperr.NotFound("decision not found")
	}
	if d.Status == models.StatusArchived {
		return apperr.Conflict("decision is archived")
	}
	if r.db.countOptionsLocked(opt.DecisionID) >= limit {
		return apperr.Validation(fmt.Sprintf("a decision can have at most %d options", limit))
	}
	r.db.insertOptionLocked(opt)
	return nil
}

func (r *OptionRepository) GetByID(_ context.Context, id string) (*models.Option, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	o, ok := r.db.options[id]
	if !ok {
		return nil, apperr.NotFound("option not found")
	}
	out := *o
	return &out, nil
}

func (r *OptionRepository) ListByDecision(_ context.Context, decisionID string) ([]*models.Option, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := []*models.Option{}
	for _, o := range r.db.options {
		if o.DecisionID == decisionID {
			c := *o
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (db *DB) countOptionsLocked(decisionID string) int {
	n := 0
	for _, o := range db.options {
		if o.DecisionID == decisionID {
			n++
		}
	}
	return n
}

func (r *OptionRepository) Delete(_ context.Context, decisionID, optionID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	o, ok := r.db.options[optionID]
	if !ok || o.DecisionID != decisionID {
		return apperr.NotFound("option not found")
	}
	delete(r.db.options, optionID)
	for k := range r.db.ratings {
		if k.optionID == optionID {
			delete(r.db.ratings, k)
		}
	}
	return nil
}

// RatingRepository stores ratings and voter progress
type RatingRepository struct{ db *DB }

func (r *RatingRepository) Upsert(_ context.Context, rating *models.Rating) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.decisions[rating.DecisionID]; !ok {
		return apperr.NotFound("decision not found")
	}
	if _, ok := r.db.options[rating.OptionID]; !ok {
		return apperr.NotFound("option not found")
	}

	vk := voterKey{rating.DecisionID, rating.VoterID}
	if v, ok := r.db.voters[vk]; ok {
		v.Completed = false
		v.UpdatedAt = rating.UpdatedAt
	} else {
		r.db.voters[vk] = &models.Voter{
			DecisionID: rating.DecisionID,
			VoterID:    rating.VoterID,
			CreatedAt:  rating.UpdatedAt,
			UpdatedAt:  rating.UpdatedAt,
		}
	}

	stored := *rating
	r.db.ratings[ratingKey{rating.DecisionID, rating.OptionID, rating.VoterID}] = &stored
	return nil
}

func (r *RatingRepository) Get(_ context.Context, voterID, optionID string) (*models.Rating, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for k, rating := range r.db.ratings {
		if k.voterID == voterID && k.optionID == optionID {
			out := *rating
			return &out, nil
		}
	}
	return nil, apperr.NotFound("rating not found")
}

func (r *RatingRepository) ListByDecision(_ context.Context, decisionID string) ([]*models.Rating, error) {
	return r.list(func(k ratingKey) bool { return k.decisionID == decisionID }), nil
}

func (r *RatingRepository) ListByVoter(_ context.Context, decisionID, voterID string) ([]*models.Rating, error) {
	return r.list(func(k ratingKey) bool { return k.decisionID == decisionID && k.voterID == voterID }), nil
}

func (r *RatingRepository) list(match func(ratingKey) bool) []*models.Rating {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*models.Rating
	for k, rating := range r.db.ratings {
		if match(k) {
			c := *rating
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		if out[i].OptionID != out[j].OptionID {
			return out[i].OptionID < out[j].OptionID
		}
		return out[i].VoterID < out[j].VoterID
	})
	return out
}

func (r *RatingRepository) MarkCompleted(_ context.Context, decisionID, voterID string, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.decisions[decisionID]; !ok {
		return apperr.NotFound("decision not found")
	}
	vk := voterKey{decisionID, voterID}
	if v, ok := r.db.voters[vk]; ok {
		v.Completed = true
		v.UpdatedAt = at
		return nil
	}
	r.db.voters[vk] = &models.Voter{
		DecisionID: decisionID,
		VoterID:    voterID,
		Completed:  true,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	return nil
}

func (r *RatingRepository) GetVoter(_ context.Context, decisionID, voterID string) (*models.Voter, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	v, ok := r.db.voters[voterKey{decisionID, voterID}]
	if !ok {
		return nil, apperr.NotFound("voter not found")
	}
	out := *v
	return &out, nil
}

func (r *RatingRepository) ListVoters(_ context.Context, decisionID string) ([]*models.Voter, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*models.Voter
	for k, v := range r.db.voters {
		if k.decisionID == decisionID {
			c := *v
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VoterID < out[j].VoterID })
	return out, nil
}
