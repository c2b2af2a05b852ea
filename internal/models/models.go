package models

import "time"

// MaxOptionsPerDecision caps the options a decision can hold.
const MaxOptionsPerDecision = 5

// Rating bounds
const (
	MinStars = 1
	MaxStars = 3
)

// DecisionStatus is the lifecycle state of a decision
type DecisionStatus string

const (
	StatusOpen     DecisionStatus = "open"
	StatusClosed   DecisionStatus = "closed"
	StatusArchived DecisionStatus = "archived"
)

// Valid reports whether s is a known status
func (s DecisionStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusClosed, StatusArchived:
		return true
	}
	return false
}

// CanTransitionTo reports whether a decision in status s may move to next.
// open -> closed, closed -> open, closed -> archived. Archived is terminal.
func (s DecisionStatus) CanTransitionTo(next DecisionStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusOpen:
		return next == StatusClosed
	case StatusClosed:
		return next == StatusOpen || next == StatusArchived
	}
	return false
}

// Category groups decisions by what is being decided
type Category string

const (
	CategoryFood     Category = "food"
	CategoryMovie    Category = "movie"
	CategoryActivity Category = "activity"
	CategoryTravel   Category = "travel"
	CategoryShopping Category = "shopping"
	CategoryOther    Category = "other"
)

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryMovie, CategoryActivity, CategoryTravel, CategoryShopping, CategoryOther:
		return true
	}
	return false
}

// User represents an account
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CoupleID    *string   `json:"couple_id,omitempty"`
	PushToken   *string   `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Couple represents two linked users sharing decisions
type Couple struct {
	ID         string    `json:"id"`
	Members    []string  `json:"members"`
	InviteCode string    `json:"invite_code"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasMember reports whether userID belongs to the couple
func (c *Couple) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// PartnerOf returns the other member, or "" if there is none
func (c *Couple) PartnerOf(userID string) string {
	for _, m := range c.Members {
		if m != userID {
			return m
		}
	}
	return ""
}

// CoupleLeave describes the outcome of a member leaving a couple
type CoupleLeave struct {
	CoupleID           string   `json:"couple_id"`
	InviteCode         string   `json:"invite_code"`
	RemainingMembers   []string `json:"remaining_members"`
	Dissolved          bool     `json:"dissolved"`
	DeletedDecisionIDs []string `json:"deleted_decision_ids,omitempty"`
}

// Decision is a named choice resolved among several options.
// Exactly one of CoupleID and OwnerID is set.
type Decision struct {
	ID        string         `json:"id"`
	CoupleID  *string        `json:"couple_id,omitempty"`
	OwnerID   *string        `json:"owner_id,omitempty"`
	Title     string         `json:"title"`
	Category  Category       `json:"category"`
	Status    DecisionStatus `json:"status"`
	CreatedBy string         `json:"created_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Option is one candidate within a decision
type Option struct {
	ID          string    `json:"id"`
	DecisionID  string    `json:"decision_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Price       string    `json:"price,omitempty"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
}

// Rating is a voter's score for one option. At most one exists per
// (DecisionID, OptionID, VoterID).
type Rating struct {
	DecisionID string    `json:"decision_id"`
	OptionID   string    `json:"option_id"`
	VoterID    string    `json:"voter_id"`
	Stars      int       `json:"stars"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Voter tracks one voter's progress through a decision
type Voter struct {
	DecisionID string    `json:"decision_id"`
	VoterID    string    `json:"voter_id"`
	Completed  bool      `json:"completed"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// OptionResult is an option with its aggregated score
type OptionResult struct {
	Option
	TotalStars int     `json:"total_stars"`
	VoterCount int     `json:"voter_count"`
	AvgStars   float64 `json:"avg_stars"`
	Rank       int     `json:"rank"` // 1-indexed
}

// Results is the ranked outcome of a decision
type Results struct {
	DecisionID      string         `json:"decision_id"`
	Options         []OptionResult `json:"options"`
	Winner          *OptionResult  `json:"winner,omitempty"`
	TotalVoters     int            `json:"total_voters"`
	CompletedVoters int            `json:"completed_voters"`
	ComputedAt      time.Time      `json:"computed_at"`
}
