// Package events carries change notifications between services and live
// feeds. Topics are per decision and per user.
package events

import (
	"context"
	"time"
)

// Type names what changed
type Type string

const (
	RatingUpdated         Type = "rating.updated"
	VoterCompleted        Type = "voter.completed"
	OptionAdded           Type = "option.added"
	OptionRemoved         Type = "option.removed"
	DecisionCreated       Type = "decision.created"
	DecisionStatusChanged Type = "decision.status_changed"
	DecisionDeleted       Type = "decision.deleted"
	CoupleJoined          Type = "couple.joined"
	CoupleLeft            Type = "couple.left"
)

// Event is a change notification. Only the ids relevant to Type are set.
type Event struct {
	Type       Type      `json:"type"`
	DecisionID string    `json:"decision_id,omitempty"`
	CoupleID   string    `json:"couple_id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	OptionID   string    `json:"option_id,omitempty"`
	VoterID    string    `json:"voter_id,omitempty"`
	At         time.Time `json:"at"`
}

// Bus fans events out to subscribers of a topic.
// Subscribe returns a channel that is closed once ctx is done.
type Bus interface {
	Publish(ctx context.Context, topic string, event Event) error
	Subscribe(ctx context.Context, topic string) (<-chan Event, error)
}

// DecisionTopic is the topic for changes to one decision
func DecisionTopic(decisionID string) string {
	return "decision:" + decisionID
}

// UserTopic is the topic for events addressed to one user
func UserTopic(userID string) string {
	return "user:" + userID
}
