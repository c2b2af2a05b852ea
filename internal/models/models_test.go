package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecisionStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to DecisionStatus
		want     bool
	}{
		{StatusOpen, StatusClosed, true},
		{StatusOpen, StatusArchived, false},
		{StatusClosed, StatusOpen, true},
		{StatusClosed, StatusArchived, true},
		{StatusArchived, StatusOpen, false},
		{StatusArchived, StatusClosed, false},
		{StatusOpen, StatusOpen, true},
		{StatusArchived, StatusArchived, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCategory_Valid(t *testing.T) {
	assert.True(t, CategoryTravel.Valid())
	assert.False(t, Category("sports").Valid())
	assert.False(t, DecisionStatus("active").Valid())
}

func TestCouple_Members(t *testing.T) {
	c := &Couple{Members: []string{"u1", "u2"}}

	assert.True(t, c.HasMember("u2"))
	assert.False(t, c.HasMember("u3"))
	assert.Equal(t, "u2", c.PartnerOf("u1"))

	solo := &Couple{Members: []string{"u1"}}
	assert.Equal(t, "", solo.PartnerOf("u1"))
}
