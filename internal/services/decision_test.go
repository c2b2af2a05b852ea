package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pickmate-backend/internal/apperr"
	"pickmate-backend/internal/events"
	"pickmate-backend/internal/models"
)

func TestCreateDecision_Scope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, b, couple := env.pair(t)
	solo := env.createUser(t, "solo")

	shared := env.createDecision(t, a.ID)
	require.NotNil(t, shared.CoupleID)
	assert.Equal(t, couple.ID, *shared.CoupleID)
	assert.Nil(t, shared.OwnerID)
	assert.Equal(t, models.StatusOpen, shared.Status)

	personal, err := env.decisions.Create(ctx, a.ID, CreateDecisionInput{Title: "Book", Personal: true})
	require.NoError(t, err)
	require.NotNil(t, personal.OwnerID)
	assert.Equal(t, a.ID, *personal.OwnerID)
	assert.Nil(t, personal.CoupleID)

	unpaired := env.createDecision(t, solo.ID)
	require.NotNil(t, unpaired.OwnerID)
	assert.Equal(t, solo.ID, *unpaired.OwnerID)

	// b sees the shared decision but not a's personal one
	list, err := env.decisions.List(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, shared.ID, list[0].ID)

	list, err = env.decisions.List(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = env.decisions.Get(ctx, b.ID, personal.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = env.decisions.Get(ctx, solo.ID, shared.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = env.decisions.Get(ctx, a.ID, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateDecision_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "alex")

	tests := []struct {
		name  string
		input CreateDecisionInput
	}{
		{"empty title", CreateDecisionInput{Title: "   "}},
		{"long title", CreateDecisionInput{Title: strings.Repeat("x", maxTitleLength+1)}},
		{"unknown category", CreateDecisionInput{Title: "x", Category: "cars"}},
		{"too many options", CreateDecisionInput{Title: "x", Options: make([]OptionInput, 6)}},
		{"option without title", CreateDecisionInput{Title: "x", Options: []OptionInput{{Title: ""}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.decisions.Create(ctx, u.ID, tt.input)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	d, err := env.decisions.Create(ctx, u.ID, CreateDecisionInput{Title: "  Weekend  "})
	require.NoError(t, err)
	assert.Equal(t, "Weekend", d.Title)
	assert.Equal(t, models.CategoryOther, d.Category)
}

func TestCreateDecision_InlineOptionsKeepOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "alex")

	d := env.createDecision(t, u.ID, "Sushi", "Tacos", "Pizza")

	got, err := env.decisions.Get(ctx, u.ID, d.ID)
	require.NoError(t, err)
	require.Len(t, got.Options, 3)
	for i, title := range []string{"Sushi", "Tacos", "Pizza"} {
		assert.Equal(t, title, got.Options[i].Title)
		assert.Equal(t, i, got.Options[i].Order)
	}
}

func TestAddOption_CapsAtFive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "alex")
	d := env.createDecision(t, u.ID, "1", "2", "3", "4")

	opt, err := env.decisions.AddOption(ctx, u.ID, d.ID, OptionInput{Title: "5", URL: " https://example.com "})
	require.NoError(t, err)
	assert.Equal(t, 4, opt.Order)
	assert.Equal(t, "https://example.com", opt.URL)

	_, err = env.decisions.AddOption(ctx, u.ID, d.ID, OptionInput{Title: "6"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, env.decisions.RemoveOption(ctx, u.ID, d.ID, opt.ID))
	_, err = env.decisions.AddOption(ctx, u.ID, d.ID, OptionInput{Title: "6"})
	require.NoError(t, err)

	err = env.decisions.RemoveOption(ctx, u.ID, d.ID, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAddOption_Forbidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "alex")
	other := env.createUser(t, "eve")
	d := env.createDecision(t, owner.ID)

	_, err := env.decisions.AddOption(context.Background(), other.ID, d.ID, OptionInput{Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestUpdateStatus_Transitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "alex")
	d := env.createDecision(t, u.ID)

	steps := []struct {
		to   models.DecisionStatus
		code apperr.Code
	}{
		{models.StatusArchived, apperr.CodeConflict},
		{models.StatusOpen, ""},
		{models.StatusClosed, ""},
		{models.StatusOpen, ""},
		{models.StatusClosed, ""},
		{models.StatusArchived, ""},
		{models.StatusOpen, apperr.CodeConflict},
		{models.StatusClosed, apperr.CodeConflict},
		{models.StatusArchived, ""},
		{"deleted", apperr.CodeValidation},
	}

	for _, step := range steps {
		got, err := env.decisions.UpdateStatus(ctx, u.ID, d.ID, step.to)
		if step.code != "" {
			assert.Equal(t, step.code, apperr.CodeOf(err), "to %s", step.to)
			continue
		}
		require.NoError(t, err, "to %s", step.to)
		assert.Equal(t, step.to, got.Status)
	}

	_, err := env.decisions.AddOption(ctx, u.ID, d.ID, OptionInput{Title: "late"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestUpdateStatus_PublishesEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	u := env.createUser(t, "alex")
	d := env.createDecision(t, u.ID)

	feed, err := env.bus.Subscribe(ctx, events.DecisionTopic(d.ID))
	require.NoError(t, err)

	_, err = env.decisions.UpdateStatus(ctx, u.ID, d.ID, models.StatusClosed)
	require.NoError(t, err)

	select {
	case ev := <-feed:
		assert.Equal(t, events.DecisionStatusChanged, ev.Type)
		assert.False(t, ev.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no status event")
	}
}

func TestDeleteDecision_Cascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "alex")
	d := env.createDecision(t, u.ID, "Sushi")

	_, err := env.ratings.SetRating(ctx, d.ID, d.Options[0].ID, "voter-1", 2)
	require.NoError(t, err)

	require.NoError(t, env.decisions.Delete(ctx, u.ID, d.ID))

	_, err = env.decisions.Get(ctx, u.ID, d.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	opts, err := env.stores.Options.ListByDecision(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, opts)
	voters, err := env.stores.Ratings.ListVoters(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, voters)
}

func TestCreateDecision_NotifiesPartner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, b, _ := env.pair(t)
	require.NoError(t, env.users.UpdatePushToken(ctx, b.ID, "device-b"))

	env.createDecision(t, a.ID, "Sushi")

	assert.Eventually(t, func() bool {
		for _, p := range env.push.pushes() {
			if p.token == "device-b" && p.msg.Data["type"] == string(events.DecisionCreated) {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}
