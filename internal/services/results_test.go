package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pickmate-backend/internal/apperr"
	"pickmate-backend/internal/models"
)

func TestResults_TotalStarsBeatAverage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "alex")
	d := env.createDecision(t, u.ID, "A", "B")
	a, b := d.Options[0].ID, d.Options[1].ID

	for i := 0; i < 5; i++ {
		_, err := env.ratings.SetRating(ctx, d.ID, a, fmt.Sprintf("voter-%d", i), 3)
		require.NoError(t, err)
	}
	_, err := env.ratings.SetRating(ctx, d.ID, b, "voter-x", 3)
	require.NoError(t, err)
	_, err = env.ratings.MarkCompleted(ctx, d.ID, "voter-x")
	require.NoError(t, err)

	res, err := env.results.Get(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, res.Options, 2)

	assert.Equal(t, a, res.Options[0].ID)
	assert.Equal(t, 15, res.Options[0].TotalStars)
	assert.Equal(t, 5, res.Options[0].VoterCount)
	assert.Equal(t, 1, res.Options[0].Rank)
	assert.Equal(t, b, res.Options[1].ID)
	assert.Equal(t, 2, res.Options[1].Rank)

	require.NotNil(t, res.Winner)
	assert.Equal(t, a, res.Winner.ID)
	assert.Equal(t, 6, res.TotalVoters)
	assert.Equal(t, 1, res.CompletedVoters)
}

func TestResults_NoRatings(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "alex")
	d := env.createDecision(t, u.ID, "A", "B", "C")

	res, err := env.results.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Winner)
	for i, r := range res.Options {
		assert.Equal(t, d.Options[i].ID, r.ID)
		assert.Equal(t, 0, r.TotalStars)
	}

	_, err = env.results.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func next(t *testing.T, ch <-chan *models.Results) *models.Results {
	t.Helper()
	select {
	case r, ok := <-ch:
		require.True(t, ok, "watch closed")
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for results")
	}
	return nil
}

func TestWatch_RecomputesOnChange(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	u := env.createUser(t, "alex")
	d := env.createDecision(t, u.ID, "A", "B")

	feed, err := env.results.Watch(ctx, d.ID)
	require.NoError(t, err)

	first := next(t, feed)
	assert.Nil(t, first.Winner)

	_, err = env.ratings.SetRating(ctx, d.ID, d.Options[1].ID, "voter-1", 2)
	require.NoError(t, err)

	second := next(t, feed)
	require.NotNil(t, second.Winner)
	assert.Equal(t, d.Options[1].ID, second.Winner.ID)
	assert.Equal(t, 2, second.Winner.TotalStars)

	_, err = env.decisions.AddOption(ctx, u.ID, d.ID, OptionInput{Title: "C"})
	require.NoError(t, err)
	third := next(t, feed)
	assert.Len(t, third.Options, 3)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-feed:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatch_ClosesWhenDecisionDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	u := env.createUser(t, "alex")
	d := env.createDecision(t, u.ID, "A")

	feed, err := env.results.Watch(ctx, d.ID)
	require.NoError(t, err)
	next(t, feed)

	require.NoError(t, env.decisions.Delete(ctx, u.ID, d.ID))

	select {
	case _, ok := <-feed:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not close")
	}
}

func TestWatch_UnknownDecision(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.results.Watch(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
