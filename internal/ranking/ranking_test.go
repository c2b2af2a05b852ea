package ranking

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"pickmate-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeOptions(ids ...string) []*models.Option {
	opts := make([]*models.Option, len(ids))
	for i, id := range ids {
		opts[i] = &models.Option{ID: id, DecisionID: "d1", Title: "Option " + id, Order: i}
	}
	return opts
}

func rate(optionID, voterID string, stars int) *models.Rating {
	return &models.Rating{DecisionID: "d1", OptionID: optionID, VoterID: voterID, Stars: stars}
}

func ids(results []models.OptionResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestRank_TotalBeatsAverage(t *testing.T) {
	options := makeOptions("B", "A")
	var ratings []*models.Rating
	for i := 0; i < 5; i++ {
		ratings = append(ratings, rate("A", fmt.Sprintf("v%d", i), 3))
	}
	ratings = append(ratings, rate("B", "v0", 3))

	results := Rank(options, ratings)

	require.Len(t, results, 2)
	assert.Equal(t, []string{"A", "B"}, ids(results))
	assert.Equal(t, 15, results[0].TotalStars)
	assert.Equal(t, 5, results[0].VoterCount)
	assert.InDelta(t, 3.0, results[0].AvgStars, 1e-9)
	assert.Equal(t, 3, results[1].TotalStars)
	assert.InDelta(t, 3.0, results[1].AvgStars, 1e-9)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
}

func TestRank_NoRatingsKeepsInsertionOrderAndNoWinner(t *testing.T) {
	options := makeOptions("first", "second", "third")

	results := Rank(options, nil)

	assert.Equal(t, []string{"first", "second", "third"}, ids(results))
	for _, r := range results {
		assert.Zero(t, r.TotalStars)
		assert.Zero(t, r.VoterCount)
		assert.Zero(t, r.AvgStars)
	}
	assert.Nil(t, Winner(results))
}

func TestRank_TiesKeepOptionOrder(t *testing.T) {
	options := makeOptions("a", "b", "c")
	ratings := []*models.Rating{
		rate("c", "v1", 2),
		rate("b", "v1", 2),
		rate("a", "v2", 1),
		rate("a", "v3", 1),
	}

	results := Rank(options, ratings)

	assert.Equal(t, []string{"a", "b", "c"}, ids(results))
}

func TestRank_UsesOrderFieldNotSlicePosition(t *testing.T) {
	options := []*models.Option{
		{ID: "late", Order: 2},
		{ID: "early", Order: 0},
		{ID: "middle", Order: 1},
	}

	results := Rank(options, nil)

	assert.Equal(t, []string{"early", "middle", "late"}, ids(results))
}

func TestRank_IgnoresRatingsForUnknownOptions(t *testing.T) {
	options := makeOptions("a")
	ratings := []*models.Rating{rate("a", "v1", 2), rate("deleted", "v1", 3)}

	results := Rank(options, ratings)

	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].TotalStars)
}

func TestRank_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		options := makeOptions("o0", "o1", "o2", "o3", "o4")[:1+rng.Intn(5)]
		var ratings []*models.Rating
		sum := 0
		for v := 0; v < rng.Intn(8); v++ {
			for _, o := range options {
				if rng.Intn(2) == 0 {
					continue
				}
				stars := 1 + rng.Intn(3)
				sum += stars
				ratings = append(ratings, rate(o.ID, fmt.Sprintf("v%d", v), stars))
			}
		}

		results := Rank(options, ratings)

		total := 0
		for i, r := range results {
			total += r.TotalStars
			if r.VoterCount > 0 {
				assert.InDelta(t, float64(r.TotalStars)/float64(r.VoterCount), r.AvgStars, 1e-9)
			} else {
				assert.Zero(t, r.AvgStars)
			}
			if i > 0 {
				assert.GreaterOrEqual(t, results[i-1].TotalStars, r.TotalStars)
			}
			assert.Equal(t, i+1, r.Rank)
		}
		assert.Equal(t, sum, total)

		// Identical inputs rank identically, also with ratings shuffled.
		shuffled := make([]*models.Rating, len(ratings))
		copy(shuffled, ratings)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, ids(results), ids(Rank(options, ratings)))
		assert.Equal(t, ids(results), ids(Rank(options, shuffled)))
	}
}

func TestWinner(t *testing.T) {
	results := Rank(makeOptions("a", "b"), []*models.Rating{rate("b", "v1", 1)})

	w := Winner(results)
	require.NotNil(t, w)
	assert.Equal(t, "b", w.ID)
	assert.Nil(t, Winner(nil))
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	options := makeOptions("a", "b")
	ratings := []*models.Rating{rate("a", "anon-1", 3), rate("b", "anon-2", 1), rate("a", "user-1", 2)}
	voters := []*models.Voter{
		{DecisionID: "d1", VoterID: "anon-1", Completed: true},
		{DecisionID: "d1", VoterID: "anon-2"},
		{DecisionID: "d1", VoterID: "anon-3", Completed: true},
	}

	res := Summarize("d1", options, ratings, voters, now)

	assert.Equal(t, "d1", res.DecisionID)
	assert.Equal(t, []string{"a", "b"}, ids(res.Options))
	require.NotNil(t, res.Winner)
	assert.Equal(t, "a", res.Winner.ID)
	assert.Equal(t, 4, res.TotalVoters)
	assert.Equal(t, 2, res.CompletedVoters)
	assert.Equal(t, now, res.ComputedAt)
}
