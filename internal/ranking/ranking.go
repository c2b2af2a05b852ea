// Package ranking aggregates ratings into a ranked result.
//
// Options are ordered by total stars, not by average: an option rated 3 by
// five voters (15) outranks one rated 3 by a single voter (3). Ties keep the
// options' insertion order. Everything here is a pure function of its inputs.
package ranking

import (
	"sort"
	"time"

	"pickmate-backend/internal/models"
)

// Rank computes per-option totals and returns the options ranked.
// Ratings that reference an option not in options are ignored.
func Rank(options []*models.Option, ratings []*models.Rating) []models.OptionResult {
	type tally struct {
		total int
		count int
	}
	byOption := make(map[string]*tally, len(options))
	for _, o := range options {
		byOption[o.ID] = &tally{}
	}
	for _, r := range ratings {
		t, ok := byOption[r.OptionID]
		if !ok {
			continue
		}
		t.total += r.Stars
		t.count++
	}

	ordered := make([]*models.Option, len(options))
	copy(ordered, options)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	results := make([]models.OptionResult, 0, len(ordered))
	for _, o := range ordered {
		t := byOption[o.ID]
		res := models.OptionResult{
			Option:     *o,
			TotalStars: t.total,
			VoterCount: t.count,
		}
		if t.count > 0 {
			res.AvgStars = float64(t.total) / float64(t.count)
		}
		results = append(results, res)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalStars > results[j].TotalStars
	})
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// Winner returns the top result, or nil when nobody has cast a star.
func Winner(results []models.OptionResult) *models.OptionResult {
	if len(results) == 0 || results[0].TotalStars <= 0 {
		return nil
	}
	w := results[0]
	return &w
}

// Summarize builds the full results view of a decision.
func Summarize(
	decisionID string,
	options []*models.Option,
	ratings []*models.Rating,
	voters []*models.Voter,
	now time.Time,
) *models.Results {
	ranked := Rank(options, ratings)

	// Stores write a voter row with every rating. Rating authors are still
	// counted so a ratings list without voter rows gives the same totals.
	seen := make(map[string]bool)
	completed := 0
	for _, v := range voters {
		if v.DecisionID != decisionID || seen[v.VoterID] {
			continue
		}
		seen[v.VoterID] = true
		if v.Completed {
			completed++
		}
	}
	for _, r := range ratings {
		seen[r.VoterID] = true
	}

	return &models.Results{
		DecisionID:      decisionID,
		Options:         ranked,
		Winner:          Winner(ranked),
		TotalVoters:     len(seen),
		CompletedVoters: completed,
		ComputedAt:      now,
	}
}
