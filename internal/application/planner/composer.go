package planner

import (
	"github.com/platewise/v1/internal/domain/plan"
	"github.com/platewise/v1/internal/domain/recipe"
	"github.com/platewise/v1/pkg/errors"
)

// scoreEpsilon guards float comparisons when ranking triples.
const scoreEpsilon = 1e-9

// ComposedPlan is the composer's output: an exact plan over the candidate
// set plus the per-slot similarity average used for tie-breaking upstream.
type ComposedPlan struct {
	Plan           plan.MealPlan
	MeanSimilarity float64
}

// Composer exhaustively enumerates slot assignments over a candidate set
// and returns the one minimizing the weighted fit score. With K capped at
// tens of candidates the search space is at most a few thousand triples, so
// no heuristic pruning is needed and the result is exact.
type Composer struct{}

// NewComposer returns a Composer.
func NewComposer() *Composer {
	return &Composer{}
}

// Compose picks one distinct recipe per slot minimizing the fit score D.
// Ties on D go to the triple with the higher mean similarity; remaining
// ties to the lexicographically smallest (breakfast, lunch, dinner) ID
// triple, so the result is deterministic for identical inputs.
func (c *Composer) Compose(candidates plan.CandidateSet, goal plan.NutritionGoal, weights plan.ScoreWeights) (*ComposedPlan, error) {
	goal = goal.Normalized()
	if weights.IsZero() {
		weights = plan.DefaultWeights()
	}

	breakfast := candidates.EligibleFor(plan.SlotBreakfast)
	lunch := candidates.EligibleFor(plan.SlotLunch)
	dinner := candidates.EligibleFor(plan.SlotDinner)
	if len(breakfast) == 0 {
		return nil, errors.NewNoFeasiblePlanError(string(plan.SlotBreakfast))
	}
	if len(lunch) == 0 {
		return nil, errors.NewNoFeasiblePlanError(string(plan.SlotLunch))
	}
	if len(dinner) == 0 {
		return nil, errors.NewNoFeasiblePlanError(string(plan.SlotDinner))
	}

	var (
		found    bool
		best     plan.MealPlan
		bestSim  float64
		bestTrip [3]int64
	)

	for _, b := range breakfast {
		for _, l := range lunch {
			if l.Recipe.ID == b.Recipe.ID {
				continue
			}
			for _, d := range dinner {
				if d.Recipe.ID == b.Recipe.ID || d.Recipe.ID == l.Recipe.ID {
					continue
				}
				total := b.Recipe.Nutrition.Add(l.Recipe.Nutrition).Add(d.Recipe.Nutrition)
				score := plan.FitScore(total, goal, weights)
				sim := (b.Similarity + l.Similarity + d.Similarity) / 3
				trip := [3]int64{b.Recipe.ID, l.Recipe.ID, d.Recipe.ID}

				if found && !better(score, sim, trip, best.FitScore, bestSim, bestTrip) {
					continue
				}

				best = plan.MealPlan{
					Recipes: map[plan.MealSlot]recipe.Recipe{
						plan.SlotBreakfast: b.Recipe,
						plan.SlotLunch:     l.Recipe,
						plan.SlotDinner:    d.Recipe,
					},
					Total:    total,
					FitScore: score,
				}
				bestSim = sim
				bestTrip = trip
				found = true
			}
		}
	}

	if !found {
		return nil, errors.NewNoFeasiblePlanError("any")
	}
	return &ComposedPlan{Plan: best, MeanSimilarity: bestSim}, nil
}

// better ranks (score, similarity, id-triple) tuples: lower score wins,
// then higher similarity, then smaller ID triple.
func better(score, sim float64, trip [3]int64, bestScore, bestSim float64, bestTrip [3]int64) bool {
	if score < bestScore-scoreEpsilon {
		return true
	}
	if score > bestScore+scoreEpsilon {
		return false
	}
	if sim > bestSim+scoreEpsilon {
		return true
	}
	if sim < bestSim-scoreEpsilon {
		return false
	}
	for i := range trip {
		if trip[i] != bestTrip[i] {
			return trip[i] < bestTrip[i]
		}
	}
	return false
}
