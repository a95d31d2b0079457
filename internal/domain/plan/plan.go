// Package plan contains the domain model for daily meal plans: goals,
// slots, candidate sets and the fit-score arithmetic shared by the composer
// and the response auditor.
package plan

import (
	"math"

	"github.com/platewise/v1/internal/domain/recipe"
)

// MealSlot is one of the three fixed slots of a daily plan.
type MealSlot string

const (
	SlotBreakfast MealSlot = "breakfast"
	SlotLunch     MealSlot = "lunch"
	SlotDinner    MealSlot = "dinner"
)

// Slots lists the meal slots in plan order.
func Slots() []MealSlot {
	return []MealSlot{SlotBreakfast, SlotLunch, SlotDinner}
}

// Tag maps a slot to the recipe meal tag that permits it.
func (s MealSlot) Tag() recipe.MealTag {
	return recipe.MealTag(s)
}

// DefaultTolerancePct is applied when a goal does not specify one.
const DefaultTolerancePct = 10.0

// NutritionGoal is the daily target the plan must approach.
type NutritionGoal struct {
	Calories     float64 `json:"calories"`
	Protein      float64 `json:"protein_g"`
	Carbs        float64 `json:"carbs_g"`
	Fat          float64 `json:"fat_g"`
	TolerancePct float64 `json:"tolerance_pct"`
}

// Normalized returns the goal with the default tolerance filled in.
func (g NutritionGoal) Normalized() NutritionGoal {
	if g.TolerancePct <= 0 {
		g.TolerancePct = DefaultTolerancePct
	}
	return g
}

// ScoreWeights weight the four nutrients in the fit score.
type ScoreWeights struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// DefaultWeights emphasize calories and protein over carbs and fat.
func DefaultWeights() ScoreWeights {
	return ScoreWeights{Calories: 1.0, Protein: 1.0, Carbs: 0.5, Fat: 0.5}
}

// IsZero reports whether no weight was supplied.
func (w ScoreWeights) IsZero() bool {
	return w.Calories == 0 && w.Protein == 0 && w.Carbs == 0 && w.Fat == 0
}

// Candidate is a recipe returned by similarity search together with its
// similarity score against the pantry query.
type Candidate struct {
	Recipe     recipe.Recipe
	Similarity float64
}

// CandidateSet is an ordered sequence of candidates, descending similarity,
// ties broken by ascending recipe ID.
type CandidateSet []Candidate

// ByID returns the candidate recipe with the given ID, if present.
func (cs CandidateSet) ByID(id int64) (recipe.Recipe, bool) {
	for _, c := range cs {
		if c.Recipe.ID == id {
			return c.Recipe, true
		}
	}
	return recipe.Recipe{}, false
}

// EligibleFor filters the set down to candidates allowed in the given slot.
// When no candidate carries the slot's tag, every candidate is eligible
// (the wildcard rule).
func (cs CandidateSet) EligibleFor(slot MealSlot) []Candidate {
	var tagged []Candidate
	for _, c := range cs {
		if c.Recipe.EligibleFor(slot.Tag()) {
			tagged = append(tagged, c)
		}
	}
	if len(tagged) == 0 {
		return cs
	}
	return tagged
}

// MealPlan assigns one recipe to each slot, with the derived aggregate
// nutrition and fit score against the goal.
type MealPlan struct {
	Recipes  map[MealSlot]recipe.Recipe
	Total    recipe.NutritionProfile
	FitScore float64
}

// NewMealPlan builds a plan from a full slot assignment and scores it.
func NewMealPlan(assignment map[MealSlot]recipe.Recipe, goal NutritionGoal, weights ScoreWeights) MealPlan {
	var total recipe.NutritionProfile
	for _, slot := range Slots() {
		total = total.Add(assignment[slot].Nutrition)
	}
	return MealPlan{
		Recipes:  assignment,
		Total:    total,
		FitScore: FitScore(total, goal, weights),
	}
}

// Valid reports whether every slot is filled by an eligible recipe and no
// recipe is reused across slots.
func (p MealPlan) Valid() bool {
	seen := make(map[int64]struct{}, len(p.Recipes))
	for _, slot := range Slots() {
		r, ok := p.Recipes[slot]
		if !ok {
			return false
		}
		if !r.EligibleFor(slot.Tag()) {
			return false
		}
		if _, dup := seen[r.ID]; dup {
			return false
		}
		seen[r.ID] = struct{}{}
	}
	return true
}

// FitScore computes the weighted relative distance D between an aggregate
// profile and the goal. Lower is better. A zero goal component contributes
// its absolute shortfall so the score stays finite.
func FitScore(total recipe.NutritionProfile, goal NutritionGoal, weights ScoreWeights) float64 {
	if weights.IsZero() {
		weights = DefaultWeights()
	}
	return weights.Calories*relDistance(total.Calories, goal.Calories) +
		weights.Protein*relDistance(total.Protein, goal.Protein) +
		weights.Carbs*relDistance(total.Carbs, goal.Carbs) +
		weights.Fat*relDistance(total.Fat, goal.Fat)
}

// RejectThreshold derives the audit cutoff from the goal tolerance: twice
// the distance a plan at the edge of tolerance on every nutrient would
// score.
func RejectThreshold(goal NutritionGoal, weights ScoreWeights, multiplier float64) float64 {
	if weights.IsZero() {
		weights = DefaultWeights()
	}
	if multiplier <= 0 {
		multiplier = 2.0
	}
	tol := goal.Normalized().TolerancePct / 100
	weightSum := weights.Calories + weights.Protein + weights.Carbs + weights.Fat
	return multiplier * tol * weightSum
}

func relDistance(actual, target float64) float64 {
	if target == 0 {
		return math.Abs(actual)
	}
	return math.Abs(actual-target) / target
}
