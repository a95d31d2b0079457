package plan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/v1/internal/domain/recipe"
)

func TestNutritionGoalNormalized(t *testing.T) {
	g := NutritionGoal{Calories: 2000}.Normalized()
	assert.Equal(t, DefaultTolerancePct, g.TolerancePct)

	g = NutritionGoal{Calories: 2000, TolerancePct: 5}.Normalized()
	assert.Equal(t, 5.0, g.TolerancePct)
}

func TestFitScore(t *testing.T) {
	goal := NutritionGoal{Calories: 2000, Protein: 100, Carbs: 250, Fat: 70}
	weights := DefaultWeights()

	t.Run("exact match scores zero", func(t *testing.T) {
		total := recipe.NutritionProfile{Calories: 2000, Protein: 100, Carbs: 250, Fat: 70}
		assert.Zero(t, FitScore(total, goal, weights))
	})

	t.Run("weighted relative distances sum", func(t *testing.T) {
		// 10% over on calories, 20% under on protein, carbs and fat exact.
		total := recipe.NutritionProfile{Calories: 2200, Protein: 80, Carbs: 250, Fat: 70}
		want := 1.0*0.1 + 1.0*0.2
		assert.InDelta(t, want, FitScore(total, goal, weights), 1e-12)
	})

	t.Run("zero goal component uses absolute shortfall", func(t *testing.T) {
		zeroCarbGoal := NutritionGoal{Calories: 2000, Protein: 100, Carbs: 0, Fat: 70}
		total := recipe.NutritionProfile{Calories: 2000, Protein: 100, Carbs: 30, Fat: 70}
		got := FitScore(total, zeroCarbGoal, weights)
		assert.False(t, math.IsInf(got, 1))
		assert.InDelta(t, 0.5*30, got, 1e-12)
	})

	t.Run("zero weights fall back to defaults", func(t *testing.T) {
		total := recipe.NutritionProfile{Calories: 2200, Protein: 100, Carbs: 250, Fat: 70}
		assert.InDelta(t, FitScore(total, goal, DefaultWeights()), FitScore(total, goal, ScoreWeights{}), 1e-12)
	})
}

func TestRejectThreshold(t *testing.T) {
	goal := NutritionGoal{Calories: 2000, TolerancePct: 10}
	weights := DefaultWeights()

	// multiplier * tolerance * weight sum = 2.0 * 0.10 * 3.0
	assert.InDelta(t, 0.6, RejectThreshold(goal, weights, 2.0), 1e-12)

	// A non-positive multiplier falls back to 2.0.
	assert.InDelta(t, 0.6, RejectThreshold(goal, weights, 0), 1e-12)

	// The default tolerance applies when the goal has none.
	assert.InDelta(t, 0.6, RejectThreshold(NutritionGoal{Calories: 2000}, weights, 2.0), 1e-12)
}

func TestCandidateSetByID(t *testing.T) {
	cs := CandidateSet{
		{Recipe: recipe.Recipe{ID: 7, Name: "lentil soup"}},
		{Recipe: recipe.Recipe{ID: 9, Name: "beef stew"}},
	}

	r, ok := cs.ByID(9)
	require.True(t, ok)
	assert.Equal(t, "beef stew", r.Name)

	_, ok = cs.ByID(42)
	assert.False(t, ok)
}

func TestCandidateSetEligibleFor(t *testing.T) {
	breakfastOnly := recipe.Recipe{ID: 1, MealTags: []recipe.MealTag{recipe.MealTagBreakfast}}
	dinnerOnly := recipe.Recipe{ID: 2, MealTags: []recipe.MealTag{recipe.MealTagDinner}}
	wildcard := recipe.Recipe{ID: 3}

	t.Run("tagged candidates filter the set", func(t *testing.T) {
		cs := CandidateSet{{Recipe: breakfastOnly}, {Recipe: dinnerOnly}, {Recipe: wildcard}}
		got := cs.EligibleFor(SlotBreakfast)
		require.Len(t, got, 2)
		assert.Equal(t, int64(1), got[0].Recipe.ID)
		assert.Equal(t, int64(3), got[1].Recipe.ID)
	})

	t.Run("no tagged candidate opens the slot to everyone", func(t *testing.T) {
		cs := CandidateSet{{Recipe: breakfastOnly}, {Recipe: dinnerOnly}}
		got := cs.EligibleFor(SlotLunch)
		assert.Len(t, got, 2)
	})
}

func TestNewMealPlan(t *testing.T) {
	goal := NutritionGoal{Calories: 1500, Protein: 90, Carbs: 150, Fat: 50}
	assignment := map[MealSlot]recipe.Recipe{
		SlotBreakfast: {ID: 1, Nutrition: recipe.NutritionProfile{Calories: 400, Protein: 20, Carbs: 50, Fat: 12}},
		SlotLunch:     {ID: 2, Nutrition: recipe.NutritionProfile{Calories: 500, Protein: 30, Carbs: 50, Fat: 18}},
		SlotDinner:    {ID: 3, Nutrition: recipe.NutritionProfile{Calories: 600, Protein: 40, Carbs: 50, Fat: 20}},
	}

	p := NewMealPlan(assignment, goal, DefaultWeights())

	assert.Equal(t, recipe.NutritionProfile{Calories: 1500, Protein: 90, Carbs: 150, Fat: 50}, p.Total)
	assert.Zero(t, p.FitScore)
	assert.True(t, p.Valid())
}

func TestMealPlanValid(t *testing.T) {
	lunchOnly := recipe.Recipe{ID: 5, MealTags: []recipe.MealTag{recipe.MealTagLunch}}

	incomplete := MealPlan{Recipes: map[MealSlot]recipe.Recipe{SlotBreakfast: {ID: 1}}}
	assert.False(t, incomplete.Valid())

	mismatched := MealPlan{Recipes: map[MealSlot]recipe.Recipe{
		SlotBreakfast: lunchOnly,
		SlotLunch:     {ID: 2},
		SlotDinner:    {ID: 3},
	}}
	assert.False(t, mismatched.Valid())

	reused := MealPlan{Recipes: map[MealSlot]recipe.Recipe{
		SlotBreakfast: {ID: 2},
		SlotLunch:     {ID: 2},
		SlotDinner:    {ID: 3},
	}}
	assert.False(t, reused.Valid())
}
