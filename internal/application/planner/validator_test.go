package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/domain/plan"
	"github.com/platewise/v1/internal/domain/recipe"
)

func validatorFixture(t *testing.T) (*Validator, plan.CandidateSet, plan.NutritionGoal) {
	t.Helper()
	f := newRecipeFactory()
	candidates := plan.CandidateSet{
		f.candidate(0.9, recipe.NutritionProfile{Calories: 500, Protein: 25, Carbs: 70, Fat: 15}, recipe.MealTagBreakfast),
		f.candidate(0.8, recipe.NutritionProfile{Calories: 600, Protein: 35, Carbs: 80, Fat: 25}, recipe.MealTagLunch),
		f.candidate(0.7, recipe.NutritionProfile{Calories: 900, Protein: 40, Carbs: 100, Fat: 30}, recipe.MealTagDinner),
		f.candidate(0.6, recipe.NutritionProfile{Calories: 2500, Protein: 10, Carbs: 400, Fat: 90}, recipe.MealTagDinner),
	}
	goal := plan.NutritionGoal{Calories: 2000, Protein: 100, Carbs: 250, Fat: 70}
	return NewValidator(NewAugmenter(), zap.NewNop()), candidates, goal
}

func TestValidatorAcceptsValidPlan(t *testing.T) {
	v, candidates, goal := validatorFixture(t)
	threshold := plan.RejectThreshold(goal, plan.DefaultWeights(), 2.0)

	verdict := v.Evaluate(planJSON(1, 2, 3), candidates, goal, plan.DefaultWeights(), threshold)

	assert.Equal(t, StateAccepted, verdict.State)
	require.NotNil(t, verdict.Plan)
	// Totals come from the candidate records, not the generator's claim
	// (the scripted response restates zeros).
	assert.Equal(t, recipe.NutritionProfile{Calories: 2000, Protein: 100, Carbs: 250, Fat: 70}, verdict.Plan.Total)
	assert.Zero(t, verdict.Plan.FitScore)
}

func TestValidatorToleratesSurroundingProse(t *testing.T) {
	v, candidates, goal := validatorFixture(t)
	threshold := plan.RejectThreshold(goal, plan.DefaultWeights(), 2.0)

	raw := "Here is your plan:\n```json\n" + planJSON(1, 2, 3) + "\n```\nEnjoy!"
	verdict := v.Evaluate(raw, candidates, goal, plan.DefaultWeights(), threshold)

	assert.Equal(t, StateAccepted, verdict.State)
}

func TestValidatorRequestsRepairOnGarbage(t *testing.T) {
	v, candidates, goal := validatorFixture(t)
	threshold := plan.RejectThreshold(goal, plan.DefaultWeights(), 2.0)

	for _, raw := range []string{
		"I cannot plan meals today.",
		`{"breakfast": [1, 2]}`,
		"",
	} {
		verdict := v.Evaluate(raw, candidates, goal, plan.DefaultWeights(), threshold)
		assert.Equal(t, StateRepairRequested, verdict.State, "raw=%q", raw)
		assert.Nil(t, verdict.Plan)
		assert.NotEmpty(t, verdict.Feedback)
	}
}

func TestValidatorRejectsHallucinatedID(t *testing.T) {
	v, candidates, goal := validatorFixture(t)
	threshold := plan.RejectThreshold(goal, plan.DefaultWeights(), 2.0)

	verdict := v.Evaluate(planJSON(1, 2, 999), candidates, goal, plan.DefaultWeights(), threshold)

	assert.Equal(t, StateRepairRequested, verdict.State)
	assert.Nil(t, verdict.Plan)
	assert.Contains(t, verdict.Reason, "999")
	assert.Contains(t, verdict.Feedback, "999")
}

func TestValidatorRejectsMissingSlot(t *testing.T) {
	v, candidates, goal := validatorFixture(t)
	threshold := plan.RejectThreshold(goal, plan.DefaultWeights(), 2.0)

	raw := `{"breakfast":{"recipe_id":1},"lunch":{"recipe_id":2},"totals":{"calories":0,"protein_g":0,"carbs_g":0,"fat_g":0}}`
	verdict := v.Evaluate(raw, candidates, goal, plan.DefaultWeights(), threshold)

	assert.Equal(t, StateRepairRequested, verdict.State)
	assert.Contains(t, verdict.Reason, "dinner")
}

func TestValidatorRejectsIneligibleSlot(t *testing.T) {
	v, candidates, goal := validatorFixture(t)
	threshold := plan.RejectThreshold(goal, plan.DefaultWeights(), 2.0)

	// Recipe 3 is dinner-only; putting it in the breakfast slot violates
	// the schema even though the id is a real candidate.
	verdict := v.Evaluate(planJSON(3, 2, 1), candidates, goal, plan.DefaultWeights(), threshold)

	assert.Equal(t, StateRepairRequested, verdict.State)
	assert.Contains(t, verdict.Reason, "schema violation")
}

func TestValidatorRejectsReusedRecipe(t *testing.T) {
	v, _, goal := validatorFixture(t)
	threshold := plan.RejectThreshold(goal, plan.DefaultWeights(), 2.0)

	// Untagged recipes may fill any slot, but each recipe fills at most one.
	f := newRecipeFactory()
	candidates := plan.CandidateSet{
		f.candidate(0.9, recipe.NutritionProfile{Calories: 600, Protein: 30, Carbs: 80, Fat: 20}),
		f.candidate(0.8, recipe.NutritionProfile{Calories: 700, Protein: 35, Carbs: 90, Fat: 25}),
	}

	verdict := v.Evaluate(planJSON(1, 2, 2), candidates, goal, plan.DefaultWeights(), threshold)

	assert.Equal(t, StateRepairRequested, verdict.State)
	assert.Nil(t, verdict.Plan)
	assert.Contains(t, verdict.Reason, "more than one slot")
}

func TestValidatorRequestsRepairOnPoorNutrition(t *testing.T) {
	v, candidates, goal := validatorFixture(t)
	threshold := plan.RejectThreshold(goal, plan.DefaultWeights(), 2.0)

	// Recipe 4 blows the calorie and carb budgets.
	verdict := v.Evaluate(planJSON(1, 2, 4), candidates, goal, plan.DefaultWeights(), threshold)

	assert.Equal(t, StateRepairRequested, verdict.State)
	require.NotNil(t, verdict.Plan, "a structurally valid plan survives the schema stage")
	assert.Greater(t, verdict.Plan.FitScore, threshold)
	assert.Contains(t, verdict.Feedback, "calories")
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("noise {\"a\":1} trailing"))
	assert.Equal(t, "", extractJSON("no braces here"))
	assert.Equal(t, "", extractJSON("}{"))
}
