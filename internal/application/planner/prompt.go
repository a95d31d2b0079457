package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/platewise/v1/internal/domain/plan"
	"github.com/platewise/v1/internal/domain/recipe"
)

// systemInstruction pins the generator to the interchange contract: pick
// exactly one candidate ID per slot, never invent recipes, restate totals,
// respond with JSON only.
const systemInstruction = `You are a meal planning assistant. You will receive a daily nutrition goal and a list of candidate recipes with their nutrition facts.

Select EXACTLY ONE recipe id per meal slot (breakfast, lunch, dinner) so the day's totals land as close to the goal as possible, within the stated tolerance. You MUST pick ids from the provided candidates only; never invent a recipe or an id, and never use the same recipe in more than one slot. Respond with JSON only, no prose, in exactly this shape:

{
    "breakfast": {"recipe_id": 0},
    "lunch": {"recipe_id": 0},
    "dinner": {"recipe_id": 0},
    "totals": {"calories": 0, "protein_g": 0, "carbs_g": 0, "fat_g": 0}
}

The totals object must restate the summed nutrition of your three picks.`

// promptPayload is the documented interchange format sent to the generator.
// Embeddings are never serialized.
type promptPayload struct {
	Goal       goalPayload        `json:"goal"`
	Candidates []candidatePayload `json:"candidates"`
	Slots      []string           `json:"slots"`
}

type goalPayload struct {
	Calories     float64 `json:"calories"`
	Protein      float64 `json:"protein_g"`
	Carbs        float64 `json:"carbs_g"`
	Fat          float64 `json:"fat_g"`
	TolerancePct float64 `json:"tolerance_pct"`
}

type candidatePayload struct {
	ID        int64                   `json:"id"`
	Name      string                  `json:"name"`
	Nutrition recipe.NutritionProfile `json:"nutrition"`
	MealTags  []recipe.MealTag        `json:"meal_tags,omitempty"`
}

// Augmenter serializes the goal and candidate set into a generation
// request. Output is deterministic for identical inputs: candidate order is
// the CandidateSet order and encoding/json emits struct fields in
// declaration order.
type Augmenter struct{}

// NewAugmenter returns an Augmenter.
func NewAugmenter() *Augmenter {
	return &Augmenter{}
}

// BuildPrompt returns the system instruction and the serialized payload for
// the first generation attempt.
func (a *Augmenter) BuildPrompt(goal plan.NutritionGoal, candidates plan.CandidateSet) (system, user string, err error) {
	goal = goal.Normalized()
	payload := promptPayload{
		Goal: goalPayload{
			Calories:     goal.Calories,
			Protein:      goal.Protein,
			Carbs:        goal.Carbs,
			Fat:          goal.Fat,
			TolerancePct: goal.TolerancePct,
		},
		Candidates: make([]candidatePayload, 0, len(candidates)),
		Slots:      []string{string(plan.SlotBreakfast), string(plan.SlotLunch), string(plan.SlotDinner)},
	}
	for _, c := range candidates {
		payload.Candidates = append(payload.Candidates, candidatePayload{
			ID:        c.Recipe.ID,
			Name:      c.Recipe.Name,
			Nutrition: c.Recipe.Nutrition,
			MealTags:  c.Recipe.MealTags,
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal prompt payload: %w", err)
	}
	return systemInstruction, string(data), nil
}

// MalformedFeedback builds the corrective follow-up after a parse or schema
// failure.
func (a *Augmenter) MalformedFeedback(previous string, reason string) string {
	var b strings.Builder
	b.WriteString("Your previous output was invalid: ")
	b.WriteString(reason)
	b.WriteString("\nPrevious output:\n")
	b.WriteString(previous)
	b.WriteString("\nReformat your answer as the exact JSON shape from the instructions, using only the provided candidate ids.")
	return b.String()
}

// NutritionFeedback builds the corrective follow-up after a plan audits too
// far from the goal, naming the offending nutrients.
func (a *Augmenter) NutritionFeedback(total recipe.NutritionProfile, goal plan.NutritionGoal) string {
	goal = goal.Normalized()
	var high, low []string
	check := func(name string, actual, target float64) {
		if target <= 0 {
			return
		}
		tol := goal.TolerancePct / 100 * target
		switch {
		case actual > target+tol:
			high = append(high, name)
		case actual < target-tol:
			low = append(low, name)
		}
	}
	check("calories", total.Calories, goal.Calories)
	check("protein", total.Protein, goal.Protein)
	check("carbs", total.Carbs, goal.Carbs)
	check("fat", total.Fat, goal.Fat)

	var b strings.Builder
	b.WriteString("Your plan is too far from the goal.")
	if len(high) > 0 {
		b.WriteString(" Too high in: " + strings.Join(high, ", ") + ".")
	}
	if len(low) > 0 {
		b.WriteString(" Too low in: " + strings.Join(low, ", ") + ".")
	}
	b.WriteString(" Pick different recipe ids from the candidates and answer in the same JSON shape.")
	return b.String()
}
