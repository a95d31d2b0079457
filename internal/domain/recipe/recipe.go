// Package recipe contains the core domain model for ingested recipes.
// Recipes are immutable once ingested; the corpus owns them.
package recipe

import (
	"errors"
	"strings"
)

// EmbeddingDim is the corpus-wide embedding dimension. It must match the
// sentence-transformer model used at ingestion time (all-MiniLM-L6-v2).
const EmbeddingDim = 384

// MealTag marks which meal slots a recipe is suited for. A recipe with no
// tags is eligible for any slot.
type MealTag string

const (
	MealTagBreakfast MealTag = "breakfast"
	MealTagLunch     MealTag = "lunch"
	MealTagDinner    MealTag = "dinner"
	MealTagSnack     MealTag = "snack"
)

// ParseMealTag parses a meal tag from its string form.
func ParseMealTag(s string) (MealTag, error) {
	switch MealTag(strings.ToLower(strings.TrimSpace(s))) {
	case MealTagBreakfast:
		return MealTagBreakfast, nil
	case MealTagLunch:
		return MealTagLunch, nil
	case MealTagDinner:
		return MealTagDinner, nil
	case MealTagSnack:
		return MealTagSnack, nil
	default:
		return "", errors.New("unknown meal tag: " + s)
	}
}

// NutritionProfile holds per-recipe (or aggregated) nutrition facts.
// All values are non-negative.
type NutritionProfile struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein_g"`
	Carbs    float64 `json:"carbs_g"`
	Fat      float64 `json:"fat_g"`
}

// Add returns the component-wise sum of two profiles.
func (p NutritionProfile) Add(o NutritionProfile) NutritionProfile {
	return NutritionProfile{
		Calories: p.Calories + o.Calories,
		Protein:  p.Protein + o.Protein,
		Carbs:    p.Carbs + o.Carbs,
		Fat:      p.Fat + o.Fat,
	}
}

// Validate validates the nutrition profile
func (p NutritionProfile) Validate() error {
	if p.Calories < 0 || p.Protein < 0 || p.Carbs < 0 || p.Fat < 0 {
		return errors.New("nutrition values cannot be negative")
	}
	return nil
}

// Recipe is an ingested recipe with its nutrition facts and precomputed
// embedding.
type Recipe struct {
	ID             int64
	Name           string
	IngredientText string
	Steps          string
	Nutrition      NutritionProfile
	Embedding      []float32
	MealTags       []MealTag
}

// EligibleFor reports whether the recipe may fill the given slot. An
// untagged recipe is a wildcard.
func (r Recipe) EligibleFor(tag MealTag) bool {
	if len(r.MealTags) == 0 {
		return true
	}
	for _, t := range r.MealTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Validate checks the invariants an ingested recipe must hold.
func (r Recipe) Validate() error {
	if r.Name == "" {
		return errors.New("recipe name is required")
	}
	if r.IngredientText == "" {
		return errors.New("recipe ingredient text is required")
	}
	if len(r.Embedding) != 0 && len(r.Embedding) != EmbeddingDim {
		return errors.New("recipe embedding has the wrong dimension")
	}
	return r.Nutrition.Validate()
}
