package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMealTag(t *testing.T) {
	tag, err := ParseMealTag("  Breakfast ")
	require.NoError(t, err)
	assert.Equal(t, MealTagBreakfast, tag)

	for _, s := range []string{"lunch", "dinner", "snack"} {
		tag, err := ParseMealTag(s)
		require.NoError(t, err)
		assert.Equal(t, MealTag(s), tag)
	}

	_, err = ParseMealTag("brunch")
	assert.Error(t, err)
}

func TestNutritionProfileAdd(t *testing.T) {
	a := NutritionProfile{Calories: 400, Protein: 20, Carbs: 50, Fat: 10}
	b := NutritionProfile{Calories: 600, Protein: 35, Carbs: 70, Fat: 22}

	sum := a.Add(b)

	assert.Equal(t, 1000.0, sum.Calories)
	assert.Equal(t, 55.0, sum.Protein)
	assert.Equal(t, 120.0, sum.Carbs)
	assert.Equal(t, 32.0, sum.Fat)
	// Operands are untouched.
	assert.Equal(t, 400.0, a.Calories)
}

func TestNutritionProfileValidate(t *testing.T) {
	assert.NoError(t, NutritionProfile{Calories: 100}.Validate())
	assert.NoError(t, NutritionProfile{}.Validate())
	assert.Error(t, NutritionProfile{Protein: -1}.Validate())
}

func TestRecipeEligibleFor(t *testing.T) {
	tagged := Recipe{MealTags: []MealTag{MealTagBreakfast, MealTagSnack}}
	assert.True(t, tagged.EligibleFor(MealTagBreakfast))
	assert.True(t, tagged.EligibleFor(MealTagSnack))
	assert.False(t, tagged.EligibleFor(MealTagDinner))

	wildcard := Recipe{}
	assert.True(t, wildcard.EligibleFor(MealTagBreakfast))
	assert.True(t, wildcard.EligibleFor(MealTagDinner))
}

func TestRecipeValidate(t *testing.T) {
	valid := Recipe{
		ID:             1,
		Name:           "overnight oats",
		IngredientText: "rolled oats, milk, honey",
		Nutrition:      NutritionProfile{Calories: 350, Protein: 12, Carbs: 55, Fat: 9},
		Embedding:      make([]float32, EmbeddingDim),
	}
	assert.NoError(t, valid.Validate())

	noName := valid
	noName.Name = ""
	assert.Error(t, noName.Validate())

	noIngredients := valid
	noIngredients.IngredientText = ""
	assert.Error(t, noIngredients.Validate())

	badDim := valid
	badDim.Embedding = make([]float32, 12)
	assert.Error(t, badDim.Validate())

	// An empty embedding is allowed; ingestion fills it in later.
	pending := valid
	pending.Embedding = nil
	assert.NoError(t, pending.Validate())

	negative := valid
	negative.Nutrition.Fat = -3
	assert.Error(t, negative.Validate())
}
