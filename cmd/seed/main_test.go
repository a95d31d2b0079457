package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/domain/plan"
	"github.com/platewise/v1/internal/domain/recipe"
)

func TestParseListLiteral(t *testing.T) {
	assert.Equal(t, []string{"138.4", "10.0", "50.0"}, parseListLiteral("[138.4, 10.0, 50.0]"))
	assert.Equal(t, []string{"salt", "black pepper"}, parseListLiteral("['salt', 'black pepper']"))
	assert.Nil(t, parseListLiteral("not a list"))
	assert.Empty(t, parseListLiteral("[]"))
}

func TestJoinListLiteral(t *testing.T) {
	assert.Equal(t, "salt, pepper", joinListLiteral("['salt', 'pepper']"))
	assert.Equal(t, "plain text", joinListLiteral("plain text"))
}

func TestParseRow(t *testing.T) {
	cols := columns{name: 0, nutrition: 1, steps: 2, ingredients: 3}

	t.Run("valid row", func(t *testing.T) {
		r, ok := parseRow([]string{
			"hearty lentil soup",
			"[320.0, 8.0, 4.0, 600.0, 18.0, 2.0, 45.0]",
			"['rinse lentils', 'simmer 30 minutes']",
			"['lentils', 'carrot', 'onion']",
		}, cols)
		require.True(t, ok)

		assert.Equal(t, "hearty lentil soup", r.Name)
		assert.Equal(t, "lentils, carrot, onion", r.IngredientText)
		assert.Equal(t, "rinse lentils, simmer 30 minutes", r.Steps)
		// Positions: calories 0, fat 1, protein 4, carbs 6.
		assert.Equal(t, 320.0, r.Nutrition.Calories)
		assert.Equal(t, 8.0, r.Nutrition.Fat)
		assert.Equal(t, 18.0, r.Nutrition.Protein)
		assert.Equal(t, 45.0, r.Nutrition.Carbs)
	})

	t.Run("zero calories dropped", func(t *testing.T) {
		_, ok := parseRow([]string{
			"water", "[0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0]", "[]", "['water']",
		}, cols)
		assert.False(t, ok)
	})

	t.Run("short nutrition list dropped", func(t *testing.T) {
		_, ok := parseRow([]string{
			"mystery", "[100.0, 1.0]", "[]", "['stuff']",
		}, cols)
		assert.False(t, ok)
	})

	t.Run("missing name dropped", func(t *testing.T) {
		_, ok := parseRow([]string{
			"", "[100.0, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0]", "[]", "['stuff']",
		}, cols)
		assert.False(t, ok)
	})
}

func TestColumnIndex(t *testing.T) {
	cols, err := columnIndex([]string{"name", "id", "minutes", "nutrition", "steps", "ingredients"})
	require.NoError(t, err)
	assert.Equal(t, 0, cols.name)
	assert.Equal(t, 3, cols.nutrition)
	assert.Equal(t, 4, cols.steps)
	assert.Equal(t, 5, cols.ingredients)

	_, err = columnIndex([]string{"name", "steps"})
	assert.Error(t, err)
}

func TestInferMealTags(t *testing.T) {
	assert.Contains(t, inferMealTags("blueberry pancake stack"), recipe.MealTagBreakfast)
	assert.Contains(t, inferMealTags("grilled chicken sandwich"), recipe.MealTagLunch)
	assert.Contains(t, inferMealTags("slow cooker beef stew"), recipe.MealTagDinner)
	assert.Contains(t, inferMealTags("peanut butter cookie"), recipe.MealTagSnack)
	assert.Empty(t, inferMealTags("plain rice"))
}

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, recipe.EmbeddingDim), nil
}

// capturingCorpus records BulkCreate batches the way the database would.
type capturingCorpus struct {
	batches [][]recipe.Recipe
}

func (c *capturingCorpus) SimilaritySearch(ctx context.Context, query []float32, k int) ([]plan.Candidate, error) {
	return nil, nil
}

func (c *capturingCorpus) FindByIDs(ctx context.Context, ids []int64) ([]recipe.Recipe, error) {
	return nil, nil
}

func (c *capturingCorpus) Count(ctx context.Context) (int64, error) {
	var n int64
	for _, b := range c.batches {
		n += int64(len(b))
	}
	return n, nil
}

func (c *capturingCorpus) BulkCreate(ctx context.Context, recipes []recipe.Recipe) error {
	batch := make([]recipe.Recipe, len(recipes))
	copy(batch, recipes)
	c.batches = append(c.batches, batch)
	return nil
}

func TestRunIngestsCSV(t *testing.T) {
	csvData := strings.Join([]string{
		"name,id,minutes,nutrition,steps,ingredients",
		`hearty lentil soup,1,45,"[320.0, 8.0, 4.0, 600.0, 18.0, 2.0, 45.0]","['rinse', 'simmer']","['lentils', 'carrot']"`,
		`water,2,1,"[0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0]","[]","['water']"`,
		`overnight oats,3,5,"[350.0, 9.0, 12.0, 100.0, 12.0, 3.0, 55.0]","['mix', 'chill']","['oats', 'milk']"`,
	}, "\n")

	path := filepath.Join(t.TempDir(), "recipes.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvData), 0o644))

	corpus := &capturingCorpus{}
	total, err := run(context.Background(), path, 100, 10, corpus, fixedEmbedder{}, zap.NewNop())
	require.NoError(t, err)

	// The zero-calorie row is dropped.
	assert.Equal(t, 2, total)
	require.Len(t, corpus.batches, 1)
	require.Len(t, corpus.batches[0], 2)
	first := corpus.batches[0][0]
	assert.Equal(t, "hearty lentil soup", first.Name)
	assert.Len(t, first.Embedding, recipe.EmbeddingDim)
}

func TestRunRespectsBatchSize(t *testing.T) {
	rows := []string{"name,id,minutes,nutrition,steps,ingredients"}
	for i := 0; i < 5; i++ {
		rows = append(rows, fmt.Sprintf(
			`meal %d,%d,10,"[200.0, 5.0, 2.0, 50.0, 10.0, 1.0, 30.0]","['cook']","['food']"`, i, i,
		))
	}
	path := filepath.Join(t.TempDir(), "recipes.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(rows, "\n")), 0o644))

	corpus := &capturingCorpus{}
	total, err := run(context.Background(), path, 100, 2, corpus, fixedEmbedder{}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 5, total)
	// Two full batches plus the remainder.
	assert.Len(t, corpus.batches, 3)
}
