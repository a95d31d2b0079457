package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/platewise/v1/internal/domain/plan"
	"github.com/platewise/v1/internal/domain/recipe"
)

// vec builds a corpus-dimension embedding from a few leading components.
func vec(components ...float32) []float32 {
	out := make([]float32, recipe.EmbeddingDim)
	copy(out, components)
	return out
}

// recipeFactory produces deterministic recipe fixtures with plausible names.
type recipeFactory struct {
	faker  *gofakeit.Faker
	nextID int64
}

func newRecipeFactory() *recipeFactory {
	return &recipeFactory{faker: gofakeit.New(42), nextID: 1}
}

func (f *recipeFactory) build(n recipe.NutritionProfile, tags ...recipe.MealTag) recipe.Recipe {
	id := f.nextID
	f.nextID++
	return recipe.Recipe{
		ID:             id,
		Name:           fmt.Sprintf("%s %s", f.faker.AdjectiveDescriptive(), f.faker.Dinner()),
		IngredientText: fmt.Sprintf("%s, %s, %s", f.faker.Vegetable(), f.faker.Fruit(), f.faker.Breakfast()),
		Nutrition:      n,
		Embedding:      vec(1),
		MealTags:       tags,
	}
}

func (f *recipeFactory) candidate(sim float64, n recipe.NutritionProfile, tags ...recipe.MealTag) plan.Candidate {
	return plan.Candidate{Recipe: f.build(n, tags...), Similarity: sim}
}

// fakeEmbedder returns a fixed vector and counts calls.
type fakeEmbedder struct {
	mu     sync.Mutex
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeGenerator replays scripted responses in order. An empty script means
// every call fails as if the backend were down.
type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	delay     time.Duration
	calls     int
	prompts   []string
}

var errGeneratorDown = errors.New("generator backend unreachable")

func (f *fakeGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, user)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if i >= len(f.responses) {
		return "", errGeneratorDown
	}
	return f.responses[i], nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// planJSON renders the generator interchange shape for scripted responses.
func planJSON(breakfast, lunch, dinner int64) string {
	return fmt.Sprintf(
		`{"breakfast":{"recipe_id":%d},"lunch":{"recipe_id":%d},"dinner":{"recipe_id":%d},"totals":{"calories":0,"protein_g":0,"carbs_g":0,"fat_g":0}}`,
		breakfast, lunch, dinner,
	)
}
