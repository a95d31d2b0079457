// Package memory provides in-memory implementations of the persistence
// ports: a brute-force similarity corpus and a TTL cache. Both back the
// test suites and local development without external services.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/platewise/v1/internal/domain/plan"
	"github.com/platewise/v1/internal/domain/recipe"
	"github.com/platewise/v1/internal/ports/outbound"
)

// RecipeCorpus holds recipes in memory and answers similarity queries by
// exhaustive cosine comparison. Interchangeable with the pgvector corpus.
type RecipeCorpus struct {
	mu      sync.RWMutex
	recipes map[int64]recipe.Recipe
}

var _ outbound.RecipeCorpus = (*RecipeCorpus)(nil)

// NewRecipeCorpus creates an empty in-memory corpus.
func NewRecipeCorpus() *RecipeCorpus {
	return &RecipeCorpus{recipes: make(map[int64]recipe.Recipe)}
}

// SimilaritySearch returns the k nearest recipes by cosine similarity,
// equal scores broken by ascending ID.
func (c *RecipeCorpus) SimilaritySearch(ctx context.Context, query []float32, k int) ([]plan.Candidate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	candidates := make([]plan.Candidate, 0, len(c.recipes))
	for _, r := range c.recipes {
		candidates = append(candidates, plan.Candidate{
			Recipe:     r,
			Similarity: cosineSimilarity(query, r.Embedding),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].Recipe.ID < candidates[j].Recipe.ID
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// FindByIDs fetches recipes by ID, ascending.
func (c *RecipeCorpus) FindByIDs(ctx context.Context, ids []int64) ([]recipe.Recipe, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]recipe.Recipe, 0, len(ids))
	for _, id := range ids {
		if r, ok := c.recipes[id]; ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count returns the corpus size.
func (c *RecipeCorpus) Count(ctx context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.recipes)), nil
}

// BulkCreate stores ingested recipes.
func (c *RecipeCorpus) BulkCreate(ctx context.Context, recipes []recipe.Recipe) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range recipes {
		if err := r.Validate(); err != nil {
			return err
		}
		c.recipes[r.ID] = r
	}
	return nil
}

// cosineSimilarity over float32 vectors. Mismatched or zero vectors score
// zero rather than erroring; retrieval treats them as maximally distant.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
