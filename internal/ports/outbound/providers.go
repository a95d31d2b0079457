// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"time"

	"github.com/platewise/v1/internal/domain/plan"
	"github.com/platewise/v1/internal/domain/recipe"
)

// EmbeddingService turns free text into a fixed-dimension vector.
// Deterministic for identical text under the same model version.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RecipeCorpus is the read-mostly store of ingested recipes, queryable by
// vector similarity. The core treats it as a pure capability; brute-force
// in-memory and pgvector-backed implementations are interchangeable.
type RecipeCorpus interface {
	// SimilaritySearch returns up to k candidates ordered by descending
	// similarity, equal scores broken by ascending recipe ID.
	SimilaritySearch(ctx context.Context, query []float32, k int) ([]plan.Candidate, error)

	FindByIDs(ctx context.Context, ids []int64) ([]recipe.Recipe, error)
	Count(ctx context.Context) (int64, error)

	// BulkCreate is used by the ingestion job only; the planning core never
	// writes.
	BulkCreate(ctx context.Context, recipes []recipe.Recipe) error
}

// TextGenerator is the generative backend. It receives the augmented prompt
// and returns raw text; parsing and auditing happen elsewhere.
type TextGenerator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
