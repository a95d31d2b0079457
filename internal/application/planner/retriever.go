package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/domain/plan"
	"github.com/platewise/v1/internal/ports/outbound"
	"github.com/platewise/v1/pkg/errors"
)

// DefaultK is the candidate set size when the caller does not specify one.
const DefaultK = 20

// MinK is the smallest candidate set that can cover three slots.
const MinK = 3

// Retriever produces a CandidateSet for a pantry. It is read-only: one
// embedding call, one similarity query, no writes.
type Retriever struct {
	embedder      outbound.EmbeddingService
	corpus        outbound.RecipeCorpus
	cache         outbound.CacheRepository
	logger        *zap.Logger
	embedTimeout  time.Duration
	searchTimeout time.Duration
	cacheTTL      time.Duration
}

// NewRetriever creates a Retriever. The embedding call and the similarity
// query each get their own timeout so a hung backend on either hop fails
// the request fast. The cache is optional; pass nil to embed on every
// request.
func NewRetriever(
	embedder outbound.EmbeddingService,
	corpus outbound.RecipeCorpus,
	cache outbound.CacheRepository,
	embedTimeout time.Duration,
	searchTimeout time.Duration,
	logger *zap.Logger,
) *Retriever {
	if embedTimeout <= 0 {
		embedTimeout = 5 * time.Second
	}
	if searchTimeout <= 0 {
		searchTimeout = 5 * time.Second
	}
	return &Retriever{
		embedder:      embedder,
		corpus:        corpus,
		cache:         cache,
		logger:        logger.Named("retriever"),
		embedTimeout:  embedTimeout,
		searchTimeout: searchTimeout,
		cacheTTL:      24 * time.Hour,
	}
}

// Retrieve embeds the pantry as a single query text and fetches the K
// nearest recipes. Failures on either network hop are fatal to the request
// and surface as RetrievalUnavailable.
func (r *Retriever) Retrieve(ctx context.Context, pantry []string, k int) (plan.CandidateSet, error) {
	items := normalizePantry(pantry)
	if len(items) == 0 {
		return nil, errors.NewBadRequestError(plan.ErrEmptyPantry.Error())
	}
	if k == 0 {
		k = DefaultK
	}
	if k < MinK {
		return nil, errors.NewBadRequestError(plan.ErrKTooSmall.Error())
	}

	query, err := r.pantryVector(ctx, items)
	if err != nil {
		return nil, err
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.searchTimeout)
	defer cancel()
	searchCtx, span := otel.Tracer("planner").Start(searchCtx, "corpus.similarity_search")
	span.SetAttributes(attribute.Int("k", k))
	candidates, err := r.corpus.SimilaritySearch(searchCtx, query, k)
	span.End()
	if err != nil {
		return nil, errors.NewRetrievalUnavailableError("similarity search", err)
	}

	// The corpus contract already orders by similarity; re-assert the
	// deterministic tie-break in case a backend rounds scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].Recipe.ID < candidates[j].Recipe.ID
	})

	if len(candidates) < MinK {
		return nil, errors.NewInsufficientCandidatesError(len(candidates))
	}

	r.logger.Debug("retrieved candidates",
		zap.Int("count", len(candidates)),
		zap.Int("k", k),
		zap.Float64("top_similarity", candidates[0].Similarity),
	)
	return candidates, nil
}

// pantryVector embeds the joined pantry text, consulting the cache first.
func (r *Retriever) pantryVector(ctx context.Context, items []string) ([]float32, error) {
	text := strings.Join(items, ", ")
	key := "pantry:embedding:" + hashText(text)

	if r.cache != nil {
		if data, err := r.cache.Get(ctx, key); err == nil {
			var vec []float32
			if err := json.Unmarshal(data, &vec); err == nil && len(vec) > 0 {
				return vec, nil
			}
		}
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.embedTimeout)
	defer cancel()
	embedCtx, span := otel.Tracer("planner").Start(embedCtx, "embedding.embed")
	vec, err := r.embedder.Embed(embedCtx, text)
	span.End()
	if err != nil {
		return nil, errors.NewRetrievalUnavailableError("embedding", err)
	}

	if r.cache != nil {
		if data, err := json.Marshal(vec); err == nil {
			if err := r.cache.Set(ctx, key, data, r.cacheTTL); err != nil {
				r.logger.Debug("embedding cache write failed", zap.Error(err))
			}
		}
	}
	return vec, nil
}

// normalizePantry lowercases, trims and de-duplicates items, then sorts so
// the same pantry always produces the same query text.
func normalizePantry(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
