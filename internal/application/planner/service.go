// Package planner implements the nutritional puzzle solver: candidate
// retrieval, prompt augmentation, constrained plan assembly and response
// auditing. The generator is treated as an optional optimizer layered over
// the composer's guaranteed baseline.
package planner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/platewise/v1/internal/domain/plan"
	"github.com/platewise/v1/internal/infrastructure/monitoring"
	"github.com/platewise/v1/internal/ports/inbound"
	"github.com/platewise/v1/internal/ports/outbound"
	"github.com/platewise/v1/pkg/errors"
)

// Config carries the planner knobs. Zero values fall back to the defaults
// below.
type Config struct {
	K                 int
	Weights           plan.ScoreWeights
	MaxRepairs        int
	RejectMultiplier  float64
	EmbedTimeout      time.Duration
	SearchTimeout     time.Duration
	GenerateTimeout   time.Duration
	DisableGeneration bool
}

func (c Config) withDefaults() Config {
	if c.K == 0 {
		c.K = DefaultK
	}
	if c.Weights.IsZero() {
		c.Weights = plan.DefaultWeights()
	}
	if c.MaxRepairs == 0 {
		c.MaxRepairs = DefaultMaxRepairs
	}
	if c.RejectMultiplier <= 0 {
		c.RejectMultiplier = 2.0
	}
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = 5 * time.Second
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = 5 * time.Second
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = 20 * time.Second
	}
	return c
}

// Service orchestrates one plan-for-today request end to end. Requests own
// their candidate set and plan; nothing is shared across requests beyond
// the read-only corpus and the cache.
type Service struct {
	cfg       Config
	retriever *Retriever
	composer  *Composer
	augmenter *Augmenter
	validator *Validator
	generator outbound.TextGenerator
	metrics   *monitoring.PlannerMetrics
	logger    *zap.Logger
}

// NewService wires the planner. generator may be nil (or generation may be
// disabled by config), in which case every request is answered by the
// composer alone.
func NewService(
	cfg Config,
	embedder outbound.EmbeddingService,
	corpus outbound.RecipeCorpus,
	generator outbound.TextGenerator,
	cache outbound.CacheRepository,
	metrics *monitoring.PlannerMetrics,
	logger *zap.Logger,
) *Service {
	cfg = cfg.withDefaults()
	augmenter := NewAugmenter()
	return &Service{
		cfg:       cfg,
		retriever: NewRetriever(embedder, corpus, cache, cfg.EmbedTimeout, cfg.SearchTimeout, logger),
		composer:  NewComposer(),
		augmenter: augmenter,
		validator: NewValidator(augmenter, logger),
		generator: generator,
		metrics:   metrics,
		logger:    logger.Named("planner"),
	}
}

var _ inbound.PlanService = (*Service)(nil)

// BuildPlan runs retrieval, composes the deterministic baseline, then lets
// the generator try to improve on it. Retrieval failures are fatal;
// everything generation-side degrades to the baseline.
func (s *Service) BuildPlan(ctx context.Context, req inbound.PlanRequest) (*inbound.PlanResponse, error) {
	start := time.Now()
	ctx, span := otel.Tracer("planner").Start(ctx, "planner.build_plan")
	defer span.End()

	if err := validateRequest(req); err != nil {
		s.metrics.ObservePlan("invalid_request", time.Since(start), -1)
		return nil, err
	}
	goal := req.Goal.Normalized()
	weights := req.Weights
	if weights.IsZero() {
		weights = s.cfg.Weights
	}
	k := req.K
	if k == 0 {
		k = s.cfg.K
	}

	candidates, err := s.retriever.Retrieve(ctx, req.Pantry, k)
	if err != nil {
		s.metrics.ObservePlan("retrieval_failed", time.Since(start), -1)
		return nil, err
	}
	s.metrics.ObserveCandidates(len(candidates))
	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	// The baseline is exact over the candidate set. If even it cannot fill
	// the slots, no schema-valid generated plan could either, so the
	// request fails here.
	baseline, err := s.composer.Compose(candidates, goal, weights)
	if err != nil {
		s.metrics.ObservePlan("no_feasible_plan", time.Since(start), -1)
		return nil, err
	}

	best := baseline.Plan
	usedFallback := true
	var warnings []string

	if s.generator != nil && !s.cfg.DisableGeneration {
		generated, warn := s.generateWithRepairs(ctx, candidates, goal, weights)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		if generated != nil && generated.FitScore <= best.FitScore {
			best = *generated
			usedFallback = false
		}
	}

	if usedFallback {
		s.metrics.ObserveFallback()
	}
	s.metrics.ObservePlan("ok", time.Since(start), best.FitScore)
	s.logger.Info("plan built",
		zap.Float64("fit_score", best.FitScore),
		zap.Bool("used_fallback", usedFallback),
		zap.Duration("elapsed", time.Since(start)),
	)
	return buildResponse(best, usedFallback, warnings), nil
}

// generateWithRepairs runs the bounded generate/audit loop and returns the
// accepted plan, or nil with a warning describing why the baseline stands.
// Transport failures end the loop immediately; only malformed or poor
// output consumes repair attempts.
func (s *Service) generateWithRepairs(
	ctx context.Context,
	candidates plan.CandidateSet,
	goal plan.NutritionGoal,
	weights plan.ScoreWeights,
) (*plan.MealPlan, string) {
	system, user, err := s.augmenter.BuildPrompt(goal, candidates)
	if err != nil {
		s.logger.Error("prompt serialization failed", zap.Error(err))
		return nil, "generation skipped: prompt serialization failed"
	}
	threshold := plan.RejectThreshold(goal, weights, s.cfg.RejectMultiplier)

	prompt := user
	nutritionRepairs := 0
	for attempt := 0; attempt <= s.cfg.MaxRepairs; attempt++ {
		raw, err := s.generate(ctx, system, prompt)
		if err != nil {
			s.metrics.ObserveGeneration("unavailable")
			s.logger.Warn("generation unavailable, using deterministic plan", zap.Error(err))
			return nil, "generation unavailable, deterministic plan returned"
		}

		verdict := s.validator.Evaluate(raw, candidates, goal, weights, threshold)
		switch verdict.State {
		case StateAccepted:
			s.metrics.ObserveGeneration("accepted")
			return verdict.Plan, ""
		case StateRepairRequested:
			s.metrics.ObserveGeneration("repair_requested")
			// A poor-but-valid plan gets a single corrective shot; the
			// composer's exact result is already in hand.
			if verdict.Plan != nil {
				nutritionRepairs++
				if nutritionRepairs > 1 {
					return nil, "generated plan audited poorly, deterministic plan returned"
				}
			}
			if attempt == s.cfg.MaxRepairs {
				return nil, "generated output unusable after repairs, deterministic plan returned"
			}
			s.metrics.ObserveRepair()
			s.logger.Debug("requesting repair",
				zap.Int("attempt", attempt+1),
				zap.String("reason", verdict.Reason),
			)
			prompt = user + "\n\n" + verdict.Feedback
		default:
			return nil, "generated output rejected, deterministic plan returned"
		}
	}
	return nil, "generated output unusable after repairs, deterministic plan returned"
}

// generate performs one bounded round trip to the generative backend.
func (s *Service) generate(ctx context.Context, system, user string) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerateTimeout)
	defer cancel()
	genCtx, span := otel.Tracer("planner").Start(genCtx, "generator.generate")
	defer span.End()

	raw, err := s.generator.Generate(genCtx, system, user)
	if err != nil {
		return "", errors.NewGenerationUnavailableError(err)
	}
	return raw, nil
}

func validateRequest(req inbound.PlanRequest) error {
	if len(req.Pantry) == 0 {
		return errors.NewBadRequestError(plan.ErrEmptyPantry.Error())
	}
	if req.Goal.Calories <= 0 {
		return errors.NewBadRequestError(plan.ErrGoalNotPositive.Error())
	}
	if req.K != 0 && req.K < MinK {
		return errors.NewBadRequestError(plan.ErrKTooSmall.Error())
	}
	return nil
}

func buildResponse(p plan.MealPlan, usedFallback bool, warnings []string) *inbound.PlanResponse {
	meals := make(map[plan.MealSlot]inbound.PlannedMeal, len(p.Recipes))
	for slot, r := range p.Recipes {
		meals[slot] = inbound.PlannedMeal{
			RecipeID:  r.ID,
			Name:      r.Name,
			Nutrition: r.Nutrition,
		}
	}
	return &inbound.PlanResponse{
		PlanID:       uuid.NewString(),
		Meals:        meals,
		Total:        p.Total,
		FitScore:     p.FitScore,
		UsedFallback: usedFallback,
		Warnings:     warnings,
	}
}
