// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
package inbound

import (
	"context"

	"github.com/platewise/v1/internal/domain/plan"
	"github.com/platewise/v1/internal/domain/recipe"
)

// PlanService is the request/response surface the core exposes to its
// callers.
type PlanService interface {
	BuildPlan(ctx context.Context, req PlanRequest) (*PlanResponse, error)
}

// PlanRequest carries one user's plan-for-today inputs. Pantry and goal are
// supplied per request and never persisted by the core.
type PlanRequest struct {
	Pantry  []string           `json:"pantry" validate:"required,min=1,dive,required"`
	Goal    plan.NutritionGoal `json:"goal" validate:"required"`
	K       int                `json:"k,omitempty" validate:"omitempty,min=3,max=100"`
	Weights plan.ScoreWeights  `json:"weights,omitempty"`
}

// PlannedMeal is one slot of the response.
type PlannedMeal struct {
	RecipeID  int64                   `json:"recipe_id"`
	Name      string                  `json:"name"`
	Nutrition recipe.NutritionProfile `json:"nutrition"`
}

// PlanResponse is the final answer: a full day of meals, the recomputed
// aggregate, the fit score, and whether the deterministic composer had to
// stand in for the generator.
type PlanResponse struct {
	PlanID       string                        `json:"plan_id"`
	Meals        map[plan.MealSlot]PlannedMeal `json:"meals"`
	Total        recipe.NutritionProfile       `json:"total"`
	FitScore     float64                       `json:"fit_score"`
	UsedFallback bool                          `json:"used_fallback"`
	Warnings     []string                      `json:"warnings,omitempty"`
}
