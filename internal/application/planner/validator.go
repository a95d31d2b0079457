package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/platewise/v1/internal/domain/plan"
	"github.com/platewise/v1/internal/domain/recipe"
)

// AuditState is a state of the response audit machine.
type AuditState string

const (
	StateReceived         AuditState = "RECEIVED"
	StateParsed           AuditState = "PARSED"
	StateSchemaValid      AuditState = "SCHEMA_VALID"
	StateNutritionAudited AuditState = "NUTRITION_AUDITED"
	StateAccepted         AuditState = "ACCEPTED"
	StateRepairRequested  AuditState = "REPAIR_REQUESTED"
	StateRejected         AuditState = "REJECTED"
)

// DefaultMaxRepairs caps corrective round trips per request.
const DefaultMaxRepairs = 2

// generatedResponse is the structured shape the generator is instructed to
// return.
type generatedResponse struct {
	Breakfast slotPick                `json:"breakfast"`
	Lunch     slotPick                `json:"lunch"`
	Dinner    slotPick                `json:"dinner"`
	Totals    recipe.NutritionProfile `json:"totals"`
}

type slotPick struct {
	RecipeID *int64 `json:"recipe_id"`
}

// Verdict is the outcome of auditing one generated response.
type Verdict struct {
	State    AuditState
	Plan     *plan.MealPlan // populated when the response survived the schema stage
	Feedback string         // corrective instruction when State is REPAIR_REQUESTED
	Reason   string
}

// Validator parses, schema-checks and nutritionally audits raw generator
// output. Totals are always recomputed from the authoritative candidate
// records; the generator's restated totals are never trusted.
type Validator struct {
	augmenter *Augmenter
	logger    *zap.Logger
}

// NewValidator creates a Validator.
func NewValidator(augmenter *Augmenter, logger *zap.Logger) *Validator {
	return &Validator{
		augmenter: augmenter,
		logger:    logger.Named("validator"),
	}
}

// Evaluate walks the raw text through
// RECEIVED -> PARSED -> SCHEMA_VALID -> NUTRITION_AUDITED and returns the
// resulting verdict. rejectThreshold is the fit-score cutoff beyond which a
// structurally valid plan is still considered poor.
func (v *Validator) Evaluate(
	raw string,
	candidates plan.CandidateSet,
	goal plan.NutritionGoal,
	weights plan.ScoreWeights,
	rejectThreshold float64,
) Verdict {
	resp, err := parseResponse(raw)
	if err != nil {
		v.logger.Debug("generated output failed to parse", zap.Error(err))
		return Verdict{
			State:    StateRepairRequested,
			Feedback: v.augmenter.MalformedFeedback(truncateForFeedback(raw), err.Error()),
			Reason:   "parse failure: " + err.Error(),
		}
	}

	assignment, schemaErr := v.resolvePicks(resp, candidates)
	if schemaErr != "" {
		v.logger.Debug("generated output failed schema validation", zap.String("reason", schemaErr))
		return Verdict{
			State:    StateRepairRequested,
			Feedback: v.augmenter.MalformedFeedback(truncateForFeedback(raw), schemaErr),
			Reason:   "schema violation: " + schemaErr,
		}
	}

	audited := plan.NewMealPlan(assignment, goal, weights)
	if audited.FitScore > rejectThreshold {
		v.logger.Debug("generated plan audited poorly",
			zap.Float64("fit_score", audited.FitScore),
			zap.Float64("threshold", rejectThreshold),
		)
		return Verdict{
			State:    StateRepairRequested,
			Plan:     &audited,
			Feedback: v.augmenter.NutritionFeedback(audited.Total, goal),
			Reason:   fmt.Sprintf("fit score %.4f exceeds threshold %.4f", audited.FitScore, rejectThreshold),
		}
	}

	return Verdict{State: StateAccepted, Plan: &audited}
}

// resolvePicks maps slot picks back to authoritative candidate records.
// A missing slot, an id outside the candidate set, an ineligible recipe, or
// the same recipe in more than one slot is a schema violation.
func (v *Validator) resolvePicks(resp *generatedResponse, candidates plan.CandidateSet) (map[plan.MealSlot]recipe.Recipe, string) {
	picks := map[plan.MealSlot]*int64{
		plan.SlotBreakfast: resp.Breakfast.RecipeID,
		plan.SlotLunch:     resp.Lunch.RecipeID,
		plan.SlotDinner:    resp.Dinner.RecipeID,
	}

	assignment := make(map[plan.MealSlot]recipe.Recipe, len(picks))
	seen := make(map[int64]struct{}, len(picks))
	for _, slot := range plan.Slots() {
		id := picks[slot]
		if id == nil {
			return nil, fmt.Sprintf("missing recipe_id for the %s slot", slot)
		}
		r, ok := candidates.ByID(*id)
		if !ok {
			return nil, fmt.Sprintf("recipe id %d for %s is not one of the provided candidates", *id, slot)
		}
		if !r.EligibleFor(slot.Tag()) && len(candidates.EligibleFor(slot)) != len(candidates) {
			return nil, fmt.Sprintf("recipe id %d is not suited for the %s slot", *id, slot)
		}
		if _, dup := seen[*id]; dup {
			return nil, fmt.Sprintf("recipe id %d appears in more than one slot", *id)
		}
		seen[*id] = struct{}{}
		assignment[slot] = r
	}
	return assignment, ""
}

// parseResponse decodes the raw generator text, tolerating surrounding
// prose or markdown fences around the JSON object.
func parseResponse(raw string) (*generatedResponse, error) {
	body := extractJSON(raw)
	if body == "" {
		return nil, fmt.Errorf("no JSON object found in output")
	}
	var resp generatedResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("output is not the required JSON shape: %w", err)
	}
	return &resp, nil
}

// extractJSON returns the outermost JSON object embedded in text.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// truncateForFeedback keeps repair prompts bounded even when the generator
// rambles.
func truncateForFeedback(raw string) string {
	const max = 1000
	if len(raw) <= max {
		return raw
	}
	return raw[:max] + "..."
}
