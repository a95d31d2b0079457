package plan

import "errors"

// Domain errors for plan assembly

var (
	ErrEmptyPantry      = errors.New("pantry must contain at least one item")
	ErrKTooSmall        = errors.New("candidate count K must be at least 3")
	ErrGoalNotPositive  = errors.New("goal calories must be positive")
	ErrSlotUnfilled     = errors.New("every meal slot must be filled exactly once")
	ErrSlotIneligible   = errors.New("assigned recipe is not eligible for its slot")
	ErrUnknownRecipeID  = errors.New("recipe id is not part of the candidate set")
	ErrNoEligibleTriple = errors.New("no combination of candidates fills all three slots")
)
