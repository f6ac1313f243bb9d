package domain

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Nutrition.
var (
	ErrEmptyNutritionMealID = errors.New("nutrition meal ID cannot be empty")
	ErrNegativeNutrition    = errors.New("nutrition values cannot be negative")
)

// NutritionFacts holds the macro values for a meal. All values are
// non-negative integers: calories in kcal, the macros in grams.
//
// The type tolerates the loose JSON the AI produces: each field may arrive
// as a number, a numeric string, or garbage, and is coerced to an integer
// (non-numeric becomes 0). Negative values survive unmarshalling so the
// clamping policy stays an explicit, separate step.
type NutritionFacts struct {
	Calories      int `json:"calories"`
	Protein       int `json:"protein"`
	Carbohydrates int `json:"carbohydrates"`
	Fats          int `json:"fats"`
}

// UnmarshalJSON implements tolerant decoding for AI-produced nutrition
// objects. Unknown fields are ignored; missing or non-numeric fields become 0.
func (n *NutritionFacts) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	n.Calories = coerceInt(raw["calories"])
	n.Protein = coerceInt(raw["protein"])
	n.Carbohydrates = coerceInt(raw["carbohydrates"])
	n.Fats = coerceInt(raw["fats"])
	return nil
}

// coerceInt converts a raw JSON value to an integer. Numbers are truncated,
// numeric strings parsed; anything else (including absence) yields 0.
func coerceInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
	}

	return 0
}

// Clamped returns a copy with every field raised to at least zero. The AI
// occasionally emits negative estimates; policy is to clamp, not reject.
func (n NutritionFacts) Clamped() NutritionFacts {
	return NutritionFacts{
		Calories:      max(0, n.Calories),
		Protein:       max(0, n.Protein),
		Carbohydrates: max(0, n.Carbohydrates),
		Fats:          max(0, n.Fats),
	}
}

// HasAnyValue reports whether at least one field is positive. All-zero facts
// are not worth persisting as a nutrition row.
func (n NutritionFacts) HasAnyValue() bool {
	return n.Calories > 0 || n.Protein > 0 || n.Carbohydrates > 0 || n.Fats > 0
}

// Validate returns an error if any field is negative.
func (n NutritionFacts) Validate() error {
	if n.Calories < 0 || n.Protein < 0 || n.Carbohydrates < 0 || n.Fats < 0 {
		return ErrNegativeNutrition
	}
	return nil
}

// Nutrition is the persisted per-meal nutrition record. At most one row
// exists per meal; writes use upsert semantics.
type Nutrition struct {
	ID        uuid.UUID      `json:"id"`
	MealID    uuid.UUID      `json:"meal_id"`
	Facts     NutritionFacts `json:"facts"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewNutrition creates a new Nutrition record for the given meal.
// Returns an error if validation fails.
func NewNutrition(mealID uuid.UUID, facts NutritionFacts) (*Nutrition, error) {
	if mealID == uuid.Nil {
		return nil, ErrEmptyNutritionMealID
	}
	if err := facts.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Nutrition{
		ID:        uuid.New(),
		MealID:    mealID,
		Facts:     facts,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
