package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/yeschef/yeschef-api/internal/domain"
)

// DailySummary aggregates the nutrition rows of a user's meals over a time
// range.
type DailySummary struct {
	TotalCalories      int `json:"total_calories"`
	TotalProtein       int `json:"total_protein"`
	TotalCarbohydrates int `json:"total_carbohydrates"`
	TotalFats          int `json:"total_fats"`
	MealCount          int `json:"meal_count"`
}

// NutritionStore defines the interface for nutrition data persistence.
// A meal has at most one nutrition row; writes use upsert semantics.
type NutritionStore interface {
	// Upsert inserts the nutrition row for a meal, or updates it if one
	// already exists. Values must be non-negative.
	Upsert(ctx context.Context, mealID uuid.UUID, facts domain.NutritionFacts) error

	// GetByMealID retrieves the nutrition row for a meal.
	// Returns ErrNutritionNotFound if the meal has no nutrition record.
	GetByMealID(ctx context.Context, mealID uuid.UUID) (*domain.Nutrition, error)

	// Delete removes the nutrition row for a meal.
	// Returns ErrNutritionNotFound if no row exists.
	Delete(ctx context.Context, mealID uuid.UUID) error

	// SummaryForRange aggregates nutrition across the user's meals with meal
	// time in [from, to). Meals without nutrition rows are not counted.
	SummaryForRange(ctx context.Context, userID uuid.UUID, from, to time.Time) (*DailySummary, error)

	// WithTx returns a new NutritionStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) NutritionStore
}
