package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yeschef/yeschef-api/internal/domain"
	"github.com/yeschef/yeschef-api/internal/generation"
	"github.com/yeschef/yeschef-api/internal/store"
)

// NutritionGoals are the daily macro targets suggestions aim to fill.
type NutritionGoals struct {
	Calories      int
	Protein       int
	Carbohydrates int
	Fats          int
}

// DefaultNutritionGoals returns the fallback daily targets used when the
// caller supplies none.
func DefaultNutritionGoals() NutritionGoals {
	return NutritionGoals{
		Calories:      2000,
		Protein:       150,
		Carbohydrates: 250,
		Fats:          65,
	}
}

// Suggestions is the result of a suggestion request: the AI's meal ideas
// alongside what the user has already eaten that day.
type Suggestions struct {
	Suggestions    []domain.MealSuggestion `json:"suggestions"`
	RemainingGoals domain.NutritionFacts   `json:"remaining_goals"`
	CurrentIntake  domain.NutritionFacts   `json:"current_intake"`
}

// SuggestionService generates meal suggestions that fit the user's remaining
// daily goals.
type SuggestionService struct {
	nutritionStore store.NutritionStore
	generator      generation.Generator
	logger         *slog.Logger
}

// NewSuggestionService creates a new SuggestionService.
func NewSuggestionService(
	nutritionStore store.NutritionStore,
	generator generation.Generator,
	logger *slog.Logger,
) *SuggestionService {
	return &SuggestionService{
		nutritionStore: nutritionStore,
		generator:      generator,
		logger:         logger.With(slog.String("component", "suggestion_service")),
	}
}

// Suggest computes the user's intake for the calendar day containing date,
// subtracts it from the goals, and asks the generator for meals that fill
// the remainder.
func (s *SuggestionService) Suggest(ctx context.Context, userID uuid.UUID, goals NutritionGoals, date time.Time) (*Suggestions, error) {
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	summary, err := s.nutritionStore.SummaryForRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to compute current intake: %w", err)
	}

	req := generation.SuggestionRequest{
		RemainingCalories:      max(0, goals.Calories-summary.TotalCalories),
		RemainingProtein:       max(0, goals.Protein-summary.TotalProtein),
		RemainingCarbohydrates: max(0, goals.Carbohydrates-summary.TotalCarbohydrates),
		RemainingFats:          max(0, goals.Fats-summary.TotalFats),
	}

	result, err := s.generator.SuggestMeals(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate suggestions: %w", err)
	}

	s.logger.InfoContext(ctx, "meal suggestions generated",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(result.Suggestions)))

	return &Suggestions{
		Suggestions:    result.Suggestions,
		RemainingGoals: result.RemainingGoals,
		CurrentIntake: domain.NutritionFacts{
			Calories:      summary.TotalCalories,
			Protein:       summary.TotalProtein,
			Carbohydrates: summary.TotalCarbohydrates,
			Fats:          summary.TotalFats,
		},
	}, nil
}
