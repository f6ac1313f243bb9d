// Package generation defines the interface for AI-backed content
// generation: meal analysis and meal suggestions.
package generation

import (
	"context"

	"github.com/yeschef/yeschef-api/internal/domain"
)

// MealDetails carries the user-entered facts about a meal that drive an
// analysis request.
type MealDetails struct {
	MealName    string
	MealTime    string
	Description string
}

// SuggestionRequest describes the remaining nutritional budget a suggestion
// round should fill.
type SuggestionRequest struct {
	RemainingCalories      int
	RemainingProtein       int
	RemainingCarbohydrates int
	RemainingFats          int
	MealType               string
	DietaryPreferences     []string
	Count                  int
}

// Generator defines the interface for AI-backed meal generation services.
// Implementations wrap a specific model provider.
type Generator interface {
	// AnalyzeMeal asks the model to identify a meal and estimate its
	// nutrition from the user's free-text description. The returned result
	// carries raw model values; callers are responsible for clamping.
	AnalyzeMeal(ctx context.Context, details MealDetails) (*domain.AnalysisResult, error)

	// SuggestMeals asks the model for meal ideas that fit within the
	// remaining daily goals.
	SuggestMeals(ctx context.Context, req SuggestionRequest) (*domain.SuggestionResult, error)
}
