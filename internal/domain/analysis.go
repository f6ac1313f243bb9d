package domain

import "encoding/json"

// MealAnalysis is the qualitative portion of an AI meal analysis.
type MealAnalysis struct {
	DetectedMealName     string   `json:"detectedMealName"`
	Ingredients          []string `json:"ingredients"`
	EstimatedPortionSize string   `json:"estimatedPortionSize"`
	Confidence           float64  `json:"confidence"`
}

// AnalysisResult is the full AI meal analysis. It is transient: it is
// serialized into Meal.AnalysisResult rather than persisted as its own
// entity. The nutrition portion additionally feeds the Nutrition upsert.
type AnalysisResult struct {
	Analysis  MealAnalysis   `json:"analysis"`
	Nutrition NutritionFacts `json:"nutrition"`
	Notes     string         `json:"notes,omitempty"`
}

// Encode serializes the result for storage on the meal row.
func (r *AnalysisResult) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// AnalysisError is the failure marker written to Meal.AnalysisResult when an
// analysis attempt fails.
type AnalysisError struct {
	Error string `json:"error"`
}

// EncodeAnalysisError serializes a failure marker for storage on the meal
// row. Marshalling a flat string pair cannot fail, so no error is returned.
func EncodeAnalysisError(message string) string {
	data, _ := json.Marshal(AnalysisError{Error: message})
	return string(data)
}

// MealSuggestion is a single AI-generated meal idea.
type MealSuggestion struct {
	MealName           string         `json:"mealName"`
	Description        string         `json:"description"`
	EstimatedNutrition NutritionFacts `json:"estimatedNutrition"`
	Ingredients        []string       `json:"ingredients"`
	PreparationTime    string         `json:"preparationTime"`
	Difficulty         string         `json:"difficulty"`
}

// SuggestionResult is the AI response to a meal suggestion request.
type SuggestionResult struct {
	Suggestions    []MealSuggestion `json:"suggestions"`
	RemainingGoals NutritionFacts   `json:"remainingGoals"`
}
