// Package gemini implements the generation.Generator interface using
// Google's Gemini models via the google.golang.org/genai client.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/yeschef/yeschef-api/internal/domain"
	"github.com/yeschef/yeschef-api/internal/generation"
)

const analysisPromptTemplate = `You are a nutrition expert AI. Analyze the following meal description and provide detailed nutritional information.

Meal Information:
- Name: %s
- Time: %s
- Description: %s

Please provide a JSON response with the following structure:
{
  "analysis": {
    "detectedMealName": "string (if meal name can be improved/corrected)",
    "ingredients": ["list of detected ingredients"],
    "estimatedPortionSize": "string (e.g., '1 medium serving', '200g')",
    "confidence": "number (0-1, how confident you are in the analysis)"
  },
  "nutrition": {
    "calories": "number (total estimated calories)",
    "protein": "number (grams of protein)",
    "carbohydrates": "number (grams of carbohydrates)",
    "fats": "number (grams of fats)"
  },
  "notes": "string (any additional notes or assumptions made)"
}

Important guidelines:
1. Be conservative with estimates - it's better to underestimate than overestimate
2. If the description is vague, make reasonable assumptions and note them
3. Consider typical portion sizes for the described meal
4. If you cannot determine nutrition info, set values to 0 and explain in notes
5. Only return valid JSON, no additional text

Meal Description to analyze: "%s"`

const suggestionPromptTemplate = `You are a nutrition expert AI. Suggest healthy meal options that fit within the remaining daily nutrition goals.

Remaining Goals:
- Calories: %d kcal
- Protein: %d g
- Carbohydrates: %d g
- Fats: %d g
%s
Please provide %d meal suggestions. Return a JSON response with this structure:
{
  "suggestions": [
    {
      "mealName": "string",
      "description": "string (detailed description)",
      "estimatedNutrition": {
        "calories": "number",
        "protein": "number",
        "carbohydrates": "number",
        "fats": "number"
      },
      "ingredients": ["list of main ingredients"],
      "preparationTime": "string (e.g., '15 minutes')",
      "difficulty": "string (easy/medium/hard)"
    }
  ],
  "remainingGoals": {
    "calories": "number",
    "protein": "number",
    "carbohydrates": "number",
    "fats": "number"
  }
}

Only return valid JSON, no additional text.`

// contentGenerator abstracts the genai model call for testability.
type contentGenerator interface {
	generate(ctx context.Context, model, prompt string) (string, error)
}

// Generator implements generation.Generator against the Gemini API.
type Generator struct {
	model  string
	client contentGenerator
	logger *slog.Logger
}

var _ generation.Generator = (*Generator)(nil)

// Config holds the settings for the Gemini generator.
type Config struct {
	APIKey    string
	ModelName string
}

// NewGenerator creates a Gemini-backed Generator, verifying configuration
// and establishing the API client.
func NewGenerator(ctx context.Context, cfg Config, logger *slog.Logger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name is required", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Generator{
		model:  cfg.ModelName,
		client: &genaiClient{client: client},
		logger: logger.With(slog.String("component", "gemini_generator")),
	}, nil
}

// genaiClient is the production contentGenerator backed by the real API.
type genaiClient struct {
	client *genai.Client
}

func (g *genaiClient) generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: %s", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates returned", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: empty response text", generation.ErrInvalidResponse)
	}
	return sb.String(), nil
}

// AnalyzeMeal implements generation.Generator.
func (g *Generator) AnalyzeMeal(ctx context.Context, details generation.MealDetails) (*domain.AnalysisResult, error) {
	if strings.TrimSpace(details.Description) == "" {
		return nil, fmt.Errorf("%w: meal description is empty", generation.ErrEmptyInput)
	}

	prompt := fmt.Sprintf(analysisPromptTemplate,
		orNotSpecified(details.MealName),
		orNotSpecified(details.MealTime),
		details.Description,
		details.Description)

	text, err := g.client.generate(ctx, g.model, prompt)
	if err != nil {
		return nil, err
	}

	var result domain.AnalysisResult
	cleaned := StripCodeFences(text)
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		g.logger.WarnContext(ctx, "model returned unparsable analysis",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: not valid JSON: %v", generation.ErrInvalidResponse, err)
	}
	if err := validateAnalysisShape(cleaned); err != nil {
		return nil, err
	}
	return &result, nil
}

// validateAnalysisShape requires both top-level analysis and nutrition keys
// to be present in the model output.
func validateAnalysisShape(cleaned string) error {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &shape); err != nil {
		return fmt.Errorf("%w: not a JSON object: %v", generation.ErrInvalidResponse, err)
	}
	if _, ok := shape["analysis"]; !ok {
		return fmt.Errorf("%w: missing analysis field", generation.ErrInvalidResponse)
	}
	if _, ok := shape["nutrition"]; !ok {
		return fmt.Errorf("%w: missing nutrition field", generation.ErrInvalidResponse)
	}
	return nil
}

// SuggestMeals implements generation.Generator.
func (g *Generator) SuggestMeals(ctx context.Context, req generation.SuggestionRequest) (*domain.SuggestionResult, error) {
	count := req.Count
	if count <= 0 {
		count = 3
	}

	var prefs string
	if req.MealType != "" {
		prefs += fmt.Sprintf("- Meal type: %s\n", req.MealType)
	}
	if len(req.DietaryPreferences) > 0 {
		prefs += fmt.Sprintf("- Dietary preferences: %s\n", strings.Join(req.DietaryPreferences, ", "))
	}

	prompt := fmt.Sprintf(suggestionPromptTemplate,
		req.RemainingCalories,
		req.RemainingProtein,
		req.RemainingCarbohydrates,
		req.RemainingFats,
		prefs,
		count)

	text, err := g.client.generate(ctx, g.model, prompt)
	if err != nil {
		return nil, err
	}

	var result domain.SuggestionResult
	cleaned := StripCodeFences(text)
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("%w: not valid JSON: %v", generation.ErrInvalidResponse, err)
	}
	if len(result.Suggestions) == 0 {
		return nil, fmt.Errorf("%w: no suggestions returned", generation.ErrInvalidResponse)
	}
	return &result, nil
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}
