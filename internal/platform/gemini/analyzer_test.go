package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeschef/yeschef-api/internal/generation"
)

// stubClient returns canned text or errors in place of the real API.
type stubClient struct {
	text    string
	err     error
	prompts []string
}

func (s *stubClient) generate(ctx context.Context, model, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func newTestGenerator(stub *stubClient) *Generator {
	return &Generator{
		model:  "gemini-1.5-flash",
		client: stub,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

const validAnalysisJSON = `{
  "analysis": {
    "detectedMealName": "Grilled Chicken Salad",
    "ingredients": ["chicken breast", "lettuce", "olive oil"],
    "estimatedPortionSize": "1 medium serving",
    "confidence": 0.85
  },
  "nutrition": {
    "calories": 420,
    "protein": 38,
    "carbohydrates": 12,
    "fats": 24
  },
  "notes": "Assumed a standard portion."
}`

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain JSON unchanged",
			input: `{"a": 1}`,
			want:  `{"a": 1}`,
		},
		{
			name:  "json fence removed",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "bare fence removed",
			input: "```\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "fence without trailing newline",
			input: "```json{\"a\": 1}```",
			want:  `{"a": 1}`,
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "  \n{\"a\": 1}\n  ",
			want:  `{"a": 1}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripCodeFences(tc.input))
		})
	}
}

func TestGenerator_AnalyzeMeal(t *testing.T) {
	details := generation.MealDetails{
		MealName:    "Lunch salad",
		MealTime:    "2026-08-28T12:30:00Z",
		Description: "Grilled chicken salad with olive oil dressing",
	}

	t.Run("parses valid response", func(t *testing.T) {
		g := newTestGenerator(&stubClient{text: validAnalysisJSON})

		result, err := g.AnalyzeMeal(context.Background(), details)
		require.NoError(t, err)
		assert.Equal(t, "Grilled Chicken Salad", result.Analysis.DetectedMealName)
		assert.Equal(t, 420, result.Nutrition.Calories)
		assert.Equal(t, 38, result.Nutrition.Protein)
	})

	t.Run("parses fenced response", func(t *testing.T) {
		g := newTestGenerator(&stubClient{text: "```json\n" + validAnalysisJSON + "\n```"})

		result, err := g.AnalyzeMeal(context.Background(), details)
		require.NoError(t, err)
		assert.Equal(t, 420, result.Nutrition.Calories)
	})

	t.Run("prompt embeds meal details", func(t *testing.T) {
		stub := &stubClient{text: validAnalysisJSON}
		g := newTestGenerator(stub)

		_, err := g.AnalyzeMeal(context.Background(), details)
		require.NoError(t, err)
		require.Len(t, stub.prompts, 1)
		assert.Contains(t, stub.prompts[0], details.MealName)
		assert.Contains(t, stub.prompts[0], details.MealTime)
		assert.Contains(t, stub.prompts[0], details.Description)
	})

	t.Run("missing name and time become placeholders", func(t *testing.T) {
		stub := &stubClient{text: validAnalysisJSON}
		g := newTestGenerator(stub)

		_, err := g.AnalyzeMeal(context.Background(), generation.MealDetails{
			Description: "just toast",
		})
		require.NoError(t, err)
		assert.Contains(t, stub.prompts[0], "Not specified")
	})

	t.Run("rejects empty description", func(t *testing.T) {
		g := newTestGenerator(&stubClient{text: validAnalysisJSON})

		_, err := g.AnalyzeMeal(context.Background(), generation.MealDetails{Description: "   "})
		assert.ErrorIs(t, err, generation.ErrEmptyInput)
	})

	t.Run("rejects non-JSON response", func(t *testing.T) {
		g := newTestGenerator(&stubClient{text: "I cannot analyze this meal."})

		_, err := g.AnalyzeMeal(context.Background(), details)
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("rejects response missing nutrition", func(t *testing.T) {
		g := newTestGenerator(&stubClient{text: `{"analysis": {"confidence": 0.5}}`})

		_, err := g.AnalyzeMeal(context.Background(), details)
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("rejects response missing analysis", func(t *testing.T) {
		g := newTestGenerator(&stubClient{text: `{"nutrition": {"calories": 100}}`})

		_, err := g.AnalyzeMeal(context.Background(), details)
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("propagates transient failures", func(t *testing.T) {
		g := newTestGenerator(&stubClient{
			err: errors.New("rate limited"),
		})

		_, err := g.AnalyzeMeal(context.Background(), details)
		assert.Error(t, err)
	})

	t.Run("tolerates string and negative nutrition values", func(t *testing.T) {
		g := newTestGenerator(&stubClient{text: `{
			"analysis": {"detectedMealName": "Mystery", "ingredients": [], "estimatedPortionSize": "?", "confidence": 0.1},
			"nutrition": {"calories": "350", "protein": -5, "carbohydrates": "abc", "fats": 10.9}
		}`})

		result, err := g.AnalyzeMeal(context.Background(), details)
		require.NoError(t, err)
		assert.Equal(t, 350, result.Nutrition.Calories)
		assert.Equal(t, -5, result.Nutrition.Protein, "clamping happens downstream, not here")
		assert.Equal(t, 0, result.Nutrition.Carbohydrates)
		assert.Equal(t, 10, result.Nutrition.Fats)
	})
}

func TestGenerator_SuggestMeals(t *testing.T) {
	req := generation.SuggestionRequest{
		RemainingCalories:      800,
		RemainingProtein:       40,
		RemainingCarbohydrates: 90,
		RemainingFats:          25,
		Count:                  2,
	}

	const validSuggestionJSON = `{
		"suggestions": [
			{
				"mealName": "Salmon Bowl",
				"description": "Baked salmon over brown rice",
				"estimatedNutrition": {"calories": 550, "protein": 35, "carbohydrates": 60, "fats": 18},
				"ingredients": ["salmon", "brown rice", "broccoli"],
				"preparationTime": "25 minutes",
				"difficulty": "easy"
			}
		],
		"remainingGoals": {"calories": 250, "protein": 5, "carbohydrates": 30, "fats": 7}
	}`

	t.Run("parses valid response", func(t *testing.T) {
		g := newTestGenerator(&stubClient{text: validSuggestionJSON})

		result, err := g.SuggestMeals(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, result.Suggestions, 1)
		assert.Equal(t, "Salmon Bowl", result.Suggestions[0].MealName)
		assert.Equal(t, 250, result.RemainingGoals.Calories)
	})

	t.Run("prompt embeds remaining goals", func(t *testing.T) {
		stub := &stubClient{text: validSuggestionJSON}
		g := newTestGenerator(stub)

		_, err := g.SuggestMeals(context.Background(), req)
		require.NoError(t, err)
		assert.Contains(t, stub.prompts[0], "800")
		assert.Contains(t, stub.prompts[0], "40")
	})

	t.Run("rejects empty suggestion list", func(t *testing.T) {
		g := newTestGenerator(&stubClient{text: `{"suggestions": [], "remainingGoals": {}}`})

		_, err := g.SuggestMeals(context.Background(), req)
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})
}
