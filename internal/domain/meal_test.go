package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMeal(t *testing.T) {
	userID := uuid.New()
	mealTime := time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)

	t.Run("valid meal", func(t *testing.T) {
		meal, err := NewMeal(userID, "Chicken Salad", mealTime, "grilled chicken over greens")

		require.NoError(t, err)
		require.NotNil(t, meal)
		assert.NotEqual(t, uuid.Nil, meal.ID)
		assert.Equal(t, userID, meal.UserID)
		assert.Equal(t, "Chicken Salad", meal.MealName)
		assert.Equal(t, mealTime, meal.MealTime)
		assert.Equal(t, "grilled chicken over greens", meal.Description)
		assert.Equal(t, AnalysisStatusPending, meal.AnalysisStatus)
		assert.False(t, meal.CreatedAt.IsZero())
		assert.Equal(t, meal.CreatedAt, meal.UpdatedAt)
	})

	t.Run("empty description is allowed", func(t *testing.T) {
		meal, err := NewMeal(userID, "Coffee", mealTime, "")

		require.NoError(t, err)
		assert.Empty(t, meal.Description)
	})

	t.Run("missing user ID", func(t *testing.T) {
		meal, err := NewMeal(uuid.Nil, "Chicken Salad", mealTime, "")

		assert.ErrorIs(t, err, ErrEmptyMealUserID)
		assert.Nil(t, meal)
	})

	t.Run("empty name", func(t *testing.T) {
		meal, err := NewMeal(userID, "", mealTime, "")

		assert.ErrorIs(t, err, ErrEmptyMealName)
		assert.Nil(t, meal)
	})

	t.Run("zero meal time", func(t *testing.T) {
		meal, err := NewMeal(userID, "Chicken Salad", time.Time{}, "")

		assert.ErrorIs(t, err, ErrZeroMealTime)
		assert.Nil(t, meal)
	})
}

func TestMealValidate(t *testing.T) {
	validMeal := func() *Meal {
		return &Meal{
			ID:             uuid.New(),
			UserID:         uuid.New(),
			MealName:       "Oatmeal",
			MealTime:       time.Now().UTC(),
			AnalysisStatus: AnalysisStatusPending,
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validMeal().Validate())
	})

	t.Run("empty ID", func(t *testing.T) {
		m := validMeal()
		m.ID = uuid.Nil
		assert.ErrorIs(t, m.Validate(), ErrEmptyMealID)
	})

	t.Run("unknown status", func(t *testing.T) {
		m := validMeal()
		m.AnalysisStatus = AnalysisStatus("queued")
		assert.ErrorIs(t, m.Validate(), ErrInvalidMealStatus)
	})
}

func TestMealCanTransitionTo(t *testing.T) {
	testCases := []struct {
		name    string
		from    AnalysisStatus
		to      AnalysisStatus
		allowed bool
	}{
		{"pending to processing", AnalysisStatusPending, AnalysisStatusProcessing, true},
		{"pending to completed", AnalysisStatusPending, AnalysisStatusCompleted, false},
		{"pending to failed", AnalysisStatusPending, AnalysisStatusFailed, false},
		{"processing to completed", AnalysisStatusProcessing, AnalysisStatusCompleted, true},
		{"processing to failed", AnalysisStatusProcessing, AnalysisStatusFailed, true},
		{"processing to pending", AnalysisStatusProcessing, AnalysisStatusPending, false},
		{"failed to pending is the retry reset", AnalysisStatusFailed, AnalysisStatusPending, true},
		{"failed to processing", AnalysisStatusFailed, AnalysisStatusProcessing, false},
		{"completed is terminal", AnalysisStatusCompleted, AnalysisStatusPending, false},
		{"completed stays completed", AnalysisStatusCompleted, AnalysisStatusFailed, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := &Meal{AnalysisStatus: tc.from}
			assert.Equal(t, tc.allowed, m.CanTransitionTo(tc.to))
		})
	}
}

func TestMealUpdateAnalysisStatus(t *testing.T) {
	meal, err := NewMeal(uuid.New(), "Toast", time.Now().UTC(), "")
	require.NoError(t, err)

	t.Run("valid status", func(t *testing.T) {
		before := meal.UpdatedAt
		time.Sleep(time.Millisecond)

		err := meal.UpdateAnalysisStatus(AnalysisStatusProcessing)

		require.NoError(t, err)
		assert.Equal(t, AnalysisStatusProcessing, meal.AnalysisStatus)
		assert.True(t, meal.UpdatedAt.After(before))
	})

	t.Run("invalid status", func(t *testing.T) {
		err := meal.UpdateAnalysisStatus(AnalysisStatus("bogus"))

		assert.ErrorIs(t, err, ErrInvalidMealStatus)
		assert.Equal(t, AnalysisStatusProcessing, meal.AnalysisStatus)
	})
}
