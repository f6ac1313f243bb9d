package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// AnalysisStatus represents the AI analysis state of a meal.
type AnalysisStatus string

// Possible analysis status values.
const (
	AnalysisStatusPending    AnalysisStatus = "pending"
	AnalysisStatusProcessing AnalysisStatus = "processing"
	AnalysisStatusCompleted  AnalysisStatus = "completed"
	AnalysisStatusFailed     AnalysisStatus = "failed"
)

// Common validation errors for Meal.
var (
	ErrEmptyMealID          = errors.New("meal ID cannot be empty")
	ErrEmptyMealUserID      = errors.New("meal user ID cannot be empty")
	ErrEmptyMealName        = errors.New("meal name cannot be empty")
	ErrZeroMealTime         = errors.New("meal time cannot be zero")
	ErrInvalidMealStatus    = errors.New("invalid analysis status")
	ErrInvalidStatusChange  = errors.New("invalid analysis status transition")
	ErrEmptyMealDescription = errors.New("meal has no description")
)

// Meal represents a single meal logged by a user. The Description field is
// free text written by the user; when present, it drives the asynchronous AI
// analysis whose lifecycle is tracked by AnalysisStatus and whose serialized
// output lands in AnalysisResult.
type Meal struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	MealName       string         `json:"meal_name"`
	MealTime       time.Time      `json:"meal_time"`
	Description    string         `json:"description,omitempty"`
	AnalysisStatus AnalysisStatus `json:"ai_analysis_status"`
	AnalysisResult string         `json:"ai_analysis_result,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewMeal creates a new Meal with the given owner, name, time, and optional
// description. It generates a new UUID for the meal ID, sets the analysis
// status to pending, and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewMeal(userID uuid.UUID, mealName string, mealTime time.Time, description string) (*Meal, error) {
	now := time.Now().UTC()
	meal := &Meal{
		ID:             uuid.New(),
		UserID:         userID,
		MealName:       mealName,
		MealTime:       mealTime,
		Description:    description,
		AnalysisStatus: AnalysisStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := meal.Validate(); err != nil {
		return nil, err
	}

	return meal, nil
}

// Validate checks if the Meal has valid data.
// Returns an error if any field fails validation.
func (m *Meal) Validate() error {
	if m.ID == uuid.Nil {
		return ErrEmptyMealID
	}

	if m.UserID == uuid.Nil {
		return ErrEmptyMealUserID
	}

	if m.MealName == "" {
		return ErrEmptyMealName
	}

	if m.MealTime.IsZero() {
		return ErrZeroMealTime
	}

	if !isValidAnalysisStatus(m.AnalysisStatus) {
		return ErrInvalidMealStatus
	}

	return nil
}

// CanTransitionTo reports whether the analysis status may move from its
// current value to the target. The lifecycle is
// pending -> processing -> {completed, failed}; failed -> pending is the
// explicit retry reset. Terminal statuses never change on their own.
func (m *Meal) CanTransitionTo(target AnalysisStatus) bool {
	switch m.AnalysisStatus {
	case AnalysisStatusPending:
		return target == AnalysisStatusProcessing
	case AnalysisStatusProcessing:
		return target == AnalysisStatusCompleted || target == AnalysisStatusFailed
	case AnalysisStatusFailed:
		return target == AnalysisStatusPending
	default:
		return false
	}
}

// UpdateAnalysisStatus updates the meal's analysis status and the UpdatedAt
// timestamp. Returns an error if the new status is invalid.
func (m *Meal) UpdateAnalysisStatus(status AnalysisStatus) error {
	if !isValidAnalysisStatus(status) {
		return ErrInvalidMealStatus
	}

	m.AnalysisStatus = status
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// isValidAnalysisStatus checks if the given status is a valid AnalysisStatus.
func isValidAnalysisStatus(status AnalysisStatus) bool {
	switch status {
	case AnalysisStatusPending, AnalysisStatusProcessing,
		AnalysisStatusCompleted, AnalysisStatusFailed:
		return true
	default:
		return false
	}
}
