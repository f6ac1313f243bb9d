// Package service implements the application's use cases on top of the
// stores, the queue, and the AI generator.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yeschef/yeschef-api/internal/domain"
	"github.com/yeschef/yeschef-api/internal/queue"
	"github.com/yeschef/yeschef-api/internal/store"
	"github.com/yeschef/yeschef-api/internal/worker"
)

// defaultAnalyzedMealName names meals created through the analysis endpoint
// without an explicit name.
const defaultAnalyzedMealName = "AI Analyzed Meal"

// ErrNoDescription is returned when analysis is requested for a meal
// without a description.
var ErrNoDescription = errors.New("meal has no description to analyze")

// MealService coordinates meal persistence with the asynchronous analysis
// pipeline.
type MealService struct {
	db             *sql.DB
	mealStore      store.MealStore
	nutritionStore store.NutritionStore
	backend        queue.Backend
	logger         *slog.Logger
}

// NewMealService creates a new MealService. db may be nil, in which case
// multi-store writes run without a wrapping transaction.
func NewMealService(
	db *sql.DB,
	mealStore store.MealStore,
	nutritionStore store.NutritionStore,
	backend queue.Backend,
	logger *slog.Logger,
) *MealService {
	return &MealService{
		db:             db,
		mealStore:      mealStore,
		nutritionStore: nutritionStore,
		backend:        backend,
		logger:         logger.With(slog.String("component", "meal_service")),
	}
}

// CreateMealInput carries the fields for creating a meal.
type CreateMealInput struct {
	MealName    string
	MealTime    time.Time
	Description string
}

// CreateMealWithAnalysis creates a meal and enqueues its AI analysis job.
// The job is enqueued with a short delay so the meal row is committed before
// a worker picks it up. The description must be non-empty.
func (s *MealService) CreateMealWithAnalysis(ctx context.Context, userID uuid.UUID, input CreateMealInput) (*domain.Meal, error) {
	if input.Description == "" {
		return nil, ErrNoDescription
	}

	name := input.MealName
	if name == "" {
		name = defaultAnalyzedMealName
	}

	meal, err := domain.NewMeal(userID, name, input.MealTime, input.Description)
	if err != nil {
		return nil, err
	}

	if err := s.mealStore.Create(ctx, meal); err != nil {
		return nil, fmt.Errorf("failed to create meal: %w", err)
	}

	if err := s.enqueueAnalysis(ctx, meal, worker.AnalysisEnqueueOptions()); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "meal created with analysis queued",
		slog.String("meal_id", meal.ID.String()))
	return meal, nil
}

// CreateMeal creates a meal without queuing analysis. Used for manual
// entries where the user supplies no description.
func (s *MealService) CreateMeal(ctx context.Context, userID uuid.UUID, input CreateMealInput) (*domain.Meal, error) {
	meal, err := domain.NewMeal(userID, input.MealName, input.MealTime, input.Description)
	if err != nil {
		return nil, err
	}
	if err := s.mealStore.Create(ctx, meal); err != nil {
		return nil, fmt.Errorf("failed to create meal: %w", err)
	}
	return meal, nil
}

// RetryAnalysis re-queues a failed or stale analysis for a meal owned by
// userID. The meal's status is reset to pending and its previous result
// cleared before the retry job is enqueued at elevated priority.
func (s *MealService) RetryAnalysis(ctx context.Context, userID, mealID uuid.UUID) error {
	meal, err := s.mealStore.GetForUser(ctx, mealID, userID)
	if err != nil {
		return err
	}
	if meal.Description == "" {
		return ErrNoDescription
	}

	if err := s.mealStore.UpdateAnalysisStatus(ctx, mealID, domain.AnalysisStatusPending, ""); err != nil {
		return fmt.Errorf("failed to reset analysis status: %w", err)
	}

	if err := s.enqueueAnalysis(ctx, meal, worker.AnalysisRetryEnqueueOptions()); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "meal analysis retry queued",
		slog.String("meal_id", mealID.String()))
	return nil
}

func (s *MealService) enqueueAnalysis(ctx context.Context, meal *domain.Meal, opts queue.EnqueueOptions) error {
	payload, err := queue.EncodePayload(worker.AnalysisJobPayload{
		MealID:      meal.ID.String(),
		MealName:    meal.MealName,
		MealTime:    meal.MealTime.Format(time.RFC3339),
		Description: meal.Description,
	})
	if err != nil {
		return err
	}

	jobID, err := s.backend.Enqueue(ctx, worker.QueueAnalysis, worker.TypeMealAnalysis, payload, opts)
	if err != nil {
		return fmt.Errorf("failed to enqueue analysis job: %w", err)
	}

	s.logger.DebugContext(ctx, "analysis job enqueued",
		slog.String("job_id", jobID),
		slog.Int("priority", opts.Priority))
	return nil
}

// AnalysisStatus is the user-facing view of a meal's analysis state.
type AnalysisStatus struct {
	MealID      uuid.UUID              `json:"meal_id"`
	MealName    string                 `json:"meal_name"`
	Description string                 `json:"description,omitempty"`
	Status      domain.AnalysisStatus  `json:"status"`
	Result      *domain.AnalysisResult `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	MealTime    time.Time              `json:"meal_time"`
	CreatedAt   time.Time              `json:"created_at"`
}

// GetAnalysisStatus returns the analysis state of a meal owned by userID,
// decoding the stored result or failure marker.
func (s *MealService) GetAnalysisStatus(ctx context.Context, userID, mealID uuid.UUID) (*AnalysisStatus, error) {
	meal, err := s.mealStore.GetForUser(ctx, mealID, userID)
	if err != nil {
		return nil, err
	}

	status := &AnalysisStatus{
		MealID:      meal.ID,
		MealName:    meal.MealName,
		Description: meal.Description,
		Status:      meal.AnalysisStatus,
		MealTime:    meal.MealTime,
		CreatedAt:   meal.CreatedAt,
	}

	if meal.AnalysisResult != "" {
		switch meal.AnalysisStatus {
		case domain.AnalysisStatusFailed:
			var marker domain.AnalysisError
			if err := json.Unmarshal([]byte(meal.AnalysisResult), &marker); err == nil {
				status.Error = marker.Error
			}
		default:
			var result domain.AnalysisResult
			if err := json.Unmarshal([]byte(meal.AnalysisResult), &result); err == nil {
				status.Result = &result
			} else {
				s.logger.WarnContext(ctx, "stored analysis result is not valid JSON",
					slog.String("meal_id", meal.ID.String()))
			}
		}
	}

	return status, nil
}

// GetMeal returns a meal owned by userID.
func (s *MealService) GetMeal(ctx context.Context, userID, mealID uuid.UUID) (*domain.Meal, error) {
	return s.mealStore.GetForUser(ctx, mealID, userID)
}

// ListMeals returns a page of the user's meals, newest meal time first.
func (s *MealService) ListMeals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Meal, error) {
	return s.mealStore.ListByUser(ctx, userID, limit, offset)
}

// UpdateMeal applies name, time, and description changes to a meal owned by
// userID.
func (s *MealService) UpdateMeal(ctx context.Context, userID, mealID uuid.UUID, input CreateMealInput) (*domain.Meal, error) {
	meal, err := s.mealStore.GetForUser(ctx, mealID, userID)
	if err != nil {
		return nil, err
	}

	if input.MealName != "" {
		meal.MealName = input.MealName
	}
	if !input.MealTime.IsZero() {
		meal.MealTime = input.MealTime
	}
	if input.Description != "" {
		meal.Description = input.Description
	}

	if err := s.mealStore.Update(ctx, meal); err != nil {
		return nil, err
	}
	return meal, nil
}

// DeleteMeal removes a meal owned by userID. The nutrition row goes with it.
func (s *MealService) DeleteMeal(ctx context.Context, userID, mealID uuid.UUID) error {
	if _, err := s.mealStore.GetForUser(ctx, mealID, userID); err != nil {
		return err
	}
	return s.mealStore.Delete(ctx, mealID)
}

// DailySummary aggregates the user's nutrition for the calendar day
// containing date, in UTC.
func (s *MealService) DailySummary(ctx context.Context, userID uuid.UUID, date time.Time) (*store.DailySummary, error) {
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	return s.nutritionStore.SummaryForRange(ctx, userID, from, to)
}

// GetNutrition returns the nutrition record for a meal owned by userID.
func (s *MealService) GetNutrition(ctx context.Context, userID, mealID uuid.UUID) (*domain.Nutrition, error) {
	if _, err := s.mealStore.GetForUser(ctx, mealID, userID); err != nil {
		return nil, err
	}
	return s.nutritionStore.GetByMealID(ctx, mealID)
}

// SetNutrition writes a manual nutrition record for a meal owned by userID,
// replacing any AI-derived values. All fields must be non-negative. The
// ownership check and the write share a transaction so the record cannot
// outlive a concurrent meal deletion.
func (s *MealService) SetNutrition(ctx context.Context, userID, mealID uuid.UUID, facts domain.NutritionFacts) (*domain.Nutrition, error) {
	if err := facts.Validate(); err != nil {
		return nil, err
	}

	write := func(ctx context.Context, meals store.MealStore, nutrition store.NutritionStore) error {
		if _, err := meals.GetForUser(ctx, mealID, userID); err != nil {
			return err
		}
		return nutrition.Upsert(ctx, mealID, facts)
	}

	var err error
	if s.db != nil {
		err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
			return write(ctx, s.mealStore.WithTx(tx), s.nutritionStore.WithTx(tx))
		})
	} else {
		err = write(ctx, s.mealStore, s.nutritionStore)
	}
	if err != nil {
		return nil, err
	}

	return s.nutritionStore.GetByMealID(ctx, mealID)
}

// DeleteNutrition removes the nutrition record for a meal owned by userID.
func (s *MealService) DeleteNutrition(ctx context.Context, userID, mealID uuid.UUID) error {
	if _, err := s.mealStore.GetForUser(ctx, mealID, userID); err != nil {
		return err
	}
	return s.nutritionStore.Delete(ctx, mealID)
}
