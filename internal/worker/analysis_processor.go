package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/yeschef/yeschef-api/internal/domain"
	"github.com/yeschef/yeschef-api/internal/generation"
	"github.com/yeschef/yeschef-api/internal/queue"
	"github.com/yeschef/yeschef-api/internal/store"
)

// AnalysisProcessor handles meal analysis jobs: it drives the meal's
// analysis status through processing to completed or failed, calls the AI
// generator, and persists the clamped nutrition estimate.
type AnalysisProcessor struct {
	mealStore      store.MealStore
	nutritionStore store.NutritionStore
	generator      generation.Generator
	logger         *slog.Logger
}

// NewAnalysisProcessor creates a processor for meal analysis jobs.
func NewAnalysisProcessor(
	mealStore store.MealStore,
	nutritionStore store.NutritionStore,
	generator generation.Generator,
	logger *slog.Logger,
) *AnalysisProcessor {
	return &AnalysisProcessor{
		mealStore:      mealStore,
		nutritionStore: nutritionStore,
		generator:      generator,
		logger:         logger.With(slog.String("component", "analysis_processor")),
	}
}

// Handle implements queue.HandlerFunc for meal analysis jobs.
func (p *AnalysisProcessor) Handle(ctx context.Context, job *queue.Job) error {
	var payload AnalysisJobPayload
	if err := queue.DecodePayload(job, &payload); err != nil {
		return queue.Permanent(err)
	}

	mealID, err := uuid.Parse(payload.MealID)
	if err != nil {
		return queue.Permanent(fmt.Errorf("invalid meal ID %q: %w", payload.MealID, err))
	}

	log := p.logger.With(slog.String("meal_id", mealID.String()))
	log.InfoContext(ctx, "starting meal analysis",
		slog.Int("attempt", job.Attempts))

	// A meal deleted between enqueue and processing cannot recover on
	// retry, so the job fails permanently.
	if _, err := p.mealStore.GetByID(ctx, mealID); err != nil {
		if store.IsNotFoundError(err) {
			return queue.Permanent(fmt.Errorf("meal %s no longer exists: %w", mealID, err))
		}
		return fmt.Errorf("failed to load meal %s: %w", mealID, err)
	}

	if err := p.mealStore.UpdateAnalysisStatus(ctx, mealID, domain.AnalysisStatusProcessing, ""); err != nil {
		return fmt.Errorf("failed to mark meal %s processing: %w", mealID, err)
	}

	result, err := p.generator.AnalyzeMeal(ctx, generation.MealDetails{
		MealName:    payload.MealName,
		MealTime:    payload.MealTime,
		Description: payload.Description,
	})
	if err != nil {
		return p.recordFailure(ctx, log, mealID, err)
	}

	// Clamp before persisting so negative model estimates never reach
	// storage.
	result.Nutrition = result.Nutrition.Clamped()

	encoded, err := result.Encode()
	if err != nil {
		return p.recordFailure(ctx, log, mealID, fmt.Errorf("failed to encode analysis result: %w", err))
	}

	if err := p.mealStore.UpdateAnalysisStatus(ctx, mealID, domain.AnalysisStatusCompleted, encoded); err != nil {
		return fmt.Errorf("failed to mark meal %s completed: %w", mealID, err)
	}

	if result.Nutrition.HasAnyValue() {
		if err := p.nutritionStore.Upsert(ctx, mealID, result.Nutrition); err != nil {
			log.ErrorContext(ctx, "failed to upsert nutrition record",
				slog.String("error", err.Error()))
			return fmt.Errorf("failed to upsert nutrition for meal %s: %w", mealID, err)
		}
	}

	log.InfoContext(ctx, "meal analysis completed",
		slog.Int("calories", result.Nutrition.Calories),
		slog.Float64("confidence", result.Analysis.Confidence))
	return nil
}

// recordFailure marks the meal failed with an error marker, then surfaces
// the cause so the queue can retry. Deterministic generation failures are
// marked permanent to skip pointless retries.
func (p *AnalysisProcessor) recordFailure(ctx context.Context, log *slog.Logger, mealID uuid.UUID, cause error) error {
	log.ErrorContext(ctx, "meal analysis failed",
		slog.String("error", cause.Error()))

	marker := domain.EncodeAnalysisError(cause.Error())
	if err := p.mealStore.UpdateAnalysisStatus(ctx, mealID, domain.AnalysisStatusFailed, marker); err != nil {
		log.ErrorContext(ctx, "failed to mark meal failed",
			slog.String("error", err.Error()))
	}

	if errors.Is(cause, generation.ErrContentBlocked) || errors.Is(cause, generation.ErrEmptyInput) {
		return queue.Permanent(cause)
	}
	return cause
}
