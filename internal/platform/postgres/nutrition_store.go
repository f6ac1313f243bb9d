package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yeschef/yeschef-api/internal/domain"
	"github.com/yeschef/yeschef-api/internal/store"
)

// PostgresNutritionStore implements store.NutritionStore using PostgreSQL.
type PostgresNutritionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.NutritionStore = (*PostgresNutritionStore)(nil)

// NewPostgresNutritionStore creates a new nutrition store backed by the
// given database connection or transaction.
func NewPostgresNutritionStore(db store.DBTX, logger *slog.Logger) *PostgresNutritionStore {
	return &PostgresNutritionStore{
		db:     db,
		logger: logger.With(slog.String("component", "nutrition_store")),
	}
}

// WithTx implements store.NutritionStore.
func (s *PostgresNutritionStore) WithTx(tx *sql.Tx) store.NutritionStore {
	return &PostgresNutritionStore{
		db:     tx,
		logger: s.logger,
	}
}

// Upsert implements store.NutritionStore. The unique constraint on meal_id
// makes the insert-or-update atomic.
func (s *PostgresNutritionStore) Upsert(ctx context.Context, mealID uuid.UUID, facts domain.NutritionFacts) error {
	if err := facts.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO nutrients (id, meal_id, calories, protein, carbohydrates, fats, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (meal_id) DO UPDATE
		SET calories = EXCLUDED.calories,
			protein = EXCLUDED.protein,
			carbohydrates = EXCLUDED.carbohydrates,
			fats = EXCLUDED.fats,
			updated_at = EXCLUDED.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		mealID,
		facts.Calories,
		facts.Protein,
		facts.Carbohydrates,
		facts.Fats,
		now,
	)
	if err != nil {
		return MapError(err)
	}

	s.logger.DebugContext(ctx, "nutrition upserted",
		slog.String("meal_id", mealID.String()),
		slog.Int("calories", facts.Calories))
	return nil
}

// GetByMealID implements store.NutritionStore.
func (s *PostgresNutritionStore) GetByMealID(ctx context.Context, mealID uuid.UUID) (*domain.Nutrition, error) {
	query := `
		SELECT id, meal_id, calories, protein, carbohydrates, fats, created_at, updated_at
		FROM nutrients
		WHERE meal_id = $1`

	var n domain.Nutrition
	err := s.db.QueryRowContext(ctx, query, mealID).Scan(
		&n.ID,
		&n.MealID,
		&n.Facts.Calories,
		&n.Facts.Protein,
		&n.Facts.Carbohydrates,
		&n.Facts.Fats,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNutritionNotFound
		}
		return nil, MapError(err)
	}
	return &n, nil
}

// Delete implements store.NutritionStore.
func (s *PostgresNutritionStore) Delete(ctx context.Context, mealID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM nutrients WHERE meal_id = $1`, mealID)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrNutritionNotFound)
}

// SummaryForRange implements store.NutritionStore.
func (s *PostgresNutritionStore) SummaryForRange(ctx context.Context, userID uuid.UUID, from, to time.Time) (*store.DailySummary, error) {
	query := `
		SELECT
			COALESCE(SUM(n.calories), 0),
			COALESCE(SUM(n.protein), 0),
			COALESCE(SUM(n.carbohydrates), 0),
			COALESCE(SUM(n.fats), 0),
			COUNT(n.id)
		FROM nutrients n
		JOIN meals m ON m.id = n.meal_id
		WHERE m.user_id = $1 AND m.meal_time >= $2 AND m.meal_time < $3`

	var summary store.DailySummary
	err := s.db.QueryRowContext(ctx, query, userID, from, to).Scan(
		&summary.TotalCalories,
		&summary.TotalProtein,
		&summary.TotalCarbohydrates,
		&summary.TotalFats,
		&summary.MealCount,
	)
	if err != nil {
		return nil, MapError(err)
	}
	return &summary, nil
}
