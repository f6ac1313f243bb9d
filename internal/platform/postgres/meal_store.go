// Package postgres provides PostgreSQL implementations of the store
// interfaces.
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

// PostgresMealStore implements store.MealStore using PostgreSQL.
type PostgresMealStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.MealStore = (*PostgresMealStore)(nil)

// NewPostgresMealStore creates a new meal store backed by the given
// database connection or transaction.
func NewPostgresMealStore(db store.DBTX, logger *slog.Logger) *PostgresMealStore {
	return &PostgresMealStore{
		db:     db,
		logger: logger.With(slog.String("component", "meal_store")),
	}
}

// WithTx implements store.MealStore.
func (s *PostgresMealStore) WithTx(tx *sql.Tx) store.MealStore {
	return &PostgresMealStore{
		db:     tx,
		logger: s.logger,
	}
}

const mealColumns = `id, user_id, meal_name, meal_time, description,
	ai_analysis_status, ai_analysis_result, created_at, updated_at`

// scanMeal reads one meal row. The description and analysis result columns
// are nullable.
func scanMeal(row interface{ Scan(dest ...any) error }) (*domain.Meal, error) {
	var (
		meal        domain.Meal
		description sql.NullString
		result      sql.NullString
	)
	err := row.Scan(
		&meal.ID,
		&meal.UserID,
		&meal.MealName,
		&meal.MealTime,
		&description,
		&meal.AnalysisStatus,
		&result,
		&meal.CreatedAt,
		&meal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	meal.Description = description.String
	meal.AnalysisResult = result.String
	return &meal, nil
}

// Create implements store.MealStore.
func (s *PostgresMealStore) Create(ctx context.Context, meal *domain.Meal) error {
	if err := meal.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO meals (` + mealColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.ExecContext(ctx, query,
		meal.ID,
		meal.UserID,
		meal.MealName,
		meal.MealTime,
		nullIfEmpty(meal.Description),
		meal.AnalysisStatus,
		nullIfEmpty(meal.AnalysisResult),
		meal.CreatedAt,
		meal.UpdatedAt,
	)
	if err != nil {
		return MapError(err)
	}

	s.logger.DebugContext(ctx, "meal created",
		slog.String("meal_id", meal.ID.String()))
	return nil
}

// GetByID implements store.MealStore.
func (s *PostgresMealStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Meal, error) {
	query := `SELECT ` + mealColumns + ` FROM meals WHERE id = $1`

	meal, err := scanMeal(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrMealNotFound
		}
		return nil, MapError(err)
	}
	return meal, nil
}

// GetForUser implements store.MealStore.
func (s *PostgresMealStore) GetForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Meal, error) {
	query := `SELECT ` + mealColumns + ` FROM meals WHERE id = $1 AND user_id = $2`

	meal, err := scanMeal(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrMealNotFound
		}
		return nil, MapError(err)
	}
	return meal, nil
}

// ListByUser implements store.MealStore.
func (s *PostgresMealStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Meal, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + mealColumns + `
		FROM meals
		WHERE user_id = $1
		ORDER BY meal_time DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return collectMeals(rows)
}

// ListByUserBetween implements store.MealStore.
func (s *PostgresMealStore) ListByUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*domain.Meal, error) {
	query := `
		SELECT ` + mealColumns + `
		FROM meals
		WHERE user_id = $1 AND meal_time >= $2 AND meal_time < $3
		ORDER BY meal_time ASC`

	rows, err := s.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return collectMeals(rows)
}

func collectMeals(rows *sql.Rows) ([]*domain.Meal, error) {
	var meals []*domain.Meal
	for rows.Next() {
		meal, err := scanMeal(rows)
		if err != nil {
			return nil, MapError(err)
		}
		meals = append(meals, meal)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return meals, nil
}

// Update implements store.MealStore.
func (s *PostgresMealStore) Update(ctx context.Context, meal *domain.Meal) error {
	if err := meal.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	meal.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE meals
		SET meal_name = $1, meal_time = $2, description = $3,
			ai_analysis_status = $4, ai_analysis_result = $5, updated_at = $6
		WHERE id = $7`

	result, err := s.db.ExecContext(ctx, query,
		meal.MealName,
		meal.MealTime,
		nullIfEmpty(meal.Description),
		meal.AnalysisStatus,
		nullIfEmpty(meal.AnalysisResult),
		meal.UpdatedAt,
		meal.ID,
	)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrMealNotFound)
}

// UpdateAnalysisStatus implements store.MealStore.
func (s *PostgresMealStore) UpdateAnalysisStatus(ctx context.Context, id uuid.UUID, status domain.AnalysisStatus, analysisResult string) error {
	query := `
		UPDATE meals
		SET ai_analysis_status = $1, ai_analysis_result = $2, updated_at = $3
		WHERE id = $4`

	result, err := s.db.ExecContext(ctx, query,
		status,
		nullIfEmpty(analysisResult),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrMealNotFound); err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "meal analysis status updated",
		slog.String("meal_id", id.String()),
		slog.String("status", string(status)))
	return nil
}

// Delete implements store.MealStore. The nutrition row cascades via the
// foreign key.
func (s *PostgresMealStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM meals WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrMealNotFound)
}

// nullIfEmpty converts an empty string to a SQL NULL.
func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
