package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/yeschef/yeschef-api/internal/domain"
)

// MealStore defines the interface for meal data persistence.
type MealStore interface {
	// Create saves a new meal to the store.
	// It handles domain validation internally.
	// Returns validation errors from the domain Meal if data is invalid.
	Create(ctx context.Context, meal *domain.Meal) error

	// GetByID retrieves a meal by its unique ID.
	// Returns ErrMealNotFound if the meal does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Meal, error)

	// GetForUser retrieves a meal by ID scoped to its owner.
	// Returns ErrMealNotFound if the meal does not exist or belongs to a
	// different user.
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Meal, error)

	// ListByUser retrieves a page of the user's meals ordered by meal time
	// descending.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Meal, error)

	// ListByUserBetween retrieves the user's meals whose meal time falls in
	// [from, to), ordered by meal time ascending.
	ListByUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*domain.Meal, error)

	// Update saves changes to an existing meal.
	// Returns ErrMealNotFound if the meal does not exist.
	Update(ctx context.Context, meal *domain.Meal) error

	// UpdateAnalysisStatus updates only the analysis status and serialized
	// result of a meal. An empty result clears the stored result. Returns
	// ErrMealNotFound if the meal does not exist.
	UpdateAnalysisStatus(ctx context.Context, id uuid.UUID, status domain.AnalysisStatus, result string) error

	// Delete removes a meal and its nutrition record.
	// Returns ErrMealNotFound if the meal does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new MealStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller (typically a service).
	WithTx(tx *sql.Tx) MealStore
}
