package worker

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yeschef/yeschef-api/internal/domain"
	"github.com/yeschef/yeschef-api/internal/generation"
	"github.com/yeschef/yeschef-api/internal/mail"
	"github.com/yeschef/yeschef-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// statusChange records one UpdateAnalysisStatus call.
type statusChange struct {
	Status domain.AnalysisStatus
	Result string
}

// mockMealStore is an in-memory MealStore recording status updates.
type mockMealStore struct {
	mu       sync.Mutex
	meals    map[uuid.UUID]*domain.Meal
	changes  []statusChange
	getErr   error
	updErr   error
}

var _ store.MealStore = (*mockMealStore)(nil)

func newMockMealStore() *mockMealStore {
	return &mockMealStore{meals: make(map[uuid.UUID]*domain.Meal)}
}

func (m *mockMealStore) add(meal *domain.Meal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meals[meal.ID] = meal
}

func (m *mockMealStore) statusChanges() []statusChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]statusChange, len(m.changes))
	copy(out, m.changes)
	return out
}

func (m *mockMealStore) Create(ctx context.Context, meal *domain.Meal) error {
	m.add(meal)
	return nil
}

func (m *mockMealStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Meal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	meal, ok := m.meals[id]
	if !ok {
		return nil, store.ErrMealNotFound
	}
	copied := *meal
	return &copied, nil
}

func (m *mockMealStore) GetForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Meal, error) {
	meal, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if meal.UserID != userID {
		return nil, store.ErrMealNotFound
	}
	return meal, nil
}

func (m *mockMealStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Meal, error) {
	return nil, nil
}

func (m *mockMealStore) ListByUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*domain.Meal, error) {
	return nil, nil
}

func (m *mockMealStore) Update(ctx context.Context, meal *domain.Meal) error {
	m.add(meal)
	return nil
}

func (m *mockMealStore) UpdateAnalysisStatus(ctx context.Context, id uuid.UUID, status domain.AnalysisStatus, result string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updErr != nil {
		return m.updErr
	}
	meal, ok := m.meals[id]
	if !ok {
		return store.ErrMealNotFound
	}
	meal.AnalysisStatus = status
	meal.AnalysisResult = result
	m.changes = append(m.changes, statusChange{Status: status, Result: result})
	return nil
}

func (m *mockMealStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.meals, id)
	return nil
}

func (m *mockMealStore) WithTx(tx *sql.Tx) store.MealStore { return m }

// mockNutritionStore records Upsert calls.
type mockNutritionStore struct {
	mu      sync.Mutex
	upserts map[uuid.UUID]domain.NutritionFacts
	err     error
}

var _ store.NutritionStore = (*mockNutritionStore)(nil)

func newMockNutritionStore() *mockNutritionStore {
	return &mockNutritionStore{upserts: make(map[uuid.UUID]domain.NutritionFacts)}
}

func (m *mockNutritionStore) Upsert(ctx context.Context, mealID uuid.UUID, facts domain.NutritionFacts) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.upserts[mealID] = facts
	return nil
}

func (m *mockNutritionStore) GetByMealID(ctx context.Context, mealID uuid.UUID) (*domain.Nutrition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	facts, ok := m.upserts[mealID]
	if !ok {
		return nil, store.ErrNutritionNotFound
	}
	return &domain.Nutrition{MealID: mealID, Facts: facts}, nil
}

func (m *mockNutritionStore) Delete(ctx context.Context, mealID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.upserts, mealID)
	return nil
}

func (m *mockNutritionStore) SummaryForRange(ctx context.Context, userID uuid.UUID, from, to time.Time) (*store.DailySummary, error) {
	return &store.DailySummary{}, nil
}

func (m *mockNutritionStore) WithTx(tx *sql.Tx) store.NutritionStore { return m }

// mockGenerator returns canned analysis results or errors.
type mockGenerator struct {
	result  *domain.AnalysisResult
	err     error
	details []generation.MealDetails
}

var _ generation.Generator = (*mockGenerator)(nil)

func (m *mockGenerator) AnalyzeMeal(ctx context.Context, details generation.MealDetails) (*domain.AnalysisResult, error) {
	m.details = append(m.details, details)
	if m.err != nil {
		return nil, m.err
	}
	copied := *m.result
	return &copied, nil
}

func (m *mockGenerator) SuggestMeals(ctx context.Context, req generation.SuggestionRequest) (*domain.SuggestionResult, error) {
	return nil, generation.ErrTransientFailure
}

// mockSender records sent messages.
type mockSender struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

var _ mail.Sender = (*mockSender)(nil)

func (m *mockSender) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}
