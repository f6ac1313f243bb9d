package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yeschef/yeschef-api/internal/domain"
	"github.com/yeschef/yeschef-api/internal/generation"
	"github.com/yeschef/yeschef-api/internal/queue"
	"github.com/yeschef/yeschef-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// enqueuedJob records one Enqueue call on the fake backend.
type enqueuedJob struct {
	Queue   string
	Type    string
	Payload json.RawMessage
	Opts    queue.EnqueueOptions
}

// fakeBackend records enqueues; the worker-side methods are never used by
// services.
type fakeBackend struct {
	mu       sync.Mutex
	enqueued []enqueuedJob
	err      error
}

var _ queue.Backend = (*fakeBackend)(nil)

func (f *fakeBackend) Enqueue(ctx context.Context, q, jobType string, payload json.RawMessage, opts queue.EnqueueOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.enqueued = append(f.enqueued, enqueuedJob{Queue: q, Type: jobType, Payload: payload, Opts: opts})
	return uuid.NewString(), nil
}

func (f *fakeBackend) jobs() []enqueuedJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]enqueuedJob, len(f.enqueued))
	copy(out, f.enqueued)
	return out
}

func (f *fakeBackend) GetJob(ctx context.Context, q, id string) (*queue.Job, error) {
	return nil, queue.ErrJobNotFound
}

func (f *fakeBackend) Dequeue(ctx context.Context, q string, wait time.Duration) (*queue.Job, error) {
	return nil, queue.ErrDequeueTimeout
}

func (f *fakeBackend) Complete(ctx context.Context, job *queue.Job) error { return nil }

func (f *fakeBackend) Fail(ctx context.Context, job *queue.Job, cause error, permanent bool) (bool, error) {
	return false, nil
}

func (f *fakeBackend) PromoteScheduled(ctx context.Context, q string) (int, error) { return 0, nil }

func (f *fakeBackend) PendingCount(ctx context.Context, q string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.enqueued), nil
}

func (f *fakeBackend) Close() error { return nil }

// memMealStore is an in-memory MealStore.
type memMealStore struct {
	mu    sync.Mutex
	meals map[uuid.UUID]*domain.Meal
}

var _ store.MealStore = (*memMealStore)(nil)

func newMemMealStore() *memMealStore {
	return &memMealStore{meals: make(map[uuid.UUID]*domain.Meal)}
}

func (m *memMealStore) Create(ctx context.Context, meal *domain.Meal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *meal
	m.meals[meal.ID] = &copied
	return nil
}

func (m *memMealStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Meal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meal, ok := m.meals[id]
	if !ok {
		return nil, store.ErrMealNotFound
	}
	copied := *meal
	return &copied, nil
}

func (m *memMealStore) GetForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Meal, error) {
	meal, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if meal.UserID != userID {
		return nil, store.ErrMealNotFound
	}
	return meal, nil
}

func (m *memMealStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Meal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Meal
	for _, meal := range m.meals {
		if meal.UserID == userID {
			copied := *meal
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memMealStore) ListByUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*domain.Meal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Meal
	for _, meal := range m.meals {
		if meal.UserID == userID && !meal.MealTime.Before(from) && meal.MealTime.Before(to) {
			copied := *meal
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memMealStore) Update(ctx context.Context, meal *domain.Meal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.meals[meal.ID]; !ok {
		return store.ErrMealNotFound
	}
	copied := *meal
	m.meals[meal.ID] = &copied
	return nil
}

func (m *memMealStore) UpdateAnalysisStatus(ctx context.Context, id uuid.UUID, status domain.AnalysisStatus, result string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	meal, ok := m.meals[id]
	if !ok {
		return store.ErrMealNotFound
	}
	meal.AnalysisStatus = status
	meal.AnalysisResult = result
	return nil
}

func (m *memMealStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.meals[id]; !ok {
		return store.ErrMealNotFound
	}
	delete(m.meals, id)
	return nil
}

func (m *memMealStore) WithTx(tx *sql.Tx) store.MealStore { return m }

// memNutritionStore is an in-memory NutritionStore returning a fixed
// summary.
type memNutritionStore struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]domain.NutritionFacts
	summary store.DailySummary
}

var _ store.NutritionStore = (*memNutritionStore)(nil)

func newMemNutritionStore() *memNutritionStore {
	return &memNutritionStore{rows: make(map[uuid.UUID]domain.NutritionFacts)}
}

func (m *memNutritionStore) Upsert(ctx context.Context, mealID uuid.UUID, facts domain.NutritionFacts) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[mealID] = facts
	return nil
}

func (m *memNutritionStore) GetByMealID(ctx context.Context, mealID uuid.UUID) (*domain.Nutrition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	facts, ok := m.rows[mealID]
	if !ok {
		return nil, store.ErrNutritionNotFound
	}
	return &domain.Nutrition{MealID: mealID, Facts: facts}, nil
}

func (m *memNutritionStore) Delete(ctx context.Context, mealID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, mealID)
	return nil
}

func (m *memNutritionStore) SummaryForRange(ctx context.Context, userID uuid.UUID, from, to time.Time) (*store.DailySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := m.summary
	return &summary, nil
}

func (m *memNutritionStore) WithTx(tx *sql.Tx) store.NutritionStore { return m }

// memUserStore is an in-memory UserStore. Create stores the plaintext as a
// fake hash unless a real hash is present.
type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

var _ store.UserStore = (*memUserStore)(nil)

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (m *memUserStore) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *memUserStore) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.VerificationToken == token && token != "" {
			copied := *user
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *memUserStore) Update(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memUserStore) WithTx(tx *sql.Tx) store.UserStore { return m }

// stubGenerator returns a canned suggestion result.
type stubGenerator struct {
	suggestions *domain.SuggestionResult
	err         error
	requests    []generation.SuggestionRequest
}

var _ generation.Generator = (*stubGenerator)(nil)

func (s *stubGenerator) AnalyzeMeal(ctx context.Context, details generation.MealDetails) (*domain.AnalysisResult, error) {
	return nil, generation.ErrTransientFailure
}

func (s *stubGenerator) SuggestMeals(ctx context.Context, req generation.SuggestionRequest) (*domain.SuggestionResult, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.suggestions, nil
}
