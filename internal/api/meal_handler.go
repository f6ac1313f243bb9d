package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yeschef/yeschef-api/internal/domain"
	"github.com/yeschef/yeschef-api/internal/service"
	"github.com/yeschef/yeschef-api/internal/store"
)

// MealHandler serves meal CRUD, the analysis pipeline endpoints, and daily
// summaries.
type MealHandler struct {
	meals       *service.MealService
	suggestions *service.SuggestionService
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewMealHandler creates a new MealHandler.
func NewMealHandler(meals *service.MealService, suggestions *service.SuggestionService, logger *slog.Logger) *MealHandler {
	return &MealHandler{
		meals:       meals,
		suggestions: suggestions,
		validate:    validator.New(),
		logger:      logger.With(slog.String("component", "meal_handler")),
	}
}

// mustUserID extracts the authenticated user from the context. The auth
// middleware guarantees it is present on protected routes.
func mustUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	return userID, true
}

func mealIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid meal ID")
		return uuid.Nil, false
	}
	return id, true
}

// CreateMealRequest is the body of POST /meals and POST /meals/analyze.
type CreateMealRequest struct {
	MealName    string    `json:"meal_name"`
	MealTime    time.Time `json:"meal_time" validate:"required"`
	Description string    `json:"description"`
}

// CreateWithAnalysis handles POST /meals/analyze: create a meal and queue
// its AI analysis.
func (h *MealHandler) CreateWithAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req CreateMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "meal_time is required")
		return
	}
	if req.Description == "" {
		RespondWithError(w, http.StatusBadRequest, "description is required for analysis")
		return
	}

	meal, err := h.meals.CreateMealWithAnalysis(r.Context(), userID, service.CreateMealInput{
		MealName:    req.MealName,
		MealTime:    req.MealTime,
		Description: req.Description,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create meal with analysis",
			slog.String("error", err.Error()))
		RespondWithError(w, http.StatusInternalServerError, "failed to create meal")
		return
	}

	RespondWithJSON(w, http.StatusCreated, meal)
}

// Create handles POST /meals: a manual entry without analysis.
func (h *MealHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req CreateMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MealName == "" || req.MealTime.IsZero() {
		RespondWithError(w, http.StatusBadRequest, "meal_name and meal_time are required")
		return
	}

	meal, err := h.meals.CreateMeal(r.Context(), userID, service.CreateMealInput{
		MealName:    req.MealName,
		MealTime:    req.MealTime,
		Description: req.Description,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create meal",
			slog.String("error", err.Error()))
		RespondWithError(w, http.StatusInternalServerError, "failed to create meal")
		return
	}

	RespondWithJSON(w, http.StatusCreated, meal)
}

// Get handles GET /meals/{id}.
func (h *MealHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	mealID, ok := mealIDParam(w, r)
	if !ok {
		return
	}

	meal, err := h.meals.GetMeal(r.Context(), userID, mealID)
	if err != nil {
		h.respondStoreError(w, r, err, "failed to load meal")
		return
	}
	RespondWithJSON(w, http.StatusOK, meal)
}

// List handles GET /meals?limit=&offset=.
func (h *MealHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	meals, err := h.meals.ListMeals(r.Context(), userID, limit, offset)
	if err != nil {
		h.respondStoreError(w, r, err, "failed to list meals")
		return
	}
	RespondWithJSON(w, http.StatusOK, meals)
}

// Update handles PUT /meals/{id}.
func (h *MealHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	mealID, ok := mealIDParam(w, r)
	if !ok {
		return
	}

	var req CreateMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	meal, err := h.meals.UpdateMeal(r.Context(), userID, mealID, service.CreateMealInput{
		MealName:    req.MealName,
		MealTime:    req.MealTime,
		Description: req.Description,
	})
	if err != nil {
		h.respondStoreError(w, r, err, "failed to update meal")
		return
	}
	RespondWithJSON(w, http.StatusOK, meal)
}

// Delete handles DELETE /meals/{id}.
func (h *MealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	mealID, ok := mealIDParam(w, r)
	if !ok {
		return
	}

	if err := h.meals.DeleteMeal(r.Context(), userID, mealID); err != nil {
		h.respondStoreError(w, r, err, "failed to delete meal")
		return
	}
	RespondWithJSON(w, http.StatusNoContent, nil)
}

// AnalysisStatus handles GET /meals/{id}/analysis.
func (h *MealHandler) AnalysisStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	mealID, ok := mealIDParam(w, r)
	if !ok {
		return
	}

	status, err := h.meals.GetAnalysisStatus(r.Context(), userID, mealID)
	if err != nil {
		h.respondStoreError(w, r, err, "failed to load analysis status")
		return
	}
	RespondWithJSON(w, http.StatusOK, status)
}

// RetryAnalysis handles POST /meals/{id}/analysis/retry.
func (h *MealHandler) RetryAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	mealID, ok := mealIDParam(w, r)
	if !ok {
		return
	}

	if err := h.meals.RetryAnalysis(r.Context(), userID, mealID); err != nil {
		if errors.Is(err, service.ErrNoDescription) {
			RespondWithError(w, http.StatusBadRequest, "cannot retry analysis: meal has no description")
			return
		}
		h.respondStoreError(w, r, err, "failed to queue analysis retry")
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]string{
		"message": "meal analysis has been queued for retry",
	})
}

// Nutrition handles GET /meals/{id}/nutrition.
func (h *MealHandler) Nutrition(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	mealID, ok := mealIDParam(w, r)
	if !ok {
		return
	}

	nutrition, err := h.meals.GetNutrition(r.Context(), userID, mealID)
	if err != nil {
		h.respondStoreError(w, r, err, "failed to load nutrition")
		return
	}
	RespondWithJSON(w, http.StatusOK, nutrition)
}

// SetNutritionRequest is the body of PUT /meals/{id}/nutrition.
type SetNutritionRequest struct {
	Calories      *int `json:"calories" validate:"required,gte=0"`
	Protein       *int `json:"protein" validate:"required,gte=0"`
	Carbohydrates *int `json:"carbohydrates" validate:"required,gte=0"`
	Fats          *int `json:"fats" validate:"required,gte=0"`
}

// SetNutrition handles PUT /meals/{id}/nutrition: a manual nutrition entry
// that overrides any AI-derived values.
func (h *MealHandler) SetNutrition(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	mealID, ok := mealIDParam(w, r)
	if !ok {
		return
	}

	var req SetNutritionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "calories, protein, carbohydrates, and fats are required and cannot be negative")
		return
	}

	nutrition, err := h.meals.SetNutrition(r.Context(), userID, mealID, domain.NutritionFacts{
		Calories:      *req.Calories,
		Protein:       *req.Protein,
		Carbohydrates: *req.Carbohydrates,
		Fats:          *req.Fats,
	})
	if err != nil {
		h.respondStoreError(w, r, err, "failed to save nutrition")
		return
	}
	RespondWithJSON(w, http.StatusCreated, nutrition)
}

// DeleteNutrition handles DELETE /meals/{id}/nutrition.
func (h *MealHandler) DeleteNutrition(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	mealID, ok := mealIDParam(w, r)
	if !ok {
		return
	}

	if err := h.meals.DeleteNutrition(r.Context(), userID, mealID); err != nil {
		h.respondStoreError(w, r, err, "failed to delete nutrition")
		return
	}
	RespondWithJSON(w, http.StatusNoContent, nil)
}

// DailySummary handles GET /nutrition/summary?date=YYYY-MM-DD.
func (h *MealHandler) DailySummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	date := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	summary, err := h.meals.DailySummary(r.Context(), userID, date)
	if err != nil {
		h.respondStoreError(w, r, err, "failed to compute summary")
		return
	}
	RespondWithJSON(w, http.StatusOK, summary)
}

// Suggestions handles GET /suggestions with optional goal overrides.
func (h *MealHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	goals := service.DefaultNutritionGoals()
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("target_calories")); err == nil && v > 0 {
		goals.Calories = v
	}
	if v, err := strconv.Atoi(q.Get("target_protein")); err == nil && v > 0 {
		goals.Protein = v
	}
	if v, err := strconv.Atoi(q.Get("target_carbs")); err == nil && v > 0 {
		goals.Carbohydrates = v
	}
	if v, err := strconv.Atoi(q.Get("target_fats")); err == nil && v > 0 {
		goals.Fats = v
	}

	date := time.Now().UTC()
	if raw := q.Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	result, err := h.suggestions.Suggest(r.Context(), userID, goals, date)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to generate suggestions",
			slog.String("error", err.Error()))
		RespondWithError(w, http.StatusBadGateway, "failed to generate meal suggestions")
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

func (h *MealHandler) respondStoreError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if store.IsNotFoundError(err) {
		RespondWithError(w, http.StatusNotFound, "meal not found")
		return
	}
	h.logger.ErrorContext(r.Context(), message,
		slog.String("error", err.Error()))
	RespondWithError(w, http.StatusInternalServerError, message)
}
