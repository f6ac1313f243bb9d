package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/yeschef/yeschef-api/internal/api"
	apimiddleware "github.com/yeschef/yeschef-api/internal/api/middleware"
)

// newRouter builds the HTTP route tree.
func newRouter(auth *apimiddleware.Auth, meals *api.MealHandler, users *api.AuthHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		api.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", users.Register)
		r.Post("/auth/login", users.Login)
		r.Get("/auth/verify-email", users.VerifyEmail)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Require)

			r.Route("/meals", func(r chi.Router) {
				r.Get("/", meals.List)
				r.Post("/", meals.Create)
				r.Post("/analyze", meals.CreateWithAnalysis)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", meals.Get)
					r.Put("/", meals.Update)
					r.Delete("/", meals.Delete)
					r.Get("/analysis", meals.AnalysisStatus)
					r.Post("/analysis/retry", meals.RetryAnalysis)
					r.Get("/nutrition", meals.Nutrition)
					r.Put("/nutrition", meals.SetNutrition)
					r.Delete("/nutrition", meals.DeleteNutrition)
				})
			})

			r.Get("/nutrition/summary", meals.DailySummary)
			r.Get("/suggestions", meals.Suggestions)
		})
	})

	return r
}
