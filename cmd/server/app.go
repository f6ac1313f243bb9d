package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/yeschef/yeschef-api/internal/api"
	apimiddleware "github.com/yeschef/yeschef-api/internal/api/middleware"
	"github.com/yeschef/yeschef-api/internal/config"
	"github.com/yeschef/yeschef-api/internal/generation"
	"github.com/yeschef/yeschef-api/internal/mail"
	"github.com/yeschef/yeschef-api/internal/platform/gemini"
	"github.com/yeschef/yeschef-api/internal/platform/postgres"
	"github.com/yeschef/yeschef-api/internal/queue"
	"github.com/yeschef/yeschef-api/internal/service"
	"github.com/yeschef/yeschef-api/internal/store"
	"github.com/yeschef/yeschef-api/internal/worker"
)

// application holds the wired components of the server.
type application struct {
	cfg    *config.Config
	logger *slog.Logger

	db      *sql.DB
	backend queue.Backend

	httpServer     *http.Server
	analysisWorker *queue.Worker
	emailWorker    *queue.Worker
}

// newApplication wires every component: database, queue backend, stores,
// services, workers, and the HTTP router.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	db, err := openDatabase(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := postgres.MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	backend, err := newQueueBackend(ctx, cfg.Queue)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	// Stores
	mealStore := postgres.NewPostgresMealStore(db, log)
	nutritionStore := postgres.NewPostgresNutritionStore(db, log)
	userStore := postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost, log)

	// AI generator
	generator, err := gemini.NewGenerator(ctx, gemini.Config{
		APIKey:    cfg.LLM.GeminiAPIKey,
		ModelName: cfg.LLM.ModelName,
	}, log)
	if err != nil {
		_ = backend.Close()
		_ = db.Close()
		return nil, err
	}

	// Email sender
	sender, err := newMailSender(ctx, cfg.Email, log)
	if err != nil {
		_ = backend.Close()
		_ = db.Close()
		return nil, err
	}

	// Services
	tokens, err := service.NewJWTTokenService(
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenLifetimeMinutes)*time.Minute,
	)
	if err != nil {
		_ = backend.Close()
		_ = db.Close()
		return nil, err
	}
	mealService := service.NewMealService(db, mealStore, nutritionStore, backend, log)
	suggestionService := service.NewSuggestionService(nutritionStore, generator, log)
	userService := service.NewUserService(userStore, backend, tokens, log)

	// Workers
	shutdownTimeout := time.Duration(cfg.Queue.ShutdownTimeoutSeconds) * time.Second
	analysisWorker := newAnalysisWorker(backend, cfg.Queue, shutdownTimeout, mealStore, nutritionStore, generator, log)
	emailWorker := newEmailWorker(backend, cfg.Queue, shutdownTimeout, sender, cfg.Server.FrontendURL, log)

	// HTTP surface
	authMiddleware := apimiddleware.NewAuth(tokens, log)
	mealHandler := api.NewMealHandler(mealService, suggestionService, log)
	authHandler := api.NewAuthHandler(userService, log)
	router := newRouter(authMiddleware, mealHandler, authHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &application{
		cfg:            cfg,
		logger:         log,
		db:             db,
		backend:        backend,
		httpServer:     httpServer,
		analysisWorker: analysisWorker,
		emailWorker:    emailWorker,
	}, nil
}

func openDatabase(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func newQueueBackend(ctx context.Context, cfg config.QueueConfig) (queue.Backend, error) {
	switch cfg.Backend {
	case "redis":
		return queue.NewRedisBackendFromURL(ctx, cfg.RedisURL)
	default:
		return queue.NewMemoryBackend(), nil
	}
}

func newMailSender(ctx context.Context, cfg config.EmailConfig, log *slog.Logger) (mail.Sender, error) {
	switch cfg.Provider {
	case "ses":
		return mail.NewSESSender(ctx, cfg.AWSRegion, cfg.FromAddress)
	default:
		return mail.NewLogSender(log), nil
	}
}

func newAnalysisWorker(
	backend queue.Backend,
	cfg config.QueueConfig,
	shutdownTimeout time.Duration,
	mealStore store.MealStore,
	nutritionStore store.NutritionStore,
	generator generation.Generator,
	log *slog.Logger,
) *queue.Worker {
	w := queue.NewWorker(backend, queue.WorkerConfig{
		Queue:           worker.QueueAnalysis,
		Concurrency:     cfg.AnalysisConcurrency,
		DequeueWait:     5 * time.Second,
		ShutdownTimeout: shutdownTimeout,
	}, log)
	processor := worker.NewAnalysisProcessor(mealStore, nutritionStore, generator, log)
	w.Register(worker.TypeMealAnalysis, processor.Handle)
	return w
}

func newEmailWorker(
	backend queue.Backend,
	cfg config.QueueConfig,
	shutdownTimeout time.Duration,
	sender mail.Sender,
	frontendURL string,
	log *slog.Logger,
) *queue.Worker {
	w := queue.NewWorker(backend, queue.WorkerConfig{
		Queue:           worker.QueueEmail,
		Concurrency:     cfg.EmailConcurrency,
		DequeueWait:     5 * time.Second,
		ShutdownTimeout: shutdownTimeout,
	}, log)
	processor := worker.NewEmailProcessor(sender, frontendURL, log)
	w.Register(worker.TypeVerificationEmail, processor.Handle)
	return w
}

// Start launches the workers and the HTTP listener.
func (a *application) Start() error {
	if err := a.analysisWorker.Start(); err != nil {
		return err
	}
	if err := a.emailWorker.Start(); err != nil {
		return err
	}

	go func() {
		a.logger.Info("http server listening",
			slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("http server failed",
				slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Stop shuts the application down in dependency order: stop accepting
// requests, drain the workers, then close the backend and database.
func (a *application) Stop() error {
	shutdownTimeout := time.Duration(a.cfg.Queue.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("http shutdown failed", slog.String("error", err.Error()))
		firstErr = err
	}
	if err := a.analysisWorker.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.emailWorker.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.backend.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	a.logger.Info("server stopped")
	return firstErr
}
