package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yeschef/yeschef-api/internal/domain"
	"github.com/yeschef/yeschef-api/internal/queue"
	"github.com/yeschef/yeschef-api/internal/store"
	"github.com/yeschef/yeschef-api/internal/worker"
)

// UserService handles registration, login, and email verification.
type UserService struct {
	userStore store.UserStore
	backend   queue.Backend
	tokens    *JWTTokenService
	logger    *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	userStore store.UserStore,
	backend queue.Backend,
	tokens *JWTTokenService,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userStore: userStore,
		backend:   backend,
		tokens:    tokens,
		logger:    logger.With(slog.String("component", "user_service")),
	}
}

// Register creates a new unverified user and queues a verification email.
// A failed email enqueue does not fail registration; the user can request
// another email later.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	user, err := domain.NewUser(name, email, password)
	if err != nil {
		return nil, err
	}

	if err := s.userStore.Create(ctx, user); err != nil {
		return nil, err
	}

	payload, err := queue.EncodePayload(worker.VerificationEmailPayload{
		Email:             user.Email,
		VerificationToken: user.VerificationToken,
	})
	if err != nil {
		return nil, err
	}

	jobID, err := s.backend.Enqueue(ctx, worker.QueueEmail, worker.TypeVerificationEmail, payload, worker.EmailEnqueueOptions())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue verification email",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()))
	} else {
		s.logger.InfoContext(ctx, "verification email queued",
			slog.String("user_id", user.ID.String()),
			slog.String("job_id", jobID))
	}

	return user, nil
}

// Login checks the credentials and issues a JWT on success.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if store.IsNotFoundError(err) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(ctx, user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return token, user, nil
}

// VerifyEmail marks the account holding the token as verified.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.userStore.GetByVerificationToken(ctx, token)
	if err != nil {
		return err
	}

	if err := user.VerifyEmail(token, time.Now().UTC()); err != nil {
		return err
	}

	if err := s.userStore.Update(ctx, user); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "email verified",
		slog.String("user_id", user.ID.String()))
	return nil
}
