package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/yeschef/yeschef-api/internal/domain"
	"github.com/yeschef/yeschef-api/internal/service"
	"github.com/yeschef/yeschef-api/internal/store"
)

// AuthHandler serves registration, login, and email verification.
type AuthHandler struct {
	users    *service.UserService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users *service.UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		validate: validator.New(),
		logger:   logger.With(slog.String("component", "auth_handler")),
	}
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func toUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:            user.ID.String(),
		Name:          user.Name,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "name, valid email, and password of at least 8 characters are required")
		return
	}

	user, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if store.IsDuplicateError(err) {
			RespondWithError(w, http.StatusConflict, "email is already registered")
			return
		}
		h.logger.ErrorContext(r.Context(), "registration failed",
			slog.String("error", err.Error()))
		RespondWithError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	RespondWithJSON(w, http.StatusCreated, toUserResponse(user))
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	token, user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.logger.ErrorContext(r.Context(), "login failed",
			slog.String("error", err.Error()))
		RespondWithError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	RespondWithJSON(w, http.StatusOK, LoginResponse{
		Token: token,
		User:  toUserResponse(user),
	})
}

// VerifyEmail handles GET /auth/verify-email?token=...
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		RespondWithError(w, http.StatusBadRequest, "verification token is required")
		return
	}

	if err := h.users.VerifyEmail(r.Context(), token); err != nil {
		switch {
		case store.IsNotFoundError(err):
			RespondWithError(w, http.StatusNotFound, "verification token not found")
		case errors.Is(err, domain.ErrTokenExpired):
			RespondWithError(w, http.StatusGone, "verification token has expired")
		case errors.Is(err, domain.ErrAlreadyVerified):
			RespondWithError(w, http.StatusConflict, "email is already verified")
		default:
			h.logger.ErrorContext(r.Context(), "email verification failed",
				slog.String("error", err.Error()))
			RespondWithError(w, http.StatusInternalServerError, "failed to verify email")
		}
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "email verified"})
}
