package domain

import (
	"errors"
	"net/mail"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for User.
var (
	ErrEmptyUserID       = errors.New("user ID cannot be empty")
	ErrEmptyUserName     = errors.New("user name cannot be empty")
	ErrInvalidUserEmail  = errors.New("user email is invalid")
	ErrPasswordTooShort  = errors.New("password must be at least 8 characters")
	ErrTokenExpired      = errors.New("verification token has expired")
	ErrAlreadyVerified   = errors.New("email is already verified")
	ErrEmptyUserPassword = errors.New("user password cannot be empty")
)

// verificationTokenTTL is how long an email verification token stays valid.
const verificationTokenTTL = 24 * time.Hour

// User represents a registered account. Password holds the plaintext only
// between request decoding and hashing; HashedPassword is what the store
// persists.
type User struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Password          string    `json:"-"`
	HashedPassword    string    `json:"-"`
	EmailVerified     bool      `json:"email_verified"`
	VerificationToken string    `json:"-"`
	TokenExpiry       time.Time `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewUser creates a new unverified User with a fresh verification token.
// Returns an error if validation fails.
func NewUser(name, email, password string) (*User, error) {
	user := &User{
		ID:                uuid.New(),
		Name:              name,
		Email:             email,
		Password:          password,
		EmailVerified:     false,
		VerificationToken: uuid.NewString(),
		TokenExpiry:       time.Now().UTC().Add(verificationTokenTTL),
		CreatedAt:         time.Now().UTC(),
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
// Returns an error if any field fails validation.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if u.Name == "" {
		return ErrEmptyUserName
	}

	if _, err := mail.ParseAddress(u.Email); err != nil {
		return ErrInvalidUserEmail
	}

	// Only validate the plaintext password when it is present; a user loaded
	// from the store carries only the hash.
	if u.Password != "" && len(u.Password) < 8 {
		return ErrPasswordTooShort
	}

	if u.Password == "" && u.HashedPassword == "" {
		return ErrEmptyUserPassword
	}

	return nil
}

// VerifyEmail marks the user's email as verified if the token matches and
// has not expired.
func (u *User) VerifyEmail(token string, now time.Time) error {
	if u.EmailVerified {
		return ErrAlreadyVerified
	}
	if now.After(u.TokenExpiry) {
		return ErrTokenExpired
	}
	if u.VerificationToken == "" || u.VerificationToken != token {
		return errors.New("verification token does not match")
	}

	u.EmailVerified = true
	u.VerificationToken = ""
	return nil
}
