// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never *sqlite.DB, so tests can swap
// in an in-memory fake or a :memory: database. They return apperror kinds
// and know nothing about HTTP status codes.
//
// THE DEPENDENCY CHAIN:
//
//	server.New creates: DB → Services → Handlers
//	At runtime:         Handler calls Service calls Repository calls DB
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/auth"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

const (
	MaxUsernameLength = 64
	MinPasswordLength = 8
)

// UserService owns accounts: signup, login, profile edits.
//
// DEPENDENCIES (injected via NewUserService):
//   - users      repository.UserRepository → read/write user records
//   - tokens     *auth.TokenService        → issue JWTs
//   - passwords  *auth.PasswordService     → bcrypt hashing
//   - logger     *slog.Logger              → structured logging
type UserService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
	now       func() time.Time
}

func NewUserService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		now:       time.Now,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// answer signup and login in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Signup registers a new account and returns it with a fresh token.
// A taken email or username yields apperror.ErrConflict.
//
// The plaintext password is hashed here and never logged or stored.
func (s *UserService) Signup(ctx context.Context, email, username, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create user",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("user signed up",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return &AuthResult{User: user, Token: token}, nil
}

// Login checks credentials and issues a token.
//
// An unknown email and a wrong password both return
// apperror.ErrInvalidCredentials, so a client cannot probe which emails are
// registered. Only the log line tells them apart.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("login failed", slog.String("reason", "unknown email"))
			return nil, apperror.InvalidCredentials()
		}
		return nil, err
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login failed",
				slog.String("reason", "password mismatch"),
				slog.String("user_id", user.ID),
			)
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("verifying password: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// Update applies a partial update to the account. Nil fields are left
// untouched; a new password is re-hashed.
func (s *UserService) Update(ctx context.Context, userID string, upd model.UserUpdate) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if err := validateUsername(username); err != nil {
			return nil, err
		}
		user.Username = username
	}
	if upd.Password != nil {
		if err := validatePassword(*upd.Password); err != nil {
			return nil, err
		}
		hash, err := s.passwords.Hash(*upd.Password)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		user.PasswordHash = hash
	}
	if upd.Bio != nil {
		user.Bio = emptyToNil(*upd.Bio)
	}
	if upd.Image != nil {
		user.Image = emptyToNil(*upd.Image)
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user updated", slog.String("user_id", user.ID))
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetUserByID(ctx, id)
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.users.GetUserByUsername(ctx, username)
}

func validateEmail(email string) error {
	at := strings.IndexByte(email, '@')
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if at <= 0 || at == len(email)-1 {
		return apperror.ValidationFailed("email", "email is invalid")
	}
	return nil
}

func validateUsername(username string) error {
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if strings.ContainsAny(username, " /?#") {
		return apperror.ValidationFailed("username", "username must not contain spaces or URL delimiters")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > 72 {
		return apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}
	return nil
}

// emptyToNil clears an optional profile field when the client sends "".
func emptyToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
