package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fraudshield/server/internal/model"
	"github.com/fraudshield/server/internal/repo"
)

// AuthService orchestrates signup, login and the password-reset lifecycle.
// It is the only writer of the credential store.
type AuthService struct {
	users  repo.UserRepo
	tokens *TokenService
}

// NewAuthService creates a new auth service
func NewAuthService(users repo.UserRepo, tokens *TokenService) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Signup registers a new user and issues a session token. A taken email
// yields ErrDuplicateIdentity so the client can route to login instead.
func (s *AuthService) Signup(ctx context.Context, firstName, lastName, email, password string) (model.User, string, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return model.User{}, "", err
	}

	user, err := s.users.Create(ctx, repo.NewUser{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
		Role:         "user",
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return model.User{}, "", ErrDuplicateIdentity
		}
		return model.User{}, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.SignSession(user)
	if err != nil {
		return model.User{}, "", err
	}
	return user, token, nil
}

// Login verifies credentials and issues a session token. Unknown user and
// wrong password both return ErrInvalidCredentials; the distinction is only
// logged server-side.
func (s *AuthService) Login(ctx context.Context, email, password string) (model.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.User{}, "", ErrInvalidCredentials
		}
		return model.User{}, "", fmt.Errorf("lookup user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		return model.User{}, "", ErrInvalidCredentials
	}

	token, err := s.tokens.SignSession(user)
	if err != nil {
		return model.User{}, "", err
	}
	return user, token, nil
}

// ForgotPassword issues a reset token bound to the user's current password
// hash, and reports its lifetime. The caller is responsible for delivering
// it out-of-band.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, time.Duration, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", 0, ErrUserNotFound
		}
		return "", 0, fmt.Errorf("lookup user: %w", err)
	}
	token, err := s.tokens.SignResetToken(user)
	if err != nil {
		return "", 0, err
	}
	return token, s.tokens.ResetTTL(), nil
}

// ResetPassword consumes a reset token and rotates the password. The subject
// is read from the token without verification first, then the token is
// re-verified against the key derived from that subject's current hash.
// Persisting the new hash is what invalidates this and every other
// outstanding reset token for the user.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	claims, err := s.tokens.DecodeResetClaimsUnsafe(resetToken)
	if err != nil {
		return ErrInvalidResetToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if _, err := s.tokens.VerifyResetToken(resetToken, user.PasswordHash); err != nil {
		return ErrInvalidResetToken
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
