package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fraudshield/server/internal/model"
)

const (
	// DefaultSessionTTL is the fixed session lifetime; no sliding expiration.
	DefaultSessionTTL = 24 * time.Hour
	// DefaultResetTTL bounds how long a password-reset token stays usable.
	DefaultResetTTL = 15 * time.Minute
)

// ErrInvalidToken is the uniform outcome for any session/reset token failure.
// Expiry, tampering and structural corruption are not distinguished to
// callers.
var ErrInvalidToken = errors.New("invalid or expired token")

// SessionClaims are carried by bearer session tokens
type SessionClaims struct {
	UserID uuid.UUID `json:"sub"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// ResetClaims are carried by password-reset tokens
type ResetClaims struct {
	UserID uuid.UUID `json:"sub"`
	Email  string    `json:"email"`
	jwt.RegisteredClaims
}

// TokenService mints and validates session tokens and self-invalidating
// password-reset tokens. Reset tokens are signed with the server secret
// concatenated with the user's current password hash, so rotating the
// password makes every outstanding reset token unverifiable without a
// revocation list.
type TokenService struct {
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
}

// NewTokenService creates a token service. Zero TTLs fall back to defaults.
func NewTokenService(secret string, sessionTTL, resetTTL time.Duration) *TokenService {
	if sessionTTL == 0 {
		sessionTTL = DefaultSessionTTL
	}
	if resetTTL == 0 {
		resetTTL = DefaultResetTTL
	}
	return &TokenService{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
	}
}

// SessionTTL returns the configured session lifetime
func (s *TokenService) SessionTTL() time.Duration { return s.sessionTTL }

// ResetTTL returns the configured reset-token lifetime
func (s *TokenService) ResetTTL() time.Duration { return s.resetTTL }

// SignSession creates a bearer session token for the user
func (s *TokenService) SignSession(user model.User) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// VerifySession validates a session token against the server secret
func (s *TokenService) VerifySession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SignResetToken creates a single-use password-reset token bound to the
// user's current password hash.
func (s *TokenService) SignResetToken(user model.User) (string, error) {
	now := time.Now()
	claims := &ResetClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.resetTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.resetKey(user.PasswordHash))
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return signed, nil
}

// DecodeResetClaimsUnsafe extracts reset claims WITHOUT verifying the
// signature. The verification key depends on the subject's current password
// hash, so the subject must be read first to know which hash to fetch. Never
// trust these claims beyond looking up the user for VerifyResetToken.
func (s *TokenService) DecodeResetClaimsUnsafe(tokenString string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyResetToken re-validates a reset token with the key derived from the
// subject's current password hash. A token issued against an older hash
// fails here, which is what makes password rotation revoke outstanding
// tokens.
func (s *TokenService) VerifyResetToken(tokenString, currentPasswordHash string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.resetKey(currentPasswordHash), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) resetKey(passwordHash string) []byte {
	key := make([]byte, 0, len(s.secret)+len(passwordHash))
	key = append(key, s.secret...)
	key = append(key, passwordHash...)
	return key
}
