package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudshield/server/internal/model"
)

const testSecret = "test-jwt-secret-at-least-32-characters-long"

func testUser() model.User {
	return model.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		Role:         "user",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
	}
}

func TestSessionRoundTrip(t *testing.T) {
	svc := NewTokenService(testSecret, 0, 0)
	user := testUser()

	token, err := svc.SignSession(user)
	require.NoError(t, err)

	claims, err := svc.VerifySession(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, user.Role, claims.Role)
}

func TestSessionExpires(t *testing.T) {
	svc := NewTokenService(testSecret, time.Millisecond, 0)
	token, err := svc.SignSession(testUser())
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = svc.VerifySession(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionRejectsTamperedToken(t *testing.T) {
	svc := NewTokenService(testSecret, 0, 0)
	token, err := svc.SignSession(testUser())
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = svc.VerifySession(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenService("a-completely-different-signing-secret!!", 0, 0)
	_, err = other.VerifySession(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetTokenRoundTrip(t *testing.T) {
	svc := NewTokenService(testSecret, 0, 0)
	user := testUser()

	token, err := svc.SignResetToken(user)
	require.NoError(t, err)

	claims, err := svc.VerifyResetToken(token, user.PasswordHash)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestResetTokenInvalidatedByPasswordChange(t *testing.T) {
	svc := NewTokenService(testSecret, 0, 0)
	user := testUser()

	token, err := svc.SignResetToken(user)
	require.NoError(t, err)

	// The verification key is derived from the current hash; any rotation
	// makes the old token unverifiable.
	for _, newHash := range []string{
		"$2a$10$completelydifferenthashAB",
		user.PasswordHash + "x",
		"",
	} {
		_, err = svc.VerifyResetToken(token, newHash)
		assert.ErrorIs(t, err, ErrInvalidToken, "hash %q", newHash)
	}

	// Still valid against the original hash.
	_, err = svc.VerifyResetToken(token, user.PasswordHash)
	assert.NoError(t, err)
}

func TestResetTokenExpires(t *testing.T) {
	svc := NewTokenService(testSecret, 0, time.Millisecond)
	user := testUser()

	token, err := svc.SignResetToken(user)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = svc.VerifyResetToken(token, user.PasswordHash)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecodeResetClaimsUnsafe(t *testing.T) {
	svc := NewTokenService(testSecret, 0, 0)
	user := testUser()

	token, err := svc.SignResetToken(user)
	require.NoError(t, err)

	// Decode-only must work without knowing the derived key: that is the
	// whole point of the two-phase verification.
	claims, err := svc.DecodeResetClaimsUnsafe(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)

	_, err = svc.DecodeResetClaimsUnsafe("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPassword(hash, "correct horse battery staple"))
	assert.False(t, CheckPassword(hash, "wrong password"))
	assert.False(t, CheckPassword("", "anything"))
}
