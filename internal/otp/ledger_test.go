package otp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLedger() (*Ledger, *MemoryStore, *fakeClock) {
	store := NewMemoryStore()
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	ledger := NewLedger(store)
	ledger.now = clock.Now
	return ledger, store, clock
}

func TestIssueAndVerifyOnce(t *testing.T) {
	ledger, _, _ := newTestLedger()
	ctx := context.Background()

	code, err := ledger.Issue(ctx, ChannelSMS, "+15551234567", "login")
	require.NoError(t, err)
	require.Len(t, code, 6)

	key := Key(ChannelSMS, "+15551234567", "login")

	outcome, err := ledger.Verify(ctx, key, code)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)

	// The code is single-use: a second verify finds nothing.
	outcome, err = ledger.Verify(ctx, key, code)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome)
}

func TestIssueOverwritesExistingEntry(t *testing.T) {
	ledger, _, _ := newTestLedger()
	ctx := context.Background()
	key := Key(ChannelEmail, "user@example.com", "signup")

	_, err := ledger.Issue(ctx, ChannelEmail, "user@example.com", "signup")
	require.NoError(t, err)

	// Fail twice against the first code.
	for i := 0; i < 2; i++ {
		outcome, err := ledger.Verify(ctx, key, "000000")
		require.NoError(t, err)
		require.Equal(t, OutcomeMismatch, outcome)
	}

	// A fresh issue replaces the entry and resets attempts.
	code2, err := ledger.Issue(ctx, ChannelEmail, "user@example.com", "signup")
	require.NoError(t, err)

	status, err := ledger.Status(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Attempts)

	outcome, err := ledger.Verify(ctx, key, code2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
}

func TestVerifyAttemptCeiling(t *testing.T) {
	ledger, _, _ := newTestLedger()
	ctx := context.Background()

	code, err := ledger.Issue(ctx, ChannelSMS, "+15551234567", "login")
	require.NoError(t, err)
	key := Key(ChannelSMS, "+15551234567", "login")

	for i := 0; i < 3; i++ {
		outcome, err := ledger.Verify(ctx, key, "000000")
		require.NoError(t, err)
		assert.Equal(t, OutcomeMismatch, outcome, "attempt %d should be a plain mismatch", i+1)
	}

	// The ceiling is checked before the comparison: even the correct code is
	// rejected on the fourth submission.
	outcome, err := ledger.Verify(ctx, key, code)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTooManyAttempts, outcome)

	status, err := ledger.Status(ctx, key)
	require.NoError(t, err)
	assert.False(t, status.Exists, "entry must be removed after the ceiling is hit")
}

func TestVerifyLazyExpiry(t *testing.T) {
	ledger, _, clock := newTestLedger()
	ctx := context.Background()

	code, err := ledger.Issue(ctx, ChannelSMS, "+15551234567", "login")
	require.NoError(t, err)
	key := Key(ChannelSMS, "+15551234567", "login")

	clock.Advance(CodeTTL + time.Second)

	// Status is advisory: it reports expiry without removing the entry.
	status, err := ledger.Status(ctx, key)
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.True(t, status.Expired)
	assert.Equal(t, 0, status.RemainingSeconds)

	// Verify enforces expiry and removes the entry.
	outcome, err := ledger.Verify(ctx, key, code)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExpired, outcome)

	status, err = ledger.Status(ctx, key)
	require.NoError(t, err)
	assert.False(t, status.Exists)
}

func TestResendResetsAttemptsAndExtendsExpiry(t *testing.T) {
	ledger, store, clock := newTestLedger()
	ctx := context.Background()
	key := Key(ChannelSMS, "+15551234567", "login")

	_, err := ledger.Issue(ctx, ChannelSMS, "+15551234567", "login")
	require.NoError(t, err)

	outcome, err := ledger.Verify(ctx, key, "000000")
	require.NoError(t, err)
	require.Equal(t, OutcomeMismatch, outcome)

	first, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(4 * time.Minute)

	code2, err := ledger.Resend(ctx, key)
	require.NoError(t, err)

	second, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, second.Attempts)
	assert.True(t, second.ExpiresAt.After(first.ExpiresAt),
		"resend expiry must be strictly later than the original deadline")

	outcome, err = ledger.Verify(ctx, key, code2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
}

func TestResendMalformedIdentifier(t *testing.T) {
	ledger, _, _ := newTestLedger()
	_, err := ledger.Resend(context.Background(), "nounderscores")
	assert.Error(t, err)
}

func TestSweepRemovesAllAndOnlyExpired(t *testing.T) {
	ledger, _, clock := newTestLedger()
	ctx := context.Background()

	_, err := ledger.Issue(ctx, ChannelSMS, "+15551234567", "login")
	require.NoError(t, err)
	_, err = ledger.Issue(ctx, ChannelEmail, "old@example.com", "signup")
	require.NoError(t, err)

	clock.Advance(CodeTTL + time.Second)

	_, err = ledger.Issue(ctx, ChannelEmail, "fresh@example.com", "signup")
	require.NoError(t, err)

	count, err := ledger.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	status, err := ledger.Status(ctx, Key(ChannelEmail, "fresh@example.com", "signup"))
	require.NoError(t, err)
	assert.True(t, status.Exists, "unexpired entries are untouched")

	// Sweep is idempotent.
	count, err = ledger.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIssueRejectsMalformedContact(t *testing.T) {
	ledger, store, _ := newTestLedger()
	ctx := context.Background()

	_, err := ledger.Issue(ctx, ChannelSMS, "not-a-phone", "login")
	assert.Error(t, err)
	_, err = ledger.Issue(ctx, ChannelEmail, "not-an-email", "signup")
	assert.Error(t, err)

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys, "no entry may be created for a rejected contact")
}

func TestEndToEndLoginScenario(t *testing.T) {
	ledger, _, _ := newTestLedger()
	ctx := context.Background()
	key := "sms_+15551234567_login"

	code, err := ledger.Issue(ctx, ChannelSMS, "+15551234567", "login")
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		outcome, err := ledger.Verify(ctx, key, "000000")
		require.NoError(t, err)
		assert.Equal(t, OutcomeMismatch, outcome)

		status, err := ledger.Status(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, i, status.Attempts)
	}

	outcome, err := ledger.Verify(ctx, key, code)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)

	outcome, err = ledger.Verify(ctx, key, code)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome)
}

func TestGenerateCodeRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		require.GreaterOrEqual(t, code, "100000")
		require.LessOrEqual(t, code, "999999")
	}
}
