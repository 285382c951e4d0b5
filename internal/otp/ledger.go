package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/fraudshield/server/internal/model"
)

const (
	// CodeTTL is how long an issued code stays verifiable.
	CodeTTL = 10 * time.Minute
	// maxAttempts is the ceiling on failed comparisons per entry.
	maxAttempts = 3
)

// Outcome classifies the result of a Verify call. Exactly one outcome is
// returned per call; the values double as wire-level error codes.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeNotFound        Outcome = "not-found"
	OutcomeExpired         Outcome = "expired"
	OutcomeTooManyAttempts Outcome = "too-many-attempts"
	OutcomeMismatch        Outcome = "mismatch"
)

// Ledger issues, verifies and expires one-time codes. Expiry is lazy: entries
// are checked and removed on access, with Sweep as an explicit compaction for
// entries nobody queries again. Delivery is the caller's job; the ledger only
// hands the code back.
type Ledger struct {
	store Store
	now   func() time.Time
}

// NewLedger creates a ledger on top of the given store
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Issue validates the contact, generates a 6-digit code and stores it under
// the composite key, overwriting any prior entry for that key. Attempts start
// at zero. Returns the code for the caller to hand to a delivery adapter.
func (l *Ledger) Issue(ctx context.Context, channel, contact, purpose string) (string, error) {
	if err := ValidateContact(channel, contact); err != nil {
		return "", err
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	entry := model.OTPEntry{
		Code:      code,
		Channel:   channel,
		ExpiresAt: l.now().Add(CodeTTL),
		Attempts:  0,
	}
	if err := l.store.Put(ctx, Key(channel, contact, purpose), entry); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// Verify checks a submitted code against the live entry for key.
// Check order matters: existence, then expiry, then the attempt ceiling, then
// the comparison. The ceiling is checked before comparing, so the submission
// after the third failure is rejected without consuming a comparison.
// The entry is deleted on success, expiry and ceiling; a plain mismatch
// increments attempts and keeps the entry.
func (l *Ledger) Verify(ctx context.Context, key, submitted string) (Outcome, error) {
	entry, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("load otp: %w", err)
	}
	if !ok {
		return OutcomeNotFound, nil
	}

	if l.now().After(entry.ExpiresAt) {
		if err := l.store.Delete(ctx, key); err != nil {
			return "", fmt.Errorf("delete expired otp: %w", err)
		}
		return OutcomeExpired, nil
	}

	if entry.Attempts >= maxAttempts {
		if err := l.store.Delete(ctx, key); err != nil {
			return "", fmt.Errorf("delete exhausted otp: %w", err)
		}
		return OutcomeTooManyAttempts, nil
	}

	if submitted == entry.Code {
		if err := l.store.Delete(ctx, key); err != nil {
			return "", fmt.Errorf("consume otp: %w", err)
		}
		return OutcomeSuccess, nil
	}

	entry.Attempts++
	if err := l.store.Put(ctx, key, entry); err != nil {
		return "", fmt.Errorf("record attempt: %w", err)
	}
	return OutcomeMismatch, nil
}

// Resend regenerates the code for an existing composite key with fresh Issue
// semantics: new code, new expiry, attempts reset to zero.
func (l *Ledger) Resend(ctx context.Context, key string) (string, error) {
	channel, contact, purpose, err := ParseKey(key)
	if err != nil {
		return "", err
	}
	return l.Issue(ctx, channel, contact, purpose)
}

// Status reports on the entry for key without mutating it. An expired entry
// is reported as expired but not removed; status is advisory only.
func (l *Ledger) Status(ctx context.Context, key string) (model.OTPStatus, error) {
	entry, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return model.OTPStatus{}, fmt.Errorf("load otp: %w", err)
	}
	if !ok {
		return model.OTPStatus{}, nil
	}

	status := model.OTPStatus{
		Exists:   true,
		Attempts: entry.Attempts,
		Channel:  entry.Channel,
	}
	remaining := entry.ExpiresAt.Sub(l.now())
	if remaining <= 0 {
		status.Expired = true
	} else {
		status.RemainingSeconds = int(remaining.Seconds())
	}
	return status, nil
}

// Sweep deletes every entry whose expiry has passed and returns the count
// removed. Purely garbage collection; correctness never depends on it.
func (l *Ledger) Sweep(ctx context.Context) (int, error) {
	keys, err := l.store.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list otp keys: %w", err)
	}

	removed := 0
	now := l.now()
	for _, key := range keys {
		entry, ok, err := l.store.Get(ctx, key)
		if err != nil {
			return removed, fmt.Errorf("load otp: %w", err)
		}
		if !ok {
			continue
		}
		if now.After(entry.ExpiresAt) {
			if err := l.store.Delete(ctx, key); err != nil {
				return removed, fmt.Errorf("delete expired otp: %w", err)
			}
			removed++
		}
	}
	return removed, nil
}

// generateCode draws a code from 100000-999999 so it always renders as six
// visible digits.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
