package otp

import (
	"context"

	"github.com/fraudshield/server/internal/model"
)

// Store is the keyed backing store for OTP entries. The ledger is the only
// writer; swapping the implementation (in-process map vs. Redis) must not
// change ledger semantics. Read-modify-write on a key is last-write-wins.
type Store interface {
	// Get returns the entry for key and whether it exists.
	Get(ctx context.Context, key string) (model.OTPEntry, bool, error)
	// Put stores the entry under key, overwriting any existing entry.
	Put(ctx context.Context, key string, entry model.OTPEntry) error
	// Delete removes the entry for key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists all live keys, for the sweep pass.
	Keys(ctx context.Context) ([]string, error)
}
