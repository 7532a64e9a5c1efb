package repository

import (
	"context"
	"time"

	"github.com/draftdesk/identity/internal/model"
)

// CodeStore persists short-lived verification state: pending codes keyed
// by prefix+targetKey, hour-bucket issuance counters, and failed-attempt
// counters. The OTP and reset registries share one store under distinct
// prefixes.
//
// Implementations must make each per-key operation atomic under
// concurrent calls. Expiry may be enforced lazily; SweepExpired exists so
// map-backed stores stay bounded and may be a no-op where the backend
// expires keys itself.
type CodeStore interface {
	SaveCode(ctx context.Context, prefix string, code *model.PendingCode) error
	FindCode(ctx context.Context, prefix, targetKey string) (*model.PendingCode, error)
	DeleteCode(ctx context.Context, prefix, targetKey string) error
	SweepExpired(ctx context.Context, prefix string, now time.Time) error

	// IncrementIssuance adds one issuance to the target's hour bucket and
	// returns the new count. The add and the read are one atomic store
	// operation so concurrent issuers each observe a distinct count and
	// callers can enforce a cap by comparing the result.
	IncrementIssuance(ctx context.Context, targetKey string, hourStart time.Time) (int, error)

	// IncrementAttempt adds one failed verification for the target and
	// returns the new count, with the same atomicity as IncrementIssuance.
	IncrementAttempt(ctx context.Context, targetKey string) (int, error)
	// BlockTarget locks the target out until the given deadline.
	BlockTarget(ctx context.Context, targetKey string, until time.Time) error
	// BlockedUntil reports the active lockout deadline, zero when none.
	BlockedUntil(ctx context.Context, targetKey string) (time.Time, error)
	// ClearAttempts drops the attempt counter and any lockout.
	ClearAttempts(ctx context.Context, targetKey string) error
}
