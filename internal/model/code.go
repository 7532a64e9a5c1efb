package model

import "time"

// Channel identifies the delivery channel a code is bound to.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// Valid reports whether the channel is one of the supported values.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelPhone
}

// TargetKey builds the store key for a (channel, target) pair.
func TargetKey(channel Channel, target string) string {
	return string(channel) + ":" + target
}

// PendingCode is a stored one-time code. Only the scrypt digest is kept;
// the plaintext exists solely in the delivery path. At most one live entry
// exists per target key; issuing again overwrites the previous one.
type PendingCode struct {
	TargetKey string    `json:"target_key"`
	Hash      string    `json:"hash"`
	Salt      string    `json:"salt"`
	Target    string    `json:"target"`
	Channel   Channel   `json:"channel"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the code is past its lifetime at the given instant.
func (p *PendingCode) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt) || now.Equal(p.ExpiresAt)
}

// RateBucket counts issuances for a target within one wall-clock hour.
// The bucket resets when the current hour differs from HourStart.
type RateBucket struct {
	Count     int
	HourStart time.Time
}

// AttemptCounter tracks consecutive failed verifications for a target.
// Once Count reaches the configured maximum, BlockedUntil is set and
// verification is refused until that instant passes.
type AttemptCounter struct {
	Count        int
	BlockedUntil time.Time
}
