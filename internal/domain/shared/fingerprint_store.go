package shared

import (
	"context"
	"time"
)

// FingerprintStore remembers the idempotency keys of records that were
// already imported, so a re-submitted dataset can be classified as "skip"
// without touching the database.
//
// The in-process check is best-effort: the authoritative guarantee is the
// unique constraint on the fingerprint column at the persistence boundary.
type FingerprintStore interface {
	// MarkSeen records a fingerprint with a TTL.
	// Returns true if the fingerprint was newly recorded, false if it was
	// already present (the record should be skipped).
	MarkSeen(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error)

	// IsSeen checks whether a fingerprint has already been recorded
	IsSeen(ctx context.Context, fingerprint string) (bool, error)

	// Close releases resources held by the store
	Close() error
}

// FingerprintConfig holds configuration for fingerprint deduplication
type FingerprintConfig struct {
	// TTL is the time-to-live for recorded fingerprints. After it expires the
	// database unique constraint is the only line of defense.
	// Default: 30 days
	TTL time.Duration

	// Enabled determines whether the in-process check runs at all
	// Default: true
	Enabled bool
}

// DefaultFingerprintConfig returns the default fingerprint configuration
func DefaultFingerprintConfig() FingerprintConfig {
	return FingerprintConfig{
		TTL:     30 * 24 * time.Hour,
		Enabled: true,
	}
}
