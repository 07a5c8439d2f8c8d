package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/fincore/backend/internal/domain/shared/valueobject"
)

// Fingerprint computes the idempotency key for an external record from its
// stable fields: the amount rounded to cents, the date truncated to the day
// (UTC), and the normalized description or external ID. Identical
// resubmission always yields an identical key.
//
// A corrected record (same external ID, different amount) produces a NEW
// fingerprint and imports as a new entry; superseding the old one is a
// manual operation.
func Fingerprint(amount valueobject.Money, date time.Time, descriptionOrExternalID string) string {
	day := date.UTC().Format("2006-01-02")
	payload := amount.RoundBank(2).StringFixed(2) + "|" + day + "|" + NormalizeDescription(descriptionOrExternalID)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// NormalizeDescription trims, case-folds and collapses internal whitespace so
// cosmetic differences in the source export do not change the fingerprint
func NormalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}
