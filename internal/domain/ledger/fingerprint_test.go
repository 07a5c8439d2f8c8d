package ledger

import (
	"testing"
	"time"

	"github.com/fincore/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
)

func TestFingerprint_Deterministic(t *testing.T) {
	amount := valueobject.NewMoneyBRLFromFloat(150.00)
	date := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	a := Fingerprint(amount, date, "PIX transfer #123")
	b := Fingerprint(amount, date, "PIX transfer #123")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprint_NormalizesCosmeticDifferences(t *testing.T) {
	amount := valueobject.NewMoneyBRLFromFloat(99.90)
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	base := Fingerprint(amount, date, "Acme Payment")
	assert.Equal(t, base, Fingerprint(amount, date, "  ACME   payment  "))

	// Time of day does not matter, only the day
	later := time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, base, Fingerprint(amount, later, "Acme Payment"))
}

func TestFingerprint_DistinguishesStableFields(t *testing.T) {
	amount := valueobject.NewMoneyBRLFromFloat(99.90)
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	base := Fingerprint(amount, date, "Acme Payment")

	t.Run("different amount", func(t *testing.T) {
		other := Fingerprint(valueobject.NewMoneyBRLFromFloat(99.91), date, "Acme Payment")
		assert.NotEqual(t, base, other)
	})

	t.Run("different day", func(t *testing.T) {
		other := Fingerprint(amount, date.AddDate(0, 0, 1), "Acme Payment")
		assert.NotEqual(t, base, other)
	})

	t.Run("different description", func(t *testing.T) {
		other := Fingerprint(amount, date, "Acme Refund")
		assert.NotEqual(t, base, other)
	})
}

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims", "  hello  ", "hello"},
		{"case folds", "HeLLo World", "hello world"},
		{"collapses whitespace", "a \t b\n c", "a b c"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDescription(tt.input))
		})
	}
}
