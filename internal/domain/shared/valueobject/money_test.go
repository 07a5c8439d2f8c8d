package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(10.50), BRL)
		require.NoError(t, err)
		assert.Equal(t, "10.50 BRL", m.String())
	})

	t.Run("empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(1), "")
		assert.Error(t, err)
	})
}

func TestMoney_Arithmetic(t *testing.T) {
	a := NewMoneyBRLFromFloat(10.00)
	b := NewMoneyBRLFromFloat(2.50)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equals(NewMoneyBRLFromFloat(12.50)))

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.True(t, diff.Equals(NewMoneyBRLFromFloat(7.50)))

	_, err = a.Add(Money{amount: decimal.NewFromInt(1), currency: USD})
	assert.Error(t, err)
}

func TestMoney_Comparisons(t *testing.T) {
	a := NewMoneyBRLFromFloat(5.00)
	b := NewMoneyBRLFromFloat(7.00)

	less, err := a.LessThan(b)
	require.NoError(t, err)
	assert.True(t, less)

	greater, err := b.GreaterThan(a)
	require.NoError(t, err)
	assert.True(t, greater)

	_, err = a.LessThan(Zero(USD))
	assert.Error(t, err)
}

func TestMoney_Allocate(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		parts  int
		want   []string
	}{
		{"100 into 3, remainder on last", "100.00", 3, []string{"33.33", "33.33", "33.34"}},
		{"10 into 4, exact", "10.00", 4, []string{"2.50", "2.50", "2.50", "2.50"}},
		{"0.05 into 2", "0.05", 2, []string{"0.02", "0.03"}},
		{"single part", "99.99", 1, []string{"99.99"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMoneyBRLFromString(tt.amount)
			require.NoError(t, err)

			parts, err := m.Allocate(tt.parts)
			require.NoError(t, err)
			require.Len(t, parts, tt.parts)

			sum := ZeroBRL()
			for i, p := range parts {
				assert.Equal(t, tt.want[i], p.StringFixed(2))
				sum = sum.MustAdd(p)
			}
			assert.True(t, sum.Equals(m), "parts must sum to the original amount")
		})
	}

	t.Run("invalid parts", func(t *testing.T) {
		_, err := NewMoneyBRLFromFloat(10).Allocate(0)
		assert.Error(t, err)
	})
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	m := NewMoneyBRLFromFloat(42.07)
	data, err := json.Marshal(m)
	require.NoError(t, err)

	var got Money
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, m.Equals(got))
}

func TestMoney_Scan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("12.34"))
	assert.Equal(t, DefaultCurrency, m.Currency())
	assert.Equal(t, "12.34", m.StringFixed(2))

	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())

	assert.Error(t, m.Scan(12.34))
}
