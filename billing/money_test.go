package billing

import (
	"testing"

	"clinicpro-backend/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("8000.00")
	require.NoError(t, err)
	assert.True(t, d.Equal(amt("8000")))

	d, err = ParseAmount("0.05")
	require.NoError(t, err)
	assert.True(t, d.Equal(amt("0.05")))

	// Trailing zeros past two places are still a two-decimal amount.
	d, err = ParseAmount("1.230")
	require.NoError(t, err)
	assert.True(t, d.Equal(amt("1.23")))

	_, err = ParseAmount("12.345")
	assert.True(t, IsValidation(err))

	_, err = ParseAmount("not-a-number")
	assert.True(t, IsValidation(err))
}

func TestRoundMoneyHalfUp(t *testing.T) {
	assert.Equal(t, "2.35", RoundMoney(amt("2.345")).StringFixed(2))
	assert.Equal(t, "2.34", RoundMoney(amt("2.344")).StringFixed(2))
	assert.Equal(t, "2.00", RoundMoney(amt("2")).StringFixed(2))
}

func TestCalculateTotals(t *testing.T) {
	items := []models.InvoiceItem{
		{LineTotal: amt("8000.00")},
		{LineTotal: amt("1500.50")},
	}

	sub, grand := CalculateTotals(items, decimal.Zero, decimal.Zero)
	assert.True(t, sub.Equal(amt("9500.50")))
	assert.True(t, grand.Equal(amt("9500.50")))

	sub, grand = CalculateTotals(items, amt("500.50"), amt("120.00"))
	assert.True(t, sub.Equal(amt("9500.50")))
	assert.True(t, grand.Equal(amt("9120.00")))

	// Discount beyond the subtotal floors the grand total at zero.
	_, grand = CalculateTotals(items, amt("99999.00"), decimal.Zero)
	assert.True(t, grand.IsZero())

	sub, grand = CalculateTotals(nil, decimal.Zero, decimal.Zero)
	assert.True(t, sub.IsZero())
	assert.True(t, grand.IsZero())
}
