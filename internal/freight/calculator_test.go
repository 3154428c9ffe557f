package freight

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate_SameRegion(t *testing.T) {
	parcels := []Parcel{{WeightKg: decimal.RequireFromString("1.0"), Quantity: 2}}

	cost, err := Estimate(DefaultRates(), "01310-100", "01001000", parcels)
	require.NoError(t, err)
	assert.Equal(t, "29.40", cost.StringFixed(2))
}

func TestEstimate_RegionDistance(t *testing.T) {
	parcels := []Parcel{{WeightKg: decimal.RequireFromString("1.0"), Quantity: 1}}

	// |01 - 20| + 1 = 20 regions
	cost, err := Estimate(DefaultRates(), "01310100", "20040002", parcels)
	require.NoError(t, err)
	assert.Equal(t, "72.70", cost.StringFixed(2))

	reverse, err := Estimate(DefaultRates(), "20040002", "01310100", parcels)
	require.NoError(t, err)
	assert.True(t, cost.Equal(reverse))
}

func TestEstimate_DefaultWeightForUnknown(t *testing.T) {
	parcels := []Parcel{
		{WeightKg: decimal.Zero, Quantity: 3},
		{WeightKg: decimal.RequireFromString("2"), Quantity: 0},
	}

	cost, err := Estimate(DefaultRates(), "01310100", "01310100", parcels)
	require.NoError(t, err)
	// 18.50 + 1.5*4.20 + 1*2.50
	assert.Equal(t, "27.30", cost.StringFixed(2))
}

func TestEstimate_InvalidPostalCode(t *testing.T) {
	_, err := Estimate(DefaultRates(), "01310100", "9", nil)
	assert.ErrorIs(t, err, ErrInvalidPostalCode)

	_, err = Estimate(DefaultRates(), "", "01310100", nil)
	assert.ErrorIs(t, err, ErrInvalidPostalCode)
}

func TestEstimate_MonotonicInWeight(t *testing.T) {
	rates := DefaultRates()
	previous := decimal.Zero
	for qty := 0; qty <= 40; qty++ {
		parcels := []Parcel{
			{WeightKg: decimal.RequireFromString("0.75"), Quantity: qty},
			{WeightKg: decimal.Zero, Quantity: qty / 2},
		}
		cost, err := Estimate(rates, "30130000", "80010000", parcels)
		require.NoError(t, err)
		assert.False(t, cost.LessThan(previous), "qty %d decreased freight", qty)
		previous = cost
	}
}

func TestCleanPostalCode(t *testing.T) {
	assert.Equal(t, "01310100", CleanPostalCode(" 01310-100 "))
	assert.True(t, IsComplete("01310-100"))
	assert.False(t, IsComplete("01310-10"))
}

func TestCleanPostalCode_IgnoresNonASCIIDigits(t *testing.T) {
	arabicIndic := "\u0660\u0660\u0660\u0660"
	fullWidth := "\uff10\uff11\uff13\uff11\uff10\uff11\uff10\uff10"

	assert.Empty(t, CleanPostalCode(arabicIndic))
	assert.Empty(t, CleanPostalCode(fullWidth))
	assert.False(t, IsComplete(fullWidth))
	assert.Equal(t, "0131", CleanPostalCode("01\u066031"))

	parcels := []Parcel{{WeightKg: decimal.RequireFromString("1.0"), Quantity: 1}}
	_, err := Estimate(DefaultRates(), "01310100", arabicIndic, parcels)
	assert.ErrorIs(t, err, ErrInvalidPostalCode)
	_, err = Estimate(DefaultRates(), fullWidth, "01310100", parcels)
	assert.ErrorIs(t, err, ErrInvalidPostalCode)
}
