// Package freight estimates shipping cost from postal-code regions and cart weight.
//
// The estimate is a coarse heuristic, not a carrier quote: the distance proxy is the
// difference between the two-digit administrative region prefixes of the postal codes.
package freight

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// PostalCodeLength is the digit count of a fully specified postal code.
const PostalCodeLength = 8

var ErrInvalidPostalCode = errors.New("invalid_postal_code")

// Rates parameterizes the estimate.
type Rates struct {
	BasePrice       decimal.Decimal
	PerKgRate       decimal.Decimal
	PerRegionRate   decimal.Decimal
	DefaultWeightKg decimal.Decimal
}

// DefaultRates returns the stock freight table.
func DefaultRates() Rates {
	return Rates{
		BasePrice:       decimal.RequireFromString("18.50"),
		PerKgRate:       decimal.RequireFromString("4.20"),
		PerRegionRate:   decimal.RequireFromString("2.50"),
		DefaultWeightKg: decimal.RequireFromString("0.5"),
	}
}

// Parcel is one cart line as seen by the calculator. A zero weight means unknown.
type Parcel struct {
	WeightKg decimal.Decimal
	Quantity int
}

// Estimate computes base + totalWeight*perKg + regionDistance*perRegion, rounded to cents.
func Estimate(rates Rates, origin, destination string, parcels []Parcel) (decimal.Decimal, error) {
	from, err := regionPrefix(origin)
	if err != nil {
		return decimal.Zero, err
	}
	to, err := regionPrefix(destination)
	if err != nil {
		return decimal.Zero, err
	}

	distance := from - to
	if distance < 0 {
		distance = -distance
	}
	distance++

	totalWeight := TotalWeight(rates, parcels)

	cost := rates.BasePrice.
		Add(totalWeight.Mul(rates.PerKgRate)).
		Add(decimal.NewFromInt(int64(distance)).Mul(rates.PerRegionRate))
	return cost.Round(2), nil
}

// TotalWeight sums parcel weights, substituting the default weight for unknown ones.
func TotalWeight(rates Rates, parcels []Parcel) decimal.Decimal {
	total := decimal.Zero
	for _, parcel := range parcels {
		if parcel.Quantity <= 0 {
			continue
		}
		weight := parcel.WeightKg
		if weight.Sign() <= 0 {
			weight = rates.DefaultWeightKg
		}
		total = total.Add(weight.Mul(decimal.NewFromInt(int64(parcel.Quantity))))
	}
	return total
}

// CleanPostalCode strips everything but the ASCII digits 0-9.
func CleanPostalCode(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsComplete reports whether raw holds exactly a full postal code once cleaned.
func IsComplete(raw string) bool {
	return len(CleanPostalCode(raw)) == PostalCodeLength
}

func regionPrefix(raw string) (int, error) {
	digits := CleanPostalCode(raw)
	if len(digits) < 2 {
		return 0, ErrInvalidPostalCode
	}
	return int(digits[0]-'0')*10 + int(digits[1]-'0'), nil
}
