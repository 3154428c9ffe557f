package pricing

import (
	"errors"
	"strings"
)

// Tier selects which of a product's price points applies to an order.
type Tier string

const (
	TierStandard    Tier = "standard"
	TierRetail      Tier = "retail"
	TierPartner     Tier = "partner"
	TierDistributor Tier = "distributor"
)

var ErrInvalidTier = errors.New("invalid_tier")

// ParseTier normalizes raw input. An empty value resolves to the standard tier.
func ParseTier(raw string) (Tier, error) {
	value := Tier(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case "":
		return TierStandard, nil
	case TierStandard, TierRetail, TierPartner, TierDistributor:
		return value, nil
	default:
		return "", ErrInvalidTier
	}
}

func (t Tier) Valid() bool {
	switch t {
	case TierStandard, TierRetail, TierPartner, TierDistributor:
		return true
	default:
		return false
	}
}
