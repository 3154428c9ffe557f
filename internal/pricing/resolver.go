package pricing

import (
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/orderdesk/internal/catalog/domain"
)

// Resolve returns the unit price of product under tier, falling back to the
// standard price whenever the tier price is absent or zero.
func Resolve(product catalogdomain.Product, tier Tier) decimal.Decimal {
	var price decimal.Decimal
	switch tier {
	case TierRetail:
		price = product.PriceRetail
	case TierPartner:
		price = product.PricePartner
	case TierDistributor:
		price = product.PriceDistributor
	default:
		price = product.PriceStandard
	}
	if price.Sign() <= 0 {
		price = product.PriceStandard
	}
	return price.Round(2)
}
