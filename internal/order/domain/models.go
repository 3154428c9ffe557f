package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/orderdesk/internal/clientdirectory/domain"
	"github.com/smallbiznis/orderdesk/internal/pricing"
)

const DefaultChannel = "manual"

type ClientRef struct {
	ID   snowflake.ID            `json:"id"`
	Type clientdomain.ClientType `json:"type"`
	Name string                  `json:"name"`
}

type Address struct {
	PostalCode   string `json:"postal_code"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// Order is the editable order header plus its ordered lines.
type Order struct {
	ID             snowflake.ID
	Number         string
	Client         *ClientRef
	Status         Status
	Channel        string
	Tier           pricing.Tier
	ShippingMethod string
	ShippingCost   decimal.Decimal
	InsuranceCost  decimal.Decimal
	DiscountCode   string
	DiscountAmount decimal.Decimal
	Subtotal       decimal.Decimal
	Total          decimal.Decimal
	Address        Address
	Lines          []Line
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (o Order) IsNew() bool { return o.ID == 0 }

// Validate checks the preconditions for commit.
func (o Order) Validate() error {
	if o.Client == nil || o.Client.ID == 0 {
		return ErrMissingClient
	}
	if len(o.Lines) == 0 {
		return ErrEmptyCart
	}
	return nil
}

// CatalogLines returns only the catalog-backed lines, in cart order.
func (o Order) CatalogLines() []*CatalogLine {
	out := make([]*CatalogLine, 0, len(o.Lines))
	for _, line := range o.Lines {
		if l, ok := line.(*CatalogLine); ok {
			out = append(out, l)
		}
	}
	return out
}

// NewOrderNumber builds the human-readable order number, e.g. PED-20261018-4Q7ZKM.
func NewOrderNumber(now time.Time) string {
	id := ulid.Make().String()
	return "PED-" + now.UTC().Format("20060102") + "-" + strings.ToUpper(id[len(id)-6:])
}
