package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/orderdesk/internal/catalog/domain"
)

type LineKind string

const (
	LineKindCatalog LineKind = "catalog"
	LineKindManual  LineKind = "manual"
)

const manualLinePrefix = "manual-"

// Line is a cart entry: either *CatalogLine or *ManualLine.
type Line interface {
	LineID() string
	Kind() LineKind
	Description() string
	Quantity() int
	UnitPrice() decimal.Decimal
	Amount() decimal.Decimal

	setQuantity(qty int)
	clone() Line
}

// CatalogLine references a product snapshot taken when the line was added.
type CatalogLine struct {
	Product catalogdomain.Product
	Qty     int
	Price   decimal.Decimal
}

func (l *CatalogLine) LineID() string             { return l.Product.ID.String() }
func (l *CatalogLine) Kind() LineKind             { return LineKindCatalog }
func (l *CatalogLine) Description() string        { return l.Product.Name }
func (l *CatalogLine) Quantity() int              { return l.Qty }
func (l *CatalogLine) UnitPrice() decimal.Decimal { return l.Price }
func (l *CatalogLine) Amount() decimal.Decimal    { return lineAmount(l.Price, l.Qty) }
func (l *CatalogLine) setQuantity(qty int)        { l.Qty = qty }

func (l *CatalogLine) clone() Line {
	cp := *l
	return &cp
}

// ManualLine is free text priced by hand. Its id is always tagged with manualLinePrefix.
type ManualLine struct {
	ID    string
	Text  string
	Qty   int
	Price decimal.Decimal
}

func (l *ManualLine) LineID() string             { return l.ID }
func (l *ManualLine) Kind() LineKind             { return LineKindManual }
func (l *ManualLine) Description() string        { return l.Text }
func (l *ManualLine) Quantity() int              { return l.Qty }
func (l *ManualLine) UnitPrice() decimal.Decimal { return l.Price }
func (l *ManualLine) Amount() decimal.Decimal    { return lineAmount(l.Price, l.Qty) }
func (l *ManualLine) setQuantity(qty int)        { l.Qty = qty }

func (l *ManualLine) clone() Line {
	cp := *l
	return &cp
}

// NewManualLineID returns a fresh tagged identifier for a manual line.
func NewManualLineID() string {
	return manualLinePrefix + strings.ToLower(ulid.Make().String())
}

// IsManualLineID reports whether id belongs to a manual line.
func IsManualLineID(id string) bool {
	return strings.HasPrefix(id, manualLinePrefix)
}

func lineAmount(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

type lineSnapshot struct {
	Kind        LineKind         `json:"kind"`
	ID          string           `json:"id"`
	ProductID   string           `json:"product_id,omitempty"`
	Description string           `json:"description"`
	Quantity    int              `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	WeightKg    *decimal.Decimal `json:"weight_kg,omitempty"`
	Prices      *priceSnapshot   `json:"prices,omitempty"`
}

type priceSnapshot struct {
	Standard    decimal.Decimal `json:"standard"`
	Retail      decimal.Decimal `json:"retail"`
	Partner     decimal.Decimal `json:"partner"`
	Distributor decimal.Decimal `json:"distributor"`
}

// MarshalLines encodes every line, catalog and manual, into the header snapshot.
func MarshalLines(lines []Line) ([]byte, error) {
	out := make([]lineSnapshot, 0, len(lines))
	for _, line := range lines {
		switch l := line.(type) {
		case *CatalogLine:
			weight := l.Product.WeightKg
			out = append(out, lineSnapshot{
				Kind:        LineKindCatalog,
				ID:          l.LineID(),
				ProductID:   l.Product.ID.String(),
				Description: l.Product.Name,
				Quantity:    l.Qty,
				UnitPrice:   l.Price,
				WeightKg:    &weight,
				Prices: &priceSnapshot{
					Standard:    l.Product.PriceStandard,
					Retail:      l.Product.PriceRetail,
					Partner:     l.Product.PricePartner,
					Distributor: l.Product.PriceDistributor,
				},
			})
		case *ManualLine:
			out = append(out, lineSnapshot{
				Kind:        LineKindManual,
				ID:          l.ID,
				Description: l.Text,
				Quantity:    l.Qty,
				UnitPrice:   l.Price,
			})
		default:
			return nil, fmt.Errorf("unsupported line type %T", line)
		}
	}
	return json.Marshal(out)
}

// UnmarshalLines decodes a header snapshot back into typed lines.
func UnmarshalLines(data []byte) ([]Line, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw []lineSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode line snapshot: %w", err)
	}

	lines := make([]Line, 0, len(raw))
	for _, item := range raw {
		switch item.Kind {
		case LineKindCatalog:
			productID, err := snowflake.ParseString(item.ProductID)
			if err != nil {
				return nil, fmt.Errorf("decode line snapshot: product id %q: %w", item.ProductID, err)
			}
			product := catalogdomain.Product{
				ID:     productID,
				Name:   item.Description,
				Kind:   catalogdomain.KindProduct,
				Active: true,
			}
			if item.WeightKg != nil {
				product.WeightKg = *item.WeightKg
			}
			if item.Prices != nil {
				product.PriceStandard = item.Prices.Standard
				product.PriceRetail = item.Prices.Retail
				product.PricePartner = item.Prices.Partner
				product.PriceDistributor = item.Prices.Distributor
			}
			lines = append(lines, &CatalogLine{Product: product, Qty: item.Quantity, Price: item.UnitPrice})
		case LineKindManual:
			id := item.ID
			if !IsManualLineID(id) {
				id = NewManualLineID()
			}
			lines = append(lines, &ManualLine{ID: id, Text: item.Description, Qty: item.Quantity, Price: item.UnitPrice})
		default:
			return nil, fmt.Errorf("decode line snapshot: unknown kind %q", item.Kind)
		}
	}
	return lines, nil
}
