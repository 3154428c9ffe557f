package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/orderdesk/internal/clientdirectory/domain"
	"github.com/smallbiznis/orderdesk/internal/pricing"
	"gorm.io/datatypes"
)

const MovementTypeReservation = "reservation"

// OrderRecord is the stored header. Lines holds the snapshot of every line and
// is the source of truth; order_lines and stock_movements are derived from it.
type OrderRecord struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderNumber    string          `gorm:"type:text;not null;uniqueIndex" json:"order_number"`
	ClientID       snowflake.ID    `gorm:"not null;index" json:"client_id"`
	ClientType     string          `gorm:"type:text;not null" json:"client_type"`
	ClientName     string          `gorm:"type:text" json:"client_name"`
	Status         string          `gorm:"type:text;not null;index" json:"status"`
	Channel        string          `gorm:"type:text;not null" json:"channel"`
	PricingTier    string          `gorm:"type:text;not null" json:"pricing_tier"`
	ShippingMethod string          `gorm:"type:text" json:"shipping_method"`
	ShippingCost   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping_cost"`
	InsuranceCost  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"insurance_cost"`
	DiscountCode   string          `gorm:"type:text" json:"discount_code"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount_amount"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Total          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	PostalCode     string          `gorm:"type:text" json:"postal_code"`
	Street         string          `gorm:"type:text" json:"street"`
	Number         string          `gorm:"type:text" json:"number"`
	Complement     string          `gorm:"type:text" json:"complement"`
	Neighborhood   string          `gorm:"type:text" json:"neighborhood"`
	City           string          `gorm:"type:text" json:"city"`
	State          string          `gorm:"type:text" json:"state"`
	Lines          datatypes.JSON  `gorm:"column:lines_snapshot;type:jsonb;not null" json:"lines"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}

func (OrderRecord) TableName() string { return "orders" }

// OrderLineRecord is the normalized copy of one catalog line.
type OrderLineRecord struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID     snowflake.ID    `gorm:"not null;index" json:"order_id"`
	ProductID   snowflake.ID    `gorm:"not null" json:"product_id"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_price"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
}

func (OrderLineRecord) TableName() string { return "order_lines" }

// StockMovement reserves stock for one catalog line of a committed order.
type StockMovement struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	OrderID      snowflake.ID `gorm:"not null;index" json:"order_id"`
	ProductID    snowflake.ID `gorm:"not null;index" json:"product_id"`
	Quantity     int          `gorm:"not null" json:"quantity"`
	MovementType string       `gorm:"type:text;not null" json:"movement_type"`
	Reference    string       `gorm:"type:text;not null" json:"reference"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
}

func (StockMovement) TableName() string { return "stock_movements" }

// NewOrderRecord flattens o into its stored header form.
func NewOrderRecord(o Order) (*OrderRecord, error) {
	lines, err := MarshalLines(o.Lines)
	if err != nil {
		return nil, err
	}
	rec := &OrderRecord{
		ID:             o.ID,
		OrderNumber:    o.Number,
		Status:         string(o.Status),
		Channel:        o.Channel,
		PricingTier:    string(o.Tier),
		ShippingMethod: o.ShippingMethod,
		ShippingCost:   o.ShippingCost,
		InsuranceCost:  o.InsuranceCost,
		DiscountCode:   o.DiscountCode,
		DiscountAmount: o.DiscountAmount,
		Subtotal:       o.Subtotal,
		Total:          o.Total,
		PostalCode:     o.Address.PostalCode,
		Street:         o.Address.Street,
		Number:         o.Address.Number,
		Complement:     o.Address.Complement,
		Neighborhood:   o.Address.Neighborhood,
		City:           o.Address.City,
		State:          o.Address.State,
		Lines:          datatypes.JSON(lines),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.Client != nil {
		rec.ClientID = o.Client.ID
		rec.ClientType = string(o.Client.Type)
		rec.ClientName = o.Client.Name
	}
	return rec, nil
}

// ToOrder rebuilds the editable order from the header and its line snapshot.
func (r OrderRecord) ToOrder() (Order, error) {
	lines, err := UnmarshalLines(r.Lines)
	if err != nil {
		return Order{}, err
	}
	o := Order{
		ID:             r.ID,
		Number:         r.OrderNumber,
		Status:         Status(r.Status),
		Channel:        r.Channel,
		Tier:           pricing.Tier(r.PricingTier),
		ShippingMethod: r.ShippingMethod,
		ShippingCost:   r.ShippingCost,
		InsuranceCost:  r.InsuranceCost,
		DiscountCode:   r.DiscountCode,
		DiscountAmount: r.DiscountAmount,
		Subtotal:       r.Subtotal,
		Total:          r.Total,
		Address: Address{
			PostalCode:   r.PostalCode,
			Street:       r.Street,
			Number:       r.Number,
			Complement:   r.Complement,
			Neighborhood: r.Neighborhood,
			City:         r.City,
			State:        r.State,
		},
		Lines:     lines,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.ClientID != 0 {
		o.Client = &ClientRef{
			ID:   r.ClientID,
			Type: clientdomain.ClientType(r.ClientType),
			Name: r.ClientName,
		}
	}
	return o, nil
}
