package server

import (
	"time"

	"github.com/smallbiznis/orderdesk/internal/lockpolicy"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	orderservice "github.com/smallbiznis/orderdesk/internal/order/service"
)

type lineView struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	ProductID   string `json:"product_id,omitempty"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Amount      string `json:"amount"`
}

type orderView struct {
	ID             string                 `json:"id,omitempty"`
	Number         string                 `json:"number"`
	Client         *orderdomain.ClientRef `json:"client,omitempty"`
	Status         string                 `json:"status"`
	Locked         bool                   `json:"locked"`
	Channel        string                 `json:"channel"`
	Tier           string                 `json:"pricing_tier"`
	ShippingMethod string                 `json:"shipping_method"`
	ShippingCost   string                 `json:"shipping_cost"`
	InsuranceCost  string                 `json:"insurance_cost"`
	DiscountCode   string                 `json:"discount_code,omitempty"`
	DiscountAmount string                 `json:"discount_amount"`
	Subtotal       string                 `json:"subtotal"`
	Total          string                 `json:"total"`
	Address        orderdomain.Address    `json:"address"`
	Lines          []lineView             `json:"lines"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

type sessionView struct {
	ID     string    `json:"id"`
	Saving bool      `json:"saving"`
	Order  orderView `json:"order"`
}

func newOrderView(o orderdomain.Order) orderView {
	view := orderView{
		Number:         o.Number,
		Client:         o.Client,
		Status:         string(o.Status),
		Locked:         lockpolicy.IsLocked(o.Status),
		Channel:        o.Channel,
		Tier:           string(o.Tier),
		ShippingMethod: o.ShippingMethod,
		ShippingCost:   o.ShippingCost.StringFixed(2),
		InsuranceCost:  o.InsuranceCost.StringFixed(2),
		DiscountCode:   o.DiscountCode,
		DiscountAmount: o.DiscountAmount.StringFixed(2),
		Subtotal:       o.Subtotal.StringFixed(2),
		Total:          o.Total.StringFixed(2),
		Address:        o.Address,
		Lines:          make([]lineView, 0, len(o.Lines)),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if !o.IsNew() {
		view.ID = o.ID.String()
	}
	for _, line := range o.Lines {
		lv := lineView{
			ID:          line.LineID(),
			Kind:        string(line.Kind()),
			Description: line.Description(),
			Quantity:    line.Quantity(),
			UnitPrice:   line.UnitPrice().StringFixed(2),
			Amount:      line.Amount().StringFixed(2),
		}
		if cl, ok := line.(*orderdomain.CatalogLine); ok {
			lv.ProductID = cl.Product.ID.String()
		}
		view.Lines = append(view.Lines, lv)
	}
	return view
}

func newSessionView(s *orderservice.Session, o orderdomain.Order) sessionView {
	return sessionView{
		ID:     s.ID(),
		Saving: s.Saving(),
		Order:  newOrderView(o),
	}
}
