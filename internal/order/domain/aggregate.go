package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/orderdesk/internal/catalog/domain"
	"github.com/smallbiznis/orderdesk/internal/freight"
	"github.com/smallbiznis/orderdesk/internal/pricing"
)

// Rules carries the commercial parameters an aggregate prices with.
type Rules struct {
	Freight          freight.Rates
	OriginPostalCode string
	InsuranceRate    decimal.Decimal
	InsuredCarriers  []string
	// DiscountCodes maps an upper-cased code to a fraction of the subtotal (0.10 = 10%).
	DiscountCodes map[string]decimal.Decimal
}

// DefaultRules returns the stock commercial parameters.
func DefaultRules() Rules {
	return Rules{
		Freight:          freight.DefaultRates(),
		OriginPostalCode: "01310100",
		InsuranceRate:    decimal.RequireFromString("0.01"),
		InsuredCarriers:  []string{"sedex", "sedex_10", "transportadora"},
		DiscountCodes: map[string]decimal.Decimal{
			"DESCONTO10": decimal.RequireFromString("0.10"),
		},
	}
}

func (r Rules) insures(method string) bool {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		return false
	}
	for _, carrier := range r.InsuredCarriers {
		if strings.EqualFold(strings.TrimSpace(carrier), method) {
			return true
		}
	}
	return false
}

func (r Rules) discountRate(code string) (decimal.Decimal, bool) {
	rate, ok := r.DiscountCodes[normalizeCode(code)]
	return rate, ok
}

type freightKey struct {
	postalCode string
	lineCount  int
	quantity   int
}

// Aggregate is an order under construction. Every mutation leaves totals recomputed.
// It is not safe for concurrent use; callers serialize access.
type Aggregate struct {
	order        Order
	rules        Rules
	discountRate *decimal.Decimal
	freightAt    freightKey
}

// NewAggregate starts a pending order with a fresh order number.
func NewAggregate(rules Rules, now time.Time) *Aggregate {
	a := &Aggregate{
		rules: rules,
		order: Order{
			Number:    NewOrderNumber(now),
			Status:    StatusPending,
			Channel:   DefaultChannel,
			Tier:      pricing.TierStandard,
			CreatedAt: now.UTC(),
			UpdatedAt: now.UTC(),
		},
	}
	a.recompute()
	return a
}

// Rehydrate resumes editing a stored order. Stored shipping cost is kept until a
// freight trigger fires.
func Rehydrate(rules Rules, order Order) *Aggregate {
	a := &Aggregate{rules: rules, order: cloneOrder(order)}
	if a.order.Tier == "" {
		a.order.Tier = pricing.TierStandard
	}
	if a.order.Channel == "" {
		a.order.Channel = DefaultChannel
	}
	if a.order.DiscountCode != "" {
		if rate, ok := rules.discountRate(a.order.DiscountCode); ok {
			a.discountRate = &rate
		}
	}
	a.freightAt = a.currentFreightKey()
	a.recompute()
	return a
}

// Snapshot returns a deep copy of the current order.
func (a *Aggregate) Snapshot() Order {
	return cloneOrder(a.order)
}

func (a *Aggregate) Status() Status { return a.order.Status }

func (a *Aggregate) SelectClient(client ClientRef) error {
	if client.ID == 0 || !client.Type.Valid() {
		return ErrInvalidClient
	}
	client.Name = strings.TrimSpace(client.Name)
	a.order.Client = &client
	a.touch()
	return nil
}

// AddCatalogLine prices product under the current tier. Adding a product that is
// already in the cart increases that line's quantity instead.
func (a *Aggregate) AddCatalogLine(product catalogdomain.Product, qty int) (Line, error) {
	if product.ID == 0 {
		return nil, ErrInvalidProduct
	}
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	if existing := a.findLine(product.ID.String()); existing != nil {
		existing.setQuantity(existing.Quantity() + qty)
		a.touch()
		return existing.clone(), nil
	}

	line := &CatalogLine{
		Product: product,
		Qty:     qty,
		Price:   pricing.Resolve(product, a.order.Tier),
	}
	a.order.Lines = append(a.order.Lines, line)
	a.touch()
	return line.clone(), nil
}

func (a *Aggregate) AddManualLine(description string, qty int, unitPrice decimal.Decimal) (Line, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrInvalidProduct
	}
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	if unitPrice.Sign() < 0 {
		return nil, ErrInvalidPrice
	}

	line := &ManualLine{
		ID:    NewManualLineID(),
		Text:  description,
		Qty:   qty,
		Price: unitPrice.Round(2),
	}
	a.order.Lines = append(a.order.Lines, line)
	a.touch()
	return line.clone(), nil
}

func (a *Aggregate) RemoveLine(lineID string) error {
	for i, line := range a.order.Lines {
		if line.LineID() == lineID {
			a.order.Lines = append(a.order.Lines[:i], a.order.Lines[i+1:]...)
			a.touch()
			return nil
		}
	}
	return ErrLineNotFound
}

func (a *Aggregate) SetQuantity(lineID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	line := a.findLine(lineID)
	if line == nil {
		return ErrLineNotFound
	}
	line.setQuantity(qty)
	a.touch()
	return nil
}

func (a *Aggregate) IncrementQuantity(lineID string) error {
	line := a.findLine(lineID)
	if line == nil {
		return ErrLineNotFound
	}
	line.setQuantity(line.Quantity() + 1)
	a.touch()
	return nil
}

// DecrementQuantity never drops below 1; removal is RemoveLine.
func (a *Aggregate) DecrementQuantity(lineID string) error {
	line := a.findLine(lineID)
	if line == nil {
		return ErrLineNotFound
	}
	if line.Quantity() > 1 {
		line.setQuantity(line.Quantity() - 1)
	}
	a.touch()
	return nil
}

// ChangeTier re-prices catalog lines in place. Manual lines keep their price.
func (a *Aggregate) ChangeTier(tier pricing.Tier) error {
	if !tier.Valid() {
		return pricing.ErrInvalidTier
	}
	a.order.Tier = tier
	for _, line := range a.order.Lines {
		if l, ok := line.(*CatalogLine); ok {
			l.Price = pricing.Resolve(l.Product, tier)
		}
	}
	a.touch()
	return nil
}

func (a *Aggregate) SetShippingMethod(method string) {
	a.order.ShippingMethod = strings.ToLower(strings.TrimSpace(method))
	a.touch()
}

// SetShippingCost overrides the estimate until the next freight trigger.
func (a *Aggregate) SetShippingCost(cost decimal.Decimal) error {
	if cost.Sign() < 0 {
		return ErrInvalidPrice
	}
	a.order.ShippingCost = cost.Round(2)
	a.touch()
	return nil
}

// SetPostalCode stores the cleaned destination code. A complete code triggers a
// freight estimate.
func (a *Aggregate) SetPostalCode(raw string) {
	a.order.Address.PostalCode = freight.CleanPostalCode(raw)
	a.touch()
}

// SetAddress replaces the delivery address. The postal code is cleaned.
func (a *Aggregate) SetAddress(addr Address) {
	addr.PostalCode = freight.CleanPostalCode(addr.PostalCode)
	a.order.Address = addr
	a.touch()
}

// EnrichAddress fills street-level fields from a postal lookup. Empty values in
// found never clear what is already there.
func (a *Aggregate) EnrichAddress(found Address) {
	current := &a.order.Address
	if v := strings.TrimSpace(found.Street); v != "" {
		current.Street = v
	}
	if v := strings.TrimSpace(found.Neighborhood); v != "" {
		current.Neighborhood = v
	}
	if v := strings.TrimSpace(found.City); v != "" {
		current.City = v
	}
	if v := strings.TrimSpace(found.State); v != "" {
		current.State = v
	}
	a.touch()
}

// ApplyDiscountCode accepts only allow-listed codes. An unknown code leaves the
// current discount untouched.
func (a *Aggregate) ApplyDiscountCode(code string) error {
	rate, ok := a.rules.discountRate(code)
	if !ok {
		return ErrInvalidDiscountCode
	}
	a.order.DiscountCode = normalizeCode(code)
	a.discountRate = &rate
	a.touch()
	return nil
}

func (a *Aggregate) ClearDiscount() {
	a.order.DiscountCode = ""
	a.order.DiscountAmount = decimal.Zero
	a.discountRate = nil
	a.touch()
}

func (a *Aggregate) SetChannel(channel string) {
	channel = strings.ToLower(strings.TrimSpace(channel))
	if channel == "" {
		channel = DefaultChannel
	}
	a.order.Channel = channel
	a.touch()
}

func (a *Aggregate) TransitionTo(next Status) error {
	if !a.order.Status.CanTransition(next) {
		return ErrInvalidTransition
	}
	a.order.Status = next
	a.touch()
	return nil
}

// MarkPersisted records the identity assigned by storage.
func (a *Aggregate) MarkPersisted(id snowflake.ID) {
	if a.order.ID == 0 {
		a.order.ID = id
	}
}

func (a *Aggregate) Validate() error {
	return a.order.Validate()
}

func (a *Aggregate) touch() {
	a.order.UpdatedAt = time.Now().UTC()
	a.recompute()
}

func (a *Aggregate) recompute() {
	subtotal := decimal.Zero
	for _, line := range a.order.Lines {
		subtotal = subtotal.Add(line.Amount())
	}
	a.order.Subtotal = subtotal.Round(2)

	a.refreshFreight()

	if a.rules.insures(a.order.ShippingMethod) {
		a.order.InsuranceCost = a.order.Subtotal.Mul(a.rules.InsuranceRate).Round(2)
	} else {
		a.order.InsuranceCost = decimal.Zero
	}

	if a.discountRate != nil {
		a.order.DiscountAmount = a.order.Subtotal.Mul(*a.discountRate).Round(2)
	}
	if a.order.DiscountAmount.GreaterThan(a.order.Subtotal) {
		a.order.DiscountAmount = a.order.Subtotal
	}

	a.order.Total = a.order.Subtotal.
		Add(a.order.ShippingCost).
		Add(a.order.InsuranceCost).
		Sub(a.order.DiscountAmount).
		Round(2)
}

// refreshFreight re-estimates when the destination is complete and either the
// destination or the cart shape changed since the last estimate.
func (a *Aggregate) refreshFreight() {
	key := a.currentFreightKey()
	if len(key.postalCode) != freight.PostalCodeLength || key == a.freightAt {
		return
	}

	parcels := make([]freight.Parcel, 0, len(a.order.Lines))
	for _, line := range a.order.Lines {
		switch l := line.(type) {
		case *CatalogLine:
			parcels = append(parcels, freight.Parcel{WeightKg: l.Product.WeightKg, Quantity: l.Qty})
		case *ManualLine:
			parcels = append(parcels, freight.Parcel{Quantity: l.Qty})
		}
	}

	cost, err := freight.Estimate(a.rules.Freight, a.rules.OriginPostalCode, key.postalCode, parcels)
	if err != nil {
		return
	}
	a.order.ShippingCost = cost
	a.freightAt = key
}

func (a *Aggregate) currentFreightKey() freightKey {
	key := freightKey{
		postalCode: a.order.Address.PostalCode,
		lineCount:  len(a.order.Lines),
	}
	for _, line := range a.order.Lines {
		key.quantity += line.Quantity()
	}
	return key
}

func (a *Aggregate) findLine(lineID string) Line {
	for _, line := range a.order.Lines {
		if line.LineID() == lineID {
			return line
		}
	}
	return nil
}

func cloneOrder(o Order) Order {
	cp := o
	if o.Client != nil {
		client := *o.Client
		cp.Client = &client
	}
	cp.Lines = make([]Line, 0, len(o.Lines))
	for _, line := range o.Lines {
		cp.Lines = append(cp.Lines, line.clone())
	}
	return cp
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
