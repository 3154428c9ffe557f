package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"gorm.io/gorm"
)

const headerColumns = `id, order_number, client_id, client_type, client_name, status, channel,
	pricing_tier, shipping_method, shipping_cost, insurance_cost, discount_code, discount_amount,
	subtotal, total, postal_code, street, number, complement, neighborhood, city, state, lines_snapshot,
	created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertHeader(ctx context.Context, db *gorm.DB, rec *domain.OrderRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (`+headerColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.OrderNumber,
		rec.ClientID,
		rec.ClientType,
		rec.ClientName,
		rec.Status,
		rec.Channel,
		rec.PricingTier,
		rec.ShippingMethod,
		rec.ShippingCost,
		rec.InsuranceCost,
		rec.DiscountCode,
		rec.DiscountAmount,
		rec.Subtotal,
		rec.Total,
		rec.PostalCode,
		rec.Street,
		rec.Number,
		rec.Complement,
		rec.Neighborhood,
		rec.City,
		rec.State,
		rec.Lines,
		rec.CreatedAt,
		rec.UpdatedAt,
	).Error
}

func (r *repo) UpdateHeader(ctx context.Context, db *gorm.DB, rec *domain.OrderRecord) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE orders SET
			client_id = ?, client_type = ?, client_name = ?, status = ?, channel = ?,
			pricing_tier = ?, shipping_method = ?, shipping_cost = ?, insurance_cost = ?,
			discount_code = ?, discount_amount = ?, subtotal = ?, total = ?,
			postal_code = ?, street = ?, number = ?, complement = ?, neighborhood = ?,
			city = ?, state = ?, lines_snapshot = ?, updated_at = ?
		 WHERE id = ?`,
		rec.ClientID,
		rec.ClientType,
		rec.ClientName,
		rec.Status,
		rec.Channel,
		rec.PricingTier,
		rec.ShippingMethod,
		rec.ShippingCost,
		rec.InsuranceCost,
		rec.DiscountCode,
		rec.DiscountAmount,
		rec.Subtotal,
		rec.Total,
		rec.PostalCode,
		rec.Street,
		rec.Number,
		rec.Complement,
		rec.Neighborhood,
		rec.City,
		rec.State,
		rec.Lines,
		rec.UpdatedAt,
		rec.ID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindHeader(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.OrderRecord, error) {
	var rec domain.OrderRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+headerColumns+` FROM orders WHERE id = ?`,
		id,
	).Scan(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, nil
	}
	return &rec, nil
}

func (r *repo) FindStatus(ctx context.Context, db *gorm.DB, id snowflake.ID) (domain.Status, error) {
	var row struct {
		Status string `gorm:"column:status"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT status FROM orders WHERE id = ?`,
		id,
	).Scan(&row).Error
	if err != nil {
		return "", err
	}
	return domain.Status(row.Status), nil
}

func (r *repo) DeleteLines(ctx context.Context, db *gorm.DB, orderID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM order_lines WHERE order_id = ?`,
		orderID,
	).Error
}

func (r *repo) InsertLine(ctx context.Context, db *gorm.DB, line *domain.OrderLineRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO order_lines (id, order_id, product_id, description, quantity, unit_price, total_price, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		line.ID,
		line.OrderID,
		line.ProductID,
		line.Description,
		line.Quantity,
		line.UnitPrice,
		line.TotalPrice,
		line.CreatedAt,
	).Error
}

func (r *repo) ListLines(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.OrderLineRecord, error) {
	var lines []domain.OrderLineRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, product_id, description, quantity, unit_price, total_price, created_at
		 FROM order_lines WHERE order_id = ?
		 ORDER BY id ASC`,
		orderID,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) DeleteMovements(ctx context.Context, db *gorm.DB, orderID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM stock_movements WHERE order_id = ?`,
		orderID,
	).Error
}

func (r *repo) InsertMovement(ctx context.Context, db *gorm.DB, movement *domain.StockMovement) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO stock_movements (id, order_id, product_id, quantity, movement_type, reference, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		movement.ID,
		movement.OrderID,
		movement.ProductID,
		movement.Quantity,
		movement.MovementType,
		movement.Reference,
		movement.CreatedAt,
	).Error
}

func (r *repo) ListMovements(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.StockMovement, error) {
	var movements []domain.StockMovement
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, product_id, quantity, movement_type, reference, created_at
		 FROM stock_movements WHERE order_id = ?
		 ORDER BY id ASC`,
		orderID,
	).Scan(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}
