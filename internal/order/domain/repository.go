package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertHeader(ctx context.Context, db *gorm.DB, rec *OrderRecord) error
	// UpdateHeader reports false when no row matched rec.ID.
	UpdateHeader(ctx context.Context, db *gorm.DB, rec *OrderRecord) (bool, error)
	FindHeader(ctx context.Context, db *gorm.DB, id snowflake.ID) (*OrderRecord, error)
	FindStatus(ctx context.Context, db *gorm.DB, id snowflake.ID) (Status, error)

	DeleteLines(ctx context.Context, db *gorm.DB, orderID snowflake.ID) error
	InsertLine(ctx context.Context, db *gorm.DB, line *OrderLineRecord) error
	ListLines(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]OrderLineRecord, error)

	DeleteMovements(ctx context.Context, db *gorm.DB, orderID snowflake.ID) error
	InsertMovement(ctx context.Context, db *gorm.DB, movement *StockMovement) error
	ListMovements(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]StockMovement, error)
}
