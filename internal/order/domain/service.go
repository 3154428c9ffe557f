package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/actor"
)

type Service interface {
	// Commit saves the header, then replaces the line and stock mirrors. When the
	// header was written but the mirror failed, the returned id is still valid.
	Commit(ctx context.Context, a actor.Actor, order Order) (snowflake.ID, error)
	Load(ctx context.Context, id string) (Order, error)
	// RebuildMirror re-derives order_lines and stock_movements from the stored snapshot.
	RebuildMirror(ctx context.Context, id snowflake.ID) error
	ListLines(ctx context.Context, id snowflake.ID) ([]OrderLineRecord, error)
	ListMovements(ctx context.Context, id snowflake.ID) ([]StockMovement, error)
}
