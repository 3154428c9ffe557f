package authorization

import (
	"context"

	"github.com/smallbiznis/orderdesk/internal/actor"
)

// Service answers whether an actor may edit orders that are already locked.
type Service interface {
	HasOverride(ctx context.Context, a actor.Actor) (bool, error)
	GrantOverride(ctx context.Context, subject string) error
	RevokeOverride(ctx context.Context, subject string) error
}
