// Package lockpolicy decides whether an order in a given status may still be edited.
package lockpolicy

import (
	"context"

	"github.com/smallbiznis/orderdesk/internal/actor"
	"github.com/smallbiznis/orderdesk/internal/authorization"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// CapabilityOverride lets an actor edit locked orders without a stored grant.
const CapabilityOverride = authorization.ActionOrderOverride

var locked = map[orderdomain.Status]bool{
	orderdomain.StatusPaid:      true,
	orderdomain.StatusProducing: true,
	orderdomain.StatusShipped:   true,
	orderdomain.StatusDelivered: true,
}

// IsLocked reports whether status freezes the order for regular users.
func IsLocked(status orderdomain.Status) bool {
	return locked[status]
}

// Overrides is the subset of authorization.Service the policy consults.
type Overrides interface {
	HasOverride(ctx context.Context, a actor.Actor) (bool, error)
}

type Params struct {
	fx.In

	Log       *zap.Logger
	Overrides Overrides `optional:"true"`
}

type Policy struct {
	log       *zap.Logger
	overrides Overrides
}

func New(p Params) *Policy {
	return &Policy{
		log:       p.Log.Named("lockpolicy"),
		overrides: p.Overrides,
	}
}

// CanMutate is true for unlocked statuses, and for locked ones only when the
// actor holds the override.
func (p *Policy) CanMutate(ctx context.Context, status orderdomain.Status, a actor.Actor) bool {
	if !IsLocked(status) {
		return true
	}
	return p.HasOverride(ctx, a)
}

// HasOverride checks administrator roles, the actor's own capabilities, then
// stored grants. A failing grant lookup denies.
func (p *Policy) HasOverride(ctx context.Context, a actor.Actor) bool {
	if a.HasRole(authorization.AdministratorRoles...) || a.HasCapability(CapabilityOverride) {
		return true
	}
	if p.overrides == nil || a.ID == "" {
		return false
	}
	ok, err := p.overrides.HasOverride(ctx, a)
	if err != nil {
		p.log.Warn("override lookup failed", zap.String("actor_id", a.ID), zap.Error(err))
		return false
	}
	return ok
}
