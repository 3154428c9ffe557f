package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/orderdesk/internal/actor"
	catalogdomain "github.com/smallbiznis/orderdesk/internal/catalog/domain"
	"github.com/smallbiznis/orderdesk/internal/freight"
	"github.com/smallbiznis/orderdesk/internal/lockpolicy"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/postalcode"
	"github.com/smallbiznis/orderdesk/internal/pricing"
	"go.uber.org/zap"
)

// Session is one actor's editing state for a single order. Mutations are
// serialized by mu; at most one Save runs at a time and mutations are rejected
// while it does.
type Session struct {
	id    string
	owner string

	mu       sync.Mutex
	agg      *domain.Aggregate
	saving   atomic.Bool
	lastSeen atomic.Int64

	svc    domain.Service
	policy *lockpolicy.Policy
	lookup postalcode.Lookup
	log    *zap.Logger
}

func (s *Session) ID() string { return s.id }

func (s *Session) Owner() string { return s.owner }

// Snapshot is always allowed, including while a save is running.
func (s *Session) Snapshot() domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg.Snapshot()
}

// Saving reports whether a commit is in flight.
func (s *Session) Saving() bool { return s.saving.Load() }

func (s *Session) mutate(ctx context.Context, a actor.Actor, fn func(agg *domain.Aggregate) error) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saving.Load() {
		return s.agg.Snapshot(), domain.ErrCommitInFlight
	}
	if !s.policy.CanMutate(ctx, s.agg.Status(), a) {
		s.log.Warn("mutation rejected for locked order",
			zap.String("session_id", s.id),
			zap.String("status", string(s.agg.Status())),
			zap.String("actor_id", a.ID),
		)
		return s.agg.Snapshot(), domain.ErrPermissionDenied
	}
	if err := fn(s.agg); err != nil {
		return s.agg.Snapshot(), err
	}
	return s.agg.Snapshot(), nil
}

func (s *Session) SelectClient(ctx context.Context, a actor.Actor, client domain.ClientRef) (domain.Order, error) {
	return s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		return agg.SelectClient(client)
	})
}

func (s *Session) AddCatalogLine(ctx context.Context, a actor.Actor, product catalogdomain.Product, qty int) (domain.Order, error) {
	return s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		_, err := agg.AddCatalogLine(product, qty)
		return err
	})
}

func (s *Session) AddManualLine(ctx context.Context, a actor.Actor, description string, qty int, unitPrice decimal.Decimal) (domain.Order, error) {
	return s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		_, err := agg.AddManualLine(description, qty, unitPrice)
		return err
	})
}

func (s *Session) RemoveLine(ctx context.Context, a actor.Actor, lineID string) (domain.Order, error) {
	return s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		return agg.RemoveLine(lineID)
	})
}

func (s *Session) SetQuantity(ctx context.Context, a actor.Actor, lineID string, qty int) (domain.Order, error) {
	return s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		return agg.SetQuantity(lineID, qty)
	})
}

func (s *Session) Increment(ctx context.Context, a actor.Actor, lineID string) (domain.Order, error) {
	return s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		return agg.IncrementQuantity(lineID)
	})
}

func (s *Session) Decrement(ctx context.Context, a actor.Actor, lineID string) (domain.Order, error) {
	return s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		return agg.DecrementQuantity(lineID)
	})
}

func (s *Session) ChangeTier(ctx context.Context, a actor.Actor, tier pricing.Tier) (domain.Order, error) {
	return s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		return agg.ChangeTier(tier)
	})
}

func (s *Session) SetShippingMethod(ctx context.Context, a actor.Actor, method string) (domain.Order, error) {
	return s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		agg.SetShippingMethod(method)
		return nil
	})
}

func (s *Session) SetShippingCost(ctx context.Context, a actor.Actor, cost decimal.Decimal) (domain.Order, error) {
	return s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		return agg.SetShippingCost(cost)
	})
}

// SetShipping applies method and cost together. Nothing changes when cost is rejected.
func (s *Session) SetShipping(ctx context.Context, a actor.Actor, method *string, cost *decimal.Decimal) (domain.Order, error) {
	return s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		if cost != nil && cost.Sign() < 0 {
			return domain.ErrInvalidPrice
		}
		if method != nil {
			agg.SetShippingMethod(*method)
		}
		if cost != nil {
			return agg.SetShippingCost(*cost)
		}
		return nil
	})
}

// SetPostalCode stores the code, then fills the address from the lookup when the
// code is complete. A failed lookup keeps the address as it was.
func (s *Session) SetPostalCode(ctx context.Context, a actor.Actor, raw string) (domain.Order, error) {
	code := freight.CleanPostalCode(raw)
	order, err := s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		agg.SetPostalCode(code)
		return nil
	})
	if err != nil || len(code) != 8 || s.lookup == nil {
		return order, err
	}

	found, err := s.lookup.Lookup(ctx, code)
	if err != nil {
		level := s.log.Warn
		if errors.Is(err, postalcode.ErrNotFound) {
			level = s.log.Info
		}
		level("postal lookup failed, address kept",
			zap.String("session_id", s.id),
			zap.String("postal_code", code),
			zap.NamedError("reason", domain.ErrLookupFailed),
			zap.Error(err),
		)
		return order, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The code may have changed while the lookup was running.
	if s.agg.Snapshot().Address.PostalCode == code && !s.saving.Load() {
		s.agg.EnrichAddress(domain.Address{
			Street:       found.Street,
			Neighborhood: found.Neighborhood,
			City:         found.City,
			State:        found.State,
		})
	}
	return s.agg.Snapshot(), nil
}

func (s *Session) SetAddress(ctx context.Context, a actor.Actor, addr domain.Address) (domain.Order, error) {
	return s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		agg.SetAddress(addr)
		return nil
	})
}

func (s *Session) ApplyDiscountCode(ctx context.Context, a actor.Actor, code string) (domain.Order, error) {
	return s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		return agg.ApplyDiscountCode(code)
	})
}

func (s *Session) ClearDiscount(ctx context.Context, a actor.Actor) (domain.Order, error) {
	return s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		agg.ClearDiscount()
		return nil
	})
}

func (s *Session) SetChannel(ctx context.Context, a actor.Actor, channel string) (domain.Order, error) {
	return s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		agg.SetChannel(channel)
		return nil
	})
}

func (s *Session) TransitionTo(ctx context.Context, a actor.Actor, next domain.Status) (domain.Order, error) {
	return s.mutate(ctx, a, func(agg *domain.Aggregate) error {
		return agg.TransitionTo(next)
	})
}

// Save commits the current snapshot. A second Save while one is running fails
// with ErrCommitInFlight. On error the session stays editable.
func (s *Session) Save(ctx context.Context, a actor.Actor) (domain.Order, error) {
	if !s.saving.CompareAndSwap(false, true) {
		return domain.Order{}, domain.ErrCommitInFlight
	}
	defer s.saving.Store(false)

	s.mu.Lock()
	snap := s.agg.Snapshot()
	s.mu.Unlock()

	if err := snap.Validate(); err != nil {
		return snap, err
	}

	id, err := s.svc.Commit(ctx, a, snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	if id != 0 {
		s.agg.MarkPersisted(id)
	}
	if err != nil {
		return s.agg.Snapshot(), err
	}
	s.log.Info("session saved",
		zap.String("session_id", s.id),
		zap.String("order_id", id.String()),
		zap.String("order_number", snap.Number),
	)
	return s.agg.Snapshot(), nil
}
