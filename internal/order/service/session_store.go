package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/orderdesk/internal/actor"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/lockpolicy"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/postalcode"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type StoreParams struct {
	fx.In

	Log      *zap.Logger
	Service  domain.Service
	Policy   *lockpolicy.Policy
	Clock    clock.Clock
	Lookup   postalcode.Lookup            `optional:"true"`
	Commerce *config.CommerceConfigHolder `optional:"true"`
	Metrics  *metrics.Metrics             `optional:"true"`
}

// SessionStore keeps the open editing sessions in memory. Sessions are owned
// by the actor that opened them.
type SessionStore struct {
	log      *zap.Logger
	svc      domain.Service
	policy   *lockpolicy.Policy
	clock    clock.Clock
	lookup   postalcode.Lookup
	commerce *config.CommerceConfigHolder
	metrics  *metrics.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionStore(p StoreParams) *SessionStore {
	return &SessionStore{
		log:      p.Log.Named("order.session"),
		svc:      p.Service,
		policy:   p.Policy,
		clock:    p.Clock,
		lookup:   p.Lookup,
		commerce: p.Commerce,
		metrics:  p.Metrics,
		sessions: map[string]*Session{},
	}
}

// rules reads the commerce parameters at session start; later reloads do not
// reprice an open session.
func (st *SessionStore) rules() domain.Rules {
	if st.commerce == nil {
		return domain.DefaultRules()
	}
	return st.commerce.Rules()
}

// Open starts a session on a new pending order.
func (st *SessionStore) Open(a actor.Actor) (*Session, error) {
	if strings.TrimSpace(a.ID) == "" {
		return nil, domain.ErrPermissionDenied
	}
	agg := domain.NewAggregate(st.rules(), st.clock.Now())
	return st.register(a, agg), nil
}

// Resume starts a session on a stored order.
func (st *SessionStore) Resume(ctx context.Context, a actor.Actor, orderID string) (*Session, error) {
	if strings.TrimSpace(a.ID) == "" {
		return nil, domain.ErrPermissionDenied
	}
	order, err := st.svc.Load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	agg := domain.Rehydrate(st.rules(), order)
	return st.register(a, agg), nil
}

func (st *SessionStore) register(a actor.Actor, agg *domain.Aggregate) *Session {
	s := &Session{
		id:     uuid.NewString(),
		owner:  a.ID,
		agg:    agg,
		svc:    st.svc,
		policy: st.policy,
		lookup: st.lookup,
	}
	s.log = st.log.With(zap.String("session_id", s.id))
	s.lastSeen.Store(st.clock.Now().UnixNano())

	st.mu.Lock()
	st.sessions[s.id] = s
	n := len(st.sessions)
	st.mu.Unlock()

	st.metrics.SetActiveSessions(n)
	st.log.Info("session opened",
		zap.String("session_id", s.id),
		zap.String("actor_id", a.ID),
		zap.String("order_number", agg.Snapshot().Number),
	)
	return s
}

// Get returns the session only to its owner.
func (st *SessionStore) Get(id string, a actor.Actor) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok || s.owner != a.ID {
		return nil, domain.ErrSessionNotFound
	}
	s.lastSeen.Store(st.clock.Now().UnixNano())
	return s, nil
}

// Discard drops the in-memory state. Nothing is persisted.
func (st *SessionStore) Discard(id string, a actor.Actor) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	if !ok || s.owner != a.ID {
		st.mu.Unlock()
		return domain.ErrSessionNotFound
	}
	delete(st.sessions, id)
	n := len(st.sessions)
	st.mu.Unlock()

	st.metrics.SetActiveSessions(n)
	st.log.Info("session discarded", zap.String("session_id", id), zap.String("actor_id", a.ID))
	return nil
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep discards sessions not touched within idle. Sessions with a save in
// flight are kept.
func (st *SessionStore) Sweep(idle time.Duration) int {
	cutoff := st.clock.Now().Add(-idle).UnixNano()

	st.mu.Lock()
	expired := make([]string, 0)
	for id, s := range st.sessions {
		if s.lastSeen.Load() < cutoff && !s.Saving() {
			expired = append(expired, id)
			delete(st.sessions, id)
		}
	}
	n := len(st.sessions)
	st.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}
	st.metrics.SetActiveSessions(n)
	st.log.Info("idle sessions discarded",
		zap.Int("count", len(expired)),
		zap.Duration("idle", idle),
	)
	return len(expired)
}
