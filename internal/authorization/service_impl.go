package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/orderdesk/internal/actor"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectOrder         = "order"
	ActionOrderOverride = "order.override"
)

// AdministratorRoles always hold the override.
var AdministratorRoles = []string{"owner", "admin", "superadmin"}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies from the casbin_rule table and seeds the
// administrator grants.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	return newEnforcer(adapter)
}

// NewMemoryEnforcer builds an enforcer without a backing store.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	return newEnforcer(nil)
}

func newEnforcer(adapter persist.Adapter) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	var enforcer *casbin.SyncedEnforcer
	if adapter != nil {
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	}
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(adapter != nil)
	enforcer.EnableAutoBuildRoleLinks(true)
	if adapter != nil {
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, err
		}
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) HasOverride(ctx context.Context, a actor.Actor) (bool, error) {
	if strings.TrimSpace(a.ID) == "" {
		return false, ErrInvalidActor
	}

	subjects := make([]string, 0, len(a.Roles)+1)
	subjects = append(subjects, a.Subject())
	for _, role := range a.Roles {
		if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
			subjects = append(subjects, "role:"+role)
		}
	}

	for _, subject := range subjects {
		allowed, err := s.enforcer.Enforce(subject, ObjectOrder, ActionOrderOverride)
		if err != nil {
			return false, err
		}
		if allowed {
			s.log.Debug("override granted",
				zap.String("actor_id", a.ID),
				zap.String("subject", subject),
			)
			return true, nil
		}
	}
	return false, nil
}

// GrantOverride gives subject ("user:<id>" or "role:<name>") the override.
func (s *ServiceImpl) GrantOverride(ctx context.Context, subject string) error {
	subject = strings.TrimSpace(subject)
	if !validSubject(subject) {
		return ErrInvalidSubject
	}
	if _, err := s.enforcer.AddPolicy(subject, ObjectOrder, ActionOrderOverride); err != nil {
		return err
	}
	s.log.Info("override grant added", zap.String("subject", subject))
	return nil
}

func (s *ServiceImpl) RevokeOverride(ctx context.Context, subject string) error {
	subject = strings.TrimSpace(subject)
	if !validSubject(subject) {
		return ErrInvalidSubject
	}
	if _, err := s.enforcer.RemovePolicy(subject, ObjectOrder, ActionOrderOverride); err != nil {
		return err
	}
	s.log.Info("override grant removed", zap.String("subject", subject))
	return nil
}

func validSubject(subject string) bool {
	for _, prefix := range []string{"user:", "role:"} {
		if strings.HasPrefix(subject, prefix) && len(subject) > len(prefix) {
			return true
		}
	}
	return false
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	for _, role := range AdministratorRoles {
		has, err := enforcer.HasPolicy("role:"+role, ObjectOrder, ActionOrderOverride)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy("role:"+role, ObjectOrder, ActionOrderOverride); err != nil {
			return err
		}
	}
	return nil
}
