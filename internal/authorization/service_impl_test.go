package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/orderdesk/internal/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestHasOverride_SeededRoles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, role := range []string{"owner", "Admin", "superadmin"} {
		ok, err := svc.HasOverride(ctx, actor.Actor{ID: "1", Roles: []string{role}})
		require.NoError(t, err)
		assert.True(t, ok, role)
	}

	ok, err := svc.HasOverride(ctx, actor.Actor{ID: "1", Roles: []string{"sales"}})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.HasOverride(ctx, actor.Actor{})
	assert.ErrorIs(t, err, ErrInvalidActor)
}

func TestGrantAndRevokeOverride(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	seller := actor.Actor{ID: "77", Roles: []string{"sales"}}

	require.NoError(t, svc.GrantOverride(ctx, seller.Subject()))
	ok, err := svc.HasOverride(ctx, seller)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.RevokeOverride(ctx, seller.Subject()))
	ok, err = svc.HasOverride(ctx, seller)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.GrantOverride(ctx, "role:sales"))
	ok, err = svc.HasOverride(ctx, seller)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, svc.GrantOverride(ctx, "sales"), ErrInvalidSubject)
	assert.ErrorIs(t, svc.GrantOverride(ctx, "user:"), ErrInvalidSubject)
}
