package lockpolicy

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/orderdesk/internal/actor"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockOverrides struct {
	mock.Mock
}

func (m *mockOverrides) HasOverride(ctx context.Context, a actor.Actor) (bool, error) {
	args := m.Called(ctx, a)
	return args.Bool(0), args.Error(1)
}

func TestIsLocked(t *testing.T) {
	cases := map[orderdomain.Status]bool{
		orderdomain.StatusPending:   false,
		orderdomain.StatusCancelled: false,
		orderdomain.StatusPaid:      true,
		orderdomain.StatusProducing: true,
		orderdomain.StatusShipped:   true,
		orderdomain.StatusDelivered: true,
	}
	for status, want := range cases {
		assert.Equal(t, want, IsLocked(status), string(status))
	}
}

func TestCanMutate(t *testing.T) {
	ctx := context.Background()
	seller := actor.Actor{ID: "10", Roles: []string{"sales"}}

	overrides := &mockOverrides{}
	overrides.On("HasOverride", ctx, seller).Return(false, nil)
	policy := New(Params{Log: zap.NewNop(), Overrides: overrides})

	assert.True(t, policy.CanMutate(ctx, orderdomain.StatusPending, seller))
	assert.True(t, policy.CanMutate(ctx, orderdomain.StatusCancelled, seller))
	assert.False(t, policy.CanMutate(ctx, orderdomain.StatusPaid, seller))

	admin := actor.Actor{ID: "11", Roles: []string{"ADMIN"}}
	assert.True(t, policy.CanMutate(ctx, orderdomain.StatusShipped, admin))

	capable := actor.Actor{ID: "12", Capabilities: []string{CapabilityOverride}}
	assert.True(t, policy.CanMutate(ctx, orderdomain.StatusDelivered, capable))

	overrides.AssertNotCalled(t, "HasOverride", ctx, admin)
	overrides.AssertNotCalled(t, "HasOverride", ctx, capable)
}

func TestCanMutate_StoredGrant(t *testing.T) {
	ctx := context.Background()
	granted := actor.Actor{ID: "20"}
	broken := actor.Actor{ID: "21"}

	overrides := &mockOverrides{}
	overrides.On("HasOverride", ctx, granted).Return(true, nil)
	overrides.On("HasOverride", ctx, broken).Return(false, errors.New("db down"))
	policy := New(Params{Log: zap.NewNop(), Overrides: overrides})

	assert.True(t, policy.CanMutate(ctx, orderdomain.StatusProducing, granted))
	assert.False(t, policy.CanMutate(ctx, orderdomain.StatusProducing, broken))
	overrides.AssertExpectations(t)
}

func TestCanMutate_WithoutGrantStore(t *testing.T) {
	policy := New(Params{Log: zap.NewNop()})
	assert.False(t, policy.CanMutate(context.Background(), orderdomain.StatusPaid, actor.Actor{ID: "1"}))
}
