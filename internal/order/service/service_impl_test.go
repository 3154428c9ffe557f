package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/orderdesk/internal/actor"
	catalogdomain "github.com/smallbiznis/orderdesk/internal/catalog/domain"
	clientdomain "github.com/smallbiznis/orderdesk/internal/clientdirectory/domain"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/lockpolicy"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/order/repository"
	"github.com/smallbiznis/orderdesk/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	seller  = actor.Actor{ID: "42", Roles: []string{"sales"}}
	owner   = actor.Actor{ID: "1", Roles: []string{"owner"}}
	testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	policy *lockpolicy.Policy
	clock  *clock.FakeClock
	svc    domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t, &domain.OrderRecord{}, &domain.OrderLineRecord{}, &domain.StockMovement{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{
		db:     db,
		node:   node,
		policy: lockpolicy.New(lockpolicy.Params{Log: zap.NewNop()}),
		clock:  clock.NewFakeClock(testNow),
	}
	f.svc = New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   repository.Provide(),
		Policy: f.policy,
		Clock:  f.clock,
	})
	return f
}

func (f *fixture) product(name, weight, price string) catalogdomain.Product {
	return catalogdomain.Product{
		ID:            f.node.Generate(),
		Name:          name,
		Kind:          catalogdomain.KindProduct,
		WeightKg:      decimal.RequireFromString(weight),
		PriceStandard: decimal.RequireFromString(price),
		Active:        true,
	}
}

func (f *fixture) client() domain.ClientRef {
	return domain.ClientRef{ID: f.node.Generate(), Type: clientdomain.ClientTypeProspect, Name: "Oficina Beta"}
}

// cart builds an order with two catalog lines and one manual line.
func (f *fixture) cart(t *testing.T) *domain.Aggregate {
	t.Helper()
	agg := domain.NewAggregate(domain.DefaultRules(), testNow)
	require.NoError(t, agg.SelectClient(f.client()))
	_, err := agg.AddCatalogLine(f.product("Gear Pump", "1.0", "100.00"), 2)
	require.NoError(t, err)
	_, err = agg.AddCatalogLine(f.product("Filter Kit", "0.2", "35.50"), 1)
	require.NoError(t, err)
	_, err = agg.AddManualLine("Installation visit", 1, decimal.RequireFromString("80.00"))
	require.NoError(t, err)
	agg.SetPostalCode("01001-000")
	return agg
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}

func TestCommit_NewOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.cart(t).Snapshot()

	id, err := f.svc.Commit(ctx, seller, order)
	require.NoError(t, err)
	require.NotZero(t, id)

	lines, err := f.svc.ListLines(ctx, id)
	require.NoError(t, err)
	require.Len(t, lines, 2, "manual lines are not mirrored")
	assert.Equal(t, "Gear Pump", lines[0].Description)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "200.00", lines[0].TotalPrice.StringFixed(2))
	assert.Equal(t, "Filter Kit", lines[1].Description)

	movements, err := f.svc.ListMovements(ctx, id)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	for _, m := range movements {
		assert.Equal(t, domain.MovementTypeReservation, m.MovementType)
		assert.Equal(t, order.Number, m.Reference)
	}

	loaded, err := f.svc.Load(ctx, id.String())
	require.NoError(t, err)
	assert.Equal(t, id, loaded.ID)
	assert.Equal(t, order.Number, loaded.Number)
	require.Len(t, loaded.Lines, 3)
	assert.Equal(t, domain.LineKindManual, loaded.Lines[2].Kind())
	assert.True(t, order.Total.Equal(loaded.Total), "total %s != %s", loaded.Total, order.Total)
	assert.True(t, order.ShippingCost.Equal(loaded.ShippingCost))
	assert.Equal(t, "01001000", loaded.Address.PostalCode)
}

func TestCommit_ReplacesMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agg := f.cart(t)

	id, err := f.svc.Commit(ctx, seller, agg.Snapshot())
	require.NoError(t, err)
	agg.MarkPersisted(id)

	before, err := f.svc.ListLines(ctx, id)
	require.NoError(t, err)

	snap := agg.Snapshot()
	require.NoError(t, agg.RemoveLine(snap.Lines[1].LineID()))
	require.NoError(t, agg.SetQuantity(snap.Lines[0].LineID(), 5))

	again, err := f.svc.Commit(ctx, seller, agg.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, id, again)

	after, err := f.svc.ListLines(ctx, id)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, 5, after[0].Quantity)
	assert.NotEqual(t, before[0].ID, after[0].ID, "lines are replaced, not patched")

	movements, err := f.svc.ListMovements(ctx, id)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, 5, movements[0].Quantity)

	assert.EqualValues(t, 1, countRows(t, f.db, "orders"))
}

func TestCommit_ValidationTouchesNoStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty := domain.NewAggregate(domain.DefaultRules(), testNow)
	require.NoError(t, empty.SelectClient(f.client()))
	_, err := f.svc.Commit(ctx, seller, empty.Snapshot())
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	noClient := domain.NewAggregate(domain.DefaultRules(), testNow)
	_, err = noClient.AddCatalogLine(f.product("Gear Pump", "1.0", "100.00"), 1)
	require.NoError(t, err)
	_, err = f.svc.Commit(ctx, seller, noClient.Snapshot())
	assert.ErrorIs(t, err, domain.ErrMissingClient)

	assert.Zero(t, countRows(t, f.db, "orders"))
}

func TestCommit_LockedOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agg := f.cart(t)

	id, err := f.svc.Commit(ctx, seller, agg.Snapshot())
	require.NoError(t, err)
	agg.MarkPersisted(id)

	require.NoError(t, agg.TransitionTo(domain.StatusPaid))
	_, err = f.svc.Commit(ctx, seller, agg.Snapshot())
	require.NoError(t, err, "a pending order may be marked paid")

	require.NoError(t, agg.SetShippingCost(decimal.RequireFromString("10.00")))
	_, err = f.svc.Commit(ctx, seller, agg.Snapshot())
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	stored, err := f.svc.Load(ctx, id.String())
	require.NoError(t, err)
	assert.False(t, stored.ShippingCost.Equal(decimal.RequireFromString("10.00")))

	_, err = f.svc.Commit(ctx, owner, agg.Snapshot())
	require.NoError(t, err)

	stored, err = f.svc.Load(ctx, id.String())
	require.NoError(t, err)
	assert.Equal(t, "10.00", stored.ShippingCost.StringFixed(2))

	capable := actor.Actor{ID: "77", Capabilities: []string{lockpolicy.CapabilityOverride}}
	_, err = f.svc.Commit(ctx, capable, agg.Snapshot())
	assert.NoError(t, err)
}

func TestCommit_UpdateOfMissingOrder(t *testing.T) {
	f := newFixture(t)
	agg := f.cart(t)
	agg.MarkPersisted(f.node.Generate())

	_, err := f.svc.Commit(context.Background(), seller, agg.Snapshot())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistenceFailed)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, StepUpdateHeader, perr.Step)
}

func TestCommit_MirrorFailureKeepsHeader(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.Migrator().DropTable(&domain.OrderLineRecord{}))

	id, err := f.svc.Commit(ctx, seller, f.cart(t).Snapshot())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistenceFailed)
	require.NotZero(t, id, "header id is returned so a retry updates instead of inserting")

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, StepDeleteLines, perr.Step)
	assert.Contains(t, err.Error(), "order_lines", "storage message is kept verbatim")

	_, err = f.svc.Load(ctx, id.String())
	require.NoError(t, err)

	require.NoError(t, f.db.AutoMigrate(&domain.OrderLineRecord{}))
	require.NoError(t, f.svc.RebuildMirror(ctx, id))

	lines, err := f.svc.ListLines(ctx, id)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestRebuildMirror_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.Commit(ctx, seller, f.cart(t).Snapshot())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, f.svc.RebuildMirror(ctx, id))
	}
	assert.EqualValues(t, 2, countRows(t, f.db, "order_lines"))
	assert.EqualValues(t, 2, countRows(t, f.db, "stock_movements"))

	assert.ErrorIs(t, f.svc.RebuildMirror(ctx, f.node.Generate()), domain.ErrNotFound)
}

func TestLoad_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Load(ctx, "not-an-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Load(ctx, f.node.Generate().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
