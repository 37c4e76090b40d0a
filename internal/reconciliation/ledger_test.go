package reconciliation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canteen/internal/domain"
	"canteen/internal/errors"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func newTestReconciliation(session string) domain.Reconciliation {
	customer := "u-1"
	return domain.Reconciliation{
		SessionID:  session,
		GatewayRef: "tx-" + session,
		Amount:     decimal.RequireFromString("126.00"),
		CustomerID: &customer,
		Items: []domain.LineItem{
			{Kind: domain.LineItemMenu, ItemID: 1, Name: "Veg Thali", UnitPrice: decimal.NewFromInt(60), Quantity: 2},
		},
		Cause:     "inserting order: connection refused",
		CreatedAt: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
	}
}

func TestLedger_RecordAndList(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	first, err := ledger.Record(ctx, newTestReconciliation("s-1"))
	require.NoError(t, err)
	second, err := ledger.Record(ctx, newTestReconciliation("s-2"))
	require.NoError(t, err)
	assert.Greater(t, second, first)

	open, err := ledger.ListUnresolved(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)

	rec := open[0]
	assert.Equal(t, first, rec.ID)
	assert.Equal(t, "s-1", rec.SessionID)
	assert.Equal(t, "tx-s-1", rec.GatewayRef)
	assert.Equal(t, "126", rec.Amount.String())
	require.NotNil(t, rec.CustomerID)
	assert.Equal(t, "u-1", *rec.CustomerID)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, "Veg Thali", rec.Items[0].Name)
	assert.True(t, rec.CreatedAt.Equal(time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)))
	assert.False(t, rec.Resolved())
}

func TestLedger_GuestCustomer(t *testing.T) {
	ledger := openTestLedger(t)
	ctx := context.Background()

	rec := newTestReconciliation("s-guest")
	rec.CustomerID = nil
	id, err := ledger.Record(ctx, rec)
	require.NoError(t, err)

	got, err := ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got.CustomerID)
}

func TestLedger_Resolve(t *testing.T) {
	ledger := openTestLedger(t)
	resolvedAt := time.Date(2026, 10, 16, 13, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return resolvedAt }
	ctx := context.Background()

	id, err := ledger.Record(ctx, newTestReconciliation("s-1"))
	require.NoError(t, err)

	rec, err := ledger.Resolve(ctx, id)
	require.NoError(t, err)
	require.True(t, rec.Resolved())
	assert.True(t, resolvedAt.Equal(*rec.ResolvedAt))

	// a second resolution keeps the first timestamp
	ledger.now = func() time.Time { return resolvedAt.Add(time.Hour) }
	rec, err = ledger.Resolve(ctx, id)
	require.NoError(t, err)
	assert.True(t, resolvedAt.Equal(*rec.ResolvedAt))

	open, err := ledger.ListUnresolved(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestLedger_Resolve_NotFound(t *testing.T) {
	ledger := openTestLedger(t)

	_, err := ledger.Resolve(context.Background(), 42)
	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)

	_, err = ledger.Get(context.Background(), 42)
	_, ok = errors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestLedger_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	ledger, err := Open(path)
	require.NoError(t, err)
	_, err = ledger.Record(ctx, newTestReconciliation("s-1"))
	require.NoError(t, err)
	require.NoError(t, ledger.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	open, err := reopened.ListUnresolved(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}
