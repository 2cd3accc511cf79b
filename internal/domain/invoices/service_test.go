package invoices

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/core/tx"
	"salesflow/internal/core/types"
	"salesflow/internal/domain/customers"
	"salesflow/internal/domain/inventory"
	"salesflow/internal/domain/orders"
	"salesflow/pkg/numerator"
)

type seqNumbers struct {
	n atomic.Int64
}

func (s *seqNumbers) GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
	return fmt.Sprintf("%s-%05d", cfg.Prefix, s.n.Add(1)), nil
}

type fixture struct {
	svc       *Service
	orders    *orders.Service
	stock     *inventory.Service
	customers *customers.Service
	repo      *MemoryRepository

	customer *customers.Customer
	hub      id.ID
	prod     id.ID
	lot      *inventory.Lot
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	invRepo := inventory.NewMemoryRepository()
	stock := inventory.NewService(invRepo, tx.Nop{})

	hub, prod := id.New(), id.New()
	lot, err := stock.Receive(ctx, inventory.ReceiveInput{
		HubID:     hub,
		ProductID: prod,
		BatchNo:   "B1",
		Quantity:  types.NewQuantityFromInt(100),
		Recorder:  inventory.Ref{ID: id.New(), Type: "StockReceipt"},
	})
	require.NoError(t, err)

	repo := NewMemoryRepository()
	custSvc := customers.NewService(customers.NewMemoryRepository(), repo, tx.Nop{})
	customer, err := custSvc.Create(ctx, "Acme Retail", "", "")
	require.NoError(t, err)

	numbers := &seqNumbers{}
	orderSvc := orders.NewService(orders.NewMemoryRepository(), stock, numbers, tx.Nop{})
	svc := NewService(repo, orderSvc, stock, custSvc, numbers, tx.Nop{})

	return &fixture{
		svc:       svc,
		orders:    orderSvc,
		stock:     stock,
		customers: custSvc,
		repo:      repo,
		customer:  customer,
		hub:       hub,
		prod:      prod,
		lot:       lot,
	}
}

func (f *fixture) newOrder(t *testing.T, qty int64) *orders.Order {
	t.Helper()
	o, err := f.orders.Create(context.Background(), orders.CreateInput{
		CustomerID: f.customer.ID,
		Items: []orders.ItemInput{{
			ProductID:       f.prod,
			HubID:           f.hub,
			BatchNo:         "B1",
			Quantity:        types.NewQuantityFromInt(qty),
			UnitPrice:       types.MustMoney("100"),
			DiscountPercent: types.MustMoney("10"),
			TaxRate:         types.MustMoney("18"),
		}},
	})
	require.NoError(t, err)
	return o
}

func TestIssue_FromPendingOrder(t *testing.T) {
	// Order qty 10 at 100 with 10% discount and 18% tax totals 1062.
	f := newFixture(t)
	ctx := context.Background()

	o := f.newOrder(t, 10)
	_, err := f.orders.Submit(ctx, o.ID)
	require.NoError(t, err)

	inv, err := f.svc.Issue(ctx, o.ID)
	require.NoError(t, err)

	assert.True(t, inv.TotalAmount.Equal(types.MustMoney("1062")), "total %s", inv.TotalAmount)
	assert.True(t, inv.PaidAmount.IsZero())
	assert.Equal(t, orders.PaymentPending, inv.PaymentStatus)
	require.Len(t, inv.Items, 1)
	assert.True(t, inv.Items[0].LineTotal.Equal(types.MustMoney("1062")))

	got, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusInvoiced, got.Status)

	c, err := f.customers.Get(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.True(t, c.OutstandingAmount.Equal(types.MustMoney("1062")), "outstanding %s", c.OutstandingAmount)

	// A pending order carried no reservation, so stock is untouched.
	lot, err := f.stock.GetLot(ctx, f.lot.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(100), lot.Quantity)
}

func TestIssue_FromConfirmedOrderConsumesReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o := f.newOrder(t, 30)
	_, err := f.orders.Confirm(ctx, o.ID)
	require.NoError(t, err)

	inv, err := f.svc.Issue(ctx, o.ID)
	require.NoError(t, err)

	lot, err := f.stock.GetLot(ctx, f.lot.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(70), lot.Quantity)
	assert.Equal(t, types.NewQuantityFromInt(0), lot.Reserved)
	assert.Equal(t, types.NewQuantityFromInt(70), lot.Available)
	require.NoError(t, lot.CheckInvariant())

	// The consumption is journaled against the invoice.
	movements, err := f.stock.GetMovementHistory(ctx, f.prod, inventory.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, inv.ID, movements[1].RecorderID)
	assert.Equal(t, inventory.RecordTypeExpense, movements[1].RecordType)
}

func TestIssue_AlreadyInvoiced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o := f.newOrder(t, 10)
	_, err := f.orders.Submit(ctx, o.ID)
	require.NoError(t, err)

	_, err = f.svc.Issue(ctx, o.ID)
	require.NoError(t, err)

	_, err = f.svc.Issue(ctx, o.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyInvoiced))

	// The double issue must not inflate the balance.
	c, err := f.customers.Get(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.True(t, c.OutstandingAmount.Equal(types.MustMoney("1062")))
}

func TestIssue_DraftOrderRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o := f.newOrder(t, 10)
	_, err := f.svc.Issue(ctx, o.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeIllegalStateTransition))
}

func TestIssue_NumbersAreSequential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		o := f.newOrder(t, 1)
		_, err := f.orders.Submit(ctx, o.ID)
		require.NoError(t, err)
		inv, err := f.svc.Issue(ctx, o.ID)
		require.NoError(t, err)
		want := fmt.Sprintf("INV-%05d", i*2)
		assert.Equal(t, want, inv.Number)
	}
}

func TestApplyPayment(t *testing.T) {
	inv := &Invoice{TotalAmount: types.MustMoney("1062"), PaidAmount: types.Zero()}

	require.NoError(t, inv.ApplyPayment(types.MustMoney("662")))
	assert.Equal(t, orders.PaymentPartial, inv.PaymentStatus)
	assert.True(t, inv.Remaining().Equal(types.MustMoney("400")))

	err := inv.ApplyPayment(types.MustMoney("500"))
	assert.True(t, apperror.HasCode(err, apperror.CodeOverPayment))
	assert.True(t, inv.PaidAmount.Equal(types.MustMoney("662")))

	require.NoError(t, inv.ApplyPayment(types.MustMoney("400")))
	assert.Equal(t, orders.PaymentPaid, inv.PaymentStatus)
}

func TestMarkOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o := f.newOrder(t, 10)
	_, err := f.orders.Submit(ctx, o.ID)
	require.NoError(t, err)
	inv, err := f.svc.Issue(ctx, o.ID)
	require.NoError(t, err)

	n, err := f.svc.MarkOverdue(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentOverdue, got.PaymentStatus)
}
