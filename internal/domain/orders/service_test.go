package orders

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
	"salesflow/internal/domain/inventory"
	"salesflow/pkg/numerator"
)

type seqNumbers struct {
	prefix string
	n      atomic.Int64
}

func (s *seqNumbers) GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
	return fmt.Sprintf("%s-%05d", cfg.Prefix, s.n.Add(1)), nil
}

type fixture struct {
	svc   *Service
	stock *inventory.Service
	repo  *MemoryRepository
	hub   id.ID
	prod  id.ID
	lot   *inventory.Lot
}

func newFixture(t *testing.T, available int64) *fixture {
	t.Helper()
	invRepo := inventory.NewMemoryRepository()
	stock := inventory.NewService(invRepo, tx.Nop{})

	hub, prod := id.New(), id.New()
	lot, err := stock.Receive(context.Background(), inventory.ReceiveInput{
		HubID:     hub,
		ProductID: prod,
		BatchNo:   "B1",
		Quantity:  types.NewQuantityFromInt(available),
		Recorder:  inventory.Ref{ID: id.New(), Type: "StockReceipt"},
	})
	require.NoError(t, err)

	repo := NewMemoryRepository()
	svc := NewService(repo, stock, &seqNumbers{}, tx.Nop{})
	return &fixture{svc: svc, stock: stock, repo: repo, hub: hub, prod: prod, lot: lot}
}

func (f *fixture) item(qty int64) ItemInput {
	return ItemInput{
		ProductID:       f.prod,
		HubID:           f.hub,
		BatchNo:         "B1",
		Quantity:        types.NewQuantityFromInt(qty),
		UnitPrice:       types.MustMoney("100"),
		DiscountPercent: types.MustMoney("10"),
		TaxRate:         types.MustMoney("18"),
	}
}

func TestCreate_PricesItems(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	o, err := f.svc.Create(ctx, CreateInput{
		CustomerID:    id.New(),
		Items:         []ItemInput{f.item(10)},
		OrderDiscount: types.Zero(),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, "ORD-00001", o.Number)
	require.Len(t, o.Items, 1)

	line := o.Items[0]
	assert.True(t, line.Subtotal.Equal(types.MustMoney("1000")))
	assert.True(t, line.DiscountAmount.Equal(types.MustMoney("100")))
	assert.True(t, line.TaxableAmount.Equal(types.MustMoney("900")))
	assert.True(t, line.TaxAmount.Equal(types.MustMoney("162")))
	assert.True(t, line.LineTotal.Equal(types.MustMoney("1062")))
	assert.True(t, o.TotalAmount.Equal(types.MustMoney("1062")))
}

func TestCreate_Rejections(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{CustomerID: id.New()})
	assert.True(t, apperror.HasCode(err, apperror.CodeEmptyOrder))

	_, err = f.svc.Create(ctx, CreateInput{Items: []ItemInput{f.item(1)}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	bad := f.item(0)
	_, err = f.svc.Create(ctx, CreateInput{CustomerID: id.New(), Items: []ItemInput{bad}})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidLineItem))
}

func TestConfirm_ReservesStock(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	o, err := f.svc.Create(ctx, CreateInput{CustomerID: id.New(), Items: []ItemInput{f.item(30)}})
	require.NoError(t, err)

	o, err = f.svc.Confirm(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, f.lot.ID, o.Items[0].LotID)

	lot, err := f.stock.GetLot(ctx, f.lot.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(30), lot.Reserved)
	assert.Equal(t, types.NewQuantityFromInt(70), lot.Available)
}

func TestConfirm_InsufficientStockLeavesNothingReserved(t *testing.T) {
	f := newFixture(t, 50)
	ctx := context.Background()

	// Second line overshoots; the first line's reservation must be undone.
	o, err := f.svc.Create(ctx, CreateInput{
		CustomerID: id.New(),
		Items:      []ItemInput{f.item(30), f.item(40)},
	})
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, o.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	lot, err := f.stock.GetLot(ctx, f.lot.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(0), lot.Reserved)
	assert.Equal(t, types.NewQuantityFromInt(50), lot.Available)

	got, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, got.Status)
}

func TestCancel_ReleasesReservation(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	o, err := f.svc.Create(ctx, CreateInput{CustomerID: id.New(), Items: []ItemInput{f.item(30)}})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, o.ID)
	require.NoError(t, err)

	o, err = f.svc.Cancel(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)

	lot, err := f.stock.GetLot(ctx, f.lot.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(0), lot.Reserved)
	assert.Equal(t, types.NewQuantityFromInt(100), lot.Available)
}

func TestTransitions_Illegal(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	o, err := f.svc.Create(ctx, CreateInput{CustomerID: id.New(), Items: []ItemInput{f.item(10)}})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, o.ID)
	require.NoError(t, err)

	// Cancelled is terminal.
	_, err = f.svc.Confirm(ctx, o.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeIllegalStateTransition))
	_, err = f.svc.MarkInvoiced(ctx, o.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeIllegalStateTransition))
}

func TestUpdateItems_OnlyWhileEditable(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	o, err := f.svc.Create(ctx, CreateInput{CustomerID: id.New(), Items: []ItemInput{f.item(10)}})
	require.NoError(t, err)

	o, err = f.svc.UpdateItems(ctx, o.ID, []ItemInput{f.item(5)}, types.Zero())
	require.NoError(t, err)
	assert.True(t, o.TotalAmount.Equal(types.MustMoney("531")), "got %s", o.TotalAmount)

	_, err = f.svc.Confirm(ctx, o.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateItems(ctx, o.ID, []ItemInput{f.item(3)}, types.Zero())
	assert.True(t, apperror.HasCode(err, apperror.CodeIllegalStateTransition))
}

func TestSetPaymentStatus(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	o, err := f.svc.Create(ctx, CreateInput{CustomerID: id.New(), Items: []ItemInput{f.item(10)}})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetPaymentStatus(ctx, o.ID, PaymentPartial))
	got, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentPartial, got.PaymentStatus)
}
