package transfers

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
	n atomic.Int64
}

func (s *seqNumbers) GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
	return fmt.Sprintf("%s-%05d", cfg.Prefix, s.n.Add(1)), nil
}

type fixture struct {
	svc   *Service
	stock *inventory.Service

	hubX id.ID
	hubY id.ID
	prod id.ID
	lot  *inventory.Lot
}

// newFixture stocks 70 units of batch B1 at hub X.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	invRepo := inventory.NewMemoryRepository()
	stock := inventory.NewService(invRepo, tx.Nop{})

	hubX, hubY, prod := id.New(), id.New(), id.New()
	lot, err := stock.Receive(context.Background(), inventory.ReceiveInput{
		HubID:     hubX,
		ProductID: prod,
		BatchNo:   "B1",
		Quantity:  types.NewQuantityFromInt(70),
		Recorder:  inventory.Ref{ID: id.New(), Type: "StockReceipt"},
	})
	require.NoError(t, err)

	svc := NewService(NewMemoryRepository(), stock, &seqNumbers{}, tx.Nop{})
	return &fixture{svc: svc, stock: stock, hubX: hubX, hubY: hubY, prod: prod, lot: lot}
}

func (f *fixture) create(t *testing.T, qty int64) *Transfer {
	t.Helper()
	tr, err := f.svc.Create(context.Background(), CreateInput{
		FromHubID:    f.hubX,
		ToHubID:      f.hubY,
		TransferType: TypeHubToHub,
		RequestedBy:  "operator-1",
		Items:        []ItemInput{{ProductID: f.prod, BatchNo: "B1", Quantity: types.NewQuantityFromInt(qty)}},
	})
	require.NoError(t, err)
	return tr
}

// systemQuantity sums the product's on-hand quantity across all hubs.
func (f *fixture) systemQuantity(t *testing.T) types.Quantity {
	t.Helper()
	total, err := f.stock.GetProductAvailability(context.Background(), f.prod)
	require.NoError(t, err)
	return total
}

func TestTransferLifecycle(t *testing.T) {
	// Scenario: move 20 of 70 units from hub X to hub Y.
	f := newFixture(t)
	ctx := context.Background()

	tr := f.create(t, 20)
	assert.Equal(t, StatusPending, tr.Status)
	assert.Equal(t, "TRF-00001", tr.Number)

	tr, err := f.svc.Approve(ctx, tr.ID, "manager-1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, tr.Status)
	assert.Equal(t, "manager-1", tr.ApprovedBy)

	tr, err = f.svc.Dispatch(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInTransit, tr.Status)
	require.NotNil(t, tr.DispatchedAt)

	src, err := f.stock.GetLot(ctx, f.lot.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(50), src.Available)
	assert.Equal(t, types.NewQuantityFromInt(50), src.Quantity)

	tr, err = f.svc.Receive(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, tr.Status)
	require.NotNil(t, tr.CompletedAt)

	dst, err := f.stock.GetLotByKey(ctx, f.hubY, f.prod, "B1")
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(20), dst.Quantity)

	// Conservation: the product total is unchanged.
	assert.Equal(t, types.NewQuantityFromInt(70), f.systemQuantity(t))
}

func TestCreate_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{
		FromHubID:    f.hubX,
		ToHubID:      f.hubX,
		TransferType: TypeHubToHub,
		Items:        []ItemInput{{ProductID: f.prod, BatchNo: "B1", Quantity: types.NewQuantityFromInt(1)}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.Create(ctx, CreateInput{
		FromHubID:    f.hubX,
		ToHubID:      f.hubY,
		TransferType: TypeHubToHub,
		Items:        []ItemInput{{ProductID: f.prod, BatchNo: "B1", Quantity: types.NewQuantityFromInt(0)}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity))

	// Soft availability check at creation time.
	_, err = f.svc.Create(ctx, CreateInput{
		FromHubID:    f.hubX,
		ToHubID:      f.hubY,
		TransferType: TypeHubToHub,
		Items:        []ItemInput{{ProductID: f.prod, BatchNo: "B1", Quantity: types.NewQuantityFromInt(71)}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	_, err = f.svc.Create(ctx, CreateInput{
		FromHubID:    f.hubX,
		ToHubID:      f.hubY,
		TransferType: Type("teleport"),
		Items:        []ItemInput{{ProductID: f.prod, BatchNo: "B1", Quantity: types.NewQuantityFromInt(1)}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestDispatch_RequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tr := f.create(t, 20)
	_, err := f.svc.Dispatch(ctx, tr.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeIllegalStateTransition))
}

func TestDispatch_Idempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tr := f.create(t, 20)
	_, err := f.svc.Approve(ctx, tr.ID, "manager-1")
	require.NoError(t, err)
	_, err = f.svc.Dispatch(ctx, tr.ID)
	require.NoError(t, err)

	// A retry of an already dispatched transfer must not move stock twice.
	_, err = f.svc.Dispatch(ctx, tr.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeIllegalStateTransition))

	src, err := f.stock.GetLot(ctx, f.lot.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(50), src.Quantity)
}

func TestDispatch_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Second batch exists but holds too little.
	_, err := f.stock.Receive(ctx, inventory.ReceiveInput{
		HubID:     f.hubX,
		ProductID: f.prod,
		BatchNo:   "B2",
		Quantity:  types.NewQuantityFromInt(5),
		Recorder:  inventory.Ref{ID: id.New(), Type: "StockReceipt"},
	})
	require.NoError(t, err)

	tr, err := f.svc.Create(ctx, CreateInput{
		FromHubID:    f.hubX,
		ToHubID:      f.hubY,
		TransferType: TypeHubToHub,
		Items: []ItemInput{
			{ProductID: f.prod, BatchNo: "B1", Quantity: types.NewQuantityFromInt(10)},
			{ProductID: f.prod, BatchNo: "B2", Quantity: types.NewQuantityFromInt(5)},
		},
	})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, tr.ID, "manager-1")
	require.NoError(t, err)

	// Stock in B2 disappears between approval and dispatch.
	b2, err := f.stock.GetLotByKey(ctx, f.hubX, f.prod, "B2")
	require.NoError(t, err)
	require.NoError(t, f.stock.Reserve(ctx, b2.ID, types.NewQuantityFromInt(3)))

	_, err = f.svc.Dispatch(ctx, tr.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	// Neither line moved.
	b1, err := f.stock.GetLot(ctx, f.lot.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(70), b1.Quantity)
	b2, err = f.stock.GetLotByKey(ctx, f.hubX, f.prod, "B2")
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(5), b2.Quantity)

	got, err := f.svc.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
}

func TestReceive_RequiresDispatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tr := f.create(t, 20)
	_, err := f.svc.Approve(ctx, tr.ID, "manager-1")
	require.NoError(t, err)

	// The workflow cannot skip in_transit.
	_, err = f.svc.Receive(ctx, tr.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeIllegalStateTransition))
}

func TestCancel_OnlyBeforeDispatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tr := f.create(t, 20)
	cancelled, err := f.svc.Cancel(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	// Stock never moved.
	src, err := f.stock.GetLot(ctx, f.lot.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(70), src.Quantity)

	tr = f.create(t, 20)
	_, err = f.svc.Approve(ctx, tr.ID, "manager-1")
	require.NoError(t, err)
	_, err = f.svc.Dispatch(ctx, tr.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, tr.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeIllegalStateTransition))
}

func TestReceive_InheritsExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expiry := time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)
	_, err := f.stock.Receive(ctx, inventory.ReceiveInput{
		HubID:      f.hubX,
		ProductID:  f.prod,
		BatchNo:    "B3",
		Quantity:   types.NewQuantityFromInt(10),
		ExpiryDate: &expiry,
		Recorder:   inventory.Ref{ID: id.New(), Type: "StockReceipt"},
	})
	require.NoError(t, err)

	tr, err := f.svc.Create(ctx, CreateInput{
		FromHubID:    f.hubX,
		ToHubID:      f.hubY,
		TransferType: TypeHubToHub,
		Items:        []ItemInput{{ProductID: f.prod, BatchNo: "B3", Quantity: types.NewQuantityFromInt(10)}},
	})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, tr.ID, "manager-1")
	require.NoError(t, err)
	_, err = f.svc.Dispatch(ctx, tr.ID)
	require.NoError(t, err)
	_, err = f.svc.Receive(ctx, tr.ID)
	require.NoError(t, err)

	dst, err := f.stock.GetLotByKey(ctx, f.hubY, f.prod, "B3")
	require.NoError(t, err)
	require.NotNil(t, dst.ExpiryDate)
	assert.True(t, dst.ExpiryDate.Equal(expiry))
}
