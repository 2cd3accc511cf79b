package returns

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
	hub   id.ID
	prod  id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	invRepo := inventory.NewMemoryRepository()
	stock := inventory.NewService(invRepo, tx.Nop{})
	svc := NewService(NewMemoryRepository(), stock, &seqNumbers{}, tx.Nop{})
	return &fixture{svc: svc, stock: stock, hub: id.New(), prod: id.New()}
}

func (f *fixture) create(t *testing.T, items ...ItemInput) *ProductReturn {
	t.Helper()
	r, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID: id.New(),
		InvoiceID:  id.New(),
		HubID:      f.hub,
		Reason:     "customer complaint",
		Items:      items,
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) item(qty int64, cond Condition) ItemInput {
	return ItemInput{
		ProductID: f.prod,
		BatchNo:   "B1",
		Quantity:  types.NewQuantityFromInt(qty),
		UnitPrice: types.MustMoney("100"),
		Condition: cond,
	}
}

func TestProcess_RestocksGoodItemsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.create(t, f.item(5, ConditionGood), f.item(3, ConditionDamaged), f.item(2, ConditionExpired))
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, "RET-00001", r.Number)

	_, err := f.svc.Approve(ctx, r.ID, "manager-1")
	require.NoError(t, err)

	r, err = f.svc.Process(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, r.Status)
	assert.True(t, r.Items[0].Restocked)
	assert.False(t, r.Items[1].Restocked)
	assert.False(t, r.Items[2].Restocked)
	assert.True(t, r.LossValue().Equal(types.MustMoney("500")), "loss %s", r.LossValue())

	// Only the 5 good units are back in stock.
	lot, err := f.stock.GetLotByKey(ctx, f.hub, f.prod, "B1")
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(5), lot.Quantity)

	// The restock is journaled against the return.
	movements, err := f.stock.GetMovementHistory(ctx, f.prod, inventory.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, r.ID, movements[0].RecorderID)
	assert.Equal(t, inventory.RecordTypeReceipt, movements[0].RecordType)
}

func TestReject_NoInventoryEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.create(t, f.item(5, ConditionGood))
	r, err := f.svc.Reject(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, r.Status)

	_, err = f.stock.GetLotByKey(ctx, f.hub, f.prod, "B1")
	assert.True(t, apperror.IsNotFound(err))

	// Rejected is terminal.
	_, err = f.svc.Approve(ctx, r.ID, "manager-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeIllegalStateTransition))
}

func TestProcess_RequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.create(t, f.item(5, ConditionGood))
	_, err := f.svc.Process(ctx, r.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeIllegalStateTransition))

	// And a processed return cannot be processed again.
	_, err = f.svc.Approve(ctx, r.ID, "manager-1")
	require.NoError(t, err)
	_, err = f.svc.Process(ctx, r.ID)
	require.NoError(t, err)
	_, err = f.svc.Process(ctx, r.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeIllegalStateTransition))

	lot, err := f.stock.GetLotByKey(ctx, f.hub, f.prod, "B1")
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(5), lot.Quantity)
}

func TestCreate_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{CustomerID: id.New(), HubID: f.hub})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.Create(ctx, CreateInput{
		CustomerID: id.New(),
		HubID:      f.hub,
		Items:      []ItemInput{f.item(0, ConditionGood)},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity))

	_, err = f.svc.Create(ctx, CreateInput{
		CustomerID: id.New(),
		HubID:      f.hub,
		Items: []ItemInput{{
			ProductID: f.prod,
			BatchNo:   "B1",
			Quantity:  types.NewQuantityFromInt(1),
			UnitPrice: types.MustMoney("10"),
			Condition: Condition("pristine"),
		}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
