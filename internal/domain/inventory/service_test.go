package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/core/tx"
	"salesflow/internal/core/types"
)

func newTestService() (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	return NewService(repo, tx.Nop{}), repo
}

func qty(n int64) types.Quantity { return types.NewQuantityFromInt(n) }

func receiveRef() Ref { return Ref{ID: id.New(), Type: "StockReceipt"} }

func TestReceiveReserveConsume(t *testing.T) {
	// Scenario: receive 100 units, reserve 30, consume the reservation.
	svc, _ := newTestService()
	ctx := context.Background()
	hub, product := id.New(), id.New()

	lot, err := svc.Receive(ctx, ReceiveInput{
		HubID:     hub,
		ProductID: product,
		BatchNo:   "B1",
		Quantity:  qty(100),
		Recorder:  receiveRef(),
	})
	require.NoError(t, err)
	assert.Equal(t, qty(100), lot.Quantity)
	assert.Equal(t, qty(100), lot.Available)
	assert.Equal(t, qty(0), lot.Reserved)

	require.NoError(t, svc.Reserve(ctx, lot.ID, qty(30)))

	got, err := svc.GetLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(70), got.Available)
	assert.Equal(t, qty(30), got.Reserved)
	assert.Equal(t, qty(100), got.Quantity)

	require.NoError(t, svc.Consume(ctx, lot.ID, qty(30), Ref{ID: id.New(), Type: "Invoice"}))

	got, err = svc.GetLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(70), got.Quantity)
	assert.Equal(t, qty(0), got.Reserved)
	assert.Equal(t, qty(70), got.Available)
	require.NoError(t, got.CheckInvariant())
}

func TestReceive_IncrementsExistingLot(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	hub, product := id.New(), id.New()

	first, err := svc.Receive(ctx, ReceiveInput{HubID: hub, ProductID: product, BatchNo: "B1", Quantity: qty(10), Recorder: receiveRef()})
	require.NoError(t, err)

	second, err := svc.Receive(ctx, ReceiveInput{HubID: hub, ProductID: product, BatchNo: "B1", Quantity: qty(5), Recorder: receiveRef()})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, qty(15), second.Quantity)
}

func TestReceive_KeepsFirstExpiry(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	hub, product := id.New(), id.New()
	expiry := time.Date(2027, time.January, 31, 0, 0, 0, 0, time.UTC)

	_, err := svc.Receive(ctx, ReceiveInput{HubID: hub, ProductID: product, BatchNo: "B1", Quantity: qty(10), ExpiryDate: &expiry, Recorder: receiveRef()})
	require.NoError(t, err)

	later := expiry.AddDate(0, 6, 0)
	lot, err := svc.Receive(ctx, ReceiveInput{HubID: hub, ProductID: product, BatchNo: "B1", Quantity: qty(10), ExpiryDate: &later, Recorder: receiveRef()})
	require.NoError(t, err)

	require.NotNil(t, lot.ExpiryDate)
	assert.True(t, lot.ExpiryDate.Equal(expiry))
}

func TestReceive_InvalidQuantity(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Receive(ctx, ReceiveInput{HubID: id.New(), ProductID: id.New(), BatchNo: "B1", Quantity: qty(0), Recorder: receiveRef()})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity))

	_, err = svc.Receive(ctx, ReceiveInput{HubID: id.New(), ProductID: id.New(), BatchNo: "B1", Quantity: qty(-3), Recorder: receiveRef()})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity))
}

func TestReserve_InsufficientStock(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	lot, err := svc.Receive(ctx, ReceiveInput{HubID: id.New(), ProductID: id.New(), BatchNo: "B1", Quantity: qty(10), Recorder: receiveRef()})
	require.NoError(t, err)

	err = svc.Reserve(ctx, lot.ID, qty(11))
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	// Failed reserve leaves the lot untouched.
	got, err := svc.GetLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(10), got.Available)
	assert.Equal(t, qty(0), got.Reserved)
}

func TestRelease_OverRelease(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	lot, err := svc.Receive(ctx, ReceiveInput{HubID: id.New(), ProductID: id.New(), BatchNo: "B1", Quantity: qty(10), Recorder: receiveRef()})
	require.NoError(t, err)
	require.NoError(t, svc.Reserve(ctx, lot.ID, qty(4)))

	err = svc.Release(ctx, lot.ID, qty(5))
	assert.True(t, apperror.HasCode(err, apperror.CodeOverRelease))

	require.NoError(t, svc.Release(ctx, lot.ID, qty(4)))
	got, _ := svc.GetLot(ctx, lot.ID)
	assert.Equal(t, qty(10), got.Available)
}

func TestConsume_OverConsume(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	lot, err := svc.Receive(ctx, ReceiveInput{HubID: id.New(), ProductID: id.New(), BatchNo: "B1", Quantity: qty(10), Recorder: receiveRef()})
	require.NoError(t, err)
	require.NoError(t, svc.Reserve(ctx, lot.ID, qty(2)))

	err = svc.Consume(ctx, lot.ID, qty(3), Ref{ID: id.New(), Type: "Invoice"})
	assert.True(t, apperror.HasCode(err, apperror.CodeOverConsume))
}

func TestMoveOut_InsufficientStock(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	lot, err := svc.Receive(ctx, ReceiveInput{HubID: id.New(), ProductID: id.New(), BatchNo: "B1", Quantity: qty(10), Recorder: receiveRef()})
	require.NoError(t, err)
	require.NoError(t, svc.Reserve(ctx, lot.ID, qty(8)))

	// Only 2 available even though 10 on hand.
	err = svc.MoveOut(ctx, lot.ID, qty(3), Ref{ID: id.New(), Type: "StockTransfer"})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
}

func TestConcurrentReserve_NeverOversells(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	lot, err := svc.Receive(ctx, ReceiveInput{HubID: id.New(), ProductID: id.New(), BatchNo: "B1", Quantity: qty(100), Recorder: receiveRef()})
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Reserve(ctx, lot.ID, qty(20))
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case apperror.HasCode(err, apperror.CodeInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 5, succeeded, "exactly five reservations of 20 fit into 100")
	assert.Equal(t, 5, rejected)

	got, err := svc.GetLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(0), got.Available)
	assert.Equal(t, qty(100), got.Reserved)
	require.NoError(t, got.CheckInvariant())
}

func TestMovementJournal(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	product := id.New()

	rec := receiveRef()
	lot, err := svc.Receive(ctx, ReceiveInput{HubID: id.New(), ProductID: product, BatchNo: "B1", Quantity: qty(50), Recorder: rec})
	require.NoError(t, err)

	require.NoError(t, svc.Reserve(ctx, lot.ID, qty(10)))
	consumeRec := Ref{ID: id.New(), Type: "Invoice"}
	require.NoError(t, svc.Consume(ctx, lot.ID, qty(10), consumeRec))

	history, err := svc.GetMovementHistory(ctx, product, MovementFilter{})
	require.NoError(t, err)
	// Reserve produces no journal row; receipt and consume do.
	require.Len(t, history, 2)
	assert.Equal(t, RecordTypeReceipt, history[0].RecordType)
	assert.Equal(t, RecordTypeExpense, history[1].RecordType)

	byRec, err := repo.GetMovementsByRecorder(ctx, consumeRec.ID)
	require.NoError(t, err)
	require.Len(t, byRec, 1)
	assert.Equal(t, qty(10), byRec[0].Quantity)
}
