package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/core/tx"
	"salesflow/internal/core/types"
)

type stubOutstanding struct {
	sums map[id.ID]types.Money
}

func (s *stubOutstanding) SumOutstanding(ctx context.Context, customerID id.ID) (types.Money, error) {
	if v, ok := s.sums[customerID]; ok {
		return v, nil
	}
	return types.Zero(), nil
}

func newTestService(sums map[id.ID]types.Money) (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	return NewService(repo, &stubOutstanding{sums: sums}, tx.Nop{}), repo
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, "Acme Retail", "orders@acme.test", "+1-555-0100")
	require.NoError(t, err)
	assert.True(t, c.OutstandingAmount.IsZero())

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Retail", got.Name)

	_, err = svc.Create(ctx, "   ", "", "")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestOutstandingLifecycle(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, "Acme Retail", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.IncreaseOutstanding(ctx, c.ID, types.MustMoney("1062")))
	require.NoError(t, svc.DecreaseOutstanding(ctx, c.ID, types.MustMoney("500")))

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.OutstandingAmount.Equal(types.MustMoney("562")), "got %s", got.OutstandingAmount)
}

func TestDecreaseOutstanding_FloorsAtZero(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, "Acme Retail", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.IncreaseOutstanding(ctx, c.ID, types.MustMoney("100")))

	// A direct payment can exceed the tracked balance.
	require.NoError(t, svc.DecreaseOutstanding(ctx, c.ID, types.MustMoney("150")))

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.OutstandingAmount.IsZero())
}

func TestAdjust_RejectsNonPositiveAmounts(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, "Acme Retail", "", "")
	require.NoError(t, err)

	err = svc.IncreaseOutstanding(ctx, c.ID, types.Zero())
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidAmount))

	err = svc.DecreaseOutstanding(ctx, c.ID, types.MustMoney("-5"))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidAmount))
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	sums := map[id.ID]types.Money{}
	svc, _ := newTestService(sums)

	c, err := svc.Create(ctx, "Acme Retail", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.IncreaseOutstanding(ctx, c.ID, types.MustMoney("900")))

	// Ledger says 1062; the tracked aggregate drifted.
	sums[c.ID] = types.MustMoney("1062")

	actual, drift, err := svc.Reconcile(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, actual.Equal(types.MustMoney("1062")))
	assert.True(t, drift.Equal(types.MustMoney("162")))

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.OutstandingAmount.Equal(types.MustMoney("1062")))

	// No drift on a second pass.
	_, drift, err = svc.Reconcile(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, drift.IsZero())
}
