package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/types"
)

func pct(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestComputeLine(t *testing.T) {
	// qty 10 at 100 with 10% discount and 18% tax.
	line, err := ComputeLine(LineInput{
		Quantity:        types.NewQuantityFromInt(10),
		UnitPrice:       types.MustMoney("100"),
		DiscountPercent: pct(10),
		TaxRate:         pct(18),
	})
	require.NoError(t, err)

	assert.True(t, line.Subtotal.Equal(types.MustMoney("1000")), "subtotal %s", line.Subtotal)
	assert.True(t, line.DiscountAmount.Equal(types.MustMoney("100")), "discount %s", line.DiscountAmount)
	assert.True(t, line.TaxableAmount.Equal(types.MustMoney("900")), "taxable %s", line.TaxableAmount)
	assert.True(t, line.TaxAmount.Equal(types.MustMoney("162")), "tax %s", line.TaxAmount)
	assert.True(t, line.Total.Equal(types.MustMoney("1062")), "total %s", line.Total)
}

func TestComputeLine_Rounding(t *testing.T) {
	// 3 * 0.333 = 0.999, 5% discount = 0.04995 -> 0.05 after rounding.
	line, err := ComputeLine(LineInput{
		Quantity:        types.NewQuantityFromInt(3),
		UnitPrice:       types.MustMoney("0.333"),
		DiscountPercent: pct(5),
		TaxRate:         pct(18),
	})
	require.NoError(t, err)

	assert.True(t, line.Subtotal.Equal(types.MustMoney("1.00")), "subtotal %s", line.Subtotal)
	assert.True(t, line.DiscountAmount.Equal(types.MustMoney("0.05")), "discount %s", line.DiscountAmount)
	assert.True(t, line.TaxableAmount.Equal(types.MustMoney("0.95")), "taxable %s", line.TaxableAmount)
	assert.True(t, line.TaxAmount.Equal(types.MustMoney("0.17")), "tax %s", line.TaxAmount)
	// The stored breakdown always adds up.
	assert.True(t, line.Total.Equal(line.TaxableAmount.Add(line.TaxAmount)))
}

func TestComputeLine_Rejections(t *testing.T) {
	valid := LineInput{
		Quantity:        types.NewQuantityFromInt(1),
		UnitPrice:       types.MustMoney("10"),
		DiscountPercent: pct(0),
		TaxRate:         pct(0),
	}

	tests := []struct {
		name   string
		mutate func(*LineInput)
	}{
		{"zero quantity", func(in *LineInput) { in.Quantity = types.NewQuantityFromInt(0) }},
		{"negative quantity", func(in *LineInput) { in.Quantity = types.NewQuantityFromInt(-2) }},
		{"negative price", func(in *LineInput) { in.UnitPrice = types.MustMoney("-1") }},
		{"negative discount", func(in *LineInput) { in.DiscountPercent = pct(-1) }},
		{"discount over 100", func(in *LineInput) { in.DiscountPercent = pct(101) }},
		{"negative tax rate", func(in *LineInput) { in.TaxRate = pct(-18) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := ComputeLine(in)
			assert.True(t, apperror.HasCode(err, apperror.CodeInvalidLineItem))
		})
	}
}

func TestComputeOrderTotals(t *testing.T) {
	items := []LineInput{
		{
			Quantity:        types.NewQuantityFromInt(10),
			UnitPrice:       types.MustMoney("100"),
			DiscountPercent: pct(10),
			TaxRate:         pct(18),
		},
		{
			Quantity:        types.NewQuantityFromInt(2),
			UnitPrice:       types.MustMoney("50"),
			DiscountPercent: pct(0),
			TaxRate:         pct(18),
		},
	}

	totals, err := ComputeOrderTotals(items, types.Zero())
	require.NoError(t, err)
	require.Len(t, totals.Lines, 2)

	// 900 + 100 taxable, 162 + 18 tax.
	assert.True(t, totals.Subtotal.Equal(types.MustMoney("1000")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.DiscountAmount.Equal(types.MustMoney("100")), "discount %s", totals.DiscountAmount)
	assert.True(t, totals.TaxAmount.Equal(types.MustMoney("180")), "tax %s", totals.TaxAmount)
	assert.True(t, totals.Total.Equal(types.MustMoney("1180")), "total %s", totals.Total)
}

func TestComputeOrderTotals_OrderDiscount(t *testing.T) {
	items := []LineInput{{
		Quantity:        types.NewQuantityFromInt(10),
		UnitPrice:       types.MustMoney("100"),
		DiscountPercent: pct(10),
		TaxRate:         pct(18),
	}}

	totals, err := ComputeOrderTotals(items, types.MustMoney("50"))
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(types.MustMoney("850")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.DiscountAmount.Equal(types.MustMoney("150")), "discount %s", totals.DiscountAmount)
	assert.True(t, totals.Total.Equal(totals.Subtotal.Add(totals.TaxAmount)))
}

func TestComputeOrderTotals_DiscountExceedsSubtotal(t *testing.T) {
	items := []LineInput{{
		Quantity:        types.NewQuantityFromInt(1),
		UnitPrice:       types.MustMoney("10"),
		DiscountPercent: pct(0),
		TaxRate:         pct(0),
	}}

	_, err := ComputeOrderTotals(items, types.MustMoney("11"))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidLineItem))

	_, err = ComputeOrderTotals(items, types.MustMoney("-1"))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidLineItem))
}

func TestComputeOrderTotals_BadLineReportsIndex(t *testing.T) {
	items := []LineInput{
		{Quantity: types.NewQuantityFromInt(1), UnitPrice: types.MustMoney("10")},
		{Quantity: types.NewQuantityFromInt(0), UnitPrice: types.MustMoney("10")},
	}

	_, err := ComputeOrderTotals(items, types.Zero())
	ae, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidLineItem, ae.Code)
	assert.Equal(t, 2, ae.Details["line"])
}

func TestComputeOrderTotals_Empty(t *testing.T) {
	totals, err := ComputeOrderTotals(nil, types.Zero())
	require.NoError(t, err)
	assert.True(t, totals.Total.IsZero())
}
