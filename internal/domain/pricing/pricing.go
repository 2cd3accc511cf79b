// Package pricing computes line-item and order-level amounts. It is a
// pure computation layer: no storage, no transactions, decimal arithmetic
// only.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/types"
)

var hundred = decimal.NewFromInt(100)

// LineInput is a single order line before pricing.
type LineInput struct {
	Quantity        types.Quantity
	UnitPrice       types.Money
	DiscountPercent decimal.Decimal
	TaxRate         decimal.Decimal
}

// LineAmounts is the priced breakdown of one line, each amount rounded
// to two decimal places.
type LineAmounts struct {
	Subtotal       types.Money `json:"subtotal"`
	DiscountAmount types.Money `json:"discountAmount"`
	TaxableAmount  types.Money `json:"taxableAmount"`
	TaxAmount      types.Money `json:"taxAmount"`
	Total          types.Money `json:"total"`
}

// OrderTotals aggregates priced lines into document-level amounts.
type OrderTotals struct {
	Subtotal       types.Money   `json:"subtotal"`
	DiscountAmount types.Money   `json:"discountAmount"`
	TaxAmount      types.Money   `json:"taxAmount"`
	Total          types.Money   `json:"total"`
	Lines          []LineAmounts `json:"lines"`
}

// ComputeLine prices a single line. Each derived amount is rounded to two
// decimal places before the next step so that the stored breakdown always
// adds up exactly.
func ComputeLine(in LineInput) (LineAmounts, error) {
	if err := validateLine(in); err != nil {
		return LineAmounts{}, err
	}

	subtotal := types.Round2(in.Quantity.Decimal().Mul(in.UnitPrice))
	discount := types.Round2(subtotal.Mul(in.DiscountPercent).Div(hundred))
	taxable := subtotal.Sub(discount)
	tax := types.Round2(taxable.Mul(in.TaxRate).Div(hundred))

	return LineAmounts{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxableAmount:  taxable,
		TaxAmount:      tax,
		Total:          taxable.Add(tax),
	}, nil
}

// ComputeOrderTotals prices every line and aggregates. The order subtotal
// is the sum of taxable amounts less the order-level discount; tax is the
// sum of line taxes.
func ComputeOrderTotals(items []LineInput, orderDiscount types.Money) (OrderTotals, error) {
	if orderDiscount.IsNegative() {
		return OrderTotals{}, apperror.NewInvalidLineItem(
			fmt.Sprintf("order discount must not be negative, got %s", orderDiscount.String()))
	}

	totals := OrderTotals{
		Subtotal:       types.Zero(),
		DiscountAmount: types.Zero(),
		TaxAmount:      types.Zero(),
		Lines:          make([]LineAmounts, 0, len(items)),
	}

	for i, item := range items {
		line, err := ComputeLine(item)
		if err != nil {
			if ae, ok := apperror.AsAppError(err); ok {
				return OrderTotals{}, ae.WithDetail("line", i+1)
			}
			return OrderTotals{}, err
		}
		totals.Subtotal = totals.Subtotal.Add(line.TaxableAmount)
		totals.DiscountAmount = totals.DiscountAmount.Add(line.DiscountAmount)
		totals.TaxAmount = totals.TaxAmount.Add(line.TaxAmount)
		totals.Lines = append(totals.Lines, line)
	}

	subtotal := types.Round2(totals.Subtotal.Sub(orderDiscount))
	if subtotal.IsNegative() {
		return OrderTotals{}, apperror.NewInvalidLineItem(
			fmt.Sprintf("order discount %s exceeds item subtotal %s",
				orderDiscount.String(), totals.Subtotal.String()))
	}

	totals.Subtotal = subtotal
	totals.DiscountAmount = types.Round2(totals.DiscountAmount.Add(orderDiscount))
	totals.TaxAmount = types.Round2(totals.TaxAmount)
	totals.Total = totals.Subtotal.Add(totals.TaxAmount)
	return totals, nil
}

func validateLine(in LineInput) error {
	if !in.Quantity.IsPositive() {
		return apperror.NewInvalidLineItem(
			fmt.Sprintf("quantity must be positive, got %s", in.Quantity.String()))
	}
	if in.UnitPrice.IsNegative() {
		return apperror.NewInvalidLineItem(
			fmt.Sprintf("unit price must not be negative, got %s", in.UnitPrice.String()))
	}
	if in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(hundred) {
		return apperror.NewInvalidLineItem(
			fmt.Sprintf("discount percent must be within [0,100], got %s", in.DiscountPercent.String()))
	}
	if in.TaxRate.IsNegative() {
		return apperror.NewInvalidLineItem(
			fmt.Sprintf("tax rate must not be negative, got %s", in.TaxRate.String()))
	}
	return nil
}
