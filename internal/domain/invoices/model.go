// Package invoices implements invoice issuance and the invoice side of
// the payment ledger. An invoice is a frozen snapshot of a priced order:
// its amounts never change after issuance, only paid_amount and
// payment_status move.
package invoices

import (
	"github.com/shopspring/decimal"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/entity"
	"salesflow/internal/core/id"
	"salesflow/internal/core/types"
	"salesflow/internal/domain/orders"
)

// Status marks whether the invoice still counts toward the customer's
// outstanding balance.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// Invoice is the issued billing document. Number is the globally unique
// invoice number, assigned strictly (no gaps) at issuance.
type Invoice struct {
	entity.Document

	CustomerID id.ID `db:"customer_id" json:"customerId"`
	OrderID    id.ID `db:"order_id" json:"orderId"`

	Status        Status               `db:"status" json:"status"`
	PaymentStatus orders.PaymentStatus `db:"payment_status" json:"paymentStatus"`

	Subtotal       types.Money `db:"subtotal" json:"subtotal"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	TaxAmount      types.Money `db:"tax_amount" json:"taxAmount"`
	TotalAmount    types.Money `db:"total_amount" json:"totalAmount"`
	PaidAmount     types.Money `db:"paid_amount" json:"paidAmount"`

	Items []Item `db:"-" json:"items"`
}

// Item is an invoice line copied verbatim from the order at issuance.
type Item struct {
	ID        id.ID `db:"id" json:"id"`
	InvoiceID id.ID `db:"invoice_id" json:"invoiceId"`

	ProductID id.ID  `db:"product_id" json:"productId"`
	HubID     id.ID  `db:"hub_id" json:"hubId"`
	BatchNo   string `db:"batch_no" json:"batchNo"`
	LotID     id.ID  `db:"lot_id" json:"lotId"`

	Quantity        types.Quantity  `db:"quantity" json:"quantity"`
	UnitPrice       types.Money     `db:"unit_price" json:"unitPrice"`
	DiscountPercent decimal.Decimal `db:"discount_percent" json:"discountPercent"`
	TaxRate         decimal.Decimal `db:"tax_rate" json:"taxRate"`

	Subtotal       types.Money `db:"subtotal" json:"subtotal"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	TaxableAmount  types.Money `db:"taxable_amount" json:"taxableAmount"`
	TaxAmount      types.Money `db:"tax_amount" json:"taxAmount"`
	LineTotal      types.Money `db:"line_total" json:"lineTotal"`
}

// Remaining is the unpaid part of the invoice.
func (inv *Invoice) Remaining() types.Money {
	return inv.TotalAmount.Sub(inv.PaidAmount)
}

// ApplyPayment adds amount to PaidAmount and recomputes PaymentStatus.
func (inv *Invoice) ApplyPayment(amount types.Money) error {
	if !amount.IsPositive() {
		return apperror.NewInvalidAmount(amount.String())
	}
	if amount.GreaterThan(inv.Remaining()) {
		return apperror.NewOverPayment(inv.ID.String(), amount.String(), inv.Remaining().String())
	}
	inv.PaidAmount = inv.PaidAmount.Add(amount)
	inv.recomputePaymentStatus()
	return nil
}

func (inv *Invoice) recomputePaymentStatus() {
	switch {
	case inv.PaidAmount.GreaterThanOrEqual(inv.TotalAmount):
		inv.PaymentStatus = orders.PaymentPaid
	case inv.PaidAmount.IsPositive():
		inv.PaymentStatus = orders.PaymentPartial
	default:
		inv.PaymentStatus = orders.PaymentPending
	}
}

// MarkOverdue flags an unpaid invoice past its due date. Fully paid
// invoices are never overdue.
func (inv *Invoice) MarkOverdue() {
	if inv.PaymentStatus == orders.PaymentPaid {
		return
	}
	inv.PaymentStatus = orders.PaymentOverdue
}
