// Package orders implements the sales order document and its lifecycle:
// draft editing, confirmation with stock reservation, invoicing handoff
// and cancellation.
package orders

import (
	"context"

	"github.com/shopspring/decimal"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/entity"
	"salesflow/internal/core/id"
	"salesflow/internal/core/types"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusInvoiced  Status = "invoiced"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus tracks settlement progress. Shared with invoices: the
// order mirrors the payment status of the invoice it produced.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

// Order is the sales order document. Aggregate amounts are recomputed
// from items on every edit and frozen once the order is invoiced.
type Order struct {
	entity.Document

	CustomerID id.ID `db:"customer_id" json:"customerId"`

	Status        Status        `db:"status" json:"status"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"paymentStatus"`

	OrderDiscount  types.Money `db:"order_discount" json:"orderDiscount"`
	Subtotal       types.Money `db:"subtotal" json:"subtotal"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	TaxAmount      types.Money `db:"tax_amount" json:"taxAmount"`
	TotalAmount    types.Money `db:"total_amount" json:"totalAmount"`

	Items []Item `db:"-" json:"items"`
}

// Item is one order line. HubID and BatchNo pin the line to the specific
// lot the caller wants fulfilled; LotID is resolved at confirmation time
// when the reservation is taken.
type Item struct {
	ID      id.ID `db:"id" json:"id"`
	OrderID id.ID `db:"order_id" json:"orderId"`

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

func NewOrder(customerID id.ID) *Order {
	return &Order{
		Document:       entity.NewDocument(),
		CustomerID:     customerID,
		Status:         StatusDraft,
		PaymentStatus:  PaymentPending,
		OrderDiscount:  types.Zero(),
		Subtotal:       types.Zero(),
		DiscountAmount: types.Zero(),
		TaxAmount:      types.Zero(),
		TotalAmount:    types.Zero(),
	}
}

func (o *Order) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(o.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customer_id")
	}
	return nil
}

// Editable reports whether items and discounts may still change.
func (o *Order) Editable() bool {
	return o.Status == StatusDraft || o.Status == StatusPending
}

// canTransition encodes the order state machine.
func (o *Order) canTransition(to Status) bool {
	switch o.Status {
	case StatusDraft:
		return to == StatusPending || to == StatusConfirmed || to == StatusCancelled
	case StatusPending:
		return to == StatusConfirmed || to == StatusInvoiced || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusInvoiced || to == StatusCancelled
	default:
		return false
	}
}

func (o *Order) transition(to Status, action string) error {
	if !o.canTransition(to) {
		return apperror.NewIllegalStateTransition("order", string(o.Status), action)
	}
	o.Status = to
	return nil
}
