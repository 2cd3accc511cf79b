// Package returns implements product return processing: approval or
// rejection of a requested return and the restock step that books
// good-condition items back into inventory.
package returns

import (
	"context"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/entity"
	"salesflow/internal/core/id"
	"salesflow/internal/core/types"
)

// Status is the return workflow state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusProcessed Status = "processed"
)

// Condition classifies returned goods. Only good items are restocked;
// damaged and expired ones are recorded as loss.
type Condition string

const (
	ConditionGood    Condition = "good"
	ConditionDamaged Condition = "damaged"
	ConditionExpired Condition = "expired"
)

func (c Condition) valid() bool {
	switch c {
	case ConditionGood, ConditionDamaged, ConditionExpired:
		return true
	}
	return false
}

// ProductReturn is the return document. HubID is the hub taking the
// goods back; InvoiceID links to the original sale when known.
type ProductReturn struct {
	entity.Document

	CustomerID id.ID `db:"customer_id" json:"customerId"`
	InvoiceID  id.ID `db:"invoice_id" json:"invoiceId"`
	HubID      id.ID `db:"hub_id" json:"hubId"`

	Status     Status `db:"status" json:"status"`
	ApprovedBy string `db:"approved_by" json:"approvedBy,omitempty"`
	Reason     string `db:"reason" json:"reason,omitempty"`

	Items []Item `db:"-" json:"items"`
}

// Item is one returned line.
type Item struct {
	ID       id.ID `db:"id" json:"id"`
	ReturnID id.ID `db:"return_id" json:"returnId"`

	ProductID id.ID  `db:"product_id" json:"productId"`
	BatchNo   string `db:"batch_no" json:"batchNo"`

	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	Condition Condition      `db:"condition" json:"condition"`

	Restocked bool `db:"restocked" json:"restocked"`
}

func (r *ProductReturn) Validate(ctx context.Context) error {
	if err := r.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(r.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customer_id")
	}
	if id.IsNil(r.HubID) {
		return apperror.NewValidation("hub is required").
			WithDetail("field", "hub_id")
	}
	if len(r.Items) == 0 {
		return apperror.NewValidation("return requires at least one item")
	}
	for _, item := range r.Items {
		if !item.Quantity.IsPositive() {
			return apperror.NewInvalidQuantity(item.Quantity.String())
		}
		if !item.Condition.valid() {
			return apperror.NewValidation("unknown item condition").
				WithDetail("condition", string(item.Condition))
		}
	}
	return nil
}

// LossValue totals the value of items that will not be restocked.
func (r *ProductReturn) LossValue() types.Money {
	loss := types.Zero()
	for _, item := range r.Items {
		if item.Condition == ConditionGood {
			continue
		}
		loss = loss.Add(item.UnitPrice.Mul(item.Quantity.Decimal()))
	}
	return types.Round2(loss)
}

func (r *ProductReturn) canTransition(to Status) bool {
	switch r.Status {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		return to == StatusProcessed
	default:
		return false
	}
}

func (r *ProductReturn) transition(to Status, action string) error {
	if !r.canTransition(to) {
		return apperror.NewIllegalStateTransition("return", string(r.Status), action)
	}
	r.Status = to
	return nil
}
