// Package transfers implements the stock transfer workflow: a document
// moving quantity between two hubs through a four-state forward path.
// Inventory leaves the source at dispatch and arrives at the destination
// at receipt, so in-transit quantity is visible as neither hub's stock.
package transfers

import (
	"context"
	"time"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/entity"
	"salesflow/internal/core/id"
	"salesflow/internal/core/types"
)

// Status is the workflow state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusInTransit Status = "in_transit"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Type classifies the transfer route.
type Type string

const (
	TypeWarehouseToHub Type = "warehouse_to_hub"
	TypeHubToHub       Type = "hub_to_hub"
	TypeHubToSalesman  Type = "hub_to_salesman"
)

func (t Type) valid() bool {
	switch t {
	case TypeWarehouseToHub, TypeHubToHub, TypeHubToSalesman:
		return true
	}
	return false
}

// Transfer is the workflow document.
type Transfer struct {
	entity.Document

	FromHubID id.ID `db:"from_hub_id" json:"fromHubId"`
	ToHubID   id.ID `db:"to_hub_id" json:"toHubId"`

	TransferType Type   `db:"transfer_type" json:"transferType"`
	Status       Status `db:"status" json:"status"`

	RequestedBy string `db:"requested_by" json:"requestedBy"`
	ApprovedBy  string `db:"approved_by" json:"approvedBy,omitempty"`

	DispatchedAt *time.Time `db:"dispatched_at" json:"dispatchedAt,omitempty"`
	CompletedAt  *time.Time `db:"completed_at" json:"completedAt,omitempty"`

	Items []Item `db:"-" json:"items"`
}

// Item is one transferred line. ExpiryDate is snapshotted from the
// source lot at dispatch so the destination lot inherits it.
type Item struct {
	ID         id.ID `db:"id" json:"id"`
	TransferID id.ID `db:"transfer_id" json:"transferId"`

	ProductID id.ID  `db:"product_id" json:"productId"`
	BatchNo   string `db:"batch_no" json:"batchNo"`
	LotID     id.ID  `db:"lot_id" json:"lotId"`

	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	ExpiryDate *time.Time     `db:"expiry_date" json:"expiryDate,omitempty"`
}

func (t *Transfer) Validate(ctx context.Context) error {
	if err := t.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(t.FromHubID) || id.IsNil(t.ToHubID) {
		return apperror.NewValidation("both hubs are required")
	}
	if t.FromHubID == t.ToHubID {
		return apperror.NewValidation("source and destination hubs must differ").
			WithDetail("hub_id", t.FromHubID.String())
	}
	if !t.TransferType.valid() {
		return apperror.NewValidation("unknown transfer type").
			WithDetail("transfer_type", string(t.TransferType))
	}
	if len(t.Items) == 0 {
		return apperror.NewValidation("transfer requires at least one item")
	}
	for _, item := range t.Items {
		if !item.Quantity.IsPositive() {
			return apperror.NewInvalidQuantity(item.Quantity.String())
		}
	}
	return nil
}

// canTransition encodes the single forward path with cancellation legal
// only before dispatch.
func (t *Transfer) canTransition(to Status) bool {
	switch t.Status {
	case StatusPending:
		return to == StatusApproved || to == StatusCancelled
	case StatusApproved:
		return to == StatusInTransit || to == StatusCancelled
	case StatusInTransit:
		return to == StatusCompleted
	default:
		return false
	}
}

func (t *Transfer) transition(to Status, action string) error {
	if !t.canTransition(to) {
		return apperror.NewIllegalStateTransition("transfer", string(t.Status), action)
	}
	t.Status = to
	return nil
}
