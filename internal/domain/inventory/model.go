// Package inventory provides the per-hub, per-batch inventory ledger.
// A Lot is the (hub, product, batch) unit of stock tracking; every mutation
// keeps the invariant quantity == reserved + available with all three
// non-negative.
package inventory

import (
	"context"
	"fmt"
	"time"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/core/types"
)

// Lot is a stock balance for one (hub, product, batch) triple.
// Lots are never hard-deleted, only reduced to zero.
type Lot struct {
	ID id.ID `db:"id" json:"id"`

	// Dimensions
	HubID     id.ID  `db:"hub_id" json:"hubId"`
	ProductID id.ID  `db:"product_id" json:"productId"`
	BatchNo   string `db:"batch_no" json:"batchNo"`

	// Balances
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	Reserved  types.Quantity `db:"reserved_quantity" json:"reservedQuantity"`
	Available types.Quantity `db:"available_quantity" json:"availableQuantity"`

	ExpiryDate *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	// Version for optimistic locking
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewLot creates an empty lot for a (hub, product, batch) triple.
func NewLot(hubID, productID id.ID, batchNo string, expiry *time.Time) *Lot {
	now := time.Now().UTC()
	return &Lot{
		ID:         id.New(),
		HubID:      hubID,
		ProductID:  productID,
		BatchNo:    batchNo,
		ExpiryDate: expiry,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Validate implements entity.Validatable.
func (l *Lot) Validate(ctx context.Context) error {
	if id.IsNil(l.HubID) {
		return apperror.NewValidation("hub is required").WithDetail("field", "hubId")
	}
	if id.IsNil(l.ProductID) {
		return apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if l.BatchNo == "" {
		return apperror.NewValidation("batch number is required").WithDetail("field", "batchNo")
	}
	return l.CheckInvariant()
}

// CheckInvariant verifies quantity == reserved + available, all non-negative.
func (l *Lot) CheckInvariant() error {
	if l.Quantity.IsNegative() || l.Reserved.IsNegative() || l.Available.IsNegative() {
		return apperror.NewValidation("lot balances must be non-negative").
			WithDetail("lot_id", l.ID.String())
	}
	if l.Quantity != l.Reserved+l.Available {
		return apperror.NewValidation(
			fmt.Sprintf("lot balance mismatch: quantity %s != reserved %s + available %s",
				l.Quantity, l.Reserved, l.Available)).
			WithDetail("lot_id", l.ID.String())
	}
	return nil
}

// receive adds qty to quantity and available.
func (l *Lot) receive(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewInvalidQuantity(qty.String())
	}
	l.Quantity += qty
	l.Available += qty
	l.touch()
	return nil
}

// reserve moves qty from available to reserved.
func (l *Lot) reserve(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewInvalidQuantity(qty.String())
	}
	if qty > l.Available {
		return apperror.NewInsufficientStock(l.ProductID.String(), qty.String(), l.Available.String())
	}
	l.Available -= qty
	l.Reserved += qty
	l.touch()
	return nil
}

// release moves qty from reserved back to available.
func (l *Lot) release(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewInvalidQuantity(qty.String())
	}
	if qty > l.Reserved {
		return apperror.NewOverRelease(l.ID.String(), qty.String(), l.Reserved.String())
	}
	l.Reserved -= qty
	l.Available += qty
	l.touch()
	return nil
}

// consume permanently removes qty from quantity and reserved.
func (l *Lot) consume(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewInvalidQuantity(qty.String())
	}
	if qty > l.Reserved {
		return apperror.NewOverConsume(l.ID.String(), qty.String(), l.Reserved.String())
	}
	l.Reserved -= qty
	l.Quantity -= qty
	l.touch()
	return nil
}

// moveOut removes qty from quantity and available (transfer leaving the hub).
func (l *Lot) moveOut(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewInvalidQuantity(qty.String())
	}
	if qty > l.Available {
		return apperror.NewInsufficientStock(l.ProductID.String(), qty.String(), l.Available.String())
	}
	l.Available -= qty
	l.Quantity -= qty
	l.touch()
	return nil
}

func (l *Lot) touch() {
	l.UpdatedAt = time.Now().UTC()
}

// RecordType defines movement direction in the stock journal.
type RecordType string

const (
	// RecordTypeReceipt increases the lot balance
	RecordTypeReceipt RecordType = "receipt"
	// RecordTypeExpense decreases the lot balance
	RecordTypeExpense RecordType = "expense"
)

// Ref identifies the document that caused a movement.
type Ref struct {
	ID   id.ID
	Type string
}

// Movement is an append-only journal row written alongside every balance
// change. The journal allows turnover reporting and full balance
// reconstruction; reservations do not produce movements (quantity on hand
// is unchanged).
type Movement struct {
	LineID       id.ID      `db:"line_id" json:"lineId"`
	RecorderID   id.ID      `db:"recorder_id" json:"recorderId"`
	RecorderType string     `db:"recorder_type" json:"recorderType"`
	RecordType   RecordType `db:"record_type" json:"recordType"`

	HubID     id.ID  `db:"hub_id" json:"hubId"`
	ProductID id.ID  `db:"product_id" json:"productId"`
	BatchNo   string `db:"batch_no" json:"batchNo"`

	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// NewMovement creates a journal row for a balance change.
func NewMovement(rec Ref, recordType RecordType, hubID, productID id.ID, batchNo string, qty types.Quantity) Movement {
	return Movement{
		LineID:       id.New(),
		RecorderID:   rec.ID,
		RecorderType: rec.Type,
		RecordType:   recordType,
		HubID:        hubID,
		ProductID:    productID,
		BatchNo:      batchNo,
		Quantity:     qty,
		CreatedAt:    time.Now().UTC(),
	}
}

// SignedQuantity returns quantity with sign based on record type.
func (m *Movement) SignedQuantity() types.Quantity {
	if m.RecordType == RecordTypeExpense {
		return m.Quantity.Neg()
	}
	return m.Quantity
}
