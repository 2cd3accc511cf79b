package dto

import (
	"time"

	"salesflow/internal/core/types"
	"salesflow/internal/domain/inventory"
)

// ReceiveStockRequest books incoming stock into a hub.
type ReceiveStockRequest struct {
	HubID      string         `json:"hubId" binding:"required,uuid"`
	ProductID  string         `json:"productId" binding:"required,uuid"`
	BatchNo    string         `json:"batchNo" binding:"required"`
	Quantity   types.Quantity `json:"quantity" binding:"required"`
	ExpiryDate *time.Time     `json:"expiryDate"`

	// Recorder links the receipt to the causing document, e.g. a purchase
	// order managed outside this service.
	RecorderID   string `json:"recorderId" binding:"omitempty,uuid"`
	RecorderType string `json:"recorderType"`
}

// LotResponse contains lot balance fields.
type LotResponse struct {
	ID                string         `json:"id"`
	HubID             string         `json:"hubId"`
	ProductID         string         `json:"productId"`
	BatchNo           string         `json:"batchNo"`
	Quantity          types.Quantity `json:"quantity"`
	ReservedQuantity  types.Quantity `json:"reservedQuantity"`
	AvailableQuantity types.Quantity `json:"availableQuantity"`
	ExpiryDate        *time.Time     `json:"expiryDate,omitempty"`
	Version           int            `json:"version"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// FromLot creates LotResponse from inventory.Lot.
func FromLot(l *inventory.Lot) LotResponse {
	return LotResponse{
		ID:                l.ID.String(),
		HubID:             l.HubID.String(),
		ProductID:         l.ProductID.String(),
		BatchNo:           l.BatchNo,
		Quantity:          l.Quantity,
		ReservedQuantity:  l.Reserved,
		AvailableQuantity: l.Available,
		ExpiryDate:        l.ExpiryDate,
		Version:           l.Version,
		UpdatedAt:         l.UpdatedAt,
	}
}

// FromLots converts a lot slice.
func FromLots(list []inventory.Lot) []LotResponse {
	out := make([]LotResponse, 0, len(list))
	for i := range list {
		out = append(out, FromLot(&list[i]))
	}
	return out
}

// MovementResponse is one journal row.
type MovementResponse struct {
	LineID       string         `json:"lineId"`
	RecorderID   string         `json:"recorderId"`
	RecorderType string         `json:"recorderType"`
	RecordType   string         `json:"recordType"`
	HubID        string         `json:"hubId"`
	ProductID    string         `json:"productId"`
	BatchNo      string         `json:"batchNo"`
	Quantity     types.Quantity `json:"quantity"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// FromMovements converts a movement slice.
func FromMovements(list []inventory.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, MovementResponse{
			LineID:       m.LineID.String(),
			RecorderID:   m.RecorderID.String(),
			RecorderType: m.RecorderType,
			RecordType:   string(m.RecordType),
			HubID:        m.HubID.String(),
			ProductID:    m.ProductID.String(),
			BatchNo:      m.BatchNo,
			Quantity:     m.Quantity,
			CreatedAt:    m.CreatedAt,
		})
	}
	return out
}

// AvailabilityResponse is the total available quantity for a product
// across all hubs.
type AvailabilityResponse struct {
	ProductID string         `json:"productId"`
	Available types.Quantity `json:"available"`
}
