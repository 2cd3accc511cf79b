package dto

import (
	"time"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/core/types"
	"salesflow/internal/domain/transfers"
)

// TransferItemRequest is one requested transfer line.
type TransferItemRequest struct {
	ProductID string         `json:"productId" binding:"required,uuid"`
	BatchNo   string         `json:"batchNo" binding:"required"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
}

// CreateTransferRequest for creating transfer requests.
type CreateTransferRequest struct {
	FromHubID    string                `json:"fromHubId" binding:"required,uuid"`
	ToHubID      string                `json:"toHubId" binding:"required,uuid"`
	TransferType string                `json:"transferType" binding:"required"`
	Items        []TransferItemRequest `json:"items" binding:"required,min=1"`
	Comment      string                `json:"comment"`
}

// ToTransferItemInputs converts request lines to service inputs.
func ToTransferItemInputs(items []TransferItemRequest) ([]transfers.ItemInput, error) {
	out := make([]transfers.ItemInput, 0, len(items))
	for _, item := range items {
		productID, err := id.Parse(item.ProductID)
		if err != nil {
			return nil, apperror.NewValidation("invalid product id").WithDetail("productId", item.ProductID)
		}
		out = append(out, transfers.ItemInput{
			ProductID: productID,
			BatchNo:   item.BatchNo,
			Quantity:  item.Quantity,
		})
	}
	return out, nil
}

// TransferItemResponse is one transferred line.
type TransferItemResponse struct {
	ID         string         `json:"id"`
	ProductID  string         `json:"productId"`
	BatchNo    string         `json:"batchNo"`
	LotID      string         `json:"lotId,omitempty"`
	Quantity   types.Quantity `json:"quantity"`
	ExpiryDate *time.Time     `json:"expiryDate,omitempty"`
}

// TransferResponse contains transfer fields.
type TransferResponse struct {
	DocumentResponse
	FromHubID    string                 `json:"fromHubId"`
	ToHubID      string                 `json:"toHubId"`
	TransferType string                 `json:"transferType"`
	Status       string                 `json:"status"`
	RequestedBy  string                 `json:"requestedBy"`
	ApprovedBy   string                 `json:"approvedBy,omitempty"`
	DispatchedAt *time.Time             `json:"dispatchedAt,omitempty"`
	CompletedAt  *time.Time             `json:"completedAt,omitempty"`
	Items        []TransferItemResponse `json:"items"`
}

// FromTransfer creates TransferResponse from transfers.Transfer.
func FromTransfer(t *transfers.Transfer) TransferResponse {
	items := make([]TransferItemResponse, 0, len(t.Items))
	for _, item := range t.Items {
		lotID := ""
		if !id.IsNil(item.LotID) {
			lotID = item.LotID.String()
		}
		items = append(items, TransferItemResponse{
			ID:         item.ID.String(),
			ProductID:  item.ProductID.String(),
			BatchNo:    item.BatchNo,
			LotID:      lotID,
			Quantity:   item.Quantity,
			ExpiryDate: item.ExpiryDate,
		})
	}

	return TransferResponse{
		DocumentResponse: FromDocument(t.Document),
		FromHubID:        t.FromHubID.String(),
		ToHubID:          t.ToHubID.String(),
		TransferType:     string(t.TransferType),
		Status:           string(t.Status),
		RequestedBy:      t.RequestedBy,
		ApprovedBy:       t.ApprovedBy,
		DispatchedAt:     t.DispatchedAt,
		CompletedAt:      t.CompletedAt,
		Items:            items,
	}
}

// FromTransfers converts a transfer slice.
func FromTransfers(list []transfers.Transfer) []TransferResponse {
	out := make([]TransferResponse, 0, len(list))
	for i := range list {
		out = append(out, FromTransfer(&list[i]))
	}
	return out
}
