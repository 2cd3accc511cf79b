package dto

import (
	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/core/types"
	"salesflow/internal/domain/returns"
)

// ReturnItemRequest is one returned line.
type ReturnItemRequest struct {
	ProductID string         `json:"productId" binding:"required,uuid"`
	BatchNo   string         `json:"batchNo" binding:"required"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
	UnitPrice types.Money    `json:"unitPrice"`
	Condition string         `json:"condition" binding:"required"`
}

// CreateReturnRequest for creating return requests.
type CreateReturnRequest struct {
	CustomerID string              `json:"customerId" binding:"required,uuid"`
	InvoiceID  string              `json:"invoiceId" binding:"omitempty,uuid"`
	HubID      string              `json:"hubId" binding:"required,uuid"`
	Reason     string              `json:"reason"`
	Items      []ReturnItemRequest `json:"items" binding:"required,min=1"`
}

// ToReturnItemInputs converts request lines to service inputs.
func ToReturnItemInputs(items []ReturnItemRequest) ([]returns.ItemInput, error) {
	out := make([]returns.ItemInput, 0, len(items))
	for _, item := range items {
		productID, err := id.Parse(item.ProductID)
		if err != nil {
			return nil, apperror.NewValidation("invalid product id").WithDetail("productId", item.ProductID)
		}
		out = append(out, returns.ItemInput{
			ProductID: productID,
			BatchNo:   item.BatchNo,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Condition: returns.Condition(item.Condition),
		})
	}
	return out, nil
}

// ReturnItemResponse is one returned line.
type ReturnItemResponse struct {
	ID        string         `json:"id"`
	ProductID string         `json:"productId"`
	BatchNo   string         `json:"batchNo"`
	Quantity  types.Quantity `json:"quantity"`
	UnitPrice types.Money    `json:"unitPrice"`
	Condition string         `json:"condition"`
	Restocked bool           `json:"restocked"`
}

// ReturnResponse contains return fields.
type ReturnResponse struct {
	DocumentResponse
	CustomerID string               `json:"customerId"`
	InvoiceID  string               `json:"invoiceId,omitempty"`
	HubID      string               `json:"hubId"`
	Status     string               `json:"status"`
	ApprovedBy string               `json:"approvedBy,omitempty"`
	Reason     string               `json:"reason,omitempty"`
	Items      []ReturnItemResponse `json:"items"`
}

// FromReturn creates ReturnResponse from returns.ProductReturn.
func FromReturn(r *returns.ProductReturn) ReturnResponse {
	items := make([]ReturnItemResponse, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, ReturnItemResponse{
			ID:        item.ID.String(),
			ProductID: item.ProductID.String(),
			BatchNo:   item.BatchNo,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Condition: string(item.Condition),
			Restocked: item.Restocked,
		})
	}

	invoiceID := ""
	if !id.IsNil(r.InvoiceID) {
		invoiceID = r.InvoiceID.String()
	}

	return ReturnResponse{
		DocumentResponse: FromDocument(r.Document),
		CustomerID:       r.CustomerID.String(),
		InvoiceID:        invoiceID,
		HubID:            r.HubID.String(),
		Status:           string(r.Status),
		ApprovedBy:       r.ApprovedBy,
		Reason:           r.Reason,
		Items:            items,
	}
}

// FromReturns converts a return slice.
func FromReturns(list []returns.ProductReturn) []ReturnResponse {
	out := make([]ReturnResponse, 0, len(list))
	for i := range list {
		out = append(out, FromReturn(&list[i]))
	}
	return out
}
