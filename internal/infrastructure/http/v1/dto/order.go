package dto

import (
	"github.com/shopspring/decimal"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/core/types"
	"salesflow/internal/domain/orders"
)

// OrderItemRequest is one requested order line. The caller picks the
// batch; the lot is resolved at confirmation time.
type OrderItemRequest struct {
	ProductID       string         `json:"productId" binding:"required,uuid"`
	HubID           string         `json:"hubId" binding:"required,uuid"`
	BatchNo         string         `json:"batchNo" binding:"required"`
	Quantity        types.Quantity `json:"quantity" binding:"required"`
	UnitPrice       types.Money    `json:"unitPrice"`
	DiscountPercent types.Money    `json:"discountPercent"`
	TaxRate         types.Money    `json:"taxRate"`
}

// CreateOrderRequest for creating draft orders.
type CreateOrderRequest struct {
	CustomerID    string             `json:"customerId" binding:"required,uuid"`
	Items         []OrderItemRequest `json:"items" binding:"required,min=1"`
	OrderDiscount types.Money        `json:"orderDiscount"`
	Comment       string             `json:"comment"`
}

// UpdateOrderItemsRequest replaces the item set of a draft/pending order.
type UpdateOrderItemsRequest struct {
	Items         []OrderItemRequest `json:"items" binding:"required,min=1"`
	OrderDiscount types.Money        `json:"orderDiscount"`
}

// ToItemInputs converts request lines to service inputs.
func ToItemInputs(items []OrderItemRequest) ([]orders.ItemInput, error) {
	out := make([]orders.ItemInput, 0, len(items))
	for _, item := range items {
		productID, err := id.Parse(item.ProductID)
		if err != nil {
			return nil, apperror.NewValidation("invalid product id").WithDetail("productId", item.ProductID)
		}
		hubID, err := id.Parse(item.HubID)
		if err != nil {
			return nil, apperror.NewValidation("invalid hub id").WithDetail("hubId", item.HubID)
		}
		out = append(out, orders.ItemInput{
			ProductID:       productID,
			HubID:           hubID,
			BatchNo:         item.BatchNo,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			DiscountPercent: item.DiscountPercent,
			TaxRate:         item.TaxRate,
		})
	}
	return out, nil
}

// OrderItemResponse is one priced order line.
type OrderItemResponse struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"productId"`
	HubID           string          `json:"hubId"`
	BatchNo         string          `json:"batchNo"`
	LotID           string          `json:"lotId,omitempty"`
	Quantity        types.Quantity  `json:"quantity"`
	UnitPrice       types.Money     `json:"unitPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	TaxRate         decimal.Decimal `json:"taxRate"`
	Subtotal        types.Money     `json:"subtotal"`
	DiscountAmount  types.Money     `json:"discountAmount"`
	TaxAmount       types.Money     `json:"taxAmount"`
	LineTotal       types.Money     `json:"lineTotal"`
}

// OrderResponse contains order fields with totals.
type OrderResponse struct {
	DocumentResponse
	CustomerID     string              `json:"customerId"`
	Status         string              `json:"status"`
	PaymentStatus  string              `json:"paymentStatus"`
	OrderDiscount  types.Money         `json:"orderDiscount"`
	Subtotal       types.Money         `json:"subtotal"`
	DiscountAmount types.Money         `json:"discountAmount"`
	TaxAmount      types.Money         `json:"taxAmount"`
	TotalAmount    types.Money         `json:"totalAmount"`
	Items          []OrderItemResponse `json:"items"`
}

// FromOrder creates OrderResponse from orders.Order.
func FromOrder(o *orders.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		lotID := ""
		if !id.IsNil(item.LotID) {
			lotID = item.LotID.String()
		}
		items = append(items, OrderItemResponse{
			ID:              item.ID.String(),
			ProductID:       item.ProductID.String(),
			HubID:           item.HubID.String(),
			BatchNo:         item.BatchNo,
			LotID:           lotID,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			DiscountPercent: item.DiscountPercent,
			TaxRate:         item.TaxRate,
			Subtotal:        item.Subtotal,
			DiscountAmount:  item.DiscountAmount,
			TaxAmount:       item.TaxAmount,
			LineTotal:       item.LineTotal,
		})
	}

	return OrderResponse{
		DocumentResponse: FromDocument(o.Document),
		CustomerID:       o.CustomerID.String(),
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		OrderDiscount:    o.OrderDiscount,
		Subtotal:         o.Subtotal,
		DiscountAmount:   o.DiscountAmount,
		TaxAmount:        o.TaxAmount,
		TotalAmount:      o.TotalAmount,
		Items:            items,
	}
}

// FromOrders converts an order slice.
func FromOrders(list []orders.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(list))
	for i := range list {
		out = append(out, FromOrder(&list[i]))
	}
	return out
}
