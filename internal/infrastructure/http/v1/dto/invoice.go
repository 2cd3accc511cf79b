package dto

import (
	"github.com/shopspring/decimal"

	"salesflow/internal/core/types"
	"salesflow/internal/domain/invoices"
)

// IssueInvoiceRequest issues the invoice for a confirmed order.
type IssueInvoiceRequest struct {
	OrderID string `json:"orderId" binding:"required,uuid"`
}

// InvoiceItemResponse is one invoice line.
type InvoiceItemResponse struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"productId"`
	HubID           string          `json:"hubId"`
	BatchNo         string          `json:"batchNo"`
	LotID           string          `json:"lotId"`
	Quantity        types.Quantity  `json:"quantity"`
	UnitPrice       types.Money     `json:"unitPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	TaxRate         decimal.Decimal `json:"taxRate"`
	LineTotal       types.Money     `json:"lineTotal"`
}

// InvoiceResponse contains invoice fields.
type InvoiceResponse struct {
	DocumentResponse
	CustomerID     string                `json:"customerId"`
	OrderID        string                `json:"orderId"`
	Status         string                `json:"status"`
	PaymentStatus  string                `json:"paymentStatus"`
	Subtotal       types.Money           `json:"subtotal"`
	DiscountAmount types.Money           `json:"discountAmount"`
	TaxAmount      types.Money           `json:"taxAmount"`
	TotalAmount    types.Money           `json:"totalAmount"`
	PaidAmount     types.Money           `json:"paidAmount"`
	Remaining      types.Money           `json:"remaining"`
	Items          []InvoiceItemResponse `json:"items"`
}

// FromInvoice creates InvoiceResponse from invoices.Invoice.
func FromInvoice(inv *invoices.Invoice) InvoiceResponse {
	items := make([]InvoiceItemResponse, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, InvoiceItemResponse{
			ID:              item.ID.String(),
			ProductID:       item.ProductID.String(),
			HubID:           item.HubID.String(),
			BatchNo:         item.BatchNo,
			LotID:           item.LotID.String(),
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			DiscountPercent: item.DiscountPercent,
			TaxRate:         item.TaxRate,
			LineTotal:       item.LineTotal,
		})
	}

	return InvoiceResponse{
		DocumentResponse: FromDocument(inv.Document),
		CustomerID:       inv.CustomerID.String(),
		OrderID:          inv.OrderID.String(),
		Status:           string(inv.Status),
		PaymentStatus:    string(inv.PaymentStatus),
		Subtotal:         inv.Subtotal,
		DiscountAmount:   inv.DiscountAmount,
		TaxAmount:        inv.TaxAmount,
		TotalAmount:      inv.TotalAmount,
		PaidAmount:       inv.PaidAmount,
		Remaining:        inv.Remaining(),
		Items:            items,
	}
}

// FromInvoices converts an invoice slice.
func FromInvoices(list []invoices.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(list))
	for i := range list {
		out = append(out, FromInvoice(&list[i]))
	}
	return out
}

// MarkOverdueRequest marks unpaid invoices older than the cutoff.
type MarkOverdueRequest struct {
	DaysOverdue int `json:"daysOverdue" binding:"required,min=1"`
}

// MarkOverdueResponse reports how many invoices were flagged.
type MarkOverdueResponse struct {
	Marked int `json:"marked"`
}
