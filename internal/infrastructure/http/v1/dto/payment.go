package dto

import (
	"salesflow/internal/core/id"
	"salesflow/internal/core/types"
	"salesflow/internal/domain/payments"
)

// RecordPaymentRequest appends a payment ledger entry. InvoiceID empty
// means a direct customer payment against the outstanding balance.
type RecordPaymentRequest struct {
	InvoiceID      string      `json:"invoiceId" binding:"omitempty,uuid"`
	CustomerID     string      `json:"customerId" binding:"required,uuid"`
	Amount         types.Money `json:"amount" binding:"required"`
	Mode           string      `json:"mode" binding:"required"`
	TransactionRef string      `json:"transactionRef"`
	Comment        string      `json:"comment"`
}

// PaymentResponse contains payment fields.
type PaymentResponse struct {
	DocumentResponse
	InvoiceID      string      `json:"invoiceId,omitempty"`
	CustomerID     string      `json:"customerId"`
	Amount         types.Money `json:"amount"`
	Mode           string      `json:"mode"`
	TransactionRef string      `json:"transactionRef,omitempty"`
}

// FromPayment creates PaymentResponse from payments.Payment.
func FromPayment(p *payments.Payment) PaymentResponse {
	invoiceID := ""
	if !id.IsNil(p.InvoiceID) {
		invoiceID = p.InvoiceID.String()
	}
	return PaymentResponse{
		DocumentResponse: FromDocument(p.Document),
		InvoiceID:        invoiceID,
		CustomerID:       p.CustomerID.String(),
		Amount:           p.Amount,
		Mode:             string(p.Mode),
		TransactionRef:   p.TransactionRef,
	}
}

// FromPayments converts a payment slice.
func FromPayments(list []payments.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(list))
	for i := range list {
		out = append(out, FromPayment(&list[i]))
	}
	return out
}
