package handlers

import (
	"github.com/gin-gonic/gin"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/domain/payments"
	"salesflow/internal/infrastructure/http/v1/dto"
	"salesflow/internal/infrastructure/storage/postgres"
)

// PaymentHandler handles HTTP requests for the payment ledger.
type PaymentHandler struct {
	*BaseHandler
	service *payments.Service
	audit   auditTrail
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(base *BaseHandler, service *payments.Service, audit *postgres.AuditService) *PaymentHandler {
	return &PaymentHandler{BaseHandler: base, service: service, audit: auditTrail{svc: audit}}
}

// Record handles POST /payments.
func (h *PaymentHandler) Record(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	customerID, err := id.Parse(req.CustomerID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid customer id"))
		return
	}

	in := payments.RecordInput{
		CustomerID:     customerID,
		Amount:         req.Amount,
		Mode:           payments.Mode(req.Mode),
		TransactionRef: req.TransactionRef,
		Comment:        req.Comment,
	}
	if req.InvoiceID != "" {
		invoiceID, err := id.Parse(req.InvoiceID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid invoice id"))
			return
		}
		in.InvoiceID = &invoiceID
	}

	payment, err := h.service.RecordPayment(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.audit.record(c.Request.Context(), "payment", payment.ID, postgres.AuditActionPayment, map[string]any{
		"number":      payment.Number,
		"invoice_id":  payment.InvoiceID,
		"customer_id": payment.CustomerID,
		"amount":      payment.Amount,
		"mode":        payment.Mode,
	})

	h.Created(c, dto.FromPayment(payment))
}

// Get handles GET /payments/:id.
func (h *PaymentHandler) Get(c *gin.Context) {
	paymentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	payment, err := h.service.Get(c.Request.Context(), paymentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPayment(payment))
}

// ListByInvoice handles GET /payments/by-invoice/:invoiceId.
func (h *PaymentHandler) ListByInvoice(c *gin.Context) {
	invoiceID, ok := h.ParseID(c, "invoiceId")
	if !ok {
		return
	}

	list, err := h.service.ListByInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(dto.FromPayments(list), len(list), 0, 0))
}

// ListByCustomer handles GET /payments/by-customer/:customerId.
func (h *PaymentHandler) ListByCustomer(c *gin.Context) {
	customerID, ok := h.ParseID(c, "customerId")
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	offset := h.ParseIntQuery(c, "offset", 0)

	list, err := h.service.ListByCustomer(c.Request.Context(), customerID, limit, offset)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(dto.FromPayments(list), len(list), limit, offset))
}
