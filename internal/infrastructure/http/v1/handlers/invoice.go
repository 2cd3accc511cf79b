package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/domain/invoices"
	"salesflow/internal/infrastructure/http/v1/dto"
	"salesflow/internal/infrastructure/storage/postgres"
)

// InvoiceHandler handles HTTP requests for invoices.
type InvoiceHandler struct {
	*BaseHandler
	service *invoices.Service
	audit   auditTrail
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoices.Service, audit *postgres.AuditService) *InvoiceHandler {
	return &InvoiceHandler{BaseHandler: base, service: service, audit: auditTrail{svc: audit}}
}

// Issue handles POST /invoices.
// Issues the invoice for a confirmed order: snapshots amounts, consumes
// reservations and increments the customer's outstanding balance in one
// transaction.
func (h *InvoiceHandler) Issue(c *gin.Context) {
	var req dto.IssueInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	orderID, err := id.Parse(req.OrderID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid order id"))
		return
	}

	inv, err := h.service.Issue(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.audit.record(c.Request.Context(), "invoice", inv.ID, postgres.AuditActionIssue, map[string]any{
		"number":       inv.Number,
		"order_id":     inv.OrderID,
		"customer_id":  inv.CustomerID,
		"total_amount": inv.TotalAmount,
	})

	h.Created(c, dto.FromInvoice(inv))
}

// Get handles GET /invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	inv, err := h.service.Get(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInvoice(inv))
}

// GetByOrder handles GET /invoices/by-order/:orderId.
func (h *InvoiceHandler) GetByOrder(c *gin.Context) {
	orderID, ok := h.ParseID(c, "orderId")
	if !ok {
		return
	}

	inv, err := h.service.GetByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromInvoice(inv))
}

// List handles GET /invoices.
func (h *InvoiceHandler) List(c *gin.Context) {
	filter := invoices.Filter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if v := c.Query("customerId"); v != "" {
		customerID, err := id.Parse(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid customer id"))
			return
		}
		filter.CustomerID = &customerID
	}
	if v := c.Query("paymentStatus"); v != "" {
		status := v
		filter.PaymentStatus = &status
	}
	if v := c.Query("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid from date"))
			return
		}
		filter.FromDate = &from
	}
	if v := c.Query("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid to date"))
			return
		}
		filter.ToDate = &to
	}

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(dto.FromInvoices(list), len(list), filter.Limit, filter.Offset))
}

// MarkOverdue handles POST /invoices/mark-overdue.
// Back-office batch operation flagging unpaid invoices older than the
// given number of days.
func (h *InvoiceHandler) MarkOverdue(c *gin.Context) {
	var req dto.MarkOverdueRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -req.DaysOverdue)
	marked, err := h.service.MarkOverdue(c.Request.Context(), cutoff)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.MarkOverdueResponse{Marked: marked})
}
