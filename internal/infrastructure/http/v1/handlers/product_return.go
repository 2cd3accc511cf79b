package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/domain/returns"
	"salesflow/internal/infrastructure/http/v1/dto"
	"salesflow/internal/infrastructure/storage/postgres"
)

// ReturnHandler handles HTTP requests for product returns.
type ReturnHandler struct {
	*BaseHandler
	service *returns.Service
	audit   auditTrail
}

// NewReturnHandler creates a new return handler.
func NewReturnHandler(base *BaseHandler, service *returns.Service, audit *postgres.AuditService) *ReturnHandler {
	return &ReturnHandler{BaseHandler: base, service: service, audit: auditTrail{svc: audit}}
}

// Create handles POST /returns.
func (h *ReturnHandler) Create(c *gin.Context) {
	var req dto.CreateReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	customerID, err := id.Parse(req.CustomerID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid customer id"))
		return
	}
	hubID, err := id.Parse(req.HubID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid hub id"))
		return
	}
	invoiceID := id.Nil()
	if req.InvoiceID != "" {
		invoiceID, err = id.Parse(req.InvoiceID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid invoice id"))
			return
		}
	}
	items, err := dto.ToReturnItemInputs(req.Items)
	if err != nil {
		h.Error(c, err)
		return
	}

	ret, err := h.service.Create(c.Request.Context(), returns.CreateInput{
		CustomerID: customerID,
		InvoiceID:  invoiceID,
		HubID:      hubID,
		Reason:     req.Reason,
		Items:      items,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromReturn(ret))
}

// Approve handles POST /returns/:id/approve.
func (h *ReturnHandler) Approve(c *gin.Context) {
	returnID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	ret, err := h.service.Approve(c.Request.Context(), returnID, h.ActorName(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromReturn(ret))
}

// Reject handles POST /returns/:id/reject.
func (h *ReturnHandler) Reject(c *gin.Context) {
	h.transition(c, h.service.Reject)
}

// Process handles POST /returns/:id/process.
// Restocks good items; damaged and expired ones stay recorded as loss.
func (h *ReturnHandler) Process(c *gin.Context) {
	returnID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	ret, err := h.service.Process(c.Request.Context(), returnID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.audit.record(c.Request.Context(), "return", ret.ID, postgres.AuditActionReceive, map[string]any{
		"number":      ret.Number,
		"customer_id": ret.CustomerID,
		"hub_id":      ret.HubID,
	})

	h.OK(c, dto.FromReturn(ret))
}

func (h *ReturnHandler) transition(c *gin.Context, op func(ctx context.Context, returnID id.ID) (*returns.ProductReturn, error)) {
	returnID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	ret, err := op(c.Request.Context(), returnID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromReturn(ret))
}

// Get handles GET /returns/:id.
func (h *ReturnHandler) Get(c *gin.Context) {
	returnID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	ret, err := h.service.Get(c.Request.Context(), returnID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromReturn(ret))
}

// List handles GET /returns.
func (h *ReturnHandler) List(c *gin.Context) {
	filter := returns.Filter{
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
	if v := c.Query("invoiceId"); v != "" {
		invoiceID, err := id.Parse(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid invoice id"))
			return
		}
		filter.InvoiceID = &invoiceID
	}
	if v := c.Query("status"); v != "" {
		status := returns.Status(v)
		filter.Status = &status
	}

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(dto.FromReturns(list), len(list), filter.Limit, filter.Offset))
}
