package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/domain/transfers"
	"salesflow/internal/infrastructure/http/v1/dto"
	"salesflow/internal/infrastructure/storage/postgres"
)

// TransferHandler handles HTTP requests for stock transfers.
type TransferHandler struct {
	*BaseHandler
	service *transfers.Service
	audit   auditTrail
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(base *BaseHandler, service *transfers.Service, audit *postgres.AuditService) *TransferHandler {
	return &TransferHandler{BaseHandler: base, service: service, audit: auditTrail{svc: audit}}
}

// Create handles POST /transfers.
func (h *TransferHandler) Create(c *gin.Context) {
	var req dto.CreateTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	fromHubID, err := id.Parse(req.FromHubID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid source hub id"))
		return
	}
	toHubID, err := id.Parse(req.ToHubID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid destination hub id"))
		return
	}
	items, err := dto.ToTransferItemInputs(req.Items)
	if err != nil {
		h.Error(c, err)
		return
	}

	transfer, err := h.service.Create(c.Request.Context(), transfers.CreateInput{
		FromHubID:    fromHubID,
		ToHubID:      toHubID,
		TransferType: transfers.Type(req.TransferType),
		RequestedBy:  h.ActorName(c),
		Items:        items,
		Comment:      req.Comment,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromTransfer(transfer))
}

// Approve handles POST /transfers/:id/approve.
func (h *TransferHandler) Approve(c *gin.Context) {
	transferID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	transfer, err := h.service.Approve(c.Request.Context(), transferID, h.ActorName(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTransfer(transfer))
}

// Dispatch handles POST /transfers/:id/dispatch.
// Stock leaves the source hub; every line must still be available.
func (h *TransferHandler) Dispatch(c *gin.Context) {
	h.audited(c, h.service.Dispatch, postgres.AuditActionDispatch)
}

// Receive handles POST /transfers/:id/receive.
// Stock arrives at the destination hub, inheriting batch and expiry.
func (h *TransferHandler) Receive(c *gin.Context) {
	h.audited(c, h.service.Receive, postgres.AuditActionReceive)
}

func (h *TransferHandler) audited(c *gin.Context, op func(ctx context.Context, transferID id.ID) (*transfers.Transfer, error), action postgres.AuditAction) {
	transferID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	transfer, err := op(c.Request.Context(), transferID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.audit.record(c.Request.Context(), "transfer", transfer.ID, action, map[string]any{
		"number":      transfer.Number,
		"from_hub_id": transfer.FromHubID,
		"to_hub_id":   transfer.ToHubID,
		"status":      transfer.Status,
	})

	h.OK(c, dto.FromTransfer(transfer))
}

// Cancel handles POST /transfers/:id/cancel.
func (h *TransferHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *TransferHandler) transition(c *gin.Context, op func(ctx context.Context, transferID id.ID) (*transfers.Transfer, error)) {
	transferID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	transfer, err := op(c.Request.Context(), transferID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTransfer(transfer))
}

// Get handles GET /transfers/:id.
func (h *TransferHandler) Get(c *gin.Context) {
	transferID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	transfer, err := h.service.Get(c.Request.Context(), transferID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTransfer(transfer))
}

// List handles GET /transfers.
func (h *TransferHandler) List(c *gin.Context) {
	filter := transfers.Filter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if v := c.Query("fromHubId"); v != "" {
		hubID, err := id.Parse(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid source hub id"))
			return
		}
		filter.FromHubID = &hubID
	}
	if v := c.Query("toHubId"); v != "" {
		hubID, err := id.Parse(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid destination hub id"))
			return
		}
		filter.ToHubID = &hubID
	}
	if v := c.Query("status"); v != "" {
		status := transfers.Status(v)
		filter.Status = &status
	}

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(dto.FromTransfers(list), len(list), filter.Limit, filter.Offset))
}
