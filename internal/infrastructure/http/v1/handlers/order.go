package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/domain/orders"
	"salesflow/internal/infrastructure/http/v1/dto"
	"salesflow/internal/infrastructure/storage/postgres"
)

// OrderHandler handles HTTP requests for sales orders.
type OrderHandler struct {
	*BaseHandler
	service *orders.Service
	audit   auditTrail
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(base *BaseHandler, service *orders.Service, audit *postgres.AuditService) *OrderHandler {
	return &OrderHandler{BaseHandler: base, service: service, audit: auditTrail{svc: audit}}
}

// Create handles POST /orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	customerID, err := id.Parse(req.CustomerID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid customer id"))
		return
	}
	items, err := dto.ToItemInputs(req.Items)
	if err != nil {
		h.Error(c, err)
		return
	}

	order, err := h.service.Create(c.Request.Context(), orders.CreateInput{
		CustomerID:    customerID,
		Items:         items,
		OrderDiscount: req.OrderDiscount,
		Comment:       req.Comment,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromOrder(order))
}

// UpdateItems handles PUT /orders/:id/items.
func (h *OrderHandler) UpdateItems(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateOrderItemsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	items, err := dto.ToItemInputs(req.Items)
	if err != nil {
		h.Error(c, err)
		return
	}

	order, err := h.service.UpdateItems(c.Request.Context(), orderID, items, req.OrderDiscount)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(order))
}

// Submit handles POST /orders/:id/submit.
func (h *OrderHandler) Submit(c *gin.Context) {
	h.transition(c, h.service.Submit)
}

// Confirm handles POST /orders/:id/confirm.
// Confirmation takes stock reservations for every line.
func (h *OrderHandler) Confirm(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.Confirm(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.audit.record(c.Request.Context(), "order", order.ID, postgres.AuditActionConfirm, map[string]any{
		"number":       order.Number,
		"customer_id":  order.CustomerID,
		"total_amount": order.TotalAmount,
	})

	h.OK(c, dto.FromOrder(order))
}

// Cancel handles POST /orders/:id/cancel.
func (h *OrderHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *OrderHandler) transition(c *gin.Context, op func(ctx context.Context, orderID id.ID) (*orders.Order, error)) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	order, err := op(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(order))
}

// Get handles GET /orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(order))
}

// List handles GET /orders.
func (h *OrderHandler) List(c *gin.Context) {
	filter := orders.Filter{
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
	if v := c.Query("status"); v != "" {
		status := orders.Status(v)
		filter.Status = &status
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

	h.OK(c, dto.NewListResponse(dto.FromOrders(list), len(list), filter.Limit, filter.Offset))
}
