package handlers

import (
	"github.com/gin-gonic/gin"

	"salesflow/internal/domain/customers"
	"salesflow/internal/infrastructure/http/v1/dto"
)

// CustomerHandler handles HTTP requests for customers.
type CustomerHandler struct {
	*BaseHandler
	service *customers.Service
}

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(base *BaseHandler, service *customers.Service) *CustomerHandler {
	return &CustomerHandler{BaseHandler: base, service: service}
}

// Create handles POST /customers.
func (h *CustomerHandler) Create(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	customer, err := h.service.Create(c.Request.Context(), req.Name, req.Email, req.Phone)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromCustomer(customer))
}

// Get handles GET /customers/:id.
func (h *CustomerHandler) Get(c *gin.Context) {
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	customer, err := h.service.Get(c.Request.Context(), customerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromCustomer(customer))
}

// List handles GET /customers.
func (h *CustomerHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	req.Defaults()

	list, err := h.service.List(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(dto.FromCustomers(list), len(list), req.Limit, req.Offset))
}

// Reconcile handles POST /customers/:id/reconcile.
// Recomputes the outstanding balance from active invoices and repairs
// the stored aggregate if it drifted.
func (h *CustomerHandler) Reconcile(c *gin.Context) {
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	actual, drift, err := h.service.Reconcile(c.Request.Context(), customerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ReconcileResponse{
		CustomerID: customerID.String(),
		Stored:     actual.Sub(drift),
		Computed:   actual,
		Drift:      drift,
	})
}
