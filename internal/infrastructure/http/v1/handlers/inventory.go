package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"salesflow/internal/core/apperror"
	"salesflow/internal/core/id"
	"salesflow/internal/domain/inventory"
	"salesflow/internal/infrastructure/http/v1/dto"
)

// InventoryHandler handles HTTP requests for the inventory ledger.
type InventoryHandler struct {
	*BaseHandler
	service *inventory.Service
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(base *BaseHandler, service *inventory.Service) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, service: service}
}

// Receive handles POST /inventory/receipts.
func (h *InventoryHandler) Receive(c *gin.Context) {
	var req dto.ReceiveStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	hubID, err := id.Parse(req.HubID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid hub id"))
		return
	}
	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}

	rec := inventory.Ref{Type: req.RecorderType}
	if req.RecorderID != "" {
		rec.ID, err = id.Parse(req.RecorderID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid recorder id"))
			return
		}
	}
	if rec.Type == "" {
		rec.Type = "receipt"
	}

	lot, err := h.service.Receive(c.Request.Context(), inventory.ReceiveInput{
		HubID:      hubID,
		ProductID:  productID,
		BatchNo:    req.BatchNo,
		Quantity:   req.Quantity,
		ExpiryDate: req.ExpiryDate,
		Recorder:   rec,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromLot(lot))
}

// GetLot handles GET /inventory/lots/:id.
func (h *InventoryHandler) GetLot(c *gin.Context) {
	lotID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	lot, err := h.service.GetLot(c.Request.Context(), lotID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLot(lot))
}

// VerifyLot handles POST /inventory/lots/:id/verify.
// Checks the quantity = reserved + available identity on the stored row.
func (h *InventoryHandler) VerifyLot(c *gin.Context) {
	lotID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.VerifyLot(c.Request.Context(), lotID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "lot balance consistent")
}

// HubStock handles GET /inventory/hubs/:hubId/stock.
func (h *InventoryHandler) HubStock(c *gin.Context) {
	hubID, ok := h.ParseID(c, "hubId")
	if !ok {
		return
	}

	lots, err := h.service.GetHubStock(c.Request.Context(), hubID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(dto.FromLots(lots), len(lots), 0, 0))
}

// Availability handles GET /inventory/products/:productId/availability.
func (h *InventoryHandler) Availability(c *gin.Context) {
	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	available, err := h.service.GetProductAvailability(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.AvailabilityResponse{
		ProductID: productID.String(),
		Available: available,
	})
}

// Movements handles GET /inventory/products/:productId/movements.
func (h *InventoryHandler) Movements(c *gin.Context) {
	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	filter := inventory.MovementFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if v := c.Query("hubId"); v != "" {
		hubID, err := id.Parse(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid hub id"))
			return
		}
		filter.HubID = &hubID
	}
	if v := c.Query("recordType"); v != "" {
		rt := inventory.RecordType(v)
		filter.RecordType = &rt
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

	movements, err := h.service.GetMovementHistory(c.Request.Context(), productID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(dto.FromMovements(movements), len(movements), filter.Limit, filter.Offset))
}
