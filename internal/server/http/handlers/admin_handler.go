package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storekit/fulfillment/internal/domain/model"
	"github.com/storekit/fulfillment/internal/server/http/dto"
	"github.com/storekit/fulfillment/internal/server/http/middleware"
)

// AdminHandler serves back-office order and inventory operations.
type AdminHandler struct {
	facade AdminFacade
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(facade AdminFacade) *AdminHandler {
	return &AdminHandler{facade: facade}
}

// UpdateStatus handles PATCH /api/admin/orders/:number/status.
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "validation", Message: "invalid request body"})
		return
	}

	actor := c.GetString(middleware.AdminActorContextKey)
	order, err := h.facade.SetOrderStatus(c.Request.Context(), c.Param("number"), model.OrderStatus(req.Status), actor, req.Comment)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order, false))
}

// AdjustInventory handles POST /api/admin/inventory/adjust.
func (h *AdminHandler) AdjustInventory(c *gin.Context) {
	var req dto.AdjustInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "validation", Message: "invalid request body"})
		return
	}

	if err := h.facade.AdjustInventory(c.Request.Context(), req.ProductID, req.VariantID, req.Delta, req.Note); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
