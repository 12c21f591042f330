package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storekit/fulfillment/internal/domain/model"
	"github.com/storekit/fulfillment/internal/server/http/dto"
	"github.com/storekit/fulfillment/internal/server/http/middleware"
	"github.com/storekit/fulfillment/internal/usecase"
)

// OrderHandler manages order-related endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Create handles POST /api/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "validation", Message: err.Error()})
		return
	}

	items := make([]model.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, model.CartItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.facade.CreateOrder(c.Request.Context(), usecase.CheckoutInput{
		Identity:       identity,
		Items:          items,
		CartID:         req.CartID,
		Billing:        toAddress(req.BillingAddress),
		Shipping:       toAddress(req.ShippingAddress),
		CouponCode:     req.CouponCode,
		CustomerNote:   req.CustomerNote,
		ShippingMethod: req.ShippingMethod,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateOrderResponse{
		OrderNumber: order.Number,
		TotalAmount: order.Total.StringFixed(2),
		Currency:    order.Currency,
		Status:      string(order.Status),
	})
}

// List handles GET /api/orders.
func (h *OrderHandler) List(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	orders, err := h.facade.Orders(c.Request.Context(), identity)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(orders) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	response := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		response = append(response, toOrderResponse(&orders[i], false))
	}
	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/orders/:number.
func (h *OrderHandler) Get(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)
	order, err := h.facade.Order(c.Request.Context(), c.Param("number"), identity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order, true))
}

// Cancel handles POST /api/orders/:number/cancel.
func (h *OrderHandler) Cancel(c *gin.Context) {
	identity := middleware.CurrentIdentity(c)

	var req dto.CancelOrderRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "validation", Message: err.Error()})
			return
		}
	}

	order, err := h.facade.CancelOrder(c.Request.Context(), c.Param("number"), identity, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order, true))
}
