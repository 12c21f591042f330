package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/storekit/fulfillment/internal/domain/errors"
	"github.com/storekit/fulfillment/internal/domain/model"
	"github.com/storekit/fulfillment/internal/server/http/dto"
)

// writeError maps domain errors onto the HTTP taxonomy. Raw storage errors
// never reach the caller.
func writeError(c *gin.Context, err error) {
	var couponErr domainErrors.CouponError

	switch {
	case errors.As(err, &couponErr):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "coupon_invalid", Message: couponErr.Error()})
	case errors.Is(err, domainErrors.ErrValidation):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "validation", Message: err.Error()})
	case errors.Is(err, domainErrors.ErrInsufficientStock):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "insufficient_stock", Message: "insufficient stock for one or more items"})
	case errors.Is(err, domainErrors.ErrProductUnavailable):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "product_unavailable", Message: "product unavailable"})
	case errors.Is(err, domainErrors.ErrCouponInvalid):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "coupon_invalid", Message: err.Error()})
	case errors.Is(err, domainErrors.ErrCouponExhausted):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Code: "coupon_exhausted", Message: "coupon usage limit exhausted"})
	case errors.Is(err, domainErrors.ErrOrderNotCancellable):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "not_cancellable", Message: "order is not cancellable"})
	case errors.Is(err, domainErrors.ErrIllegalTransition):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "illegal_transition", Message: "illegal status transition"})
	case errors.Is(err, domainErrors.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "invalid_signature", Message: "webhook signature verification failed"})
	case errors.Is(err, domainErrors.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Code: "forbidden", Message: "not allowed"})
	case errors.Is(err, domainErrors.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Code: "not_found", Message: "resource not found"})
	case errors.Is(err, domainErrors.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Code: "gateway_unavailable", Message: "payment gateway unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: "internal", Message: "internal error"})
	}
}

func toOrderResponse(order *model.Order, withItems bool) dto.OrderResponse {
	resp := dto.OrderResponse{
		OrderNumber:    order.Number,
		Subtotal:       order.Subtotal.StringFixed(2),
		Discount:       order.DiscountAmount.StringFixed(2),
		Shipping:       order.ShippingAmount.StringFixed(2),
		Tax:            order.TaxAmount.StringFixed(2),
		Total:          order.Total.StringFixed(2),
		Currency:       order.Currency,
		CouponCode:     order.CouponCode,
		PaymentStatus:  string(order.PaymentStatus),
		Status:         string(order.Status),
		ShippingMethod: order.ShippingMethod,
		CreatedAt:      order.CreatedAt,
		PaidAt:         order.PaidAt,
		CancelledAt:    order.CancelledAt,
	}
	if withItems {
		resp.Items = make([]dto.OrderItemResponse, 0, len(order.Items))
		for _, item := range order.Items {
			resp.Items = append(resp.Items, dto.OrderItemResponse{
				ProductID:   item.ProductID,
				VariantID:   item.VariantID,
				ProductName: item.ProductName,
				SKU:         item.SKU,
				UnitPrice:   item.UnitPrice.StringFixed(2),
				Quantity:    item.Quantity,
				Subtotal:    item.Subtotal.StringFixed(2),
			})
		}
	}
	return resp
}

func toAddress(a dto.AddressPayload) model.Address {
	return model.Address{
		Name:       a.Name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}
