package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storekit/fulfillment/internal/server/http/dto"
)

// SignatureHeader carries the gateway's HMAC signature over the raw body.
const SignatureHeader = "X-Payment-Signature"

// WebhookHandler accepts payment-gateway events.
type WebhookHandler struct {
	facade WebhookFacade
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(facade WebhookFacade) *WebhookHandler {
	return &WebhookHandler{facade: facade}
}

// Receive handles POST /api/webhooks/payment. Replays and unknown event
// types acknowledge 200; only signature or payload failures reject.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "validation", Message: "unreadable body"})
		return
	}

	if _, err := h.facade.HandleWebhook(c.Request.Context(), body, c.GetHeader(SignatureHeader)); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.WebhookAck{Received: true})
}
