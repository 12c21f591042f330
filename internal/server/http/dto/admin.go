package dto

// UpdateStatusRequest is the admin fulfillment transition payload.
type UpdateStatusRequest struct {
	Status  string  `json:"status" binding:"required"`
	Comment *string `json:"comment"`
}

// AdjustInventoryRequest is the admin manual stock correction payload.
type AdjustInventoryRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	VariantID *int64 `json:"variant_id"`
	Delta     int64  `json:"delta" binding:"required"`
	Note      string `json:"note"`
}

// WebhookAck acknowledges a processed gateway event.
type WebhookAck struct {
	Received bool `json:"received"`
}
