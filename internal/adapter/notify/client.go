package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/storekit/fulfillment/internal/domain/model"
)

// Sink receives order lifecycle notifications for the email/notification
// collaborator. Implementations must be safe to call after commit; failures
// are the caller's to log, never to surface.
type Sink interface {
	OrderConfirmed(ctx context.Context, order *model.Order) error
	OrderCancelled(ctx context.Context, order *model.Order) error
}

// NopSink discards notifications; used when no notify address is configured.
type NopSink struct{}

func (NopSink) OrderConfirmed(context.Context, *model.Order) error { return nil }
func (NopSink) OrderCancelled(context.Context, *model.Order) error { return nil }

// HTTPSink posts order events to the notification service.
type HTTPSink struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

type orderEvent struct {
	Event       string  `json:"event"`
	OrderNumber string  `json:"order_number"`
	Total       string  `json:"total"`
	Currency    string  `json:"currency"`
	UserID      *int64  `json:"user_id,omitempty"`
	GuestEmail  *string `json:"guest_email,omitempty"`
}

// NewHTTPSink creates a sink posting to the notification service.
func NewHTTPSink(baseURL string, logger *slog.Logger) (*HTTPSink, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse notify url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("notify url must be absolute")
	}
	return &HTTPSink{
		baseURL: parsed,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}, nil
}

func (s *HTTPSink) OrderConfirmed(ctx context.Context, order *model.Order) error {
	return s.post(ctx, "order_confirmed", order)
}

func (s *HTTPSink) OrderCancelled(ctx context.Context, order *model.Order) error {
	return s.post(ctx, "order_cancelled", order)
}

func (s *HTTPSink) post(ctx context.Context, event string, order *model.Order) error {
	payload, err := json.Marshal(orderEvent{
		Event:       event,
		OrderNumber: order.Number,
		Total:       order.Total.StringFixed(2),
		Currency:    order.Currency,
		UserID:      order.UserID,
		GuestEmail:  order.GuestEmail,
	})
	if err != nil {
		return err
	}

	endpoint := *s.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/api/notifications/orders")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notify error: %s", resp.Status)
	}
	return nil
}
