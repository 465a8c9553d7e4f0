package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/stockroom-io/stockroom/internal/domain"
)

// NotificationHandler turns order lifecycle events into emails. Stock is
// already settled transactionally by the API, so the worker only notifies.
type NotificationHandler struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewNotificationHandler(emailServiceURL string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		emailServiceURL: emailServiceURL,
		httpClient:      client,
		logger:          logger,
	}
}

func (h *NotificationHandler) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.Info("processing order created event", "order_uuid", event.OrderUUID, "email", event.Email)

	body := map[string]string{
		"to":      event.Email,
		"subject": "Order Placed: " + event.OrderUUID,
		"body":    fmt.Sprintf("Your order %s has been placed with %d items.", event.OrderUUID, len(event.Items)),
	}

	if err := h.sendEmail(ctx, body); err != nil {
		h.logger.Error("failed to send confirmation email", "error", err, "order_uuid", event.OrderUUID)
		return fmt.Errorf("send confirmation email: %w", err)
	}

	return nil
}

func (h *NotificationHandler) HandleOrderCancelled(ctx context.Context, payload []byte) error {
	var event domain.OrderCancelledEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order cancelled event: %w", err)
	}

	h.logger.Info("processing order cancelled event", "order_uuid", event.OrderUUID, "email", event.Email)

	body := map[string]string{
		"to":      event.Email,
		"subject": "Order Cancelled: " + event.OrderUUID,
		"body":    fmt.Sprintf("Your order %s has been cancelled and the reserved stock released.", event.OrderUUID),
	}

	if err := h.sendEmail(ctx, body); err != nil {
		h.logger.Error("failed to send cancellation email", "error", err, "order_uuid", event.OrderUUID)
		return fmt.Errorf("send cancellation email: %w", err)
	}

	return nil
}

func (h *NotificationHandler) sendEmail(ctx context.Context, body map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}
