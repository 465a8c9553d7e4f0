package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/stockroom-io/stockroom/internal/domain"
	"github.com/stockroom-io/stockroom/internal/messaging"
)

type Handler struct {
	repo      *OrderRepository
	created   *messaging.Producer
	cancelled *messaging.Producer
	logger    *slog.Logger
}

// NewHandler wires the order endpoints. Both producers may be nil, in which
// case lifecycle events are not published.
func NewHandler(repo *OrderRepository, created, cancelled *messaging.Producer, logger *slog.Logger) *Handler {
	return &Handler{
		repo:      repo,
		created:   created,
		cancelled: cancelled,
		logger:    logger,
	}
}

type createOrderRequest struct {
	Email string            `json:"email"`
	Items []domain.LineItem `json:"items"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" {
		h.writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if req.Items == nil {
		h.writeError(w, http.StatusBadRequest, "items is required")
		return
	}
	for _, item := range req.Items {
		if _, err := uuid.Parse(item.ItemUUID); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid item uuid")
			return
		}
		if item.Quantity < 1 {
			h.writeError(w, http.StatusBadRequest, "item quantity must be at least 1")
			return
		}
	}

	order := &domain.Order{
		Email: req.Email,
		Items: req.Items,
	}

	if err := h.repo.Create(r.Context(), order); err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownItem):
			h.writeError(w, http.StatusBadRequest, "unknown inventory item")
		case errors.Is(err, domain.ErrInsufficientStock):
			h.writeError(w, http.StatusBadRequest, "insufficient stock")
		default:
			h.logger.Error("failed to create order", "error", err)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	if h.created != nil {
		event := domain.OrderCreatedEvent{
			OrderUUID: order.UUID,
			Email:     order.Email,
			Items:     order.Items,
			Timestamp: order.CreatedAt,
		}
		if err := h.created.Publish(r.Context(), order.UUID, event); err != nil {
			h.logger.Error("failed to publish order created event", "error", err, "order_uuid", order.UUID)
		}
	}

	h.logger.Info("order created", "order_uuid", order.UUID, "email", order.Email)
	h.writeJSON(w, http.StatusCreated, map[string]string{"uuid": order.UUID})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r)
	if !ok {
		return
	}

	order, err := h.repo.GetByUUID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_uuid", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.logger.Info("order retrieved", "order_uuid", id)
	h.writeJSON(w, http.StatusOK, order)
}

type updateOrderRequest struct {
	Status domain.OrderStatus `json:"status"`
}

// HandleUpdate accepts the single legal transition, PLACED -> CANCELLED.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r)
	if !ok {
		return
	}

	var req updateOrderRequest
	if err := decodeStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Status != domain.OrderStatusCancelled {
		h.writeError(w, http.StatusBadRequest, "status must be CANCELLED")
		return
	}

	order, restored, err := h.repo.Cancel(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to cancel order", "error", err, "order_uuid", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if restored {
		h.publishCancelled(r, order)
	}

	h.logger.Info("order cancelled", "order_uuid", id, "stock_restored", restored)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r)
	if !ok {
		return
	}

	order, restored, err := h.repo.SoftDelete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete order", "error", err, "order_uuid", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if restored {
		h.publishCancelled(r, order)
	}

	h.logger.Info("order deleted", "order_uuid", id, "stock_restored", restored)
	h.writeJSON(w, http.StatusOK, map[string]string{"uuid": id})
}

func (h *Handler) publishCancelled(r *http.Request, order *domain.Order) {
	if h.cancelled == nil {
		return
	}

	event := domain.OrderCancelledEvent{
		OrderUUID: order.UUID,
		Email:     order.Email,
		Items:     order.Items,
		Timestamp: time.Now().UTC(),
	}
	if err := h.cancelled.Publish(r.Context(), order.UUID, event); err != nil {
		h.logger.Error("failed to publish order cancelled event", "error", err, "order_uuid", order.UUID)
	}
}

func (h *Handler) pathUUID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("uuid")
	if _, err := uuid.Parse(id); err != nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return "", false
	}
	return id, true
}

func decodeStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
