package inventory

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/stockroom-io/stockroom/internal/domain"
)

type Handler struct {
	repo   *ItemRepository
	logger *slog.Logger
}

func NewHandler(repo *ItemRepository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

type itemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
}

func (req *itemRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.Description == "" {
		return "description is required"
	}
	if req.Price < 0 {
		return "price must not be negative"
	}
	return ""
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := req.validate(); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	item := &domain.Item{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
	}

	if err := h.repo.Create(r.Context(), item); err != nil {
		if errors.Is(err, domain.ErrItemNameTaken) {
			h.writeError(w, http.StatusBadRequest, "item name already taken")
			return
		}
		h.logger.Error("failed to create item", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("item created", "item_uuid", item.UUID, "name", item.Name)
	h.writeJSON(w, http.StatusCreated, map[string]string{"uuid": item.UUID})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list items", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("items listed", "count", len(items))
	h.writeJSON(w, http.StatusOK, items)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r)
	if !ok {
		return
	}

	item, err := h.repo.GetByUUID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get item", "error", err, "item_uuid", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if item == nil {
		h.writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.logger.Info("item retrieved", "item_uuid", id)
	h.writeJSON(w, http.StatusOK, item)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if err := decodeStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := req.validate(); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := h.repo.Update(r.Context(), id, &domain.Item{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
	})
	if err != nil {
		if errors.Is(err, domain.ErrItemNameTaken) {
			h.writeError(w, http.StatusBadRequest, "item name already taken")
			return
		}
		h.logger.Error("failed to update item", "error", err, "item_uuid", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if item == nil {
		h.writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.logger.Info("item updated", "item_uuid", id)
	h.writeJSON(w, http.StatusOK, item)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r)
	if !ok {
		return
	}

	deleted, err := h.repo.SoftDelete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete item", "error", err, "item_uuid", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !deleted {
		h.writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.logger.Info("item deleted", "item_uuid", id)
	h.writeJSON(w, http.StatusOK, map[string]string{"uuid": id})
}

// pathUUID extracts and validates the {uuid} path segment. A malformed id
// can never match a stored record, so it reports not found.
func (h *Handler) pathUUID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("uuid")
	if _, err := uuid.Parse(id); err != nil {
		h.writeError(w, http.StatusNotFound, "item not found")
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
