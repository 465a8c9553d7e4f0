package domain

import "time"

type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// LineItem references an inventory item by its uuid.
type LineItem struct {
	ItemUUID string `json:"uuid"`
	Quantity int    `json:"quantity"`
}

type Order struct {
	UUID      string      `json:"uuid"`
	Email     string      `json:"email"`
	Items     []LineItem  `json:"items"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	DeletedAt *time.Time  `json:"deleted_at,omitempty"`
}
