package domain

import "time"

type OrderCreatedEvent struct {
	OrderUUID string     `json:"order_uuid"`
	Email     string     `json:"email"`
	Items     []LineItem `json:"items"`
	Timestamp time.Time  `json:"timestamp"`
}

// OrderCancelledEvent is emitted when stock is restored, either by an
// explicit cancellation or by deleting an order that was never cancelled.
type OrderCancelledEvent struct {
	OrderUUID string     `json:"order_uuid"`
	Email     string     `json:"email"`
	Items     []LineItem `json:"items"`
	Timestamp time.Time  `json:"timestamp"`
}
