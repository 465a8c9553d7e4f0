package domain

import "time"

// Item is an inventory record. Soft-deleted items keep their row but carry a
// DeletedAt timestamp and are hidden from listings and lookups.
type Item struct {
	UUID        string     `json:"uuid"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       int64      `json:"price"`
	Quantity    int        `json:"quantity"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}
