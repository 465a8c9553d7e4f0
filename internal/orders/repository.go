package orders

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/stockroom-io/stockroom/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists the order and decrements stock for every line item inside
// a single transaction. Each decrement is conditional on remaining stock, so
// a failing line item rolls back the decrements applied before it and two
// concurrent orders cannot jointly oversell an item.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	order.UUID = uuid.New().String()
	order.Status = domain.OrderStatusPlaced
	order.CreatedAt = time.Now().UTC()

	// Decrements take row locks in item uuid order so two transactions
	// naming the same items in opposite order cannot deadlock. The order's
	// own line item sequence is preserved separately below.
	decrements := make([]domain.LineItem, len(order.Items))
	copy(decrements, order.Items)
	sort.Slice(decrements, func(i, j int) bool {
		return decrements[i].ItemUUID < decrements[j].ItemUUID
	})

	for _, item := range decrements {
		result, err := tx.ExecContext(ctx, `
			UPDATE items
			SET quantity = quantity - $2
			WHERE uuid = $1 AND deleted_at IS NULL AND quantity >= $2
		`, item.ItemUUID, item.Quantity)
		if err != nil {
			return err
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}

		if rowsAffected == 0 {
			var exists bool
			err := tx.QueryRowContext(ctx, `
				SELECT EXISTS (SELECT 1 FROM items WHERE uuid = $1 AND deleted_at IS NULL)
			`, item.ItemUUID).Scan(&exists)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("item %s: %w", item.ItemUUID, domain.ErrUnknownItem)
			}
			return fmt.Errorf("item %s: %w", item.ItemUUID, domain.ErrInsufficientStock)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (uuid, email, status, created_at)
		VALUES ($1, $2, $3, $4)
	`, order.UUID, order.Email, order.Status, order.CreatedAt)
	if err != nil {
		return err
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_uuid, item_uuid, quantity, position)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New().String(), order.UUID, item.ItemUUID, item.Quantity, i)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *OrderRepository) GetByUUID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT uuid, email, status, created_at
		FROM orders
		WHERE uuid = $1 AND deleted_at IS NULL
	`, id).Scan(&order.UUID, &order.Email, &order.Status, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT item_uuid, quantity
		FROM order_items
		WHERE order_uuid = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	order.Items = []domain.LineItem{}
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ItemUUID, &item.Quantity); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT uuid, email, status, created_at
		FROM orders
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderUUIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.UUID, &order.Email, &order.Status, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.Items = []domain.LineItem{}
		orderMap[order.UUID] = &order
		orderUUIDs = append(orderUUIDs, order.UUID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderUUIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_uuid, item_uuid, quantity
		FROM order_items
		WHERE order_uuid = ANY($1)
		ORDER BY position
	`, pq.Array(orderUUIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderUUID string
		var item domain.LineItem
		if err := itemRows.Scan(&orderUUID, &item.ItemUUID, &item.Quantity); err != nil {
			return nil, err
		}
		order := orderMap[orderUUID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderUUIDs))
	for _, id := range orderUUIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

// Cancel transitions the order to CANCELLED and restores stock for every
// line item. A second cancel finds the status already CANCELLED and skips
// the restore, so repeated cancels have the effect of a single one. The
// returned bool reports whether stock was restored by this call. A nil order
// means the uuid is unknown or the order was soft-deleted.
func (r *OrderRepository) Cancel(ctx context.Context, id string) (*domain.Order, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback() }()

	order := &domain.Order{}
	err = tx.QueryRowContext(ctx, `
		SELECT uuid, email, status, created_at FROM orders
		WHERE uuid = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, id).Scan(&order.UUID, &order.Email, &order.Status, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	restored := false
	if order.Status != domain.OrderStatusCancelled {
		if err := restoreStock(ctx, tx, id); err != nil {
			return nil, false, err
		}
		restored = true
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET status = $2 WHERE uuid = $1
	`, id, domain.OrderStatusCancelled)
	if err != nil {
		return nil, false, err
	}
	order.Status = domain.OrderStatusCancelled

	// The returned record is assembled inside the transaction; a re-read
	// after commit could miss the row if a concurrent delete lands first.
	rows, err := tx.QueryContext(ctx, `
		SELECT item_uuid, quantity
		FROM order_items
		WHERE order_uuid = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = rows.Close() }()

	order.Items = []domain.LineItem{}
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ItemUUID, &item.Quantity); err != nil {
			return nil, false, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	return order, restored, nil
}

// SoftDelete sets the deletion timestamp and, when the order was never
// cancelled, restores stock exactly as a cancellation would. The status
// field is left untouched either way.
func (r *OrderRepository) SoftDelete(ctx context.Context, id string) (*domain.Order, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback() }()

	order := &domain.Order{}
	err = tx.QueryRowContext(ctx, `
		SELECT uuid, email, status, created_at FROM orders
		WHERE uuid = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, id).Scan(&order.UUID, &order.Email, &order.Status, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	restored := false
	if order.Status != domain.OrderStatusCancelled {
		if err := restoreStock(ctx, tx, id); err != nil {
			return nil, false, err
		}
		restored = true
	}

	var deletedAt time.Time
	err = tx.QueryRowContext(ctx, `
		UPDATE orders SET deleted_at = NOW() WHERE uuid = $1
		RETURNING deleted_at
	`, id).Scan(&deletedAt)
	if err != nil {
		return nil, false, err
	}
	order.DeletedAt = &deletedAt

	rows, err := tx.QueryContext(ctx, `
		SELECT item_uuid, quantity
		FROM order_items
		WHERE order_uuid = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = rows.Close() }()

	order.Items = []domain.LineItem{}
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ItemUUID, &item.Quantity); err != nil {
			return nil, false, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	return order, restored, nil
}

// restoreStock adds each line item's quantity back to its inventory record.
// The update is unconditional: restores apply even to items soft-deleted in
// the meantime.
func restoreStock(ctx context.Context, tx *sql.Tx, orderUUID string) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT item_uuid, quantity
		FROM order_items
		WHERE order_uuid = $1
		ORDER BY position
	`, orderUUID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	var items []domain.LineItem
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ItemUUID, &item.Quantity); err != nil {
			return err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return err
	}

	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			UPDATE items SET quantity = quantity + $2 WHERE uuid = $1
		`, item.ItemUUID, item.Quantity)
		if err != nil {
			return err
		}
	}

	return nil
}
