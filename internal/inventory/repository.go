package inventory

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/stockroom-io/stockroom/internal/domain"
)

const uniqueViolation = "23505"

type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	item.UUID = uuid.New().String()
	item.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO items (uuid, name, description, price, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.UUID, item.Name, item.Description, item.Price, item.Quantity, item.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return domain.ErrItemNameTaken
		}
		return err
	}

	return nil
}

func (r *ItemRepository) List(ctx context.Context) ([]domain.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT uuid, name, description, price, quantity, created_at
		FROM items
		WHERE deleted_at IS NULL
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []domain.Item{}
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.UUID, &item.Name, &item.Description, &item.Price, &item.Quantity, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// GetByUUID returns a non-deleted item, or nil when the uuid is unknown or
// the item has been soft-deleted.
func (r *ItemRepository) GetByUUID(ctx context.Context, id string) (*domain.Item, error) {
	item := &domain.Item{}

	err := r.db.QueryRowContext(ctx, `
		SELECT uuid, name, description, price, quantity, created_at
		FROM items
		WHERE uuid = $1 AND deleted_at IS NULL
	`, id).Scan(&item.UUID, &item.Name, &item.Description, &item.Price, &item.Quantity, &item.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return item, nil
}

// GetAny looks an item up regardless of its deletion flag. Soft-deleted rows
// stay in storage and remain visible here.
func (r *ItemRepository) GetAny(ctx context.Context, id string) (*domain.Item, error) {
	item := &domain.Item{}
	var deletedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT uuid, name, description, price, quantity, created_at, deleted_at
		FROM items
		WHERE uuid = $1
	`, id).Scan(&item.UUID, &item.Name, &item.Description, &item.Price, &item.Quantity, &item.CreatedAt, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if deletedAt.Valid {
		t := deletedAt.Time
		item.DeletedAt = &t
	}

	return item, nil
}

// Update overwrites name, description, price and quantity. Returns the
// updated record, or nil when the uuid is unknown or soft-deleted.
func (r *ItemRepository) Update(ctx context.Context, id string, item *domain.Item) (*domain.Item, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET name = $2, description = $3, price = $4, quantity = $5
		WHERE uuid = $1 AND deleted_at IS NULL
	`, id, item.Name, item.Description, item.Price, item.Quantity)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return nil, domain.ErrItemNameTaken
		}
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetByUUID(ctx, id)
}

func (r *ItemRepository) SoftDelete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET deleted_at = NOW()
		WHERE uuid = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// AdjustQuantity applies quantity += delta in a single statement. No lower
// bound is enforced here; the guarded decrement lives in the order create
// path.
func (r *ItemRepository) AdjustQuantity(ctx context.Context, id string, delta int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE items
		SET quantity = quantity + $2
		WHERE uuid = $1
	`, id, delta)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrUnknownItem
	}

	return nil
}
