// Package postgres is the OrderStore for hosted deployments, on a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS categories (
    id             TEXT PRIMARY KEY,
    account_id     TEXT    NOT NULL,
    name           TEXT    NOT NULL,
    color          TEXT    NOT NULL DEFAULT '',
    display_order  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS menu_items (
    id            TEXT PRIMARY KEY,
    account_id    TEXT          NOT NULL,
    name          TEXT          NOT NULL,
    price         NUMERIC(12,2) NOT NULL,
    category_id   TEXT          REFERENCES categories(id) ON DELETE SET NULL,
    is_available  BOOLEAN       NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS orders (
    id              TEXT PRIMARY KEY,
    account_id      TEXT          NOT NULL,
    customer_name   TEXT          NOT NULL,
    customer_email  TEXT          NOT NULL DEFAULT '',
    customer_phone  TEXT          NOT NULL DEFAULT '',
    order_type      TEXT          NOT NULL,
    status          TEXT          NOT NULL,
    total_amount    NUMERIC(12,2) NOT NULL,
    notes           TEXT          NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ   NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_account ON orders(account_id, created_at);

CREATE TABLE IF NOT EXISTS order_items (
    id            TEXT PRIMARY KEY,
    order_id      TEXT          NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    position      INTEGER       NOT NULL,
    menu_item_id  TEXT          NOT NULL,
    quantity      INTEGER       NOT NULL CHECK (quantity >= 1),
    unit_price    NUMERIC(12,2) NOT NULL,
    line_total    NUMERIC(12,2) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id, position);
`

var (
	_ ports.OrderStore   = (*Store)(nil)
	_ ports.CatalogStore = (*Store)(nil)

	// ErrOrderNotFound is returned by DeleteOrder when the account owns no
	// such order.
	ErrOrderNotFound = errors.New("postgres: order not found")
)

// Store keeps orders and the catalogue in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for dsn, pings it and applies the schema.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool. It is safe on a nil Store.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks a pooled connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) ListCategories(ctx context.Context, accountID string) ([]entity.Category, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, name, color, display_order
		FROM   categories
		WHERE  account_id = $1
		ORDER  BY display_order, name`, accountID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list categories: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Category, error) {
		var c entity.Category
		err := row.Scan(&c.ID, &c.AccountID, &c.Name, &c.Color, &c.DisplayOrder)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: list categories: %w", err)
	}
	return out, nil
}

func (s *Store) InsertCategory(ctx context.Context, c entity.Category) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO categories (id, account_id, name, color, display_order)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.AccountID, c.Name, c.Color, c.DisplayOrder)
	if err != nil {
		return fmt.Errorf("postgres: insert category %q: %w", c.ID, err)
	}
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c entity.Category) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE categories SET name = $1, color = $2, display_order = $3
		WHERE  id = $4 AND account_id = $5`,
		c.Name, c.Color, c.DisplayOrder, c.ID, c.AccountID)
	return expectOne(tag, err, "update category", c.ID)
}

func (s *Store) DeleteCategory(ctx context.Context, accountID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND account_id = $2`, id, accountID)
	return expectOne(tag, err, "delete category", id)
}

func (s *Store) ListMenuItems(ctx context.Context, accountID string) ([]entity.MenuItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, name, price::text, COALESCE(category_id, ''), is_available
		FROM   menu_items
		WHERE  account_id = $1
		ORDER  BY name, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list menu items: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.MenuItem, error) {
		var (
			m     entity.MenuItem
			price string
		)
		if err := row.Scan(&m.ID, &m.AccountID, &m.Name, &price, &m.CategoryID, &m.IsAvailable); err != nil {
			return m, err
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			return m, fmt.Errorf("parse price %q: %w", price, err)
		}
		m.Price = p
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: list menu items: %w", err)
	}
	return out, nil
}

func (s *Store) InsertMenuItem(ctx context.Context, m entity.MenuItem) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO menu_items (id, account_id, name, price, category_id, is_available)
		VALUES ($1, $2, $3, $4::text::numeric, $5, $6)`,
		m.ID, m.AccountID, m.Name, m.Price.String(), optional(m.CategoryID), m.IsAvailable)
	if err != nil {
		return fmt.Errorf("postgres: insert menu item %q: %w", m.ID, err)
	}
	return nil
}

func (s *Store) UpdateMenuItem(ctx context.Context, m entity.MenuItem) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE menu_items SET name = $1, price = $2::text::numeric, category_id = $3, is_available = $4
		WHERE  id = $5 AND account_id = $6`,
		m.Name, m.Price.String(), optional(m.CategoryID), m.IsAvailable, m.ID, m.AccountID)
	return expectOne(tag, err, "update menu item", m.ID)
}

func (s *Store) DeleteMenuItem(ctx context.Context, accountID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM menu_items WHERE id = $1 AND account_id = $2`, id, accountID)
	return expectOne(tag, err, "delete menu item", id)
}

// expectOne turns a statement that matched no row into ports.ErrNotFound.
func expectOne(tag pgconn.CommandTag, err error, op, id string) error {
	if err != nil {
		return fmt.Errorf("postgres: %s %q: %w", op, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: %s %q: %w", op, id, ports.ErrNotFound)
	}
	return nil
}

// InsertOrder writes the order row. An empty ID is replaced by a new uuid.
func (s *Store) InsertOrder(ctx context.Context, o entity.Order) (string, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO orders
			(id, account_id, customer_name, customer_email, customer_phone,
			 order_type, status, total_amount, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::text::numeric, $9, $10)`,
		o.ID, o.AccountID, o.Customer.Name, o.Customer.Email, o.Customer.Phone,
		string(o.OrderType), string(o.Status), o.TotalAmount.String(), o.Notes, o.CreatedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("postgres: insert order %q: %w", o.ID, err)
	}
	return o.ID, nil
}

// InsertOrderLineItems sends every insert as one batch inside a transaction.
func (s *Store) InsertOrderLineItems(ctx context.Context, orderID string, items []entity.OrderLineItem) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin line items for %q: %w", orderID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `
		INSERT INTO order_items (id, order_id, position, menu_item_id, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7::text::numeric)`

	batch := &pgx.Batch{}
	for i, it := range items {
		id := it.ID
		if id == "" {
			id = uuid.NewString()
		}
		batch.Queue(q, id, orderID, i, it.MenuItemID, it.Quantity, it.UnitPrice.String(), it.LineTotal.String())
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: insert line items for %q: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit line items for %q: %w", orderID, err)
	}
	return nil
}

func (s *Store) DeleteOrder(ctx context.Context, accountID, orderID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1 AND account_id = $2`, orderID, accountID)
	if err != nil {
		return fmt.Errorf("postgres: delete order %q: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return nil
}

func (s *Store) SelectOrders(ctx context.Context, filter entity.OrderFilter) ([]entity.Order, error) {
	q := `
		SELECT id, account_id, customer_name, customer_email, customer_phone,
		       order_type, status, total_amount::text, notes, created_at
		FROM   orders
		WHERE  account_id = $1`
	args := []any{filter.AccountID}
	if filter.Status != nil {
		q += ` AND status = $2`
		args = append(args, string(*filter.Status))
	}
	q += ` ORDER BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: select orders: %w", err)
	}
	defer rows.Close()

	var out []entity.Order
	for rows.Next() {
		var (
			o                        entity.Order
			orderType, status, total string
		)
		if err := rows.Scan(
			&o.ID, &o.AccountID, &o.Customer.Name, &o.Customer.Email, &o.Customer.Phone,
			&orderType, &status, &total, &o.Notes, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		o.OrderType = entity.OrderType(orderType)
		o.Status = entity.OrderStatus(status)
		if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("postgres: parse total %q: %w", total, err)
		}
		o.CreatedAt = o.CreatedAt.UTC()
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: select orders: %w", err)
	}
	return out, nil
}

func (s *Store) SelectLineItemRows(ctx context.Context, accountID string) ([]entity.LineItemRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.menu_item_id, oi.quantity, oi.unit_price::text, oi.line_total::text,
		       mi.id, mi.name, mi.price::text, mi.category_id,
		       c.id, c.name, c.color
		FROM   order_items oi
		JOIN   orders o            ON o.id = oi.order_id
		LEFT   JOIN menu_items mi  ON mi.id = oi.menu_item_id
		LEFT   JOIN categories c   ON c.id = mi.category_id
		WHERE  o.account_id = $1
		ORDER  BY o.created_at, o.id, oi.position`, accountID)
	if err != nil {
		return nil, fmt.Errorf("postgres: select line items: %w", err)
	}
	defer rows.Close()

	var out []entity.LineItemRow
	for rows.Next() {
		var (
			r                        entity.LineItemRow
			unitPrice, lineTotal     string
			miID, miName, miPrice    *string
			miCat                    *string
			catID, catName, catColor *string
		)
		if err := rows.Scan(
			&r.ID, &r.OrderID, &r.MenuItemID, &r.Quantity, &unitPrice, &lineTotal,
			&miID, &miName, &miPrice, &miCat,
			&catID, &catName, &catColor,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan line item: %w", err)
		}
		if r.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("postgres: parse unit price %q: %w", unitPrice, err)
		}
		if r.LineTotal, err = decimal.NewFromString(lineTotal); err != nil {
			return nil, fmt.Errorf("postgres: parse line total %q: %w", lineTotal, err)
		}
		if miID != nil {
			ref := &entity.MenuItemRef{ID: *miID, Name: deref(miName), CategoryID: deref(miCat)}
			if miPrice != nil {
				if ref.Price, err = decimal.NewFromString(*miPrice); err != nil {
					return nil, fmt.Errorf("postgres: parse menu price %q: %w", *miPrice, err)
				}
			}
			r.MenuItem = ref
		}
		if catID != nil {
			r.Category = &entity.CategoryRef{ID: *catID, Name: deref(catName), Color: deref(catColor)}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: select line items: %w", err)
	}
	return out, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
