// Package sqlite is the embedded OrderStore on the pure-Go modernc driver.
// Money is stored as TEXT decimal strings so no value ever passes through a
// float.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/ports"

	_ "modernc.org/sqlite"
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
    account_id    TEXT    NOT NULL,
    name          TEXT    NOT NULL,
    price         TEXT    NOT NULL,
    category_id   TEXT    REFERENCES categories(id) ON DELETE SET NULL,
    is_available  INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS orders (
    id              TEXT PRIMARY KEY,
    account_id      TEXT NOT NULL,
    customer_name   TEXT NOT NULL,
    customer_email  TEXT NOT NULL DEFAULT '',
    customer_phone  TEXT NOT NULL DEFAULT '',
    order_type      TEXT NOT NULL,
    status          TEXT NOT NULL,
    total_amount    TEXT NOT NULL,
    notes           TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_account ON orders(account_id, created_at);

-- menu_item_id is a reference, not a foreign key: menu items may be deleted
-- while their order history stays.
CREATE TABLE IF NOT EXISTS order_items (
    id            TEXT PRIMARY KEY,
    order_id      TEXT    NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    position      INTEGER NOT NULL,
    menu_item_id  TEXT    NOT NULL,
    quantity      INTEGER NOT NULL CHECK (quantity >= 1),
    unit_price    TEXT    NOT NULL,
    line_total    TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id, position);
`

// Fixed width so TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var (
	_ ports.OrderStore   = (*Store)(nil)
	_ ports.CatalogStore = (*Store)(nil)
)

// Store is a single-connection SQLite database holding orders and the
// catalogue.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ListCategories(ctx context.Context, accountID string) ([]entity.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, name, color, display_order
		FROM   categories
		WHERE  account_id = ?
		ORDER  BY display_order, name`, accountID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list categories: %w", err)
	}
	defer rows.Close()

	var out []entity.Category
	for rows.Next() {
		var c entity.Category
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Name, &c.Color, &c.DisplayOrder); err != nil {
			return nil, fmt.Errorf("sqlite: scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list categories: %w", err)
	}
	return out, nil
}

func (s *Store) InsertCategory(ctx context.Context, c entity.Category) error {
	const q = `
		INSERT INTO categories (id, account_id, name, color, display_order)
		VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, c.ID, c.AccountID, c.Name, c.Color, c.DisplayOrder); err != nil {
		return fmt.Errorf("sqlite: insert category %q: %w", c.ID, err)
	}
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c entity.Category) error {
	const q = `
		UPDATE categories SET name = ?, color = ?, display_order = ?
		WHERE  id = ? AND account_id = ?`
	res, err := s.db.ExecContext(ctx, q, c.Name, c.Color, c.DisplayOrder, c.ID, c.AccountID)
	return expectOne(res, err, "update category", c.ID)
}

// DeleteCategory relies on ON DELETE SET NULL to uncategorise its items.
func (s *Store) DeleteCategory(ctx context.Context, accountID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND account_id = ?`, id, accountID)
	return expectOne(res, err, "delete category", id)
}

func (s *Store) ListMenuItems(ctx context.Context, accountID string) ([]entity.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, name, price, COALESCE(category_id, ''), is_available
		FROM   menu_items
		WHERE  account_id = ?
		ORDER  BY name, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list menu items: %w", err)
	}
	defer rows.Close()

	var out []entity.MenuItem
	for rows.Next() {
		var m entity.MenuItem
		if err := rows.Scan(&m.ID, &m.AccountID, &m.Name, &m.Price, &m.CategoryID, &m.IsAvailable); err != nil {
			return nil, fmt.Errorf("sqlite: scan menu item: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list menu items: %w", err)
	}
	return out, nil
}

func (s *Store) InsertMenuItem(ctx context.Context, m entity.MenuItem) error {
	const q = `
		INSERT INTO menu_items (id, account_id, name, price, category_id, is_available)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q,
		m.ID, m.AccountID, m.Name, m.Price.String(), nullableString(m.CategoryID), m.IsAvailable,
	); err != nil {
		return fmt.Errorf("sqlite: insert menu item %q: %w", m.ID, err)
	}
	return nil
}

func (s *Store) UpdateMenuItem(ctx context.Context, m entity.MenuItem) error {
	const q = `
		UPDATE menu_items SET name = ?, price = ?, category_id = ?, is_available = ?
		WHERE  id = ? AND account_id = ?`
	res, err := s.db.ExecContext(ctx, q,
		m.Name, m.Price.String(), nullableString(m.CategoryID), m.IsAvailable, m.ID, m.AccountID,
	)
	return expectOne(res, err, "update menu item", m.ID)
}

// DeleteMenuItem removes the item; order_items keep its id as a bare reference.
func (s *Store) DeleteMenuItem(ctx context.Context, accountID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = ? AND account_id = ?`, id, accountID)
	return expectOne(res, err, "delete menu item", id)
}

// expectOne turns a statement that matched no row into ports.ErrNotFound.
func expectOne(res sql.Result, err error, op, id string) error {
	if err != nil {
		return fmt.Errorf("sqlite: %s %q: %w", op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: %s %q: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("sqlite: %s %q: %w", op, id, ports.ErrNotFound)
	}
	return nil
}

// InsertOrder writes the order row. An empty ID is replaced by a new uuid.
func (s *Store) InsertOrder(ctx context.Context, o entity.Order) (string, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO orders
			(id, account_id, customer_name, customer_email, customer_phone,
			 order_type, status, total_amount, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		o.ID, o.AccountID, o.Customer.Name, o.Customer.Email, o.Customer.Phone,
		string(o.OrderType), string(o.Status), o.TotalAmount.String(), o.Notes,
		o.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("sqlite: insert order %q: %w", o.ID, err)
	}
	return o.ID, nil
}

// InsertOrderLineItems writes every item in one transaction.
func (s *Store) InsertOrderLineItems(ctx context.Context, orderID string, items []entity.OrderLineItem) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin line items for %q: %w", orderID, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const q = `
		INSERT INTO order_items (id, order_id, position, menu_item_id, quantity, unit_price, line_total)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	for i, it := range items {
		id := it.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err = tx.ExecContext(ctx, q,
			id, orderID, i, it.MenuItemID, it.Quantity, it.UnitPrice.String(), it.LineTotal.String(),
		); err != nil {
			return fmt.Errorf("sqlite: insert line item %d of %q: %w", i, orderID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit line items for %q: %w", orderID, err)
	}
	return nil
}

// ErrOrderNotFound is returned by DeleteOrder when the account owns no such order.
var ErrOrderNotFound = errors.New("sqlite: order not found")

func (s *Store) DeleteOrder(ctx context.Context, accountID, orderID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ? AND account_id = ?`, orderID, accountID)
	if err != nil {
		return fmt.Errorf("sqlite: delete order %q: %w", orderID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete order %q: %w", orderID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return nil
}

func (s *Store) SelectOrders(ctx context.Context, filter entity.OrderFilter) ([]entity.Order, error) {
	q := `
		SELECT id, account_id, customer_name, customer_email, customer_phone,
		       order_type, status, total_amount, notes, created_at
		FROM   orders
		WHERE  account_id = ?`
	args := []any{filter.AccountID}
	if filter.Status != nil {
		q += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	q += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select orders: %w", err)
	}
	defer rows.Close()

	var out []entity.Order
	for rows.Next() {
		var (
			o         entity.Order
			createdAt string
		)
		if err := rows.Scan(
			&o.ID, &o.AccountID, &o.Customer.Name, &o.Customer.Email, &o.Customer.Phone,
			&o.OrderType, &o.Status, &o.TotalAmount, &o.Notes, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan order: %w", err)
		}
		if o.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: parse created_at %q: %w", createdAt, err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: select orders: %w", err)
	}
	return out, nil
}

func (s *Store) SelectLineItemRows(ctx context.Context, accountID string) ([]entity.LineItemRow, error) {
	const q = `
		SELECT oi.id, oi.order_id, oi.menu_item_id, oi.quantity, oi.unit_price, oi.line_total,
		       mi.id, mi.name, mi.price, mi.category_id,
		       c.id, c.name, c.color
		FROM   order_items oi
		JOIN   orders o       ON o.id = oi.order_id
		LEFT   JOIN menu_items mi ON mi.id = oi.menu_item_id
		LEFT   JOIN categories c  ON c.id = mi.category_id
		WHERE  o.account_id = ?
		ORDER  BY o.created_at, o.id, oi.position`

	rows, err := s.db.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select line items: %w", err)
	}
	defer rows.Close()

	var out []entity.LineItemRow
	for rows.Next() {
		var (
			r                        entity.LineItemRow
			miID, miName, miCat      sql.NullString
			miPrice                  decimal.NullDecimal
			catID, catName, catColor sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &r.OrderID, &r.MenuItemID, &r.Quantity, &r.UnitPrice, &r.LineTotal,
			&miID, &miName, &miPrice, &miCat,
			&catID, &catName, &catColor,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan line item: %w", err)
		}
		if miID.Valid {
			r.MenuItem = &entity.MenuItemRef{ID: miID.String, Name: miName.String, Price: miPrice.Decimal, CategoryID: miCat.String}
		}
		if catID.Valid {
			r.Category = &entity.CategoryRef{ID: catID.String, Name: catName.String, Color: catColor.String}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: select line items: %w", err)
	}
	return out, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
