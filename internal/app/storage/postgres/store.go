// Package postgres implements the storage interfaces against a direct
// PostgreSQL connection. Deployments that own the database (rather than going
// through the hosted gateway) get transactional checkout from it.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/catalog"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/order"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage"
)

// Store wraps a *sql.DB.
type Store struct {
	db *sql.DB
}

var _ storage.CatalogStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.TxOrderStore = (*Store)(nil)

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection pool. Tests use this.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

const productColumns = `
	p.id, p.name, p.price, p.category_id, COALESCE(c.name, ''), p.stock,
	COALESCE(p.image, ''), COALESCE(p.barcode, ''), p.parent_id,
	p.is_available, p.created_at`

const productFrom = ` FROM products p LEFT JOIN categories c ON c.id = p.category_id`

func scanProduct(row interface{ Scan(...any) error }) (catalog.Product, error) {
	var (
		p          catalog.Product
		price      string
		categoryID sql.NullString
		parentID   sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &price, &categoryID, &p.CategoryName,
		&p.Stock, &p.Image, &p.Barcode, &parentID, &p.Available, &p.CreatedAt)
	if err != nil {
		return catalog.Product{}, err
	}
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("parse price for product %s: %w", p.ID, err)
	}
	p.CategoryID = categoryID.String
	p.ParentID = parentID.String
	return p, nil
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]catalog.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- CatalogStore: products --------------------------------------------------

func (s *Store) ListProducts(ctx context.Context, q storage.ProductQuery) ([]catalog.Product, error) {
	query := `SELECT` + productColumns + productFrom
	args := []any{}
	if q.CategoryID != "" {
		query += ` WHERE p.category_id = $1`
		args = append(args, q.CategoryID)
	}
	query += fmt.Sprintf(` ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d`,
		len(args)+1, len(args)+2)
	limit := q.Limit
	if limit <= 0 {
		limit = 1000
	}
	args = append(args, limit, q.Offset)
	return s.queryProducts(ctx, query, args...)
}

func (s *Store) SearchProductsByName(ctx context.Context, query string, limit int) ([]catalog.Product, error) {
	q := `SELECT` + productColumns + productFrom +
		` WHERE p.name ILIKE '%' || $1 || '%' ORDER BY p.created_at DESC, p.id DESC LIMIT $2`
	return s.queryProducts(ctx, q, query, limit)
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (catalog.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT`+productColumns+productFrom+` WHERE p.barcode = $1 LIMIT 1`, barcode)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Product{}, storage.ErrNotFound
	}
	return p, err
}

func (s *Store) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT`+productColumns+productFrom+` WHERE p.id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Product{}, storage.ErrNotFound
	}
	return p, err
}

func (s *Store) ListVariants(ctx context.Context, parentID string) ([]catalog.Product, error) {
	return s.queryProducts(ctx,
		`SELECT`+productColumns+productFrom+` WHERE p.parent_id = $1 ORDER BY p.created_at DESC, p.id DESC`,
		parentID)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *Store) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, name, price, category_id, stock, image, barcode, parent_id, is_available, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`,
		id, p.Name, p.Price.String(), nullable(p.CategoryID), p.Stock,
		p.Image, p.Barcode, nullable(p.ParentID), p.Available)
	if err != nil {
		return catalog.Product{}, err
	}
	return s.GetProduct(ctx, id)
}

func (s *Store) CreateProducts(ctx context.Context, ps []catalog.Product) ([]catalog.Product, error) {
	if len(ps) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO products (id, name, price, category_id, stock, image, barcode, parent_id, is_available, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		id := uuid.NewString()
		if _, err := stmt.ExecContext(ctx, id, p.Name, p.Price.String(),
			nullable(p.CategoryID), p.Stock, p.Image, p.Barcode,
			nullable(p.ParentID), p.Available); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET name = $2, price = $3, category_id = $4, stock = $5,
		 image = $6, barcode = $7, parent_id = $8, is_available = $9
		 WHERE id = $1`,
		p.ID, p.Name, p.Price.String(), nullable(p.CategoryID), p.Stock,
		p.Image, p.Barcode, nullable(p.ParentID), p.Available)
	if err != nil {
		return catalog.Product{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.Product{}, storage.ErrNotFound
	}
	return s.GetProduct(ctx, p.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

func (s *Store) SetProductAvailability(ctx context.Context, id string, available bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET is_available = $2 WHERE id = $1`, id, available)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) AdjustStock(ctx context.Context, id string, delta int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET stock = GREATEST(stock + $2, 0) WHERE id = $1`, id, delta)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- CatalogStore: categories ------------------------------------------------

func (s *Store) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Category
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, name string) (catalog.Category, error) {
	c := catalog.Category{ID: uuid.NewString(), Name: name}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO categories (id, name, created_at) VALUES ($1, $2, NOW()) RETURNING created_at`,
		c.ID, c.Name).Scan(&c.CreatedAt)
	if err != nil {
		return catalog.Category{}, err
	}
	return c, nil
}

func (s *Store) RenameCategory(ctx context.Context, id, name string) (catalog.Category, error) {
	var c catalog.Category
	err := s.db.QueryRowContext(ctx,
		`UPDATE categories SET name = $2 WHERE id = $1 RETURNING id, name, created_at`,
		id, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Category{}, storage.ErrNotFound
	}
	if err != nil {
		return catalog.Category{}, err
	}
	return c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE products SET category_id = NULL WHERE category_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// --- OrderStore --------------------------------------------------------------

func scanOrder(row interface{ Scan(...any) error }) (order.Order, error) {
	var (
		o          order.Order
		total      string
		approvedBy sql.NullString
		userID     sql.NullString
	)
	err := row.Scan(&o.ID, &o.CustomerName, &o.CustomerPhone, &o.CustomerEmail,
		&total, &o.Status, &o.Notes, &approvedBy, &userID, &o.Source,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return order.Order{}, err
	}
	o.TotalAmount, err = decimal.NewFromString(total)
	if err != nil {
		return order.Order{}, fmt.Errorf("parse total for order %s: %w", o.ID, err)
	}
	o.ApprovedBy = approvedBy.String
	o.UserID = userID.String
	return o, nil
}

const orderColumns = `
	id, customer_name, COALESCE(customer_phone, ''), COALESCE(customer_email, ''),
	total_amount, status, COALESCE(notes, ''), approved_by, user_id,
	COALESCE(source, ''), created_at, updated_at`

func insertOrderTx(ctx context.Context, tx *sql.Tx, o order.Order) (string, error) {
	id := uuid.NewString()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO orders (id, customer_name, customer_phone, customer_email,
		 total_amount, status, notes, user_id, source, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		id, o.CustomerName, o.CustomerPhone, o.CustomerEmail,
		o.TotalAmount.String(), o.Status, o.Notes, nullable(o.UserID), o.Source)
	return id, err
}

func insertItemsTx(ctx context.Context, tx *sql.Tx, orderID string, items []order.Item) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price, total_price)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), orderID,
			nullable(it.ProductID), it.ProductName, it.Quantity,
			it.UnitPrice.String(), it.TotalPrice.String()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CreateOrder(ctx context.Context, o order.Order) (order.Order, error) {
	if o.Status == "" {
		o.Status = order.StatusPending
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return order.Order{}, err
	}
	defer tx.Rollback()

	id, err := insertOrderTx(ctx, tx, o)
	if err != nil {
		return order.Order{}, err
	}
	if err := tx.Commit(); err != nil {
		return order.Order{}, err
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) CreateOrderItems(ctx context.Context, items []order.Item) ([]order.Item, error) {
	if len(items) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := insertItemsTx(ctx, tx, items[0].OrderID, items); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.listItems(ctx, items[0].OrderID)
}

// CreateOrderWithItems writes the header and all lines in one transaction, so
// a mid-checkout failure never leaves a header without its items.
func (s *Store) CreateOrderWithItems(ctx context.Context, o order.Order) (order.Order, error) {
	if o.Status == "" {
		o.Status = order.StatusPending
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return order.Order{}, err
	}
	defer tx.Rollback()

	id, err := insertOrderTx(ctx, tx, o)
	if err != nil {
		return order.Order{}, err
	}
	if err := insertItemsTx(ctx, tx, id, o.Items); err != nil {
		return order.Order{}, err
	}
	if err := tx.Commit(); err != nil {
		return order.Order{}, err
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) listItems(ctx context.Context, orderID string) ([]order.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, COALESCE(product_id::text, ''), product_name, quantity, unit_price, total_price
		 FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []order.Item
	for rows.Next() {
		var (
			it    order.Item
			unit  string
			total string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID,
			&it.ProductName, &it.Quantity, &unit, &total); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(unit); err != nil {
			return nil, err
		}
		if it.TotalPrice, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) GetOrder(ctx context.Context, id string) (order.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT`+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order.Order{}, storage.ErrNotFound
	}
	if err != nil {
		return order.Order{}, err
	}
	o.Items, err = s.listItems(ctx, id)
	return o, err
}

func (s *Store) ListOrders(ctx context.Context) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT`+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = s.listItems(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status order.Status) (order.Order, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return order.Order{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return order.Order{}, storage.ErrNotFound
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) ApproveOrder(ctx context.Context, id, approver string) (order.Order, error) {
	// The IS NULL guard makes the first approver win; a repeat approve
	// touches zero rows and the stored name survives.
	if _, err := s.db.ExecContext(ctx,
		`UPDATE orders SET approved_by = $2, updated_at = NOW()
		 WHERE id = $1 AND approved_by IS NULL`, id, approver); err != nil {
		return order.Order{}, err
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) DeleteOrderItems(ctx context.Context, orderID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM order_items WHERE order_id = $1`, orderID)
	return err
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	return err
}
