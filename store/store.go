package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	models "ecofinds/model"
)

//go:embed migrations.sql
var migrationSQL string

// PostgresStore is a Store backed by Postgres. Each cart is a single JSONB
// document guarded by a version column, so a cart write is one row update.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, migrationSQL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// --- products ---

const productColumns = `id, seller_id, title, description, category, price, created_at`

func scanProduct(row scanner) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.SellerID, &p.Title, &p.Description, &p.Category, &p.Price, &p.CreatedAt)
	return p, err
}

// CreateProduct inserts a listing and returns it with its creation time.
func (s *PostgresStore) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO products (id, seller_id, title, description, category, price) VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		p.ID, p.SellerID, p.Title, p.Description, p.Category, p.Price,
	).Scan(&p.CreatedAt)
	if err != nil {
		return models.Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (models.Product, error) {
	p, err := scanProduct(s.DB.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, ErrNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	out := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- carts ---

func (s *PostgresStore) GetCart(ctx context.Context, userID string) (models.Cart, error) {
	cart := models.NewCart(userID)
	var raw []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT items, version, updated_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&raw, &cart.Version, &cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return cart, nil
	}
	if err != nil {
		return models.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	if err := json.Unmarshal(raw, &cart.Items); err != nil {
		return models.Cart{}, fmt.Errorf("decode cart %s: %w", userID, err)
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return cart, nil
}

// PutCart inserts the first version of a cart or updates it in place when
// the stored version still matches. Either statement returns no row when it
// loses a race, which is reported as ErrConflict.
func (s *PostgresStore) PutCart(ctx context.Context, cart models.Cart) (models.Cart, error) {
	out := cart.Clone()
	items, err := json.Marshal(out.Items)
	if err != nil {
		return models.Cart{}, fmt.Errorf("encode cart: %w", err)
	}

	var row *sql.Row
	if cart.Version == 0 {
		row = s.DB.QueryRowContext(ctx, `
		INSERT INTO carts (user_id, items, version, updated_at)
		VALUES ($1, $2::jsonb, 1, now())
		ON CONFLICT (user_id) DO NOTHING
		RETURNING version, updated_at`, cart.UserID, string(items))
	} else {
		row = s.DB.QueryRowContext(ctx, `
		UPDATE carts SET items = $2::jsonb, version = version + 1, updated_at = now()
		WHERE user_id = $1 AND version = $3
		RETURNING version, updated_at`, cart.UserID, string(items), cart.Version)
	}

	if err := row.Scan(&out.Version, &out.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Cart{}, ErrConflict
		}
		return models.Cart{}, fmt.Errorf("put cart: %w", err)
	}
	return out, nil
}

// --- orders ---

// CommitCheckout writes the order and its items and empties the cart in a
// single transaction. The cart update is conditional on cartVersion; if it
// matches no row the transaction is rolled back and ErrConflict returned.
func (s *PostgresStore) CommitCheckout(ctx context.Context, order models.Order, cartVersion int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkout: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertOrder(ctx, tx, order); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE carts SET items = '[]'::jsonb, version = version + 1, updated_at = now() WHERE user_id = $1 AND version = $2`,
		order.UserID, cartVersion)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkout: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendOrder(ctx context.Context, order models.Order) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append order: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertOrder(ctx, tx, order); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append order: %w", err)
	}
	return nil
}

func insertOrder(ctx context.Context, tx *sql.Tx, order models.Order) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, total, payment_method, payment_status, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		order.ID, order.UserID, order.Total, string(order.PaymentMethod), string(order.PaymentStatus), order.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO order_items (order_id, position, product_id, title, quantity, unit_price) VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("prepare order items: %w", err)
	}
	defer stmt.Close()

	for i, it := range order.Items {
		if _, err := stmt.ExecContext(ctx, order.ID, i, it.ProductID, it.Title, it.Quantity, it.UnitPrice); err != nil {
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
	}
	return nil
}

const orderColumns = `id, user_id, total, payment_method, payment_status, created_at`

func scanOrder(row scanner) (models.Order, error) {
	var o models.Order
	var method, status string
	if err := row.Scan(&o.ID, &o.UserID, &o.Total, &method, &status, &o.CreatedAt); err != nil {
		return models.Order{}, err
	}
	o.PaymentMethod = models.PaymentMethod(method)
	o.PaymentStatus = models.PaymentStatus(status)
	o.Items = []models.OrderItem{}
	return o, nil
}

func (s *PostgresStore) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, seq DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	for i, o := range out {
		ids[i] = o.ID
	}
	items, err := s.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if its, ok := items[out[i].ID]; ok {
			out[i].Items = its
		}
	}
	return out, nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (models.Order, error) {
	o, err := scanOrder(s.DB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	items, err := s.loadItems(ctx, []string{id})
	if err != nil {
		return models.Order{}, err
	}
	if its, ok := items[id]; ok {
		o.Items = its
	}
	return o, nil
}

func (s *PostgresStore) loadItems(ctx context.Context, orderIDs []string) (map[string][]models.OrderItem, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT order_id, product_id, title, quantity, unit_price FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`,
		pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.OrderItem, len(orderIDs))
	for rows.Next() {
		var orderID string
		var it models.OrderItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.Title, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("load order items: %w", err)
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus) (models.Order, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE orders SET payment_status = $1 WHERE id = $2 AND payment_status = $3`,
		string(to), id, string(from))
	if err != nil {
		return models.Order{}, fmt.Errorf("update payment status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Order{}, fmt.Errorf("update payment status: %w", err)
	}
	if n == 0 {
		if _, err := s.GetOrder(ctx, id); err != nil {
			return models.Order{}, err
		}
		return models.Order{}, ErrConflict
	}
	return s.GetOrder(ctx, id)
}
