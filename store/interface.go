package store

import (
	"context"
	"errors"

	models "ecofinds/model"
)

var (
	// ErrNotFound is returned when a product or order does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a compare-and-swap lost against a
	// concurrent writer. Callers re-read and retry.
	ErrConflict = errors.New("concurrent modification")
)

// Catalog is the read side of product listings used by the cart and
// checkout code.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (models.Product, error)
}

// Listings adds the write and browse side of the catalog.
type Listings interface {
	Catalog
	CreateProduct(ctx context.Context, p models.Product) (models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// CartStore keeps one cart document per user.
type CartStore interface {
	// GetCart never fails for a missing cart; it returns an empty cart
	// with Version 0.
	GetCart(ctx context.Context, userID string) (models.Cart, error)
	// PutCart replaces the stored cart if its version still equals
	// cart.Version and returns the cart with its new version. It returns
	// ErrConflict otherwise.
	PutCart(ctx context.Context, cart models.Cart) (models.Cart, error)
}

// OrderStore is the append-only order history.
type OrderStore interface {
	AppendOrder(ctx context.Context, order models.Order) error
	// ListOrdersByUser returns orders newest first.
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	GetOrder(ctx context.Context, id string) (models.Order, error)
	// UpdatePaymentStatus moves an order from one status to another. It
	// returns ErrConflict if the current status is not from.
	UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus) (models.Order, error)
}

// CheckoutStore commits a checkout: the order is appended and the cart of
// order.UserID is emptied in one unit, provided the cart is still at
// cartVersion. On a version mismatch nothing is written and ErrConflict is
// returned.
type CheckoutStore interface {
	CommitCheckout(ctx context.Context, order models.Order, cartVersion int64) error
}

type Store interface {
	Listings
	CartStore
	OrderStore
	CheckoutStore

	Migrate(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MongoStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
