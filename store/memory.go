package store

import (
	"context"
	"sort"
	"sync"
	"time"

	models "ecofinds/model"
)

// MemoryStore keeps everything in process. It is used for local runs and
// tests. Every value crossing the API is copied.
type MemoryStore struct {
	mu       sync.Mutex
	products map[string]models.Product
	carts    map[string]models.Cart
	orders   map[string]models.Order
	byUser   map[string][]string // order ids in append order
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]models.Product),
		carts:    make(map[string]models.Cart),
		orders:   make(map[string]models.Order),
		byUser:   make(map[string][]string),
		now:      time.Now,
	}
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }
func (s *MemoryStore) Close() error                  { return nil }

func (s *MemoryStore) CreateProduct(_ context.Context, p models.Product) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.products[p.ID] = p
	return p, nil
}

// DeleteProduct removes a listing. Carts that reference it are left alone.
func (s *MemoryStore) DeleteProduct(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

func (s *MemoryStore) GetProduct(_ context.Context, id string) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return models.Product{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) ListProducts(context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) GetCart(_ context.Context, userID string) (models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	if !ok {
		return models.NewCart(userID), nil
	}
	return c.Clone(), nil
}

func (s *MemoryStore) PutCart(_ context.Context, cart models.Cart) (models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carts[cart.UserID].Version != cart.Version {
		return models.Cart{}, ErrConflict
	}
	next := cart.Clone()
	next.Version = cart.Version + 1
	next.UpdatedAt = s.now()
	s.carts[cart.UserID] = next
	return next.Clone(), nil
}

func (s *MemoryStore) AppendOrder(_ context.Context, order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(order)
	return nil
}

func (s *MemoryStore) CommitCheckout(_ context.Context, order models.Order, cartVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[order.UserID]
	if !ok || cart.Version != cartVersion {
		return ErrConflict
	}
	s.appendLocked(order)
	cart.Clear()
	cart.Version++
	cart.UpdatedAt = s.now()
	s.carts[order.UserID] = cart
	return nil
}

func (s *MemoryStore) appendLocked(order models.Order) {
	order.Items = append([]models.OrderItem(nil), order.Items...)
	s.orders[order.ID] = order
	s.byUser[order.UserID] = append(s.byUser[order.UserID], order.ID)
}

func (s *MemoryStore) ListOrdersByUser(_ context.Context, userID string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.byUser[userID]
	out := make([]models.Order, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, copyOrder(s.orders[ids[i]]))
	}
	// Append order already approximates recency; the stable sort settles
	// orders whose clocks disagree with it.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, ErrNotFound
	}
	return copyOrder(o), nil
}

func (s *MemoryStore) UpdatePaymentStatus(_ context.Context, id string, from, to models.PaymentStatus) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, ErrNotFound
	}
	if o.PaymentStatus != from {
		return models.Order{}, ErrConflict
	}
	o.PaymentStatus = to
	s.orders[id] = o
	return copyOrder(o), nil
}

func copyOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem{}, o.Items...)
	return o
}
