package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	models "ecofinds/model"
	"ecofinds/store"
)

// CartLine is a cart entry joined with its current listing. Product is nil
// when the listing no longer exists.
type CartLine struct {
	models.CartItem
	Product *models.Product
}

// DescribeCart looks up the listing behind every entry of cart.
func (s *Service) DescribeCart(ctx context.Context, cart models.Cart) ([]CartLine, error) {
	products, err := s.resolveProducts(ctx, cart.Items)
	if err != nil {
		return nil, err
	}
	out := make([]CartLine, len(cart.Items))
	for i, it := range cart.Items {
		out[i] = CartLine{CartItem: it, Product: products[i]}
	}
	return out, nil
}

// resolveProducts fetches the product of each item, at most
// catalogConcurrency at a time. The result is aligned with items and holds
// nil where the product is gone. Any other lookup failure aborts.
func (s *Service) resolveProducts(ctx context.Context, items []models.CartItem) ([]*models.Product, error) {
	out := make([]*models.Product, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.catalogConcurrency)
	for i, it := range items {
		g.Go(func() error {
			p, err := s.store.GetProduct(gctx, it.ProductID)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("lookup product %s: %w", it.ProductID, err)
			}
			out[i] = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, NewStoreUnavailable(err)
	}
	return out, nil
}
