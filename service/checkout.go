package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	models "ecofinds/model"
	"ecofinds/store"
)

// Checkout turns the user's cart into an order and empties the cart. Both
// happen in one store commit guarded by the cart version that was priced,
// so a concurrent cart change makes the commit fail and checkout starts
// over from the new cart.
//
// Entries whose product has been removed from the catalog are left out of
// the order.
func (s *Service) Checkout(ctx context.Context, userID string, method models.PaymentMethod) (models.Order, error) {
	if userID == "" {
		return models.Order{}, NewInvalidOperation(ErrMsgUserRequired)
	}
	if method != models.PaymentMethodPayLater && method != models.PaymentMethodGateway {
		return models.Order{}, NewInvalidOperationf("invalid payment method %q", method)
	}

	unlock := s.lockForUser(userID)
	defer unlock()

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		order, version, err := s.priceCart(ctx, userID, method)
		if err != nil {
			return models.Order{}, err
		}

		err = s.store.CommitCheckout(ctx, order, version)
		if err == nil {
			s.log.Info("order placed",
				zap.String("order_id", order.ID),
				zap.String("user_id", userID),
				zap.Int("items", len(order.Items)),
				zap.String("total", order.Total.String()),
				zap.String("payment_method", string(order.PaymentMethod)),
				zap.String("payment_status", string(order.PaymentStatus)))
			return order, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return models.Order{}, NewStoreUnavailable(err)
		}
		lastErr = err
		s.log.Warn("checkout conflict",
			zap.String("user_id", userID),
			zap.Int64("version", version),
			zap.Int("attempt", attempt+1))
	}
	return models.Order{}, NewConflictRetryable(lastErr)
}

// priceCart reads the cart and snapshots current prices into a new order.
// It returns the cart version the order was built from.
func (s *Service) priceCart(ctx context.Context, userID string, method models.PaymentMethod) (models.Order, int64, error) {
	if err := ctx.Err(); err != nil {
		return models.Order{}, 0, NewStoreUnavailable(err)
	}
	cart, err := s.store.GetCart(ctx, userID)
	if err != nil {
		return models.Order{}, 0, NewStoreUnavailable(err)
	}
	if cart.IsEmpty() {
		return models.Order{}, 0, NewInvalidOperation(ErrMsgCartEmpty)
	}

	products, err := s.resolveProducts(ctx, cart.Items)
	if err != nil {
		return models.Order{}, 0, err
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	for i, it := range cart.Items {
		p := products[i]
		if p == nil {
			s.log.Info("dropping unavailable product from checkout",
				zap.String("user_id", userID), zap.String("product_id", it.ProductID))
			continue
		}
		items = append(items, models.OrderItem{
			ProductID: it.ProductID,
			Title:     p.Title,
			Quantity:  it.Quantity,
			UnitPrice: p.Price,
		})
	}
	if len(items) == 0 {
		return models.Order{}, 0, NewInvalidOperation(ErrMsgNoAvailableItems)
	}

	return models.Order{
		ID:            s.newID(),
		UserID:        userID,
		Items:         items,
		Total:         models.SumItems(items),
		PaymentMethod: method,
		PaymentStatus: method.InitialStatus(),
		CreatedAt:     s.now().UTC(),
	}, cart.Version, nil
}
