package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	models "ecofinds/model"
	"ecofinds/store"
)

func (s *Service) GetCart(ctx context.Context, userID string) (models.Cart, error) {
	if userID == "" {
		return models.Cart{}, NewInvalidOperation(ErrMsgUserRequired)
	}
	c, err := s.store.GetCart(ctx, userID)
	if err != nil {
		return models.Cart{}, NewStoreUnavailable(err)
	}
	return c, nil
}

// AddItem adds quantity units of productID, creating the entry if needed.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (models.Cart, error) {
	if err := requireIDs(userID, productID); err != nil {
		return models.Cart{}, err
	}
	if quantity < 1 {
		return models.Cart{}, NewInvalidOperation(ErrMsgQuantityPositive)
	}
	if quantity > models.MaxQuantity {
		return models.Cart{}, NewInvalidOperation(ErrMsgQuantityTooLarge)
	}
	if err := s.checkPurchasable(ctx, userID, productID); err != nil {
		return models.Cart{}, err
	}
	return s.mutate(ctx, userID, func(c *models.Cart) (bool, error) {
		if !c.Add(productID, quantity) {
			return false, NewInvalidOperation(ErrMsgQuantityTooLarge)
		}
		return true, nil
	})
}

// RemoveItem drops productID from the cart. Removing an absent product
// succeeds without a write.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (models.Cart, error) {
	if err := requireIDs(userID, productID); err != nil {
		return models.Cart{}, err
	}
	return s.mutate(ctx, userID, func(c *models.Cart) (bool, error) {
		return c.Remove(productID), nil
	})
}

func (s *Service) DecreaseItem(ctx context.Context, userID, productID string, amount int) (models.Cart, error) {
	if err := requireIDs(userID, productID); err != nil {
		return models.Cart{}, err
	}
	if amount < 1 {
		return models.Cart{}, NewInvalidOperation(ErrMsgQuantityPositive)
	}
	return s.mutate(ctx, userID, func(c *models.Cart) (bool, error) {
		if !c.Decrease(productID, amount) {
			return false, NewNotFound(ErrMsgItemNotInCart)
		}
		return true, nil
	})
}

// SetQuantity makes the entry for productID exactly quantity. Zero or less
// removes it.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, quantity int) (models.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}
	if quantity > models.MaxQuantity {
		return models.Cart{}, NewInvalidOperation(ErrMsgQuantityTooLarge)
	}
	if err := requireIDs(userID, productID); err != nil {
		return models.Cart{}, err
	}
	if err := s.checkPurchasable(ctx, userID, productID); err != nil {
		return models.Cart{}, err
	}
	return s.mutate(ctx, userID, func(c *models.Cart) (bool, error) {
		if c.Quantity(productID) == quantity {
			return false, nil
		}
		c.Set(productID, quantity)
		return true, nil
	})
}

func requireIDs(userID, productID string) error {
	if userID == "" {
		return NewInvalidOperation(ErrMsgUserRequired)
	}
	if productID == "" {
		return NewInvalidOperation(ErrMsgProductIDRequired)
	}
	return nil
}

func (s *Service) checkPurchasable(ctx context.Context, userID, productID string) error {
	p, err := s.store.GetProduct(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return NewNotFound(ErrMsgProductNotFound)
	}
	if err != nil {
		return NewStoreUnavailable(err)
	}
	if p.SellerID == userID {
		return NewInvalidOperation(ErrMsgOwnProduct)
	}
	return nil
}

// mutate runs fn against a fresh copy of the user's cart and stores the
// result with a versioned write, re-reading and retrying when another
// writer got there first. fn reports whether the cart changed; if not,
// nothing is written and the current cart is returned.
func (s *Service) mutate(ctx context.Context, userID string, fn func(c *models.Cart) (bool, error)) (models.Cart, error) {
	unlock := s.lockForUser(userID)
	defer unlock()

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.Cart{}, NewStoreUnavailable(err)
		}
		current, err := s.store.GetCart(ctx, userID)
		if err != nil {
			return models.Cart{}, NewStoreUnavailable(err)
		}
		next := current.Clone()
		changed, err := fn(&next)
		if err != nil {
			return models.Cart{}, err
		}
		if !changed {
			return current, nil
		}

		saved, err := s.store.PutCart(ctx, next)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return models.Cart{}, NewStoreUnavailable(err)
		}
		lastErr = err
		s.log.Warn("cart write conflict",
			zap.String("user_id", userID),
			zap.Int64("version", current.Version),
			zap.Int("attempt", attempt+1))
	}
	return models.Cart{}, NewConflictRetryable(lastErr)
}
