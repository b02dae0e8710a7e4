package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	models "ecofinds/model"
	"ecofinds/store"
)

func (s *Service) GetOrder(ctx context.Context, orderID string) (models.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Order{}, NewNotFound(ErrMsgOrderNotFound)
	}
	if err != nil {
		return models.Order{}, NewStoreUnavailable(err)
	}
	return o, nil
}

// ListOrders returns the user's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	if userID == "" {
		return nil, NewInvalidOperation(ErrMsgUserRequired)
	}
	out, err := s.store.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, NewStoreUnavailable(err)
	}
	return out, nil
}

// MarkPaid records that a pending order has been paid. Marking a paid
// order again returns it unchanged.
func (s *Service) MarkPaid(ctx context.Context, orderID string) (models.Order, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if o.PaymentStatus == models.PaymentStatusPaid {
		return o, nil
	}

	paid, err := s.store.UpdatePaymentStatus(ctx, orderID, models.PaymentStatusPending, models.PaymentStatusPaid)
	switch {
	case err == nil:
		s.log.Info("order paid", zap.String("order_id", orderID), zap.String("user_id", paid.UserID))
		return paid, nil
	case errors.Is(err, store.ErrConflict):
		// someone else moved it first
		return s.GetOrder(ctx, orderID)
	case errors.Is(err, store.ErrNotFound):
		return models.Order{}, NewNotFound(ErrMsgOrderNotFound)
	default:
		return models.Order{}, NewStoreUnavailable(err)
	}
}
