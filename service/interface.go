package service

import (
	"context"

	models "ecofinds/model"
)

type ServiceInterface interface {
	CreateProduct(ctx context.Context, sellerID string, in ProductInput) (models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (models.Product, error)

	GetCart(ctx context.Context, userID string) (models.Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (models.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (models.Cart, error)
	DecreaseItem(ctx context.Context, userID, productID string, amount int) (models.Cart, error)
	SetQuantity(ctx context.Context, userID, productID string, quantity int) (models.Cart, error)
	DescribeCart(ctx context.Context, cart models.Cart) ([]CartLine, error)

	Checkout(ctx context.Context, userID string, method models.PaymentMethod) (models.Order, error)
	MarkPaid(ctx context.Context, orderID string) (models.Order, error)
	GetOrder(ctx context.Context, orderID string) (models.Order, error)
	ListOrders(ctx context.Context, userID string) ([]models.Order, error)
}

var _ ServiceInterface = (*Service)(nil)
