package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string
type PaymentStatus string

const (
	PaymentMethodPayLater PaymentMethod = "pay_later" // settled outside the service
	PaymentMethodGateway  PaymentMethod = "gateway"   // confirmed by the payment gateway before checkout

	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// ParsePaymentMethod maps a wire value to a PaymentMethod. "razorpay" is
// what the web client sends for gateway payments.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(PaymentMethodPayLater):
		return PaymentMethodPayLater, nil
	case string(PaymentMethodGateway), "razorpay":
		return PaymentMethodGateway, nil
	default:
		return "", fmt.Errorf("invalid payment method %q", s)
	}
}

// InitialStatus is the payment status an order starts in when paid with m.
func (m PaymentMethod) InitialStatus() PaymentStatus {
	if m == PaymentMethodGateway {
		return PaymentStatusPaid
	}
	return PaymentStatusPending
}

type OrderItem struct {
	ProductID string
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (it OrderItem) LineTotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Order is immutable once created, apart from PaymentStatus moving from
// pending to paid.
type Order struct {
	ID            string
	UserID        string
	Items         []OrderItem
	Total         decimal.Decimal
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	CreatedAt     time.Time
}

// SumItems returns Σ UnitPrice × Quantity over items.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}
