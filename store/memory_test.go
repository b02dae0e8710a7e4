package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	models "ecofinds/model"
)

func TestMemoryStore_PutCartCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	c, err := s.GetCart(ctx, "u1")
	if err != nil || c.Version != 0 {
		t.Fatalf("expected fresh cart, got %+v %v", c, err)
	}
	c.Add("p1", 1)
	first, err := s.PutCart(ctx, c)
	if err != nil || first.Version != 1 {
		t.Fatalf("first put: %+v %v", first, err)
	}

	// A writer holding the old version loses.
	stale := c
	stale.Add("p2", 1)
	if _, err := s.PutCart(ctx, stale); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	first.Add("p1", 2)
	second, err := s.PutCart(ctx, first)
	if err != nil || second.Version != 2 || second.Quantity("p1") != 3 {
		t.Fatalf("second put: %+v %v", second, err)
	}
}

func TestMemoryStore_GetCartReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := models.NewCart("u1")
	c.Add("p1", 1)
	if _, err := s.PutCart(ctx, c); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetCart(ctx, "u1")
	got.Items[0].Quantity = 99

	again, _ := s.GetCart(ctx, "u1")
	if again.Quantity("p1") != 1 {
		t.Fatalf("stored cart mutated through returned value: %+v", again.Items)
	}
}

func TestMemoryStore_CommitCheckout(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := models.NewCart("u1")
	c.Add("p1", 2)
	stored, _ := s.PutCart(ctx, c)

	order := models.Order{
		ID:        "o1",
		UserID:    "u1",
		Items:     []models.OrderItem{{ProductID: "p1", Quantity: 2, UnitPrice: decimal.NewFromInt(5)}},
		Total:     decimal.NewFromInt(10),
		CreatedAt: time.Now(),
	}

	if err := s.CommitCheckout(ctx, order, stored.Version-1); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for stale version, got %v", err)
	}
	if orders, _ := s.ListOrdersByUser(ctx, "u1"); len(orders) != 0 {
		t.Fatalf("stale checkout must not append, got %+v", orders)
	}

	if err := s.CommitCheckout(ctx, order, stored.Version); err != nil {
		t.Fatalf("CommitCheckout failed: %v", err)
	}
	after, _ := s.GetCart(ctx, "u1")
	if !after.IsEmpty() || after.Version != stored.Version+1 {
		t.Fatalf("expected empty cart at next version, got %+v", after)
	}
	orders, _ := s.ListOrdersByUser(ctx, "u1")
	if len(orders) != 1 || orders[0].ID != "o1" {
		t.Fatalf("unexpected history: %+v", orders)
	}
}

func TestMemoryStore_OrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"o1", "o2", "o3"} {
		_ = s.AppendOrder(ctx, models.Order{ID: id, UserID: "u1", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	_ = s.AppendOrder(ctx, models.Order{ID: "other", UserID: "u2", CreatedAt: base})

	got, _ := s.ListOrdersByUser(ctx, "u1")
	if len(got) != 3 || got[0].ID != "o3" || got[2].ID != "o1" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if none, _ := s.ListOrdersByUser(ctx, "nobody"); none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil history, got %v", none)
	}
}

func TestMemoryStore_UpdatePaymentStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.AppendOrder(ctx, models.Order{ID: "o1", UserID: "u1", PaymentStatus: models.PaymentStatusPending})

	got, err := s.UpdatePaymentStatus(ctx, "o1", models.PaymentStatusPending, models.PaymentStatusPaid)
	if err != nil || got.PaymentStatus != models.PaymentStatusPaid {
		t.Fatalf("unexpected result: %+v %v", got, err)
	}
	if _, err := s.UpdatePaymentStatus(ctx, "o1", models.PaymentStatusPending, models.PaymentStatusPaid); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := s.UpdatePaymentStatus(ctx, "missing", models.PaymentStatusPending, models.PaymentStatusPaid); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Products(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, _ = s.CreateProduct(ctx, models.Product{ID: "p1", SellerID: "u2", Title: "Lamp", Price: decimal.NewFromInt(5)})

	if _, err := s.GetProduct(ctx, "p1"); err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	s.DeleteProduct("p1")
	if _, err := s.GetProduct(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
