package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"golang.org/x/sync/errgroup"

	models "ecofinds/model"
	"ecofinds/store"
)

func TestAddItemIncrements(t *testing.T) {
	fs := newFakeStore()
	seed(t, fs, "p1", "u2", 500)
	svc := newTestService(fs)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "u1", "p1", 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	c, err := svc.AddItem(ctx, "u1", "p1", 3)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(c.Items) != 1 || c.Quantity("p1") != 5 {
		t.Fatalf("expected a single entry with 5, got %+v", c.Items)
	}
}

func TestAddItemRejections(t *testing.T) {
	fs := newFakeStore()
	seed(t, fs, "own", "u1", 100)
	seed(t, fs, "p1", "u2", 100)
	svc := newTestService(fs)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "own", 1)
	expectKind(t, err, KindInvalidOperation)
	var se *Error
	if !errors.As(err, &se) || se.Message != ErrMsgOwnProduct {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.AddItem(ctx, "u1", "missing", 1)
	expectKind(t, err, KindNotFound)

	_, err = svc.AddItem(ctx, "u1", "p1", 0)
	expectKind(t, err, KindInvalidOperation)

	_, err = svc.AddItem(ctx, "", "p1", 1)
	expectKind(t, err, KindInvalidOperation)

	if fs.putCalls.Load() != 0 {
		t.Fatalf("rejected adds must not write, got %d writes", fs.putCalls.Load())
	}
	c, _ := svc.GetCart(ctx, "u1")
	if !c.IsEmpty() {
		t.Fatalf("cart changed: %+v", c.Items)
	}
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	fs := newFakeStore()
	seed(t, fs, "p1", "u2", 100)
	svc := newTestService(fs)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "u1", "p1", 1); err != nil {
		t.Fatal(err)
	}
	writes := fs.putCalls.Load()

	c, err := svc.RemoveItem(ctx, "u1", "absent")
	if err != nil || c.Quantity("p1") != 1 {
		t.Fatalf("unexpected result: %+v %v", c, err)
	}
	if fs.putCalls.Load() != writes {
		t.Fatalf("removing an absent item must not write")
	}

	for i := 0; i < 2; i++ {
		c, err = svc.RemoveItem(ctx, "u1", "p1")
		if err != nil || !c.IsEmpty() {
			t.Fatalf("remove #%d: %+v %v", i, c, err)
		}
	}
}

func TestDecreaseItem(t *testing.T) {
	fs := newFakeStore()
	seed(t, fs, "p1", "u2", 100)
	svc := newTestService(fs)
	ctx := context.Background()

	_, err := svc.DecreaseItem(ctx, "u1", "p1", 1)
	expectKind(t, err, KindNotFound)

	_, _ = svc.AddItem(ctx, "u1", "p1", 3)
	c, err := svc.DecreaseItem(ctx, "u1", "p1", 1)
	if err != nil || c.Quantity("p1") != 2 {
		t.Fatalf("expected 2, got %+v %v", c, err)
	}
	_, err = svc.DecreaseItem(ctx, "u1", "p1", 0)
	expectKind(t, err, KindInvalidOperation)

	c, err = svc.DecreaseItem(ctx, "u1", "p1", 10)
	if err != nil || !c.IsEmpty() {
		t.Fatalf("expected entry removed, got %+v %v", c, err)
	}
}

func TestSetQuantity(t *testing.T) {
	fs := newFakeStore()
	seed(t, fs, "p1", "u2", 100)
	seed(t, fs, "own", "u1", 100)
	svc := newTestService(fs)
	ctx := context.Background()

	c, err := svc.SetQuantity(ctx, "u1", "p1", 4)
	if err != nil || c.Quantity("p1") != 4 {
		t.Fatalf("expected 4, got %+v %v", c, err)
	}
	c, err = svc.SetQuantity(ctx, "u1", "p1", 2)
	if err != nil || c.Quantity("p1") != 2 {
		t.Fatalf("expected 2, got %+v %v", c, err)
	}
	c, err = svc.SetQuantity(ctx, "u1", "p1", 0)
	if err != nil || !c.IsEmpty() {
		t.Fatalf("expected removal, got %+v %v", c, err)
	}

	_, err = svc.SetQuantity(ctx, "u1", "own", 1)
	expectKind(t, err, KindInvalidOperation)
	_, err = svc.SetQuantity(ctx, "u1", "missing", 1)
	expectKind(t, err, KindNotFound)
}

func TestMutationRetriesOnConflict(t *testing.T) {
	fs := newFakeStore()
	seed(t, fs, "p1", "u2", 100)
	svc := newTestService(fs)
	ctx := context.Background()

	var calls int
	fs.PutCartFn = func(ctx context.Context, c models.Cart) (models.Cart, error) {
		calls++
		if calls == 1 {
			return models.Cart{}, store.ErrConflict
		}
		return fs.MemoryStore.PutCart(ctx, c)
	}

	c, err := svc.AddItem(ctx, "u1", "p1", 1)
	if err != nil || c.Quantity("p1") != 1 {
		t.Fatalf("expected retry to succeed, got %+v %v", c, err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 write attempts, got %d", calls)
	}
}

func TestMutationConflictExhausted(t *testing.T) {
	fs := newFakeStore()
	seed(t, fs, "p1", "u2", 100)
	svc := NewService(fs, Options{MaxRetries: 3})

	fs.PutCartFn = func(context.Context, models.Cart) (models.Cart, error) {
		return models.Cart{}, store.ErrConflict
	}

	_, err := svc.AddItem(context.Background(), "u1", "p1", 1)
	expectKind(t, err, KindConflictRetryable)
	if got := fs.putCalls.Load(); got != 4 {
		t.Fatalf("expected 1 attempt plus 3 retries, got %d", got)
	}
}

func TestMutationStoreFailure(t *testing.T) {
	fs := newFakeStore()
	seed(t, fs, "p1", "u2", 100)
	svc := newTestService(fs)

	fs.GetCartFn = func(context.Context, string) (models.Cart, error) {
		return models.Cart{}, errors.New("connection refused")
	}
	_, err := svc.AddItem(context.Background(), "u1", "p1", 1)
	expectKind(t, err, KindStoreUnavailable)
}

// Concurrent adds from one user are never lost.
func TestConcurrentAddsAreSerialized(t *testing.T) {
	fs := newFakeStore()
	seed(t, fs, "p1", "u2", 100)
	svc := newTestService(fs)
	ctx := context.Background()

	const n = 50
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := svc.AddItem(ctx, "u1", "p1", 1)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent add: %v", err)
	}
	c, _ := svc.GetCart(ctx, "u1")
	if c.Quantity("p1") != n {
		t.Fatalf("expected %d, got %d", n, c.Quantity("p1"))
	}
}

// Two service instances over one store behave like two processes: the
// per-user mutex does not span them, so only the versioned write keeps
// updates from being lost.
func TestConcurrentAddsAcrossInstances(t *testing.T) {
	fs := newFakeStore()
	seed(t, fs, "p1", "u2", 100)
	seed(t, fs, "p2", "u2", 100)
	a := NewService(fs, Options{MaxRetries: 1000})
	b := NewService(fs, Options{MaxRetries: 1000})
	ctx := context.Background()

	const n = 25
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := a.AddItem(ctx, "u1", "p1", 1)
			return err
		})
		g.Go(func() error {
			_, err := b.AddItem(ctx, "u1", "p2", 2)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent add: %v", err)
	}
	c, _ := a.GetCart(ctx, "u1")
	if c.Quantity("p1") != n || c.Quantity("p2") != 2*n {
		t.Fatalf("lost update: %+v", c.Items)
	}
}

func TestDescribeCartMarksVanishedProducts(t *testing.T) {
	fs := newFakeStore()
	seed(t, fs, "p1", "u2", 100)
	seed(t, fs, "p2", "u2", 200)
	svc := newTestService(fs)
	ctx := context.Background()

	_, _ = svc.AddItem(ctx, "u1", "p1", 1)
	c, _ := svc.AddItem(ctx, "u1", "p2", 2)
	fs.DeleteProduct("p1")

	lines, err := svc.DescribeCart(ctx, c)
	if err != nil {
		t.Fatalf("DescribeCart: %v", err)
	}
	if len(lines) != 2 || lines[0].Product != nil || lines[1].Product == nil || lines[1].Quantity != 2 {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

func TestAddItemQuantityLimit(t *testing.T) {
	fs := newFakeStore()
	seed(t, fs, "p1", "u2", 500)
	svc := newTestService(fs)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "u1", "p1", models.MaxQuantity); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	_, err := svc.AddItem(ctx, "u1", "p1", 2)
	expectKind(t, err, KindInvalidOperation)

	_, err = svc.AddItem(ctx, "u1", "p1", math.MaxInt)
	expectKind(t, err, KindInvalidOperation)

	_, err = svc.SetQuantity(ctx, "u1", "p1", models.MaxQuantity+1)
	expectKind(t, err, KindInvalidOperation)

	c, _ := svc.GetCart(ctx, "u1")
	if c.Quantity("p1") != models.MaxQuantity {
		t.Fatalf("cart changed by rejected writes: %+v", c.Items)
	}
	if fs.putCalls.Load() != 1 {
		t.Fatalf("expected one write, got %d", fs.putCalls.Load())
	}
}
