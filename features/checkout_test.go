package features

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	models "ecofinds/model"
	"ecofinds/service"
	"ecofinds/store"
)

type checkoutTestContext struct {
	mem   *store.MemoryStore
	svc   *service.Service
	order models.Order
	err   error
}

func (c *checkoutTestContext) reset() {
	c.mem = store.NewMemoryStore()
	c.svc = service.NewService(c.mem, service.Options{})
	c.order = models.Order{}
	c.err = nil
}

func (c *checkoutTestContext) aProductPricedSoldBy(id string, price int, seller string) error {
	_, err := c.mem.CreateProduct(context.Background(), models.Product{
		ID: id, SellerID: seller, Title: "listing " + id, Price: decimal.NewFromInt(int64(price)),
	})
	return err
}

func (c *checkoutTestContext) theProductIsRemovedFromTheCatalog(id string) error {
	c.mem.DeleteProduct(id)
	return nil
}

func (c *checkoutTestContext) userAddsOfToTheCart(user string, qty int, product string) error {
	_, c.err = c.svc.AddItem(context.Background(), user, product, qty)
	return nil
}

func (c *checkoutTestContext) userDecreasesBy(user, product string, amount int) error {
	_, c.err = c.svc.DecreaseItem(context.Background(), user, product, amount)
	return nil
}

func (c *checkoutTestContext) userChecksOutPaying(user, method string) error {
	m, err := models.ParsePaymentMethod(method)
	if err != nil {
		return err
	}
	c.order, c.err = c.svc.Checkout(context.Background(), user, m)
	return nil
}

func (c *checkoutTestContext) thePlacedOrderIsMarkedPaid() error {
	if c.err != nil {
		return fmt.Errorf("no order placed: %v", c.err)
	}
	c.order, c.err = c.svc.MarkPaid(context.Background(), c.order.ID)
	return c.err
}

func (c *checkoutTestContext) theOrderTotalIs(total int) error {
	if c.err != nil {
		return fmt.Errorf("expected an order but got error: %v", c.err)
	}
	if !c.order.Total.Equal(decimal.NewFromInt(int64(total))) {
		return fmt.Errorf("expected total %d, got %s", total, c.order.Total)
	}
	return nil
}

func (c *checkoutTestContext) theOrderPaymentStatusIs(status string) error {
	if c.err != nil {
		return fmt.Errorf("expected an order but got error: %v", c.err)
	}
	if string(c.order.PaymentStatus) != status {
		return fmt.Errorf("expected payment status %q, got %q", status, c.order.PaymentStatus)
	}
	return nil
}

func (c *checkoutTestContext) theCartOfIsEmpty(user string) error {
	cart, err := c.svc.GetCart(context.Background(), user)
	if err != nil {
		return err
	}
	if !cart.IsEmpty() {
		return fmt.Errorf("expected empty cart, got %+v", cart.Items)
	}
	return nil
}

func (c *checkoutTestContext) thePlacedOrderIsFirstInTheHistoryOf(user string) error {
	history, err := c.svc.ListOrders(context.Background(), user)
	if err != nil {
		return err
	}
	if len(history) == 0 || history[0].ID != c.order.ID {
		return fmt.Errorf("expected order %s first, got %+v", c.order.ID, history)
	}
	return nil
}

func (c *checkoutTestContext) theHistoryOfIsEmpty(user string) error {
	history, err := c.svc.ListOrders(context.Background(), user)
	if err != nil {
		return err
	}
	if len(history) != 0 {
		return fmt.Errorf("expected no orders, got %d", len(history))
	}
	return nil
}

func (c *checkoutTestContext) theRequestFailsWith(kind string) error {
	if c.err == nil {
		return errors.New("expected the request to fail but it succeeded")
	}
	if got := service.KindOf(c.err).String(); got != kind {
		return fmt.Errorf("expected %s, got %s (%v)", kind, got, c.err)
	}
	return nil
}

func (c *checkoutTestContext) theErrorMessageContains(substring string) error {
	if c.err == nil {
		return errors.New("expected error but request succeeded")
	}
	if !strings.Contains(strings.ToLower(c.err.Error()), strings.ToLower(substring)) {
		return fmt.Errorf("expected error message to contain %q, got %q", substring, c.err.Error())
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a product "([^"]*)" priced (\d+) sold by "([^"]*)"$`, tc.aProductPricedSoldBy)

	// When steps
	ctx.Step(`^"([^"]*)" adds (\d+) of "([^"]*)" to the cart$`, tc.userAddsOfToTheCart)
	ctx.Step(`^"([^"]*)" decreases "([^"]*)" by (\d+)$`, tc.userDecreasesBy)
	ctx.Step(`^"([^"]*)" checks out paying "([^"]*)"$`, tc.userChecksOutPaying)
	ctx.Step(`^the placed order is marked paid$`, tc.thePlacedOrderIsMarkedPaid)
	ctx.Step(`^the product "([^"]*)" is removed from the catalog$`, tc.theProductIsRemovedFromTheCatalog)

	// Then steps
	ctx.Step(`^the order total is (\d+)$`, tc.theOrderTotalIs)
	ctx.Step(`^the order payment status is "([^"]*)"$`, tc.theOrderPaymentStatusIs)
	ctx.Step(`^the cart of "([^"]*)" is empty$`, tc.theCartOfIsEmpty)
	ctx.Step(`^the placed order is first in the history of "([^"]*)"$`, tc.thePlacedOrderIsFirstInTheHistoryOf)
	ctx.Step(`^the history of "([^"]*)" is empty$`, tc.theHistoryOfIsEmpty)
	ctx.Step(`^the request fails with "([^"]*)"$`, tc.theRequestFailsWith)
	ctx.Step(`^the error message contains "([^"]*)"$`, tc.theErrorMessageContains)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
