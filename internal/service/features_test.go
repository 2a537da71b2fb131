package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storage/memory"
	"github.com/utafrali/storefront/internal/store"
	"github.com/utafrali/storefront/internal/view"
)

type shopTestContext struct {
	catalog *catalog.Catalog
	kv      *memory.Store
	store   *store.Store
	svc     *ShopService
	err     error
	before  []domain.CartEntry
}

func (c *shopTestContext) reset() {
	c.catalog = nil
	c.kv = memory.New()
	c.store = store.New(c.kv, store.WithLogger(quietLogger()))
	c.svc = nil
	c.err = nil
	c.before = nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// parseCents turns "100.01" into 10001.
func parseCents(s string) (int64, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(s), ".")
	frac = (frac + "00")[:2]
	return strconv.ParseInt(whole+frac, 10, 64)
}

func parseIDs(list string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *shopTestContext) shop() (*ShopService, error) {
	if !c.store.Hydrated() {
		if err := c.store.Hydrate(context.Background()); err != nil {
			return nil, err
		}
	}
	if c.svc == nil {
		c.svc = NewShopService(c.store, c.catalog, view.DefaultShippingPolicy(), "BRL", quietLogger())
	}
	return c.svc, nil
}

// Given steps

func (c *shopTestContext) theCatalog(table *godog.Table) error {
	var products []domain.Product
	for _, row := range table.Rows[1:] {
		id, err := strconv.ParseInt(row.Cells[0].Value, 10, 64)
		if err != nil {
			return err
		}
		price, err := parseCents(row.Cells[3].Value)
		if err != nil {
			return err
		}
		products = append(products, domain.Product{
			ID:    domain.ProductID(id),
			Name:  row.Cells[1].Value,
			Type:  row.Cells[2].Value,
			Price: price,
		})
	}
	cat, err := catalog.New(products)
	c.catalog = cat
	return err
}

func (c *shopTestContext) anEmptyShop() error {
	_, err := c.shop()
	return err
}

func (c *shopTestContext) theFavoritesAre(list string) error {
	svc, err := c.shop()
	if err != nil {
		return err
	}
	ids, err := parseIDs(list)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := svc.ToggleFavorite(context.Background(), id); err != nil {
			return err
		}
	}
	return nil
}

func (c *shopTestContext) theCartHolds(list string) error {
	svc, err := c.shop()
	if err != nil {
		return err
	}
	ids, err := parseIDs(list)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := svc.AddToCart(context.Background(), AddToCartInput{ProductID: id}); err != nil {
			return err
		}
	}
	return nil
}

func (c *shopTestContext) thePersistedFavoritesAre(raw string) error {
	return c.kv.Set(context.Background(), store.FavoritesKey, []byte(raw))
}

func (c *shopTestContext) thePersistedCartIs(raw string) error {
	return c.kv.Set(context.Background(), store.CartKey, []byte(raw))
}

// When steps

func (c *shopTestContext) theShopIsHydrated() error {
	_, c.err = c.shop()
	return nil
}

func (c *shopTestContext) iToggleFavorite(id int64) error {
	svc, err := c.shop()
	if err != nil {
		return err
	}
	_, err = svc.ToggleFavorite(context.Background(), id)
	return err
}

func (c *shopTestContext) iAddProductToTheCartTimes(id int64, times int) error {
	svc, err := c.shop()
	if err != nil {
		return err
	}
	for i := 0; i < times; i++ {
		if _, err := svc.AddToCart(context.Background(), AddToCartInput{ProductID: id}); err != nil {
			return err
		}
	}
	return nil
}

func (c *shopTestContext) iRemoveProductFromTheCart(id int64) error {
	svc, err := c.shop()
	if err != nil {
		return err
	}
	_, err = svc.RemoveFromCart(context.Background(), id)
	return err
}

func (c *shopTestContext) iAddAllFavoritesToTheCart() error {
	svc, err := c.shop()
	if err != nil {
		return err
	}
	_, err = svc.AddAllFavoritesToCart(context.Background())
	return err
}

func (c *shopTestContext) iSetTheQuantityOfProductTo(id int64, qty int) error {
	svc, err := c.shop()
	if err != nil {
		return err
	}
	_, err = svc.SetQuantity(context.Background(), id, SetQuantityInput{Quantity: qty})
	return err
}

func (c *shopTestContext) iReloadTheShopFromStorage() error {
	c.before = c.store.Snapshot().Cart.Entries()
	c.store = store.New(c.kv, store.WithLogger(quietLogger()))
	c.svc = nil
	_, err := c.shop()
	return err
}

// Then steps

func (c *shopTestContext) theFavoritesListIs(list string) error {
	want, err := parseIDs(list)
	if err != nil {
		return err
	}
	var got []int64
	for _, id := range c.store.Snapshot().Favorites.IDs() {
		got = append(got, int64(id))
	}
	if !slices.Equal(want, got) {
		return fmt.Errorf("expected favorites %v, got %v", want, got)
	}
	return nil
}

func (c *shopTestContext) theCartHasLines(n int) error {
	if got := len(c.svc.Cart(context.Background()).Lines); got != n {
		return fmt.Errorf("expected %d cart lines, got %d", n, got)
	}
	return nil
}

func (c *shopTestContext) productHasQuantity(id int64, qty int) error {
	for _, l := range c.svc.Cart(context.Background()).Lines {
		if int64(l.ID) == id {
			if l.Quantity != qty {
				return fmt.Errorf("expected product %d quantity %d, got %d", id, qty, l.Quantity)
			}
			return nil
		}
	}
	return fmt.Errorf("product %d is not in the cart", id)
}

func (c *shopTestContext) theCartHasNoLineForProduct(id int64) error {
	for _, l := range c.svc.Cart(context.Background()).Lines {
		if int64(l.ID) == id {
			return fmt.Errorf("product %d is still in the cart with quantity %d", id, l.Quantity)
		}
	}
	return nil
}

func (c *shopTestContext) amountIs(field string) func(string) error {
	return func(amount string) error {
		want, err := parseCents(amount)
		if err != nil {
			return err
		}
		cart := c.svc.Cart(context.Background())
		got := map[string]int64{"subtotal": cart.Subtotal, "shipping": cart.Shipping, "total": cart.Total}[field]
		if got != want {
			return fmt.Errorf("expected %s %d, got %d", field, want, got)
		}
		return nil
	}
}

func (c *shopTestContext) hydrationSucceeded() error {
	if c.err != nil {
		return fmt.Errorf("hydration failed: %w", c.err)
	}
	if !c.store.Hydrated() {
		return fmt.Errorf("store is not hydrated")
	}
	return nil
}

func (c *shopTestContext) theCartIsEmpty() error {
	if n := c.store.Snapshot().Cart.Len(); n != 0 {
		return fmt.Errorf("expected an empty cart, got %d lines", n)
	}
	return nil
}

func (c *shopTestContext) theReloadedCartMatches() error {
	got := c.store.Snapshot().Cart.Entries()
	if !slices.Equal(c.before, got) {
		return fmt.Errorf("expected cart %v after reload, got %v", c.before, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &shopTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the catalog:$`, tc.theCatalog)
	ctx.Step(`^an empty shop$`, tc.anEmptyShop)
	ctx.Step(`^the favorites are "([^"]*)"$`, tc.theFavoritesAre)
	ctx.Step(`^the cart holds "([^"]*)"$`, tc.theCartHolds)
	ctx.Step(`^the persisted favorites are (.*)$`, tc.thePersistedFavoritesAre)
	ctx.Step(`^the persisted cart is (.*)$`, tc.thePersistedCartIs)

	// When steps
	ctx.Step(`^the shop is hydrated$`, tc.theShopIsHydrated)
	ctx.Step(`^I toggle favorite (\d+)$`, tc.iToggleFavorite)
	ctx.Step(`^I add product (\d+) to the cart (\d+) times$`, tc.iAddProductToTheCartTimes)
	ctx.Step(`^I remove product (\d+) from the cart$`, tc.iRemoveProductFromTheCart)
	ctx.Step(`^I add all favorites to the cart$`, tc.iAddAllFavoritesToTheCart)
	ctx.Step(`^I set the quantity of product (\d+) to (-?\d+)$`, tc.iSetTheQuantityOfProductTo)
	ctx.Step(`^I reload the shop from storage$`, tc.iReloadTheShopFromStorage)

	// Then steps
	ctx.Step(`^the favorites list is "([^"]*)"$`, tc.theFavoritesListIs)
	ctx.Step(`^the cart has (\d+) lines?$`, tc.theCartHasLines)
	ctx.Step(`^product (\d+) has quantity (\d+)$`, tc.productHasQuantity)
	ctx.Step(`^the cart has no line for product (\d+)$`, tc.theCartHasNoLineForProduct)
	ctx.Step(`^the subtotal is (\d+\.\d{2})$`, tc.amountIs("subtotal"))
	ctx.Step(`^the shipping is (\d+\.\d{2})$`, tc.amountIs("shipping"))
	ctx.Step(`^the total is (\d+\.\d{2})$`, tc.amountIs("total"))
	ctx.Step(`^hydration succeeded$`, tc.hydrationSucceeded)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
	ctx.Step(`^the reloaded cart matches the cart before the reload$`, tc.theReloadedCartMatches)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
