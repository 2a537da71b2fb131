package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/store"
	"github.com/utafrali/storefront/internal/view"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// Cart is the priced cart returned to clients.
type Cart struct {
	view.CartView
	Currency string `json:"currency"`
}

// Favorites is the resolved wishlist returned to clients.
type Favorites struct {
	Items    []view.FavoriteItem `json:"items"`
	Count    int                 `json:"count"`
	Types    []string            `json:"types"`
	Currency string              `json:"currency"`
}

// State is the raw shop state plus badge counts.
type State struct {
	Favorites []domain.ProductID `json:"favorites"`
	Cart      []domain.ProductID `json:"cart"`
	view.Summary
}

// FavoriteToggled is the outcome of ToggleFavorite.
type FavoriteToggled struct {
	ProductID domain.ProductID `json:"product_id"`
	Favorited bool             `json:"favorited"`
	Summary   view.Summary     `json:"summary"`
}

// CartToggled is the outcome of ToggleCart.
type CartToggled struct {
	ProductID domain.ProductID `json:"product_id"`
	InCart    bool             `json:"in_cart"`
	Cart      Cart             `json:"cart"`
}

// FavoritesAdded is the outcome of AddAllFavoritesToCart.
type FavoritesAdded struct {
	Added int  `json:"added"`
	Cart  Cart `json:"cart"`
}

// AddToCartInput is the body of an add-to-cart request.
type AddToCartInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

// SetQuantityInput is the body of a set-quantity request. Zero or less
// removes the product.
type SetQuantityInput struct {
	Quantity int `json:"quantity" validate:"lte=100"`
}

// ShopService validates requests against the catalog and drives the store.
type ShopService struct {
	store    *store.Store
	catalog  *catalog.Catalog
	policy   view.ShippingPolicy
	currency string
	logger   *slog.Logger

	// mu makes check-then-mutate sequences atomic.
	mu sync.Mutex
}

// NewShopService creates a new shop service.
func NewShopService(st *store.Store, cat *catalog.Catalog, policy view.ShippingPolicy, currency string, logger *slog.Logger) *ShopService {
	return &ShopService{
		store:    st,
		catalog:  cat,
		policy:   policy,
		currency: currency,
		logger:   logger,
	}
}

// State returns the raw collections and their counts.
func (s *ShopService) State(_ context.Context) State {
	snap := s.store.Snapshot()
	favs := snap.Favorites.IDs()
	if favs == nil {
		favs = []domain.ProductID{}
	}
	cart := snap.Cart.IDs()
	if cart == nil {
		cart = []domain.ProductID{}
	}
	return State{
		Favorites: favs,
		Cart:      cart,
		Summary:   view.Summarize(snap.Favorites, snap.Cart),
	}
}

// ListProducts pages through the catalog.
func (s *ShopService) ListProducts(_ context.Context, filter catalog.Filter, params pagination.Params) pagination.Result[domain.Product] {
	products, total := s.catalog.List(filter, params.Offset, params.PerPage)
	return pagination.NewResult(products, total, params)
}

// GetProduct returns a single catalog product.
func (s *ShopService) GetProduct(_ context.Context, id int64) (domain.Product, error) {
	pid, err := productID(id)
	if err != nil {
		return domain.Product{}, err
	}
	p, ok := s.catalog.Product(pid)
	if !ok {
		return domain.Product{}, apperrors.NotFound("product", strconv.FormatInt(id, 10))
	}
	return p, nil
}

// Favorites returns the resolved wishlist.
func (s *ShopService) Favorites(_ context.Context, opts view.FavoritesOptions) Favorites {
	snap := s.store.Snapshot()
	return s.favorites(snap, opts)
}

// Cart returns the priced cart.
func (s *ShopService) Cart(_ context.Context) Cart {
	return s.cart(s.store.Snapshot())
}

// ToggleFavorite adds or removes id from favorites. Only catalog products
// can be added; any id can be removed.
func (s *ShopService) ToggleFavorite(ctx context.Context, id int64) (*FavoriteToggled, error) {
	pid, err := productID(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Snapshot().Favorites.Contains(pid) {
		if err := s.requireProduct(pid); err != nil {
			return nil, err
		}
	}

	favorited, err := s.store.ToggleFavorite(ctx, pid)
	if err != nil {
		return nil, s.storeError(ctx, err)
	}

	s.logger.InfoContext(ctx, "favorite toggled",
		slog.Int64("product_id", id),
		slog.Bool("favorited", favorited),
	)

	snap := s.store.Snapshot()
	return &FavoriteToggled{
		ProductID: pid,
		Favorited: favorited,
		Summary:   view.Summarize(snap.Favorites, snap.Cart),
	}, nil
}

// AddAllFavoritesToCart puts every favorite not yet in the cart into it at
// quantity one.
func (s *ShopService) AddAllFavoritesToCart(ctx context.Context) (*FavoritesAdded, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added, err := s.store.AddAllFavoritesToCart(ctx)
	if err != nil {
		return nil, s.storeError(ctx, err)
	}

	s.logger.InfoContext(ctx, "favorites added to cart",
		slog.Int("added", added),
	)

	return &FavoritesAdded{Added: added, Cart: s.cart(s.store.Snapshot())}, nil
}

// AddToCart adds one unit of a catalog product.
func (s *ShopService) AddToCart(ctx context.Context, input AddToCartInput) (*Cart, error) {
	pid, err := productID(input.ProductID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireProduct(pid); err != nil {
		return nil, err
	}
	if s.store.Snapshot().Cart.Quantity(pid) >= domain.MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", domain.MaxQuantityPerItem))
	}

	qty, err := s.store.AddToCart(ctx, pid)
	if err != nil {
		return nil, s.storeError(ctx, err)
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.Int64("product_id", input.ProductID),
		slog.Int("quantity", qty),
	)

	cart := s.cart(s.store.Snapshot())
	return &cart, nil
}

// ToggleCart removes every unit of id when present, otherwise adds one.
func (s *ShopService) ToggleCart(ctx context.Context, id int64) (*CartToggled, error) {
	pid, err := productID(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Snapshot().Cart.Contains(pid) {
		if err := s.requireProduct(pid); err != nil {
			return nil, err
		}
	}

	inCart, err := s.store.ToggleCart(ctx, pid)
	if err != nil {
		return nil, s.storeError(ctx, err)
	}

	s.logger.InfoContext(ctx, "cart presence toggled",
		slog.Int64("product_id", id),
		slog.Bool("in_cart", inCart),
	)

	return &CartToggled{ProductID: pid, InCart: inCart, Cart: s.cart(s.store.Snapshot())}, nil
}

// SetQuantity sets the quantity of a product. Zero or less removes it.
func (s *ShopService) SetQuantity(ctx context.Context, id int64, input SetQuantityInput) (*Cart, error) {
	pid, err := productID(id)
	if err != nil {
		return nil, err
	}
	if input.Quantity > domain.MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", domain.MaxQuantityPerItem))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if input.Quantity > 0 {
		if err := s.requireProduct(pid); err != nil {
			return nil, err
		}
	}

	if err := s.store.SetQuantity(ctx, pid, input.Quantity); err != nil {
		return nil, s.storeError(ctx, err)
	}

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.Int64("product_id", id),
		slog.Int("quantity", input.Quantity),
	)

	cart := s.cart(s.store.Snapshot())
	return &cart, nil
}

// RemoveFromCart removes every unit of id. Removing an absent id is a no-op.
func (s *ShopService) RemoveFromCart(ctx context.Context, id int64) (*Cart, error) {
	pid, err := productID(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.RemoveFromCart(ctx, pid); err != nil {
		return nil, s.storeError(ctx, err)
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.Int64("product_id", id),
	)

	cart := s.cart(s.store.Snapshot())
	return &cart, nil
}

// ClearCart empties the cart.
func (s *ShopService) ClearCart(ctx context.Context) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ClearCart(ctx); err != nil {
		return nil, s.storeError(ctx, err)
	}

	s.logger.InfoContext(ctx, "cart cleared")

	cart := s.cart(s.store.Snapshot())
	return &cart, nil
}

func (s *ShopService) cart(snap store.Snapshot) Cart {
	return Cart{
		CartView: view.BuildCart(snap.Cart, s.catalog, s.policy),
		Currency: s.currency,
	}
}

func (s *ShopService) favorites(snap store.Snapshot, opts view.FavoritesOptions) Favorites {
	items := view.BuildFavorites(snap.Favorites, snap.Cart, s.catalog, opts)
	return Favorites{
		Items:    items,
		Count:    len(items),
		Types:    s.catalog.Types(),
		Currency: s.currency,
	}
}

func (s *ShopService) requireProduct(id domain.ProductID) error {
	if _, ok := s.catalog.Product(id); !ok {
		return apperrors.NotFound("product", strconv.FormatInt(int64(id), 10))
	}
	return nil
}

func productID(id int64) (domain.ProductID, error) {
	pid := domain.ProductID(id)
	if !pid.Valid() {
		return 0, apperrors.InvalidInput("product id must be a positive integer")
	}
	return pid, nil
}

// storeError maps a backend write failure to a 503.
func (s *ShopService) storeError(ctx context.Context, err error) error {
	s.logger.ErrorContext(ctx, "shop state write failed", slog.String("error", err.Error()))
	return apperrors.Unavailable("shop state could not be saved", err)
}
