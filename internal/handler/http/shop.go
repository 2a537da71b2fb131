package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/internal/view"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

// ShopHandler handles HTTP requests for catalog, favorites and cart endpoints.
type ShopHandler struct {
	service *service.ShopService
	logger  *slog.Logger
}

// NewShopHandler creates a new shop HTTP handler.
func NewShopHandler(svc *service.ShopService, logger *slog.Logger) *ShopHandler {
	return &ShopHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AddToCartRequest is the JSON request body for adding a product to the cart.
type AddToCartRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

// SetQuantityRequest is the JSON request body for setting a cart quantity.
// Zero or a negative value removes the product.
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// --- Handlers ---

// GetState handles GET /api/v1/shop
func (h *ShopHandler) GetState(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.State(r.Context())})
}

// ListProducts handles GET /api/v1/products
func (h *ShopHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	filter := catalog.Filter{
		Type:  r.URL.Query().Get("type"),
		Query: r.URL.Query().Get("q"),
	}

	result := h.service.ListProducts(r.Context(), filter, params)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// GetProduct handles GET /api/v1/products/{productId}
func (h *ShopHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePositiveID(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// GetFavorites handles GET /api/v1/favorites
func (h *ShopHandler) GetFavorites(w http.ResponseWriter, r *http.Request) {
	sort, err := view.ParseSortOrder(r.URL.Query().Get("sort"))
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput(err.Error()), h.logger)
		return
	}

	favorites := h.service.Favorites(r.Context(), view.FavoritesOptions{
		Type: r.URL.Query().Get("type"),
		Sort: sort,
	})
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: favorites})
}

// ToggleFavorite handles POST /api/v1/favorites/{productId}/toggle
func (h *ShopHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePositiveID(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	res, err := h.service.ToggleFavorite(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// AddFavoritesToCart handles POST /api/v1/favorites/cart
func (h *ShopHandler) AddFavoritesToCart(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.AddAllFavoritesToCart(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// GetCart handles GET /api/v1/cart
func (h *ShopHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.service.Cart(r.Context())})
}

// ClearCart handles DELETE /api/v1/cart
func (h *ShopHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.ClearCart(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// AddToCart handles POST /api/v1/cart/items
func (h *ShopHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.AddToCart(r.Context(), service.AddToCartInput{ProductID: req.ProductID})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// ToggleCart handles POST /api/v1/cart/items/{productId}/toggle
func (h *ShopHandler) ToggleCart(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePositiveID(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	res, err := h.service.ToggleCart(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// SetQuantity handles PUT /api/v1/cart/items/{productId}
func (h *ShopHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePositiveID(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	var req SetQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.SetQuantity(r.Context(), id, service.SetQuantityInput{Quantity: *req.Quantity})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// RemoveFromCart handles DELETE /api/v1/cart/items/{productId}
func (h *ShopHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePositiveID(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	cart, err := h.service.RemoveFromCart(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}
