package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// RouterConfig holds the transport settings taken from configuration.
type RouterConfig struct {
	ServiceName    string
	Namespace      string
	PprofCIDRs     []string
	CORS           middleware.CORSConfig
	CatalogMaxAge  int
	RequestTimeout time.Duration

	// Per-client limit on state mutations; zero MutationRPS disables it.
	MutationRPS   int
	MutationBurst int
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	shop *service.ShopService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(Namespace(cfg.Namespace))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	h := NewShopHandler(shop, logger)
	limitMutations := middleware.RateLimit(cfg.MutationRPS, cfg.MutationBurst, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Catalog reads never change while the process runs.
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(cfg.CatalogMaxAge))
			r.Get("/products", h.ListProducts)
			r.Get("/products/{productId}", h.GetProduct)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)

			r.Get("/shop", h.GetState)
			r.Get("/favorites", h.GetFavorites)
			r.Get("/cart", h.GetCart)

			// Every mutation is a write to the state backend.
			w := r.With(limitMutations)
			w.Post("/favorites/cart", h.AddFavoritesToCart)
			w.Post("/favorites/{productId}/toggle", h.ToggleFavorite)
			w.Delete("/cart", h.ClearCart)
			w.Post("/cart/items", h.AddToCart)
			w.Post("/cart/items/{productId}/toggle", h.ToggleCart)
			w.Put("/cart/items/{productId}", h.SetQuantity)
			w.Delete("/cart/items/{productId}", h.RemoveFromCart)
		})
	})

	return r
}
