package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/storefront/internal/domain"
)

// Source names a catalog loader.
type Source string

const (
	SourceStatic   Source = "static"
	SourcePostgres Source = "postgres"
	SourceRemote   Source = "remote"
)

// Loader fetches the raw product list from a backing source.
type Loader interface {
	Load(ctx context.Context) ([]domain.Product, error)
}

// Load fetches products from loader and builds the catalog.
func Load(ctx context.Context, loader Loader, logger *slog.Logger) (*Catalog, error) {
	start := time.Now()

	products, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	c, err := New(products)
	if err != nil {
		return nil, err
	}

	logger.Info("catalog loaded",
		slog.Int("products", c.Len()),
		slog.Duration("duration", time.Since(start)),
	)
	return c, nil
}
