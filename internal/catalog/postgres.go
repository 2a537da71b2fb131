package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
)

// Querier is the subset of a pgx pool the postgres loader needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const listProductsSQL = `
	SELECT id, name, description, image, badges, type, price, original_price, rating
	FROM catalog_products
	WHERE active
	ORDER BY position, id`

// PostgresLoader reads active rows of catalog_products, which the embedded
// migrations create and seed.
type PostgresLoader struct {
	db Querier
}

func NewPostgresLoader(db Querier) *PostgresLoader {
	return &PostgresLoader{db: db}
}

func (l *PostgresLoader) Load(ctx context.Context) (products []domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "ListCatalogProducts", listProductsSQL)
	defer func() { end(err) }()

	rows, err := l.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("query catalog products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Image,
			&p.Badges,
			&p.Type,
			&p.Price,
			&p.OriginalPrice,
			&p.Rating,
		); err != nil {
			return nil, fmt.Errorf("scan catalog product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog products: %w", err)
	}

	return products, nil
}
