package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/utafrali/storefront/internal/domain"
)

//go:embed data/products.json
var embeddedProducts []byte

// StaticLoader reads the catalog from a JSON array of products: the file at
// Path, or the catalog compiled into the binary when Path is empty.
type StaticLoader struct {
	Path string
}

func (l StaticLoader) Load(_ context.Context) ([]domain.Product, error) {
	data := embeddedProducts
	if l.Path != "" {
		b, err := os.ReadFile(l.Path)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
		data = b
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode catalog json: %w", err)
	}
	return products, nil
}
