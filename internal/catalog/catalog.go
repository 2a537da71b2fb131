// Package catalog holds the read-only product catalog the shop state is
// resolved against. A Catalog is immutable once built and safe for
// concurrent use.
package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
)

// Catalog is an immutable, ordered product index.
type Catalog struct {
	byID     map[domain.ProductID]domain.Product
	products []domain.Product
}

// New validates products and indexes them. Ids must be positive and unique
// and prices non-negative. Input order is preserved by All and List.
func New(products []domain.Product) (*Catalog, error) {
	c := &Catalog{
		byID:     make(map[domain.ProductID]domain.Product, len(products)),
		products: make([]domain.Product, 0, len(products)),
	}

	for _, p := range products {
		if !p.ID.Valid() {
			return nil, fmt.Errorf("catalog: product %q has invalid id %d", p.Name, p.ID)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate product id %d", p.ID)
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("catalog: product %d has negative price", p.ID)
		}
		p.Badges = slices.Clone(p.Badges)
		if p.Badges == nil {
			p.Badges = []string{}
		}
		c.byID[p.ID] = p
		c.products = append(c.products, p)
	}

	return c, nil
}

// Product looks up id.
func (c *Catalog) Product(id domain.ProductID) (domain.Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// All returns every product in catalog order.
func (c *Catalog) All() []domain.Product {
	return slices.Clone(c.products)
}

func (c *Catalog) Len() int {
	return len(c.products)
}

// Types returns the distinct product types in first-seen order.
func (c *Catalog) Types() []string {
	var types []string
	for _, p := range c.products {
		if !slices.Contains(types, p.Type) {
			types = append(types, p.Type)
		}
	}
	return types
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	// Type matches the product type exactly; "all" matches every type.
	Type string
	// Query matches a case-insensitive substring of the product name.
	Query string
}

func (f Filter) matches(p domain.Product) bool {
	if f.Type != "" && f.Type != "all" && p.Type != f.Type {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(strings.TrimSpace(f.Query))) {
		return false
	}
	return true
}

// List returns one page of matching products and the total match count.
func (c *Catalog) List(f Filter, offset, limit int) ([]domain.Product, int) {
	var matched []domain.Product
	for _, p := range c.products {
		if f.matches(p) {
			matched = append(matched, p)
		}
	}

	total := len(matched)
	if offset >= total || limit <= 0 {
		return []domain.Product{}, total
	}
	end := min(offset+limit, total)
	return matched[offset:end], total
}
