package view

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/utafrali/storefront/internal/domain"
)

// SortOrder orders the favorites list.
type SortOrder string

const (
	SortRecent    SortOrder = "recent"
	SortPriceLow  SortOrder = "price-low"
	SortPriceHigh SortOrder = "price-high"
	SortRating    SortOrder = "rating"
)

// AllTypes disables the product type filter.
const AllTypes = "all"

// ParseSortOrder maps the empty string to SortRecent and rejects unknown orders.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case "":
		return SortRecent, nil
	case SortRecent, SortPriceLow, SortPriceHigh, SortRating:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// FavoritesOptions filters and orders BuildFavorites output.
type FavoritesOptions struct {
	Type string
	Sort SortOrder
}

// FavoriteItem is a resolved favorite.
type FavoriteItem struct {
	domain.Product
	InCart bool `json:"in_cart"`
}

// BuildFavorites resolves favorites against the catalog, drops unknown ids,
// applies the type filter and sorts. "recent" sorts by id descending, newer
// catalog entries first. Ties keep favorite order.
func BuildFavorites(favorites domain.Favorites, cart domain.Cart, lookup ProductLookup, opts FavoritesOptions) []FavoriteItem {
	items := make([]FavoriteItem, 0, favorites.Len())
	for _, id := range favorites.IDs() {
		p, ok := lookup.Product(id)
		if !ok {
			continue
		}
		if opts.Type != "" && opts.Type != AllTypes && p.Type != opts.Type {
			continue
		}
		items = append(items, FavoriteItem{Product: p, InCart: cart.Contains(id)})
	}

	slices.SortStableFunc(items, compareBy(opts.Sort))
	return items
}

func compareBy(order SortOrder) func(a, b FavoriteItem) int {
	switch order {
	case SortPriceLow:
		return func(a, b FavoriteItem) int { return cmp.Compare(a.Price, b.Price) }
	case SortPriceHigh:
		return func(a, b FavoriteItem) int { return cmp.Compare(b.Price, a.Price) }
	case SortRating:
		return func(a, b FavoriteItem) int { return cmp.Compare(b.Rating, a.Rating) }
	default:
		return func(a, b FavoriteItem) int { return cmp.Compare(b.ID, a.ID) }
	}
}

// Summary carries the navbar badge counts. They count raw state, so ids the
// catalog no longer knows are still included.
type Summary struct {
	FavoriteCount int `json:"favorite_count"`
	CartItemCount int `json:"cart_item_count"`
	CartLineCount int `json:"cart_line_count"`
}

// Summarize counts favorites and cart units.
func Summarize(favorites domain.Favorites, cart domain.Cart) Summary {
	return Summary{
		FavoriteCount: favorites.Len(),
		CartItemCount: cart.ItemCount(),
		CartLineCount: cart.Len(),
	}
}
