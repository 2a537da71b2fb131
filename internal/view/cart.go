// Package view derives read models from shop state and the catalog.
// Every builder is a pure function of its inputs.
package view

import "github.com/utafrali/storefront/internal/domain"

// ProductLookup resolves product ids against the catalog.
type ProductLookup interface {
	Product(id domain.ProductID) (domain.Product, bool)
}

// ShippingPolicy prices shipping from the cart subtotal. Shipping is free
// only when the subtotal is strictly greater than FreeThreshold.
type ShippingPolicy struct {
	FreeThreshold int64 `json:"free_threshold"`
	FlatFee       int64 `json:"flat_fee"`
}

// DefaultShippingPolicy is free shipping above 100.00 and 15.00 otherwise.
func DefaultShippingPolicy() ShippingPolicy {
	return ShippingPolicy{FreeThreshold: 10000, FlatFee: 1500}
}

// Shipping returns the shipping cost for subtotal.
func (p ShippingPolicy) Shipping(subtotal int64) int64 {
	if subtotal > p.FreeThreshold {
		return 0
	}
	return p.FlatFee
}

// CartLine is a resolved cart entry.
type CartLine struct {
	domain.Product
	Quantity  int   `json:"quantity"`
	LineTotal int64 `json:"line_total"`
}

// CartView is the priced cart as displayed to the shopper.
type CartView struct {
	Lines     []CartLine `json:"items"`
	ItemCount int        `json:"item_count"`
	Subtotal  int64      `json:"subtotal"`
	Shipping  int64      `json:"shipping"`
	Total     int64      `json:"total"`

	// AmountToFreeShipping is how much more the subtotal must grow before
	// shipping becomes free; 0 once it already is.
	AmountToFreeShipping int64 `json:"amount_to_free_shipping"`
}

// BuildCart resolves cart entries in first-insertion order, silently
// dropping ids the catalog does not know, and prices the result.
func BuildCart(cart domain.Cart, lookup ProductLookup, policy ShippingPolicy) CartView {
	v := CartView{Lines: make([]CartLine, 0, cart.Len())}

	for _, e := range cart.Entries() {
		p, ok := lookup.Product(e.ProductID)
		if !ok {
			continue
		}
		line := CartLine{Product: p, Quantity: e.Quantity, LineTotal: p.Price * int64(e.Quantity)}
		v.Lines = append(v.Lines, line)
		v.ItemCount += line.Quantity
		v.Subtotal += line.LineTotal
	}

	v.Shipping = policy.Shipping(v.Subtotal)
	v.Total = v.Subtotal + v.Shipping
	if v.Shipping > 0 {
		v.AmountToFreeShipping = policy.FreeThreshold - v.Subtotal + 1
	}
	return v
}
