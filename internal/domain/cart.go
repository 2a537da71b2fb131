package domain

import "slices"

// MaxQuantityPerItem bounds the quantity of a single product in the cart.
const MaxQuantityPerItem = 100

// CartEntry is one product and its quantity.
type CartEntry struct {
	ProductID ProductID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Cart is a multiset of product ids. Quantities are always >= 1; a product
// whose quantity would drop to zero is removed. Entries keep the order in
// which their product first entered the cart.
// The zero value is an empty cart ready to use.
type Cart struct {
	qty   map[ProductID]int
	order []ProductID
}

// CartFromIDs builds a cart from the repetition encoding, where each
// occurrence of an id adds one unit. Order follows first appearance.
func CartFromIDs(ids []ProductID) Cart {
	var c Cart
	for _, id := range ids {
		c.Add(id)
	}
	return c
}

// Quantity returns the quantity of id, 0 when absent.
func (c Cart) Quantity(id ProductID) int {
	return c.qty[id]
}

// Contains reports whether id has at least one unit in the cart.
func (c Cart) Contains(id ProductID) bool {
	return c.qty[id] > 0
}

// Add increments the quantity of id, inserting it at 1 when absent.
// It returns the new quantity.
func (c *Cart) Add(id ProductID) int {
	if c.qty == nil {
		c.qty = make(map[ProductID]int)
	}
	if c.qty[id] == 0 {
		c.order = append(c.order, id)
	}
	c.qty[id]++
	return c.qty[id]
}

// Set sets the quantity of id. A quantity <= 0 removes id. An id already in
// the cart keeps its position; a new one is appended.
func (c *Cart) Set(id ProductID, quantity int) {
	if quantity <= 0 {
		c.Remove(id)
		return
	}
	if c.qty == nil {
		c.qty = make(map[ProductID]int)
	}
	if c.qty[id] == 0 {
		c.order = append(c.order, id)
	}
	c.qty[id] = quantity
}

// Remove deletes every unit of id. It reports whether id was present.
func (c *Cart) Remove(id ProductID) bool {
	if c.qty[id] == 0 {
		return false
	}
	delete(c.qty, id)
	if i := slices.Index(c.order, id); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.qty = nil
	c.order = nil
}

// Entries returns the cart contents in first-insertion order.
func (c Cart) Entries() []CartEntry {
	entries := make([]CartEntry, 0, len(c.order))
	for _, id := range c.order {
		entries = append(entries, CartEntry{ProductID: id, Quantity: c.qty[id]})
	}
	return entries
}

// IDs returns the repetition encoding of the cart: each id repeated
// quantity times, grouped in first-insertion order.
func (c Cart) IDs() []ProductID {
	ids := make([]ProductID, 0, c.ItemCount())
	for _, id := range c.order {
		for range c.qty[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// ItemCount is the total number of units across all products.
func (c Cart) ItemCount() int {
	var n int
	for _, q := range c.qty {
		n += q
	}
	return n
}

// Len is the number of distinct products.
func (c Cart) Len() int {
	return len(c.order)
}

// Clone returns an independent copy.
func (c Cart) Clone() Cart {
	cp := Cart{order: slices.Clone(c.order)}
	if c.qty != nil {
		cp.qty = make(map[ProductID]int, len(c.qty))
		for id, q := range c.qty {
			cp.qty[id] = q
		}
	}
	return cp
}
