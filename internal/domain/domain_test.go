package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Favorites
// ============================================================================

func TestFavorites_ToggleTwiceRestores(t *testing.T) {
	f := NewFavorites([]ProductID{1, 2})
	before := f.IDs()

	assert.True(t, f.Toggle(3))
	assert.False(t, f.Toggle(3))
	assert.Equal(t, before, f.IDs())

	assert.False(t, f.Toggle(1))
	assert.True(t, f.Toggle(1))
	assert.ElementsMatch(t, before, f.IDs())
}

func TestFavorites_NeverDuplicates(t *testing.T) {
	f := NewFavorites([]ProductID{4, 4, 2, 4, 2})
	assert.Equal(t, []ProductID{4, 2}, f.IDs())

	var z Favorites
	for _, id := range []ProductID{7, 7, 7} {
		z.Toggle(id)
	}
	assert.Equal(t, []ProductID{7}, z.IDs())
}

func TestFavorites_CloneIsIndependent(t *testing.T) {
	f := NewFavorites([]ProductID{1})
	cp := f.Clone()
	cp.Toggle(2)

	assert.Equal(t, 1, f.Len())
	assert.Equal(t, 2, cp.Len())
}

// ============================================================================
// Cart
// ============================================================================

func TestCart_AddAccumulatesSingleEntry(t *testing.T) {
	var c Cart
	for i := 0; i < 3; i++ {
		c.Add(5)
	}

	assert.Equal(t, []CartEntry{{ProductID: 5, Quantity: 3}}, c.Entries())
	assert.Equal(t, []ProductID{5, 5, 5}, c.IDs())
	assert.Equal(t, 3, c.ItemCount())
	assert.Equal(t, 1, c.Len())
}

func TestCart_RemoveDeletesAllUnits(t *testing.T) {
	c := CartFromIDs([]ProductID{5, 3, 5})

	assert.True(t, c.Remove(5))
	assert.False(t, c.Contains(5))
	assert.Equal(t, []ProductID{3}, c.IDs())
	assert.False(t, c.Remove(5))
}

func TestCart_FromIDsGroupsByFirstAppearance(t *testing.T) {
	c := CartFromIDs([]ProductID{3, 7, 3, 1, 7, 3})

	assert.Equal(t, []CartEntry{
		{ProductID: 3, Quantity: 3},
		{ProductID: 7, Quantity: 2},
		{ProductID: 1, Quantity: 1},
	}, c.Entries())
	assert.Equal(t, []ProductID{3, 3, 3, 7, 7, 1}, c.IDs())
}

func TestCart_Set(t *testing.T) {
	c := CartFromIDs([]ProductID{1, 2})

	c.Set(1, 4)
	assert.Equal(t, []ProductID{1, 1, 1, 1, 2}, c.IDs(), "existing id keeps its position")

	c.Set(9, 2)
	assert.Equal(t, 2, c.Quantity(9))
	assert.Equal(t, ProductID(9), c.Entries()[2].ProductID)

	c.Set(2, 0)
	assert.False(t, c.Contains(2))

	c.Set(1, -3)
	assert.False(t, c.Contains(1))
	assert.Equal(t, []CartEntry{{ProductID: 9, Quantity: 2}}, c.Entries())
}

func TestCart_Clear(t *testing.T) {
	c := CartFromIDs([]ProductID{1, 1, 2})
	c.Clear()

	assert.Equal(t, 0, c.ItemCount())
	assert.Empty(t, c.IDs())

	c.Add(4)
	assert.Equal(t, []ProductID{4}, c.IDs())
}

func TestCart_CloneIsIndependent(t *testing.T) {
	c := CartFromIDs([]ProductID{1})
	cp := c.Clone()
	cp.Add(1)
	cp.Add(2)

	assert.Equal(t, []ProductID{1}, c.IDs())
	assert.Equal(t, []ProductID{1, 1, 2}, cp.IDs())

	var zero Cart
	zc := zero.Clone()
	zc.Add(3)
	assert.Equal(t, 0, zero.ItemCount())
}

func TestProduct_OnSale(t *testing.T) {
	higher := int64(5999)
	lower := int64(1000)

	assert.True(t, Product{Price: 4999, OriginalPrice: &higher}.OnSale())
	assert.False(t, Product{Price: 4999, OriginalPrice: &lower}.OnSale())
	assert.False(t, Product{Price: 4999}.OnSale())
	assert.False(t, ProductID(0).Valid())
	assert.True(t, ProductID(1).Valid())
}
