package domain

import "slices"

// Favorites is an insertion-ordered set of product ids.
// The zero value is an empty set ready to use.
type Favorites struct {
	ids []ProductID
}

// NewFavorites builds a set from ids, keeping the first occurrence of each.
func NewFavorites(ids []ProductID) Favorites {
	f := Favorites{ids: make([]ProductID, 0, len(ids))}
	for _, id := range ids {
		if !f.Contains(id) {
			f.ids = append(f.ids, id)
		}
	}
	return f
}

// Contains reports whether id is a favorite.
func (f Favorites) Contains(id ProductID) bool {
	return slices.Contains(f.ids, id)
}

// Toggle removes id when present and appends it otherwise. It reports
// whether id is a favorite afterwards.
func (f *Favorites) Toggle(id ProductID) bool {
	if i := slices.Index(f.ids, id); i >= 0 {
		f.ids = slices.Delete(f.ids, i, i+1)
		return false
	}
	f.ids = append(f.ids, id)
	return true
}

// IDs returns a copy of the ids in insertion order.
func (f Favorites) IDs() []ProductID {
	return slices.Clone(f.ids)
}

func (f Favorites) Len() int {
	return len(f.ids)
}

// Clone returns an independent copy.
func (f Favorites) Clone() Favorites {
	return Favorites{ids: slices.Clone(f.ids)}
}
