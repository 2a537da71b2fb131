package domain

// ProductID identifies a catalog product. Valid ids are positive.
type ProductID int64

// Valid reports whether id can name a product.
func (id ProductID) Valid() bool {
	return id > 0
}

// Product is a read-only catalog entry. Prices are in minor units (cents).
type Product struct {
	ID            ProductID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Image         string    `json:"image"`
	Badges        []string  `json:"badges"`
	Type          string    `json:"type"`
	Price         int64     `json:"price"`
	OriginalPrice *int64    `json:"original_price,omitempty"`
	Rating        float64   `json:"rating"`
}

// OnSale reports whether the product carries a higher original price.
func (p Product) OnSale() bool {
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}
