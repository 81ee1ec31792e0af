package models

import "time"

// CartLine is one product entry in the shopper's cart.
type CartLine struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price" binding:"gte=0"`
	Quantity  int     `json:"quantity" binding:"gte=1"`
	ImageRef  string  `json:"image,omitempty"`
}

// HasProduct reports whether the line resolves to a product.
func (l CartLine) HasProduct() bool {
	return l.ProductID != ""
}

type Cart struct {
	OwnerKey  string     `json:"ownerKey"`
	Items     []CartLine `json:"items"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ReplaceCartRequest is the payload for PUT /cart.
type ReplaceCartRequest struct {
	Items []CartLine `json:"items" binding:"dive"`
}
