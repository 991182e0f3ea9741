package domain

import "github.com/shopspring/decimal"

// Product is a stocked item owned by exactly one shop.
type Product struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Stock       int64           `db:"stock" json:"stock"`
	Price       decimal.Decimal `db:"price" json:"price"`
	CostPrice   decimal.Decimal `db:"costPrice" json:"cost_price"`
	MinQuantity int64           `db:"minQuantity" json:"min_quantity"`
	ShopID      string          `db:"shopId" json:"shop_id"`
	DateCreated string          `db:"dateCreated" json:"date_created"`
}

// LowStock reports whether the product has fallen below its threshold.
func (p Product) LowStock() bool {
	return p.Stock < p.MinQuantity
}

// NewProduct is the insert payload for a product.
type NewProduct struct {
	Name        string          `db:"name" json:"name"`
	Stock       int64           `db:"stock" json:"stock"`
	Price       decimal.Decimal `db:"price" json:"price"`
	CostPrice   decimal.Decimal `db:"costPrice" json:"cost_price"`
	MinQuantity int64           `db:"minQuantity" json:"min_quantity"`
	ShopID      string          `db:"shopId" json:"shop_id"`
	DateCreated string          `db:"dateCreated" json:"-"`
}

// Validate checks the invariants of a new product.
func (p NewProduct) Validate() error {
	switch {
	case p.Name == "":
		return invalid("name is required")
	case p.ShopID == "":
		return invalid("shop id is required")
	case p.Stock < 0:
		return invalid("stock must not be negative")
	case p.Price.IsNegative():
		return invalid("price must not be negative")
	case p.CostPrice.IsNegative():
		return invalid("cost price must not be negative")
	case p.MinQuantity < 0:
		return invalid("min quantity must not be negative")
	}
	return nil
}

// ProductPatch carries a partial product update. Nil fields are left untouched.
type ProductPatch struct {
	Name        *string          `json:"name,omitempty"`
	Stock       *int64           `json:"stock,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	CostPrice   *decimal.Decimal `json:"cost_price,omitempty"`
	MinQuantity *int64           `json:"min_quantity,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Stock == nil && p.Price == nil && p.CostPrice == nil && p.MinQuantity == nil
}

// Validate checks the supplied fields only.
func (p ProductPatch) Validate() error {
	switch {
	case p.Name != nil && *p.Name == "":
		return invalid("name must not be empty")
	case p.Stock != nil && *p.Stock < 0:
		return invalid("stock must not be negative")
	case p.Price != nil && p.Price.IsNegative():
		return invalid("price must not be negative")
	case p.CostPrice != nil && p.CostPrice.IsNegative():
		return invalid("cost price must not be negative")
	case p.MinQuantity != nil && *p.MinQuantity < 0:
		return invalid("min quantity must not be negative")
	}
	return nil
}
