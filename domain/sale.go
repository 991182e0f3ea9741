package domain

import "github.com/shopspring/decimal"

// Sale records units of a product sold. Product is the product name at the
// time of sale, not a reference to the products table.
type Sale struct {
	ID        int64           `db:"id" json:"id"`
	Product   string          `db:"product" json:"product"`
	ItemsSold int64           `db:"itemsSold" json:"items_sold"`
	Total     decimal.Decimal `db:"total" json:"total"`
	ShopID    string          `db:"shopId" json:"shop_id"`
	Date      string          `db:"date" json:"date"`
}

// NewSale is the insert payload for a sale. An empty Date means "now".
type NewSale struct {
	Product   string          `db:"product" json:"product"`
	ItemsSold int64           `db:"itemsSold" json:"items_sold"`
	Total     decimal.Decimal `db:"total" json:"total"`
	ShopID    string          `db:"shopId" json:"shop_id"`
	Date      string          `db:"date" json:"date,omitempty"`
}

// Validate checks the invariants of a new sale.
func (s NewSale) Validate() error {
	switch {
	case s.Product == "":
		return invalid("product is required")
	case s.ShopID == "":
		return invalid("shop id is required")
	case s.ItemsSold <= 0:
		return invalid("items sold must be greater than zero")
	case s.Total.IsNegative():
		return invalid("total must not be negative")
	}
	return nil
}
