package domain

// DefaultShopID is the tenant assigned to legacy rows that predate shop scoping.
const DefaultShopID = "default-shop"

type Shop struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	Address     string `db:"address" json:"address"`
	Phone       string `db:"phone" json:"phone"`
	OwnerID     string `db:"ownerId" json:"owner_id"`
	DateCreated string `db:"dateCreated" json:"date_created"`
}
