package domain

import "strings"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID          string `json:"id" db:"id"`
	Email       string `json:"email" db:"email"`
	Password    string `json:"password,omitempty" db:"password"`
	Name        string `json:"name" db:"name"`
	Document    string `json:"document" db:"cpfCnpj"`
	Address     string `json:"address" db:"address"`
	Phone       string `json:"phone" db:"phone"`
	ShopID      string `json:"shop_id" db:"shopId"`
	Role        string `json:"role" db:"role"`
	DateCreated string `json:"date_created,omitempty" db:"dateCreated"`
}

// NormalizeRole maps anything other than admin to the plain user role.
func NormalizeRole(role string) string {
	if strings.EqualFold(strings.TrimSpace(role), RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}
