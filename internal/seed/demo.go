// Package seed fills a shop with demonstration data and imports product
// catalogs from CSV.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vilapos/m/domain"
	"vilapos/m/internal/clock"
)

// ProductStore is the part of the product repository the seeders need.
type ProductStore interface {
	Insert(ctx context.Context, p domain.NewProduct) (int64, error)
	DeleteByShop(ctx context.Context, shopID string) error
}

// SaleStore is the part of the sale repository the seeders need.
type SaleStore interface {
	Insert(ctx context.Context, s domain.NewSale) (int64, error)
	DeleteByShop(ctx context.Context, shopID string) error
}

type demoProduct struct {
	name        string
	stock       int64
	price       string
	costPrice   string
	minQuantity int64
}

var demoProducts = []demoProduct{
	{"Pão de Açúcar", 50, "0.50", "0.30", 10},
	{"Refrigerante 2L", 30, "4.50", "2.80", 5},
	{"Água Mineral", 100, "1.50", "0.80", 20},
	{"Biscoito Recheado", 25, "2.80", "1.50", 5},
	{"Leite Integral", 40, "3.20", "2.10", 8},
	{"Café 500g", 15, "8.90", "5.50", 3},
	{"Açúcar Cristal 1kg", 35, "2.99", "1.80", 10},
	{"Arroz 5kg", 20, "12.50", "8.20", 5},
}

// demoSale is placed daysAgo days before the seeding day, at noon.
type demoSale struct {
	daysAgo   int
	product   string
	itemsSold int64
	total     string
}

var demoSales = []demoSale{
	{0, "Pão de Açúcar", 25, "12.50"},
	{0, "Refrigerante 2L", 8, "36.00"},
	{0, "Água Mineral", 15, "22.50"},

	{1, "Biscoito Recheado", 12, "33.60"},
	{1, "Leite Integral", 10, "32.00"},
	{1, "Pão de Açúcar", 30, "15.00"},

	{2, "Café 500g", 5, "44.50"},
	{2, "Açúcar Cristal 1kg", 8, "23.92"},
	{2, "Água Mineral", 20, "30.00"},

	{3, "Arroz 5kg", 6, "75.00"},
	{3, "Refrigerante 2L", 12, "54.00"},
	{3, "Pão de Açúcar", 40, "20.00"},

	{4, "Biscoito Recheado", 15, "42.00"},
	{4, "Leite Integral", 8, "25.60"},
	{4, "Água Mineral", 25, "37.50"},

	{5, "Café 500g", 3, "26.70"},
	{5, "Açúcar Cristal 1kg", 10, "29.90"},
	{6, "Arroz 5kg", 4, "50.00"},
	{6, "Refrigerante 2L", 15, "67.50"},
	{7, "Pão de Açúcar", 35, "17.50"},
	{7, "Água Mineral", 18, "27.00"},
	{8, "Biscoito Recheado", 20, "56.00"},
	{8, "Leite Integral", 12, "38.40"},

	{10, "Café 500g", 7, "62.30"},
	{10, "Açúcar Cristal 1kg", 6, "17.94"},
	{11, "Arroz 5kg", 8, "100.00"},
	{11, "Refrigerante 2L", 10, "45.00"},
	{12, "Pão de Açúcar", 45, "22.50"},
	{12, "Água Mineral", 22, "33.00"},
	{13, "Biscoito Recheado", 18, "50.40"},
	{13, "Leite Integral", 14, "44.80"},
	{14, "Café 500g", 4, "35.60"},
	{14, "Açúcar Cristal 1kg", 12, "35.88"},
}

// Result counts the rows a seeder wrote.
type Result struct {
	Products int `json:"products"`
	Sales    int `json:"sales"`
}

// Demo replaces the data of a shop with the sample catalog and two weeks of
// sales ending on the day of now.
func Demo(ctx context.Context, products ProductStore, sales SaleStore, shopID string, now time.Time) (Result, error) {
	var res Result
	if shopID == "" {
		return res, fmt.Errorf("%w: shop id is required", domain.ErrInvalid)
	}
	if err := Clear(ctx, products, sales, shopID); err != nil {
		return res, err
	}

	for _, p := range demoProducts {
		_, err := products.Insert(ctx, domain.NewProduct{
			Name:        p.name,
			Stock:       p.stock,
			Price:       decimal.RequireFromString(p.price),
			CostPrice:   decimal.RequireFromString(p.costPrice),
			MinQuantity: p.minQuantity,
			ShopID:      shopID,
			DateCreated: clock.Stamp(now),
		})
		if err != nil {
			return res, fmt.Errorf("seed product %s: %w", p.name, err)
		}
		res.Products++
	}

	y, m, d := now.Date()
	noon := time.Date(y, m, d, 12, 0, 0, 0, now.Location())
	for _, s := range demoSales {
		_, err := sales.Insert(ctx, domain.NewSale{
			Product:   s.product,
			ItemsSold: s.itemsSold,
			Total:     decimal.RequireFromString(s.total),
			ShopID:    shopID,
			Date:      clock.Stamp(noon.AddDate(0, 0, -s.daysAgo)),
		})
		if err != nil {
			return res, fmt.Errorf("seed sale %s: %w", s.product, err)
		}
		res.Sales++
	}

	zap.L().Info("demo data seeded",
		zap.String("shop", shopID),
		zap.Int("products", res.Products),
		zap.Int("sales", res.Sales))
	return res, nil
}

// Clear removes every sale and product of a shop.
func Clear(ctx context.Context, products ProductStore, sales SaleStore, shopID string) error {
	if err := sales.DeleteByShop(ctx, shopID); err != nil {
		return err
	}
	return products.DeleteByShop(ctx, shopID)
}
